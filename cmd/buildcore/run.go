package main

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/exp/slices"

	"github.com/camh-/buildcore/jobserver"
	"github.com/camh-/buildcore/statustable"
	"github.com/camh-/buildcore/subproc"
	"github.com/camh-/buildcore/subprocset"
)

// CmdRun is the buildcore dev harness's only subcommand: it stands up a
// fresh jobserver pool, then runs Command Repeat times, each invocation
// waiting its turn for a pool slot exactly the way a real scheduler
// would — TryAcquire, and if that comes back Invalid, block on DoWork
// until a running command frees one up. This is the control flow
// described for the core: TryAcquire, Add, DoWork, NextFinished,
// Release, UpdateTable, in that loop.
type CmdRun struct {
	Jobs    int      `short:"j" default:"4" help:"number of jobserver slots (including this process's own)"`
	Fifo    bool     `help:"back the pool with a named FIFO instead of an anonymous pipe (POSIX only)"`
	Repeat  int      `short:"n" default:"1" help:"how many times to run Command, each waiting for a pool slot"`
	Command []string `arg:"" passthrough:"" help:"command and arguments to run"`
}

func nowMS() int64 { return time.Now().UnixMilli() }

func (c *CmdRun) Run() error {
	if len(c.Command) == 0 {
		return fmt.Errorf("buildcore: no command given")
	}
	if c.Repeat < 1 {
		return fmt.Errorf("buildcore: -n/--repeat must be at least 1")
	}

	kind := jobserver.PoolPipe
	if c.Fifo {
		kind = jobserver.PoolFifo
	}
	pool, err := jobserver.NewPool(c.Jobs, kind)
	if err != nil {
		return fmt.Errorf("buildcore: creating pool: %w", err)
	}
	defer pool.Close()

	cfg, err := jobserver.ParseEnv(pool.GetEnvString())
	if err != nil {
		return fmt.Errorf("buildcore: parsing pool's own env string: %w", err)
	}
	client, err := jobserver.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("buildcore: creating client: %w", err)
	}
	defer client.Close()

	set, err := subprocset.New()
	if err != nil {
		return fmt.Errorf("buildcore: %w", err)
	}
	defer set.Close()

	term := newANSITerminal(os.Stdout)
	table := statustable.New(term, 8, 100)
	defer table.ClearTable()

	desc := strings.Join(c.Command, " ")
	slots := make(map[*subproc.Subprocess]jobserver.Slot)

	pending := c.Repeat
	running := 0
	failures := 0

	for pending > 0 || running > 0 {
		for pending > 0 {
			slot := client.TryAcquire()
			if !slot.IsValid() {
				break
			}
			sp := set.Add(slices.Clone(c.Command), false)
			slots[sp] = slot
			table.CommandStarted(commandID(sp), nowMS(), desc)
			running++
			pending--
		}

		table.UpdateTable(nowMS(), fmt.Sprintf("buildcore: %d running, %d queued", running, pending))

		if running == 0 {
			continue
		}

		if interrupted := set.DoWork(); interrupted {
			set.Clear()
		}

		for {
			sp := set.NextFinished()
			if sp == nil {
				break
			}
			result, waitErr := sp.Finish()
			client.Release(slots[sp])
			delete(slots, sp)
			table.CommandEnded(commandID(sp))
			running--

			if out := sp.Combined(); len(out) > 0 {
				os.Stdout.Write(out)
			}
			if result != subproc.Success {
				failures++
				fmt.Fprintf(os.Stderr, "buildcore: %s: %v (%v)\n", desc, result, waitErr)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("buildcore: %d of %d runs failed", failures, c.Repeat)
	}
	return nil
}

// commandID derives a statustable.CommandID from a Subprocess's identity,
// the same pointer-derived scheme statustable's own doc comment
// describes: the table never dereferences it, only compares it.
func commandID(sp *subproc.Subprocess) statustable.CommandID {
	return statustable.CommandID(uintptr(unsafe.Pointer(sp)))
}
