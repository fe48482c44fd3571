// Package subprocset supervises a set of concurrently running
// subproc.Subprocesses: it starts them, funnels their I/O and
// termination into a single wake signal a caller can block on, and
// hands finished subprocesses back through a FIFO queue.
//
// The spec this is built to describes a single-threaded poll loop
// (ppoll/pselect on POSIX) that services ready pipes and reaps SIGCHLD
// by hand. That works well in C; in Go, os/exec already reaps its own
// child safely and racing it with a hand-rolled wait4 call would hang
// (only one waiter ever sees a given child's exit). This package keeps
// the same observable contract — DoWork blocks until there is progress
// to report, NextFinished drains a FIFO of completed subprocesses — but
// gets there with one goroutine per output stream plus one per child
// doing the teacher's own `go func() { cmd.Wait() }()` pattern
// (job/job.go), coalesced onto a single buffered wake channel instead of
// a raw poll(2) set.
package subprocset

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/camh-/buildcore/subproc"
)

// ErrAlreadyActive is returned by New when a SubprocessSet already
// exists in this process; the spec requires process-wide signal state
// to have exactly one owner.
var ErrAlreadyActive = errors.New("subprocset: a SubprocessSet is already active in this process")

var (
	instanceMu sync.Mutex
	active     bool
)

// SubprocessSet owns a collection of running subprocesses plus the
// process-wide interrupt handling that can ask them all to stop.
type SubprocessSet struct {
	mu       sync.Mutex
	running  map[*subproc.Subprocess]struct{}
	finished []*subproc.Subprocess

	wake          chan struct{}
	interruptFlag int32

	teardown func()
}

// New installs process-wide interrupt handling and returns a ready
// SubprocessSet. Only one may exist at a time per process; a second
// call fails with ErrAlreadyActive until the first is closed.
func New() (*SubprocessSet, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if active {
		return nil, ErrAlreadyActive
	}

	s := &SubprocessSet{
		running: make(map[*subproc.Subprocess]struct{}),
		wake:    make(chan struct{}, 1),
	}
	s.teardown = installSignalHandling(s)
	active = true
	return s, nil
}

// Close restores whatever signal disposition New replaced and allows a
// future New call to succeed again. It does not touch any subprocess.
func (s *SubprocessSet) Close() {
	s.teardown()
	instanceMu.Lock()
	active = false
	instanceMu.Unlock()
}

func (s *SubprocessSet) notifyWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Add starts command as a new subprocess and begins supervising it. A
// Start failure (including the synthetic "program not found" case)
// places the subprocess directly in the finished queue; the caller
// still owns it and must eventually call Finish.
func (s *SubprocessSet) Add(argv []string, useConsole bool) *subproc.Subprocess {
	sp := subproc.New(useConsole)
	if err := sp.Start(argv); err != nil || sp.Done() {
		s.mu.Lock()
		s.finished = append(s.finished, sp)
		s.mu.Unlock()
		s.notifyWake()
		return sp
	}

	s.mu.Lock()
	s.running[sp] = struct{}{}
	s.mu.Unlock()

	for _, h := range sp.PollHandles() {
		go s.pumpStream(sp, h)
	}
	go s.pumpWait(sp)
	return sp
}

// pumpStream services one output stream until it reports EOF/error,
// mirroring what OnPipeReady would do if driven by a real poll loop: a
// blocking Read on each call is fine here because the underlying pipe
// is a real blocking fd, there's just one goroutine doing it instead of
// one shared poll(2) call.
func (s *SubprocessSet) pumpStream(sp *subproc.Subprocess, h subproc.PollHandle) {
	for {
		_ = sp.OnPipeReady(h.Stream)
		if sp.StreamClosed(h.Stream) {
			s.maybeFinish(sp)
			return
		}
	}
}

// pumpWait blocks for the child's exit and records it, exactly the
// teacher's job.go reaper goroutine pattern.
func (s *SubprocessSet) pumpWait(sp *subproc.Subprocess) {
	cmd := sp.Cmd()
	err := cmd.Wait()
	sp.MarkReaped(err)
	s.maybeFinish(sp)
}

// maybeFinish moves sp from running to finished the first time all of
// its Done conditions are satisfied, however many of pumpStream/pumpWait
// race to observe that.
func (s *SubprocessSet) maybeFinish(sp *subproc.Subprocess) {
	if !sp.Done() {
		return
	}
	s.mu.Lock()
	if _, ok := s.running[sp]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.running, sp)
	s.finished = append(s.finished, sp)
	s.mu.Unlock()
	s.notifyWake()
}

// DoWork blocks until there is something to report: a subprocess
// finished, or an interrupt signal arrived. It returns true in the
// latter case. The actual I/O and reaping happen continuously in the
// background, so by the time DoWork returns, NextFinished already has
// whatever became ready to report.
func (s *SubprocessSet) DoWork() bool {
	<-s.wake
	return atomic.SwapInt32(&s.interruptFlag, 0) != 0
}

// NextFinished pops one finished subprocess, or nil if none is waiting.
// The caller takes ownership and must call Finish on it.
func (s *SubprocessSet) NextFinished() *subproc.Subprocess {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.finished) == 0 {
		return nil
	}
	sp := s.finished[0]
	s.finished = s.finished[1:]
	return sp
}

// Clear gracefully kills every running non-console child (its whole
// process group) and marks each as interrupted so its eventual Finish
// reports Interrupted rather than Failure.
func (s *SubprocessSet) Clear() {
	s.mu.Lock()
	targets := make([]*subproc.Subprocess, 0, len(s.running))
	for sp := range s.running {
		targets = append(targets, sp)
	}
	s.mu.Unlock()

	for _, sp := range targets {
		if sp.UseConsole() {
			continue
		}
		sp.Interrupt()
		killProcessGroup(sp.Cmd())
	}
}
