//go:build windows

package subprocset

import (
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

// installSignalHandling wires os.Interrupt into s.wake via os/signal.
// The Go runtime's own console control handler already translates
// CTRL_C_EVENT and CTRL_BREAK_EVENT into this channel; wiring
// windows.SetConsoleCtrlHandler ourselves on top of that would just be
// racing the runtime's own handler for the same notification.
func installSignalHandling(s *SubprocessSet) func() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, os.Interrupt)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				atomic.StoreInt32(&s.interruptFlag, 1)
				s.notifyWake()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// killProcessGroup delivers CTRL_BREAK_EVENT to cmd's process group.
// It relies on Add having started cmd with CREATE_NEW_PROCESS_GROUP
// (subproc's nonConsoleProcAttr), which makes the child's pid double as
// its process group id.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(cmd.Process.Pid))
}
