//go:build windows

package subproc

import (
	"errors"
	"os/exec"
	"syscall"
)

// createNewProcessGroup mirrors windows.CREATE_NEW_PROCESS_GROUP; placed
// here rather than imported from x/sys/windows to keep this file's only
// dependency the stdlib syscall package, which already exposes
// SysProcAttr.CreationFlags.
const createNewProcessGroup = 0x00000200

// controlCExit is the exit code Windows reports for a process killed by
// CTRL_BREAK_EVENT/CTRL_C_EVENT, i.e. STATUS_CONTROL_C_EXIT.
const controlCExit = 0xC000013A

// nonConsoleProcAttr places a piped child in a new process group so the
// supervisor can deliver CTRL_BREAK_EVENT to it independently of
// whatever console group owns this process.
func nonConsoleProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

// interruptedExit reports whether err (from cmd.Wait) indicates the
// child was killed by the supervisor's break/interrupt signal.
func interruptedExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return uint32(exitErr.ExitCode()) == controlCExit
}
