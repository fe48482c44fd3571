//go:build windows

package jobserver

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// newEndpoint selects and builds the Windows transport for cfg. Only a
// named Win32 semaphore is supported natively; the pipe/FIFO forms are
// POSIX-only per spec §4.A's native wrapper.
func newEndpoint(cfg Config) (endpoint, error) {
	switch cfg.Mode {
	case ModeNone:
		return nil, nil
	case ModeWin32Semaphore:
		return newSemaphoreEndpoint(cfg.Path)
	case ModeFileDescriptors, ModeFifo:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMode, cfg.Mode)
	default:
		return nil, fmt.Errorf("%w: mode %v", ErrUnsupportedMode, cfg.Mode)
	}
}

// semaphoreEndpoint adapts a counting Win32 semaphore to the byte-token
// endpoint interface used by Client. The token byte value is meaningless
// here (the semaphore has no payload); a released token always reads back
// as the same placeholder byte.
type semaphoreEndpoint struct {
	handle windows.Handle
}

func newSemaphoreEndpoint(name string) (endpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty semaphore name", ErrEndpointSetup)
	}
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid semaphore name %q: %v", ErrEndpointSetup, name, err)
	}
	h, err := windows.OpenSemaphore(windows.SEMAPHORE_ALL_ACCESS, false, namep)
	if err != nil {
		return nil, fmt.Errorf("%w: open semaphore %q: %v", ErrEndpointSetup, name, err)
	}
	return &semaphoreEndpoint{handle: h}, nil
}

const jobserverTokenByte = '+'

func (e *semaphoreEndpoint) tryReadByte() (byte, bool) {
	event, err := windows.WaitForSingleObject(e.handle, 0)
	if err != nil || event != windows.WAIT_OBJECT_0 {
		return 0, false
	}
	return jobserverTokenByte, true
}

func (e *semaphoreEndpoint) writeByte(byte) error {
	var prev int32
	return windows.ReleaseSemaphore(e.handle, 1, &prev)
}

func (e *semaphoreEndpoint) close() error {
	return windows.CloseHandle(e.handle)
}
