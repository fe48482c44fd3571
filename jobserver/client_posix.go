//go:build !windows

package jobserver

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// newEndpoint selects and builds the POSIX transport for cfg. A FIFO path
// is opened afresh, leaving the pool's own descriptors alone. For a
// descriptor pair this Client gets its own close-on-exec duplicates and
// makes them non-blocking; the duplicates share the originals' open file
// descriptions, so the original descriptors become non-blocking as well
// (see dupNonblockCloexec).
func newEndpoint(cfg Config) (endpoint, error) {
	switch cfg.Mode {
	case ModeNone:
		return nil, nil
	case ModeFileDescriptors:
		return newFDEndpoint(cfg.ReadFD, cfg.WriteFD)
	case ModeFifo:
		return newFifoEndpoint(cfg.Path)
	case ModeWin32Semaphore:
		return nil, fmt.Errorf("%w: win32 semaphore", ErrUnsupportedMode)
	default:
		return nil, fmt.Errorf("%w: mode %v", ErrUnsupportedMode, cfg.Mode)
	}
}

// fdEndpoint is a jobserver transport backed by a pair of file descriptors,
// either the descriptor-pair form of --jobserver-auth or the legacy
// --jobserver-fds alias.
type fdEndpoint struct {
	r, w int
}

func newFDEndpoint(readFD, writeFD int) (endpoint, error) {
	if err := requireFIFO(readFD); err != nil {
		return nil, fmt.Errorf("%w: read fd %d: %v", ErrEndpointSetup, readFD, err)
	}
	if err := requireFIFO(writeFD); err != nil {
		return nil, fmt.Errorf("%w: write fd %d: %v", ErrEndpointSetup, writeFD, err)
	}

	r, err := dupNonblockCloexec(readFD)
	if err != nil {
		return nil, fmt.Errorf("%w: dup read fd: %v", ErrEndpointSetup, err)
	}
	w, err := dupNonblockCloexec(writeFD)
	if err != nil {
		unix.Close(r)
		return nil, fmt.Errorf("%w: dup write fd: %v", ErrEndpointSetup, err)
	}
	return &fdEndpoint{r: r, w: w}, nil
}

func (e *fdEndpoint) tryReadByte() (byte, bool) {
	var buf [1]byte
	for {
		n, err := unix.Read(e.r, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n != 1 {
			return 0, false
		}
		return buf[0], true
	}
}

func (e *fdEndpoint) writeByte(b byte) error {
	buf := [1]byte{b}
	for {
		_, err := unix.Write(e.w, buf[:])
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func (e *fdEndpoint) close() error {
	err1 := unix.Close(e.r)
	err2 := unix.Close(e.w)
	if err1 != nil {
		return err1
	}
	return err2
}

// fifoEndpoint is a jobserver transport backed by a named FIFO, opened
// twice (read-only and write-only) so that reads never see EOF even when
// no writer is currently open (and vice versa).
type fifoEndpoint struct {
	r, w int
}

func newFifoEndpoint(path string) (endpoint, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty fifo path", ErrEndpointSetup)
	}

	r, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s for read: %v", ErrEndpointSetup, path, err)
	}
	if err := requireFIFO(r); err != nil {
		unix.Close(r)
		return nil, fmt.Errorf("%w: %s: %v", ErrEndpointSetup, path, err)
	}

	w, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(r)
		return nil, fmt.Errorf("%w: open %s for write: %v", ErrEndpointSetup, path, err)
	}

	return &fifoEndpoint{r: r, w: w}, nil
}

func (e *fifoEndpoint) tryReadByte() (byte, bool) {
	var buf [1]byte
	for {
		n, err := unix.Read(e.r, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n != 1 {
			return 0, false
		}
		return buf[0], true
	}
}

func (e *fifoEndpoint) writeByte(b byte) error {
	buf := [1]byte{b}
	for {
		_, err := unix.Write(e.w, buf[:])
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func (e *fifoEndpoint) close() error {
	err1 := unix.Close(e.r)
	err2 := unix.Close(e.w)
	if err1 != nil {
		return err1
	}
	return err2
}

// requireFIFO checks that fd refers to a FIFO, as mandated by §4.B for both
// the descriptor-pair and FIFO client variants.
func requireFIFO(fd int) error {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFIFO {
		return fmt.Errorf("not a fifo")
	}
	return nil
}

// dupNonblockCloexec duplicates fd into a new close-on-exec descriptor and
// makes it non-blocking. The close-on-exec flag belongs to the new
// descriptor alone and fd stays inheritable, but O_NONBLOCK is a property
// of the open file description the two share, so fd becomes non-blocking
// too.
func dupNonblockCloexec(fd int) (int, error) {
	newfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}
	flags, err := unix.FcntlInt(uintptr(newfd), unix.F_GETFL, 0)
	if err != nil {
		unix.Close(newfd)
		return 0, err
	}
	if _, err := unix.FcntlInt(uintptr(newfd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		unix.Close(newfd)
		return 0, err
	}
	return newfd, nil
}
