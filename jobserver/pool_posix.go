//go:build !windows

package jobserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// jobserverToken is the single byte value written into the pool for each
// explicit slot. Its value is an implementation detail the protocol treats
// as opaque; '+' is the teacher's and the wider ecosystem's convention.
const jobserverToken = '+'

func newPlatformPool(n int, kind PoolKind) (Pool, error) {
	switch kind {
	case PoolFifo:
		return newFifoPool(n)
	default:
		return newPipePool(n)
	}
}

// pipePool is a pool backed by an anonymous pipe. Its descriptors are left
// blocking and inheritable so that children that inherit them can use them
// directly, without the non-blocking duplication a Client performs on its
// own side.
type pipePool struct {
	n    int
	r, w int
}

func newPipePool(n int) (Pool, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fmt.Errorf("%w: pipe: %v", ErrEndpointSetup, err)
	}
	p := &pipePool{n: n, r: fds[0], w: fds[1]}
	if err := writeTokens(p.w, n-1); err != nil {
		unix.Close(p.r)
		unix.Close(p.w)
		return nil, fmt.Errorf("%w: seeding pipe: %v", ErrEndpointSetup, err)
	}
	return p, nil
}

func (p *pipePool) GetEnvString() string {
	return fmt.Sprintf(" -j%d --jobserver-fds=%d,%d --jobserver-auth=%d,%d", p.n, p.r, p.w, p.r, p.w)
}

func (p *pipePool) Close() error {
	err1 := unix.Close(p.r)
	err2 := unix.Close(p.w)
	if err1 != nil {
		return err1
	}
	return err2
}

// fifoPool is a pool backed by a world-readable/writable named FIFO. The
// pool keeps the FIFO open read-write itself so the node stays alive (a
// FIFO with no open writers delivers EOF to readers) for the pool's
// lifetime, and unlinks it on Close.
type fifoPool struct {
	n    int
	path string
	fd   int
}

func newFifoPool(n int) (Pool, error) {
	path, err := uniqueFifoPath()
	if err != nil {
		return nil, fmt.Errorf("%w: choosing fifo path: %v", ErrEndpointSetup, err)
	}
	if err := unix.Mkfifo(path, 0666); err != nil {
		return nil, fmt.Errorf("%w: mkfifo %s: %v", ErrEndpointSetup, path, err)
	}
	// Mkfifo's mode is filtered through the umask; set it explicitly.
	if err := unix.Chmod(path, 0666); err != nil {
		unix.Unlink(path)
		return nil, fmt.Errorf("%w: chmod %s: %v", ErrEndpointSetup, path, err)
	}
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		unix.Unlink(path)
		return nil, fmt.Errorf("%w: open %s: %v", ErrEndpointSetup, path, err)
	}
	p := &fifoPool{n: n, path: path, fd: fd}
	if err := writeTokens(fd, n-1); err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: seeding fifo: %v", ErrEndpointSetup, err)
	}
	return p, nil
}

func (p *fifoPool) GetEnvString() string {
	return fmt.Sprintf(" -j%d --jobserver-auth=fifo:%s", p.n, p.path)
}

func (p *fifoPool) Close() error {
	err1 := unix.Close(p.fd)
	err2 := unix.Unlink(p.path)
	if err1 != nil {
		return err1
	}
	return err2
}

// uniqueFifoPath builds ${TMPDIR:-/tmp}/<prefix><pid>-<random>. The random
// suffix (§9, "Implementations may include randomness") removes the PID
// namespace collision the spec calls out as an assumption of the plain
// <prefix><pid> scheme.
func uniqueFifoPath() (string, error) {
	tmp := os.Getenv("TMPDIR")
	if tmp == "" {
		tmp = "/tmp"
	}
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", err
	}
	name := "buildcore-jobserver-" + strconv.Itoa(os.Getpid()) + "-" + hex.EncodeToString(suffix[:])
	return filepath.Join(tmp, name), nil
}

func writeTokens(fd, count int) error {
	if count <= 0 {
		return nil
	}
	buf := make([]byte, count)
	for i := range buf {
		buf[i] = jobserverToken
	}
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
