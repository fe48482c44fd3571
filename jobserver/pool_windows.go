//go:build windows

package jobserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/windows"
)

// semaphorePool is the only native Windows pool form: a counting
// semaphore, named so that child processes can reopen it by name via the
// fragment returned from GetEnvString.
type semaphorePool struct {
	n      int
	name   string
	handle windows.Handle
}

func newPlatformPool(n int, _ PoolKind) (Pool, error) {
	name := uniqueSemaphoreName()
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("%w: semaphore name: %v", ErrEndpointSetup, err)
	}
	tokens := int32(n - 1)
	h, err := windows.CreateSemaphore(nil, tokens, tokens, namep)
	if err != nil {
		return nil, fmt.Errorf("%w: create semaphore %s: %v", ErrEndpointSetup, name, err)
	}
	return &semaphorePool{n: n, name: name, handle: h}, nil
}

func (p *semaphorePool) GetEnvString() string {
	return fmt.Sprintf(" -j%d --jobserver-auth=%s", p.n, p.name)
}

func (p *semaphorePool) Close() error {
	return windows.CloseHandle(p.handle)
}

func uniqueSemaphoreName() string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return `Local\buildcore-jobserver-` + strconv.Itoa(os.Getpid()) + "-" + hex.EncodeToString(suffix[:])
}
