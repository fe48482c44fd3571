package jobserver

import "errors"

// Sentinel errors for the jobserver package, following the §7 error
// taxonomy. Callers should compare with errors.Is, not string matching.
var (
	// ErrUnsupportedMode is returned when a Config names a transport the
	// current platform cannot serve (e.g. a FIFO on Windows, or a Win32
	// semaphore anywhere else).
	ErrUnsupportedMode = errors.New("jobserver: unsupported mode on this platform")

	// ErrInvalidSlotCount is returned by NewPool when asked for fewer than
	// two slots (there must be room for the owner's implicit slot plus at
	// least one explicit token).
	ErrInvalidSlotCount = errors.New("jobserver: pool must have at least 2 slots")

	// ErrEndpointSetup covers failures constructing the transport itself:
	// a bad descriptor, a missing FIFO path, a path that isn't a FIFO, or
	// an open/mknod failure.
	ErrEndpointSetup = errors.New("jobserver: could not set up endpoint")
)
