package hal

import "errors"

var (
	// ErrAlreadyOpen indicates Open is called on an open adapter.
	ErrAlreadyOpen = errors.New("sh2hal: already open")
	// ErrStartupTimeout indicates the peer never signaled ready after reset.
	ErrStartupTimeout = errors.New("sh2hal: startup timeout")
	// ErrBadParam indicates invalid arguments to Write.
	ErrBadParam = errors.New("sh2hal: bad parameter")
)
