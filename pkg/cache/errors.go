package cache

import "errors"

// Error taxonomy from spec.md §7. None of these ever propagate across
// the event-loop boundary: handlers log and return, the dispatcher
// always continues to the next event.
var (
	// ErrOutOfMemory is returned when a pool allocation failed; any
	// partially allocated blocks have already been recycled and no
	// index acquired a dangling link.
	ErrOutOfMemory = errors.New("cache: allocation failed")
	// ErrTypeMismatch is returned when a cast to a specific block type
	// failed.
	ErrTypeMismatch = errors.New("cache: type mismatch")
	// ErrInvalidHandle is returned by Attach/Detach against a bad
	// service address.
	ErrInvalidHandle = errors.New("cache: invalid handle")
)

// ErrTornDown is the assertion failure raised by State.Destruct when a
// non-empty index or list remains; this is the one true invariant
// violation spec.md §7 calls out as worth an assertion rather than a
// status code.
var ErrTornDown = errors.New("cache: teardown attempted with non-empty indices or lists")
