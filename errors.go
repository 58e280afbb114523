package bootfs

import "errors"

var (
	// ErrNotFound is returned when the remote server has no such path
	ErrNotFound = errors.New("not found")

	// ErrBufferTooSmall is returned by GetInfo when the caller's buffer cannot hold
	// the result. The required size is reported through the size argument.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrUnsupported is returned for operations and argument shapes that are not
	// implemented, including every mutating operation
	ErrUnsupported = errors.New("unsupported")

	// ErrInvalidParameter is returned for a missing output location or an unknown handle
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrTransport wraps remote failures other than not-found
	ErrTransport = errors.New("transport error")

	// ErrAllocation is returned when no more nodes can be created
	ErrAllocation = errors.New("allocation failure")
)
