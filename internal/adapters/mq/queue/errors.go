package queue

import "errors"

var (
	// ErrClosed is returned when putting into a closed queue.
	ErrClosed = errors.New("queue closed")
	// ErrFull is returned by TryPut when no slot is free.
	ErrFull = errors.New("queue full")
)
