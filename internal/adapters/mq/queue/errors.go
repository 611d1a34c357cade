package queue

import "errors"

// Reasons an event was refused by TryEnqueue.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
