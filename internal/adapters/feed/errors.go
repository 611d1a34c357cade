package feed

import "errors"

var (
	// ErrDial is returned when the feed endpoint cannot be reached.
	ErrDial = errors.New("feed dial failed")
	// ErrQueueClosed is returned by Run when the downstream queue stops accepting events.
	ErrQueueClosed = errors.New("event queue closed")
)

// errFrameTooLarge marks a frame longer than the configured read limit.
var errFrameTooLarge = errors.New("frame exceeds read limit")
