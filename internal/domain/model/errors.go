package model

import "errors"

// Sentinel kinds for decoding failures.
var (
	ErrMalformedFrame = errors.New("malformed round frame")
	ErrInvalidBalance = errors.New("invalid balance")
)
