package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("player not found")
	ErrInvalidLimit = errors.New("invalid standings limit")
	ErrUnknownChart = errors.New("unknown chart")
)
