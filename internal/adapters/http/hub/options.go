package hub

import (
	"context"
	"time"

	"github.com/okian/roundwatch/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSendBuffer sets how many messages may queue per subscriber before it
// is considered too slow and dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds a single write to a subscriber.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithSnapshot sets the function whose result is sent to every new
// subscriber before live updates, so a fresh page can draw history.
func WithSnapshot(fn func(ctx context.Context) any) Option {
	return func(h *Hub) {
		h.snapshot = fn
	}
}
