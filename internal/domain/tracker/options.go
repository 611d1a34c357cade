package tracker

import "github.com/okian/roundwatch/pkg/logger"

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithHistoryCapacity sets the per-player balance history capacity.
func WithHistoryCapacity(capacity int) Option {
	return func(t *Tracker) {
		if capacity > 0 {
			t.historyCapacity = capacity
		}
	}
}

// WithLogger sets the logger used for debug tracing of updates.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
