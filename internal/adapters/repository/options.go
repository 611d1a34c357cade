package repository

import "github.com/okian/roundwatch/pkg/logger"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithName sets the display name reported to the worker.
func WithName(name string) Option {
	return func(s *MemoryStore) {
		if name != "" {
			s.name = name
		}
	}
}
