package service

import (
	"github.com/okian/roundwatch/internal/adapters/mq/worker"
	"github.com/okian/roundwatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFeedURL sets the WebSocket endpoint publishing round results.
func WithFeedURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.feedURL = url
		}
	}
}

// WithFeedReadLimit caps the size of one feed frame in bytes.
func WithFeedReadLimit(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.feedReadLimit = n
		}
	}
}

// WithQueueSize sets the maximum number of buffered round events.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithHistoryCapacity sets how many balances are kept per player.
func WithHistoryCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyCapacity = n
		}
	}
}

// WithDedupeRounds makes the worker skip round numbers it already applied.
func WithDedupeRounds(enabled bool) Option {
	return func(s *Service) {
		s.dedupeRounds = enabled
	}
}

// WithDedupeSize sets how many round numbers the replay guard remembers.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber send buffer of the live chart hub.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subscriberBuffer = n
		}
	}
}

// WithKafka publishes every round update to topic on brokers.
func WithKafka(brokers []string, topic string) Option {
	return func(s *Service) {
		s.kafkaBrokers = brokers
		s.kafkaTopic = topic
	}
}

// WithDisplays adds displays called after the built-in ones.
func WithDisplays(displays ...worker.Display) Option {
	return func(s *Service) {
		s.extraDisplays = append(s.extraDisplays, displays...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
