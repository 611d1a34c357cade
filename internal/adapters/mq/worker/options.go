package worker

import (
	"github.com/okian/roundwatch/internal/domain/dedupe"
	"github.com/okian/roundwatch/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDisplays appends display collaborators, called in order after each round.
func WithDisplays(displays ...Display) Option {
	return func(w *Worker) {
		for _, d := range displays {
			if d != nil {
				w.displays = append(w.displays, d)
			}
		}
	}
}

// WithDeduper enables the replay guard. Without it every delivered round
// is applied, replays included.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *Worker) {
		w.deduper = d
	}
}
