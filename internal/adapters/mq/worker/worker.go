// Package worker applies queued round events to the tracker and hands the
// derived values to the display collaborators.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/roundwatch/internal/adapters/mq/queue"
	"github.com/okian/roundwatch/internal/domain/dedupe"
	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
	"github.com/okian/roundwatch/pkg/metrics"
)

// Event is what the worker reads off the queue.
type Event = queue.Event

// Queue defines how the worker receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Recorder applies one round to the per-player state.
type Recorder interface {
	RecordRound(ctx context.Context, ev model.RoundEvent) model.RoundUpdate
	Count() int
}

// Display receives every derived round update, e.g. a chart store, live
// subscribers or a message bus.
type Display interface {
	Name() string
	Show(ctx context.Context, upd model.RoundUpdate) error
}

// Worker is the single consumer of the round queue. Running exactly one
// keeps rounds applied in delivery order.
type Worker struct {
	queue    Queue
	recorder Recorder
	displays []Display
	deduper  dedupe.Deduper
	name     string

	processed atomic.Int64
	skipped   atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// New creates a worker reading q and applying events to recorder.
func New(q Queue, recorder Recorder, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run consumes events until the queue is closed and drained, Shutdown is
// called or ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.process(ctx, ev)
		}
	}
}

// Shutdown stops the worker and waits for the in-flight round to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Processed returns the number of rounds applied.
func (w *Worker) Processed() int64 { return w.processed.Load() }

// Skipped returns the number of rounds dropped by the replay guard.
func (w *Worker) Skipped() int64 { return w.skipped.Load() }

func (w *Worker) process(ctx context.Context, ev Event) {
	start := time.Now()
	defer func() {
		metrics.RecordLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if w.deduper != nil && w.deduper.SeenAndRecord(ctx, ev.Round) {
		w.skipped.Add(1)
		metrics.RecordRoundDuplicate()
		w.logger.Debug(ctx, "duplicate round skipped", logger.Int("round", ev.Round))
		return
	}

	upd := w.recorder.RecordRound(ctx, ev)
	w.processed.Add(1)
	metrics.RecordRoundProcessed(ev.Round, len(upd.Players))
	metrics.UpdatePlayersTracked(w.recorder.Count())

	for _, d := range w.displays {
		if err := d.Show(ctx, upd); err != nil {
			metrics.RecordDisplayError(d.Name())
			w.logger.Error(ctx, "display update failed",
				logger.String("display", d.Name()),
				logger.Int("round", ev.Round),
				logger.Error(err),
			)
		}
	}
}
