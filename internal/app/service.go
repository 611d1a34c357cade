// Package service wires the feed, the tracker and the displays together and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/roundwatch/internal/adapters/feed"
	"github.com/okian/roundwatch/internal/adapters/http/hub"
	eventqueue "github.com/okian/roundwatch/internal/adapters/mq/queue"
	"github.com/okian/roundwatch/internal/adapters/mq/sink"
	"github.com/okian/roundwatch/internal/adapters/mq/worker"
	"github.com/okian/roundwatch/internal/adapters/repository"
	"github.com/okian/roundwatch/internal/config"
	"github.com/okian/roundwatch/internal/domain/dedupe"
	"github.com/okian/roundwatch/internal/domain/tracker"
	"github.com/okian/roundwatch/pkg/logger"
)

const drainTimeout = 5 * time.Second

// ErrNotStarted is returned by reads that need a running service.
var ErrNotStarted = errors.New("service not started")

// Service owns every runtime component of the tracker.
type Service struct {
	mu sync.RWMutex

	// Core components
	tracker *tracker.Tracker
	store   *repository.MemoryStore
	queue   *eventqueue.InMemoryQueue
	worker  *worker.Worker
	feed    *feed.Client
	hub     *hub.Hub
	sink    *sink.KafkaSink

	// Configuration
	feedURL          string
	feedReadLimit    int64
	queueSize        int
	historyCapacity  int
	dedupeRounds     bool
	dedupeSize       int
	subscriberBuffer int
	kafkaBrokers     []string
	kafkaTopic       string
	extraDisplays    []worker.Display

	// State
	started    bool
	feedCancel context.CancelFunc
	group      *errgroup.Group
	feedDone   chan struct{}
	feedErr    error

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		feedURL:          config.DefaultFeedURL,
		feedReadLimit:    1 << 20,
		queueSize:        10_000,
		historyCapacity:  tracker.DefaultHistoryCapacity,
		dedupeSize:       10_000,
		subscriberBuffer: 64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the worker and the feed reader.
// A feed that fails or ends is logged; the service keeps serving the state
// collected so far.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting roundwatch service...")

	s.tracker = tracker.New(tracker.WithHistoryCapacity(s.historyCapacity))
	s.store = repository.NewMemoryStore()
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.hub = hub.New(
		hub.WithSendBuffer(s.subscriberBuffer),
		hub.WithSnapshot(s.chartsSnapshot),
	)

	displays := []worker.Display{s.store, s.hub}
	if len(s.kafkaBrokers) > 0 {
		k, err := sink.NewKafkaSink(s.kafkaBrokers, s.kafkaTopic)
		if err != nil {
			_ = s.hub.Close()
			_ = s.queue.Close()
			return err
		}
		s.sink = k
		displays = append(displays, k)
	}
	displays = append(displays, s.extraDisplays...)

	workerOpts := []worker.Option{worker.WithName("round-worker"), worker.WithDisplays(displays...)}
	if s.dedupeRounds {
		workerOpts = append(workerOpts, worker.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))))
	}
	s.worker = worker.New(s.queue, s.tracker, workerOpts...)
	s.feed = feed.NewClient(s.feedURL, s.queue, feed.WithReadLimit(s.feedReadLimit))

	feedCtx, cancel := context.WithCancel(ctx)
	s.feedCancel = cancel
	s.feedDone = make(chan struct{})
	s.feedErr = nil
	s.group = new(errgroup.Group)

	// The worker outlives ctx so Stop can drain what the feed already queued.
	workerCtx := context.WithoutCancel(ctx)
	s.group.Go(func() error {
		s.worker.Run(workerCtx)
		return nil
	})
	s.group.Go(func() error {
		defer close(s.feedDone)
		err := s.feed.Run(feedCtx)
		if err != nil {
			s.logger.Error(feedCtx, "feed stopped", logger.Error(err))
		} else {
			s.logger.Info(feedCtx, "feed ended; serving last known state")
		}
		s.mu.Lock()
		s.feedErr = err
		s.mu.Unlock()
		return err
	})

	s.started = true
	s.logger.Info(ctx, "roundwatch service started",
		logger.String("feed", s.feedURL),
		logger.Int("queueSize", s.queueSize),
		logger.Int("historyCapacity", s.historyCapacity),
		logger.Bool("dedupeRounds", s.dedupeRounds),
		logger.Bool("kafka", s.sink != nil),
	)
	return nil
}

// Stop closes the feed, drains the queue and releases the displays.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	ctx := context.Background()
	s.logger.Info(ctx, "stopping roundwatch service...")

	s.feedCancel()
	feedDone := s.feedDone
	s.mu.Unlock()

	// the feed may be blocked retrying a full queue until it sees the cancel
	<-feedDone
	_ = s.queue.Close()

	select {
	case <-s.worker.Done():
	case <-time.After(drainTimeout):
		s.logger.Warn(ctx, "queue not drained in time", logger.Int("pending", s.queue.Len(ctx)))
		shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
		_ = s.worker.Shutdown(shutdownCtx)
		cancel()
	}
	if err := s.group.Wait(); err != nil {
		s.logger.Debug(ctx, "feed reported", logger.Error(err))
	}

	_ = s.hub.Close()
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			s.logger.Warn(ctx, "kafka sink close failed", logger.Error(err))
		}
	}
	s.logger.Info(ctx, "roundwatch service stopped")
}

// FeedDone is closed once the feed connection has ended.
func (s *Service) FeedDone() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feedDone
}

// LiveHandler returns the WebSocket handler pushing chart updates.
func (s *Service) LiveHandler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hub == nil {
		return http.NotFoundHandler()
	}
	return s.hub
}

func (s *Service) chartsSnapshot(ctx context.Context) any {
	out := make(map[string]repository.Chart, 2)
	for _, kind := range []string{repository.ChartBalance, repository.ChartWinRate} {
		if c, err := s.store.Chart(ctx, kind); err == nil {
			out[kind] = c
		}
	}
	return out
}

func (s *Service) components() (*tracker.Tracker, *repository.MemoryStore) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker, s.store
}

// Player returns one player's stats including balance history.
func (s *Service) Player(name string) (tracker.Stats, bool) {
	t, _ := s.components()
	if t == nil {
		return tracker.Stats{}, false
	}
	return t.Player(name)
}

// Players returns every player's stats ordered by name.
func (s *Service) Players() []tracker.Stats {
	t, _ := s.components()
	if t == nil {
		return nil
	}
	return t.Players()
}

// Chart returns the named chart.
func (s *Service) Chart(ctx context.Context, kind string) (repository.Chart, error) {
	_, st := s.components()
	if st == nil {
		return repository.Chart{}, ErrNotStarted
	}
	return st.Chart(ctx, kind)
}

// Rank returns the standings row of a player.
func (s *Service) Rank(ctx context.Context, player string) (repository.Entry, error) {
	_, st := s.components()
	if st == nil {
		return repository.Entry{}, repository.ErrNotFound
	}
	return st.Rank(ctx, player)
}

// TopN returns the first n standings rows.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	_, st := s.components()
	if st == nil {
		return nil, ErrNotStarted
	}
	return st.TopN(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":         s.started,
		"feedURL":         s.feedURL,
		"queueSize":       s.queueSize,
		"historyCapacity": s.historyCapacity,
		"dedupeRounds":    s.dedupeRounds,
		"kafka":           len(s.kafkaBrokers) > 0,
	}
	if s.tracker == nil {
		return stats
	}

	stats["rounds"] = s.tracker.Rounds()
	stats["players"] = s.tracker.Count()
	stats["queueLength"] = s.queue.Len(ctx)
	stats["processed"] = s.worker.Processed()
	stats["duplicates"] = s.worker.Skipped()
	stats["subscribers"] = s.hub.Subscribers()
	stats["feedConnected"] = s.feed.Connected()
	if s.feedErr != nil {
		stats["feedError"] = s.feedErr.Error()
	}
	return stats
}
