package repository

import (
	"context"
	"sync"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the in-memory Store. It also acts as a worker display.
type MemoryStore struct {
	mu      sync.RWMutex
	charts  map[string]*series
	root    *node
	players map[string]Entry
	name    string

	logger logger.Logger
}

// NewMemoryStore constructs an empty store with the balance and win rate charts.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		charts: map[string]*series{
			ChartBalance: newSeries(ChartBalance, "Balance", false),
			ChartWinRate: newSeries(ChartWinRate, "Win rate (%)", true),
		},
		players: make(map[string]Entry),
		name:    "charts",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}
	return s
}

// Name identifies the store as a display.
func (s *MemoryStore) Name() string { return s.name }

// Show applies the update; it lets the store sit in the worker's display list.
func (s *MemoryStore) Show(ctx context.Context, upd model.RoundUpdate) error {
	return s.Apply(ctx, upd)
}

// Apply implements Store.Apply.
func (s *MemoryStore) Apply(ctx context.Context, upd model.RoundUpdate) error {
	balances := make([]point, len(upd.Players))
	rates := make([]point, len(upd.Players))
	for i, p := range upd.Players {
		balances[i] = point{player: p.Player, value: p.Balance}
		rates[i] = point{player: p.Player, value: p.WinRate}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.charts[ChartBalance].appendRound(upd.Label, balances)
	s.charts[ChartWinRate].appendRound(upd.Label, rates)

	for _, p := range upd.Players {
		if old, ok := s.players[p.Player]; ok {
			s.root = deleteNode(s.root, old.Player, old.Balance)
		}
		s.players[p.Player] = Entry{
			Player:  p.Player,
			Balance: p.Balance,
			WinRate: p.WinRate,
			Wins:    p.Wins,
			Total:   p.Total,
			Round:   upd.Round,
		}
		s.root = insert(s.root, p.Player, p.Balance)
	}

	s.logger.Debug(ctx, "round applied to charts",
		logger.Int("round", upd.Round),
		logger.Int("players", len(upd.Players)),
	)
	return nil
}

// Chart implements Store.Chart.
func (s *MemoryStore) Chart(_ context.Context, kind string) (Chart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.charts[kind]
	if !ok {
		return Chart{}, ErrUnknownChart
	}
	return c.snapshot(), nil
}

// Rank returns the standings row of a player in O(log n).
func (s *MemoryStore) Rank(_ context.Context, player string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.players[player]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Rank = countAbove(s.root, e.Balance) + 1
	return e, nil
}

// TopN returns the top n rows ordered by balance desc.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, min(n, len(s.players)))
	collectTopN(s.root, n, &names)

	out := make([]Entry, len(names))
	for i, name := range names {
		out[i] = s.players[name]
	}
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of players on the standings.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}
