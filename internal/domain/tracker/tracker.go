// Package tracker derives per-player win/loss counters, win rate and a
// bounded balance history from a stream of round results.
package tracker

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
)

// DefaultHistoryCapacity is the number of balances kept per player.
const DefaultHistoryCapacity = 1000

// playerState is the mutable per-player record. wins <= total always.
type playerState struct {
	wins      int
	total     int
	lastRound int
	history   *History
}

func (p *playerState) winRate() float64 {
	if p.total == 0 {
		return 0
	}
	return 100 * float64(p.wins) / float64(p.total)
}

// Stats is a read-only snapshot of one player.
type Stats struct {
	Player    string    `json:"player"`
	Wins      int       `json:"wins"`
	Total     int       `json:"total"`
	WinRate   float64   `json:"win_rate"`
	Balance   float64   `json:"balance"`
	LastRound int       `json:"last_round"`
	History   []float64 `json:"history,omitempty"`
}

// Tracker holds the state for every player seen in the session.
//
// RecordRound is meant to be called from a single consumer in delivery
// order; the lock only protects concurrent readers.
type Tracker struct {
	mu              sync.RWMutex
	players         map[string]*playerState
	rounds          int
	historyCapacity int
	logger          logger.Logger
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		players:         make(map[string]*playerState),
		historyCapacity: DefaultHistoryCapacity,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordRound applies one round to every player present in ev and returns
// the derived values for display. Players missing from ev are untouched.
//
// A player's first round compares the balance with itself, so it always
// counts as a loss. Replaying an event counts it again.
func (t *Tracker) RecordRound(ctx context.Context, ev model.RoundEvent) model.RoundUpdate {
	names := ev.Players()
	upd := model.RoundUpdate{
		Round:   ev.Round,
		Label:   ev.Label(),
		Players: make([]model.PlayerUpdate, 0, len(names)),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, name := range names {
		current := ev.Balances[name]

		p, ok := t.players[name]
		if !ok {
			p = &playerState{history: NewHistory(t.historyCapacity)}
			t.players[name] = p
		}

		last, ok := p.history.Last()
		if !ok {
			last = current
		}
		win := current > last
		if win {
			p.wins++
		}
		p.total++
		p.lastRound = ev.Round
		p.history.Push(current)

		upd.Players = append(upd.Players, model.PlayerUpdate{
			Player:  name,
			Balance: current,
			WinRate: p.winRate(),
			Win:     win,
			Wins:    p.wins,
			Total:   p.total,
		})
	}
	t.rounds++

	if t.logger != nil {
		t.logger.Debug(ctx, "round recorded",
			logger.Int("round", ev.Round),
			logger.Int("players", len(names)),
		)
	}
	return upd
}

// Player returns a snapshot of one player, including its retained history.
func (t *Tracker) Player(name string) (Stats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.players[name]
	if !ok {
		return Stats{}, false
	}
	s := snapshot(name, p)
	s.History = p.history.Values()
	return s, true
}

// Players returns snapshots of every player sorted by name, without history.
func (t *Tracker) Players() []Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Stats, 0, len(t.players))
	for name, p := range t.players {
		out = append(out, snapshot(name, p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out
}

// Count returns the number of distinct players seen.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.players)
}

// Rounds returns the number of events recorded.
func (t *Tracker) Rounds() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rounds
}

// HistoryCapacity returns the configured per-player history capacity.
func (t *Tracker) HistoryCapacity() int { return t.historyCapacity }

func snapshot(name string, p *playerState) Stats {
	balance, _ := p.history.Last()
	return Stats{
		Player:    name,
		Wins:      p.wins,
		Total:     p.total,
		WinRate:   p.winRate(),
		Balance:   balance,
		LastRound: p.lastRound,
	}
}
