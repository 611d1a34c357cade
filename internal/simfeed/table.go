// Package simfeed stands in for the game server: it plays simulated rounds
// and publishes {round, balances} frames the way the real result endpoint does.
package simfeed

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/roundwatch/internal/domain/model"
)

// Outcome odds of one hand, roughly those of a blackjack table.
const (
	oddsBlackjack = 0.045
	oddsWin       = 0.38
	oddsPush      = 0.085

	blackjackPayout = 1.5
)

type seat struct {
	name    string
	balance float64
}

// Table simulates players betting every round. A player who can no longer
// cover the minimum bet leaves the table and drops out of later frames.
type Table struct {
	seats  []*seat
	round  int
	maxBet int
	rng    *rand.Rand
}

// NewTable seats players with startBalance each.
func NewTable(players int, startBalance float64, maxBet int, seed uint64) *Table {
	if maxBet < 1 {
		maxBet = 1
	}
	t := &Table{
		maxBet: maxBet,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for i := 1; i <= players; i++ {
		t.seats = append(t.seats, &seat{name: fmt.Sprintf("Player %d", i), balance: startBalance})
	}
	return t
}

// Join seats a new player mid-session.
func (t *Table) Join(name string, balance float64) {
	t.seats = append(t.seats, &seat{name: name, balance: balance})
}

// Seated returns the number of players still at the table.
func (t *Table) Seated() int {
	n := 0
	for _, s := range t.seats {
		if s.balance >= 1 {
			n++
		}
	}
	return n
}

// Round returns the number of rounds played so far.
func (t *Table) Round() int { return t.round }

// Next plays one round and returns the resulting balances.
func (t *Table) Next() model.RoundEvent {
	t.round++
	ev := model.RoundEvent{Round: t.round, Balances: make(map[string]float64, len(t.seats))}
	for _, s := range t.seats {
		if s.balance < 1 {
			continue
		}
		bet := float64(1 + t.rng.IntN(t.maxBet))
		bet = math.Min(bet, math.Floor(s.balance))
		s.balance += bet * t.outcome()
		ev.Balances[s.name] = s.balance
	}
	return ev
}

// outcome returns the multiple of the bet won (negative for a loss).
func (t *Table) outcome() float64 {
	r := t.rng.Float64()
	switch {
	case r < oddsBlackjack:
		return blackjackPayout
	case r < oddsBlackjack+oddsWin:
		return 1
	case r < oddsBlackjack+oddsWin+oddsPush:
		return 0
	default:
		return -1
	}
}
