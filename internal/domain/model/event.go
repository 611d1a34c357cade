// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// RoundEvent is one balance snapshot published after a game round.
// Balances holds only the players seated for that round.
type RoundEvent struct {
	Round    int                `json:"round"`
	Balances map[string]float64 `json:"balances"`
}

// Label is the display label for the round, e.g. "Round 3".
func (e RoundEvent) Label() string {
	return RoundLabel(e.Round)
}

// Players returns the player names of the event in sorted order so every
// consumer walks the balances deterministically.
func (e RoundEvent) Players() []string {
	names := make([]string, 0, len(e.Balances))
	for name := range e.Balances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoundLabel formats a round number the way chart axes show it.
func RoundLabel(round int) string {
	return "Round " + strconv.Itoa(round)
}

// wireEvent keeps balances raw so null and non-numeric values can be told apart.
type wireEvent struct {
	Round    int                        `json:"round"`
	Balances map[string]json.RawMessage `json:"balances"`
}

// DecodeRoundEvent decodes one feed frame. Frames that are not a JSON
// object return ErrMalformedFrame; an event carrying a missing, null or
// non-numeric balance returns ErrInvalidBalance and must be dropped whole.
func DecodeRoundEvent(data []byte) (RoundEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return RoundEvent{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if w.Balances == nil {
		return RoundEvent{}, fmt.Errorf("%w: missing balances", ErrMalformedFrame)
	}

	ev := RoundEvent{Round: w.Round, Balances: make(map[string]float64, len(w.Balances))}
	for name, raw := range w.Balances {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return RoundEvent{}, fmt.Errorf("%w: player %q has no balance", ErrInvalidBalance, name)
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return RoundEvent{}, fmt.Errorf("%w: player %q: %s", ErrInvalidBalance, name, raw)
		}
		ev.Balances[name] = v
	}
	return ev, nil
}

// PlayerUpdate is the derived state of one player after a round.
type PlayerUpdate struct {
	Player  string  `json:"player"`
	Balance float64 `json:"balance"`
	WinRate float64 `json:"win_rate"`
	Win     bool    `json:"win"`
	Wins    int     `json:"wins"`
	Total   int     `json:"total"`
}

// RoundUpdate is everything a display needs to redraw after one round.
type RoundUpdate struct {
	Round   int            `json:"round"`
	Label   string         `json:"label"`
	Players []PlayerUpdate `json:"players"`
}
