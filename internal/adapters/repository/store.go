// Package repository keeps the display-side state derived from round
// updates: the chart series and the standings table.
package repository

import (
	"context"

	"github.com/okian/roundwatch/internal/domain/model"
)

// Chart kinds served by the store.
const (
	ChartBalance = "balance"
	ChartWinRate = "winrate"
)

// Entry represents a standings row.
type Entry struct {
	Rank    int     `json:"rank"`
	Player  string  `json:"player"`
	Balance float64 `json:"balance"`
	WinRate float64 `json:"win_rate"`
	Wins    int     `json:"wins"`
	Total   int     `json:"total"`
	Round   int     `json:"round"`
}

// Dataset is one player's series on a chart. Points are append-only.
type Dataset struct {
	Label string    `json:"label"`
	Color string    `json:"color"`
	Data  []float64 `json:"data"`
}

// Chart is a line chart: shared x labels and one dataset per player.
// Datasets appear in first-seen order.
type Chart struct {
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Store provides read/write access to the display state.
type Store interface {
	// Apply folds one round update into the charts and the standings.
	Apply(ctx context.Context, upd model.RoundUpdate) error

	// Chart returns a deep copy of the named chart.
	// Returns ErrUnknownChart for anything but ChartBalance and ChartWinRate.
	Chart(ctx context.Context, kind string) (Chart, error)

	// Rank returns the standings row of a player.
	// Returns ErrNotFound if the player was never seen.
	Rank(ctx context.Context, player string) (Entry, error)

	// TopN returns the first n rows ordered by balance desc, then player asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of players on the standings.
	Count(ctx context.Context) int
}
