package repository

import (
	"fmt"
	"hash/fnv"
)

// series is the mutable state behind one Chart.
type series struct {
	kind     string
	title    string
	labels   []string
	datasets []*Dataset
	byPlayer map[string]*Dataset

	// padLabels keeps labels only as long as the first dataset instead of
	// adding one per round. Players joining later get more points than
	// labels on such a chart.
	padLabels bool
}

func newSeries(kind, title string, padLabels bool) *series {
	return &series{
		kind:      kind,
		title:     title,
		byPlayer:  make(map[string]*Dataset),
		padLabels: padLabels,
	}
}

// dataset returns the player's dataset, creating it on first sight.
func (s *series) dataset(player string) *Dataset {
	if ds, ok := s.byPlayer[player]; ok {
		return ds
	}
	ds := &Dataset{Label: player, Color: colorFor(player)}
	s.byPlayer[player] = ds
	s.datasets = append(s.datasets, ds)
	return ds
}

// appendRound adds one point per player present in the round.
func (s *series) appendRound(label string, points []point) {
	if !s.padLabels {
		s.labels = append(s.labels, label)
	}
	for _, p := range points {
		ds := s.dataset(p.player)
		ds.Data = append(ds.Data, p.value)
	}
	if s.padLabels && len(s.datasets) > 0 {
		for len(s.labels) < len(s.datasets[0].Data) {
			s.labels = append(s.labels, label)
		}
	}
}

func (s *series) snapshot() Chart {
	c := Chart{
		Kind:     s.kind,
		Title:    s.title,
		Labels:   append([]string(nil), s.labels...),
		Datasets: make([]Dataset, len(s.datasets)),
	}
	for i, ds := range s.datasets {
		c.Datasets[i] = Dataset{
			Label: ds.Label,
			Color: ds.Color,
			Data:  append([]float64(nil), ds.Data...),
		}
	}
	if c.Labels == nil {
		c.Labels = []string{}
	}
	return c
}

type point struct {
	player string
	value  float64
}

// colorFor derives a stable rgb() color from the player name so a player
// keeps the same line color across restarts and across charts.
func colorFor(player string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(player))
	sum := h.Sum32()
	// keep channels away from white so lines stay visible
	r := 30 + ((sum>>16)&0xff)%200
	g := 30 + ((sum>>8)&0xff)%200
	b := 30 + (sum&0xff)%200
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}
