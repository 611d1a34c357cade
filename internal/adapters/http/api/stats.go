package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports service counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves the provider's counters plus the server time.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a StatsHandler over p.
func NewStatsHandler(p StatsProvider) *StatsHandler {
	return &StatsHandler{provider: p, now: time.Now}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	body := maps.Clone(h.provider.GetStats())
	if body == nil {
		body = make(map[string]any, 1)
	}
	body["serverTime"] = h.now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, body)
}
