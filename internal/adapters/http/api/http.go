// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/roundwatch/internal/adapters/repository"
	"github.com/okian/roundwatch/internal/domain/tracker"
)

const defaultMaxStandingsLimit = 100

// Entry mirrors the read shape returned by standings queries.
type Entry = repository.Entry

// Chart mirrors the read shape returned by chart queries.
type Chart = repository.Chart

// Dependencies required by HTTP handlers.
type Dependencies interface {
	PlayerDependencies
	StandingsDependencies
	ChartDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	playersHandler   *PlayersHandler
	standingsHandler *StandingsHandler
	chartsHandler    *ChartsHandler
	dashboardHandler *dashboardHandler
	live             http.Handler
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxLimit int
	live     http.Handler
}

// WithMaxStandingsLimit caps the limit accepted by /standings.
func WithMaxStandingsLimit(n int) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithLiveCharts mounts the WebSocket handler pushing chart updates.
func WithLiveCharts(h http.Handler) Option {
	return func(o *serverOptions) {
		o.live = h
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{maxLimit: defaultMaxStandingsLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		playersHandler:   NewPlayersHandler(deps),
		standingsHandler: NewStandingsHandler(deps, o.maxLimit),
		chartsHandler:    NewChartsHandler(deps),
		dashboardHandler: newDashboardHandler(),
		live:             o.live,
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	get := func(path string, h http.HandlerFunc, endpoint string) {
		r.HandleFunc(path, MetricsMiddleware(h, endpoint)).Methods(http.MethodGet)
	}

	get("/healthz", s.healthHandler.HandleHealth, "healthz")
	get("/stats", s.statsHandler.HandleStats, "stats")
	get("/players", s.playersHandler.HandleListPlayers, "players")
	get("/players/{name}", s.playersHandler.HandleGetPlayer, "player")
	get("/standings", s.standingsHandler.HandleGetStandings, "standings")
	get("/charts/{kind}", s.chartsHandler.HandleGetChart, "charts")
	get("/dashboard", s.dashboardHandler.HandleDashboard, "dashboard")

	if s.live != nil {
		get("/ws/charts", s.live.ServeHTTP, "ws_charts")
	}
}

// playerResponse is the body of GET /players/{name}.
type playerResponse struct {
	tracker.Stats
	Rank int `json:"rank,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
