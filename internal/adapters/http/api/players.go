package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/roundwatch/internal/adapters/repository"
	"github.com/okian/roundwatch/internal/domain/tracker"
)

// PlayerDependencies defines the reads behind the player routes.
type PlayerDependencies interface {
	Player(name string) (tracker.Stats, bool)
	Players() []tracker.Stats
	Rank(ctx context.Context, player string) (Entry, error)
}

// PlayersHandler handles player requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleListPlayers handles GET /players requests.
func (h *PlayersHandler) HandleListPlayers(w http.ResponseWriter, _ *http.Request) {
	players := h.deps.Players()
	if players == nil {
		players = []tracker.Stats{}
	}
	writeJSON(w, http.StatusOK, players)
}

// HandleGetPlayer handles GET /players/{name} requests. The body carries
// the balance history and the standings rank.
func (h *PlayersHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	name := mux.Vars(r)["name"]
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	stats, ok := h.deps.Player(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}

	resp := playerResponse{Stats: stats}
	entry, err := h.deps.Rank(r.Context(), name)
	switch {
	case err == nil:
		resp.Rank = entry.Rank
	case !errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
