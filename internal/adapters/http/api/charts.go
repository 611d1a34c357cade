package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/roundwatch/internal/adapters/repository"
)

// ChartDependencies defines the interface for chart reads.
type ChartDependencies interface {
	Chart(ctx context.Context, kind string) (Chart, error)
}

// ChartsHandler handles chart requests.
type ChartsHandler struct {
	deps ChartDependencies
}

// NewChartsHandler creates a new charts handler.
func NewChartsHandler(deps ChartDependencies) *ChartsHandler {
	return &ChartsHandler{deps: deps}
}

// HandleGetChart handles GET /charts/{kind} requests.
func (h *ChartsHandler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_chart"
	chart, err := h.deps.Chart(r.Context(), mux.Vars(r)["kind"])
	if err != nil {
		if errors.Is(err, repository.ErrUnknownChart) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, chart)
}
