package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/roundwatch/internal/adapters/http/api"
	"github.com/okian/roundwatch/internal/adapters/repository"
	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/internal/domain/tracker"
	"github.com/okian/roundwatch/pkg/logger"
)

// deps joins a real tracker and chart store the way the service does.
type deps struct {
	*tracker.Tracker
	*repository.MemoryStore
}

type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) TopN(context.Context, int) ([]repository.Entry, error) {
	return nil, errors.New("store unavailable")
}

type fakeStats struct{}

func (fakeStats) GetStats() map[string]any {
	return map[string]any{"rounds": 2, "players": 2}
}

func feed(ctx context.Context, t *tracker.Tracker, s *repository.MemoryStore, events ...model.RoundEvent) {
	for _, ev := range events {
		_ = s.Apply(ctx, t.RecordRound(ctx, ev))
	}
}

func newRouter(d api.Dependencies, opts ...api.Option) *mux.Router {
	r := mux.NewRouter()
	api.NewServer(d, fakeStats{}, opts...).Register(context.Background(), r)
	return r
}

func do(r http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPI(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a service state after two rounds", t, func() {
		tr := tracker.New()
		store := repository.NewMemoryStore()
		feed(ctx, tr, store,
			model.RoundEvent{Round: 1, Balances: map[string]float64{"alice": 100, "bob": 100}},
			model.RoundEvent{Round: 2, Balances: map[string]float64{"alice": 110, "bob": 90}},
		)
		r := newRouter(deps{tr, store}, api.WithMaxStandingsLimit(5))

		Convey("GET /players lists every player without history", func() {
			w := do(r, "/players")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got []tracker.Stats
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].Player, ShouldEqual, "alice")
			So(got[0].History, ShouldBeNil)
		})

		Convey("GET /players/{name} returns stats, history and rank", func() {
			w := do(r, "/players/alice")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got struct {
				Player  string    `json:"player"`
				Wins    int       `json:"wins"`
				Total   int       `json:"total"`
				WinRate float64   `json:"win_rate"`
				History []float64 `json:"history"`
				Rank    int       `json:"rank"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Wins, ShouldEqual, 1)
			So(got.Total, ShouldEqual, 2)
			So(got.WinRate, ShouldEqual, 50)
			So(got.History, ShouldResemble, []float64{100, 110})
			So(got.Rank, ShouldEqual, 1)
		})

		Convey("GET /players/{name} for an unknown player is 404", func() {
			w := do(r, "/players/zed")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
		})

		Convey("GET /standings orders by balance", func() {
			w := do(r, "/standings?limit=2")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got []repository.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].Player, ShouldEqual, "alice")
			So(got[1].Rank, ShouldEqual, 2)
		})

		Convey("GET /standings without a limit uses the default", func() {
			So(do(r, "/standings").Code, ShouldEqual, http.StatusOK)
		})

		Convey("GET /standings rejects bad limits", func() {
			So(do(r, "/standings?limit=0").Code, ShouldEqual, http.StatusBadRequest)
			So(do(r, "/standings?limit=abc").Code, ShouldEqual, http.StatusBadRequest)

			w := do(r, "/standings?limit=6")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("GET /charts/{kind} returns the chart", func() {
			w := do(r, "/charts/winrate")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got repository.Chart
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Labels, ShouldResemble, []string{"Round 1", "Round 2"})
			So(got.Datasets[0].Data, ShouldResemble, []float64{0, 50})

			So(do(r, "/charts/pie").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("GET /stats returns the provider output", func() {
			w := do(r, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"rounds":2`)
			So(w.Body.String(), ShouldContainSubstring, `"serverTime":`)
		})

		Convey("GET /healthz exposes metrics", func() {
			w := do(r, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "roundwatch_tracker_")
		})

		Convey("GET /dashboard serves the chart page", func() {
			w := do(r, "/dashboard")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/ws/charts")
		})

		Convey("POST is not routed", func() {
			req := httptest.NewRequest(http.MethodPost, "/players", http.NoBody)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a failing standings store", t, func() {
		failing := struct {
			*tracker.Tracker
			failingStore
		}{tracker.New(), failingStore{repository.NewMemoryStore()}}
		r := newRouter(failing)

		Convey("Then /standings answers 500", func() {
			w := do(r, "/standings?limit=1")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "store unavailable")
		})
	})
}

func TestOpErrors(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause unwrap", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(api.NewKind("api.op", api.ErrNotFound).Error(), ShouldEqual, "api.op: not found")
		})
	})
}

func TestStandingsDefaultLimitCappedByMax(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given more players than the standings cap", t, func() {
		tr := tracker.New()
		store := repository.NewMemoryStore()
		balances := map[string]float64{}
		for i, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			balances[name] = float64(100 + i)
		}
		feed(ctx, tr, store, model.RoundEvent{Round: 1, Balances: balances})
		r := newRouter(deps{tr, store}, api.WithMaxStandingsLimit(3))

		Convey("GET /standings without a limit returns the capped top", func() {
			w := do(r, "/standings")
			So(w.Code, ShouldEqual, http.StatusOK)

			var got []repository.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(len(got), ShouldEqual, 3)
			So(got[0].Player, ShouldEqual, "g")
		})
	})
}
