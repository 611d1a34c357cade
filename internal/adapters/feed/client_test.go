package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
)

type collectingQueue struct {
	mu     sync.Mutex
	events []model.RoundEvent
	closed bool
	refuse int // refuse this many enqueues before accepting
}

func (q *collectingQueue) Enqueue(_ context.Context, e model.RoundEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.refuse > 0 {
		q.refuse--
		return false
	}
	q.events = append(q.events, e)
	return true
}

func (q *collectingQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *collectingQueue) rounds() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]int, 0, len(q.events))
	for _, e := range q.events {
		out = append(out, e.Round)
	}
	return out
}

// feedServer writes frames to the first client and then closes normally.
func feedServer(frames ...string) *httptest.Server {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		// wait for the client's close reply
		_, _, _ = conn.ReadMessage()
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRun(t *testing.T) {
	_ = logger.Init()

	Convey("Given a feed that publishes a mix of frames", t, func() {
		srv := feedServer(
			`{"round":1,"balances":{"alice":100,"bob":100}}`,
			`not json`,
			`{"round":2,"balances":{"alice":null}}`,
			`{"round":3,"balances":{"alice":"ten"}}`,
			`{"round":4,"balances":{"alice":110,"bob":90}}`,
		)
		defer srv.Close()

		q := &collectingQueue{}
		c := NewClient(wsURL(srv), q, WithHandshakeTimeout(time.Second))

		Convey("When the client runs until the server closes", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := c.Run(ctx)

			Convey("Then only valid events are enqueued in order", func() {
				So(err, ShouldBeNil)
				So(q.rounds(), ShouldResemble, []int{1, 4})
				So(q.events[1].Balances, ShouldResemble, map[string]float64{"alice": 110, "bob": 90})
			})
		})
	})

	Convey("Given a feed with one frame above the read limit", t, func() {
		big := `{"round":2,"balances":{"` + strings.Repeat("x", 200) + `":1}}`
		srv := feedServer(
			`{"round":1,"balances":{"alice":100}}`,
			big,
			`{"round":3,"balances":{"alice":120}}`,
			`{"round":4,"balances":{"alice":90}}`,
		)
		defer srv.Close()

		q := &collectingQueue{}
		c := NewClient(wsURL(srv), q, WithReadLimit(100))

		Convey("Then only the oversized round is lost", func() {
			So(c.Run(context.Background()), ShouldBeNil)
			So(q.rounds(), ShouldResemble, []int{1, 3, 4})
		})
	})

	Convey("Given a queue that is briefly full", t, func() {
		srv := feedServer(`{"round":7,"balances":{"alice":1}}`)
		defer srv.Close()

		q := &collectingQueue{refuse: 3}
		c := NewClient(wsURL(srv), q, WithEnqueueRetry(time.Millisecond))

		Convey("Then the event is retried rather than dropped", func() {
			So(c.Run(context.Background()), ShouldBeNil)
			So(q.rounds(), ShouldResemble, []int{7})
		})
	})

	Convey("Given a closed queue", t, func() {
		srv := feedServer(`{"round":1,"balances":{"alice":1}}`)
		defer srv.Close()

		q := &collectingQueue{closed: true}
		c := NewClient(wsURL(srv), q)

		Convey("Then Run stops with ErrQueueClosed", func() {
			So(c.Run(context.Background()), ShouldEqual, ErrQueueClosed)
		})
	})

	Convey("Given an unreachable endpoint", t, func() {
		c := NewClient("ws://127.0.0.1:1/ws/result/publish_results", &collectingQueue{})

		Convey("Then Dial fails with ErrDial", func() {
			err := c.Dial(context.Background())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, ErrDial.Error())
		})
	})
}

func TestClientContextCancel(t *testing.T) {
	_ = logger.Init()

	Convey("Given a feed that stays open without sending", t, func() {
		upgrader := websocket.Upgrader{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}))
		defer srv.Close()

		c := NewClient(wsURL(srv), &collectingQueue{})
		ctx, cancel := context.WithCancel(context.Background())
		So(c.Dial(ctx), ShouldBeNil)
		So(c.Connected(), ShouldBeTrue)

		Convey("When the context is canceled", func() {
			done := make(chan error, 1)
			go func() { done <- c.Run(ctx) }()
			cancel()

			Convey("Then Run returns without error", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
					So(c.Connected(), ShouldBeFalse)
				case <-time.After(2 * time.Second):
					So("run did not return", ShouldBeEmpty)
				}
			})
		})
	})
}
