package simfeed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
)

func TestTable(t *testing.T) {
	Convey("Given two tables with the same seed", t, func() {
		a := NewTable(3, 1000, 50, 7)
		b := NewTable(3, 1000, 50, 7)

		Convey("Then they play the same rounds", func() {
			for i := 0; i < 20; i++ {
				So(a.Next(), ShouldResemble, b.Next())
			}
			So(a.Round(), ShouldEqual, 20)
		})
	})

	Convey("Given a table with small balances", t, func() {
		tbl := NewTable(4, 5, 5, 11)

		Convey("Then balances never go negative and broke players drop out", func() {
			seen := 4
			for i := 0; i < 500 && tbl.Seated() > 0; i++ {
				ev := tbl.Next()
				So(len(ev.Balances), ShouldBeLessThanOrEqualTo, seen)
				seen = len(ev.Balances)
				for _, bal := range ev.Balances {
					So(bal, ShouldBeGreaterThanOrEqualTo, 0)
				}
			}
		})
	})

	Convey("Given a player joining late", t, func() {
		tbl := NewTable(1, 100, 10, 3)
		tbl.Next()
		tbl.Join("Late", 100)

		Convey("Then the next round includes them", func() {
			ev := tbl.Next()
			_, ok := ev.Balances["Late"]
			So(ok, ShouldBeTrue)
			So(ev.Round, ShouldEqual, 2)
		})
	})
}

func TestServer(t *testing.T) {
	_ = logger.Init()

	Convey("Given a simulator serving three rounds", t, func() {
		s := NewServer(Config{Players: 2, Interval: 10 * time.Millisecond, Rounds: 3, Seed: 5, WaitForClients: true})
		srv := httptest.NewServer(s.Handler())
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + PublishPath
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		deadline := time.Now().Add(2 * time.Second)
		for s.Clients() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		go func() { _ = s.Run(ctx) }()

		Convey("Then the client reads three decodable frames and a normal close", func() {
			var rounds []int
			for {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, data, err := conn.ReadMessage()
				if err != nil {
					So(websocket.IsCloseError(err, websocket.CloseNormalClosure), ShouldBeTrue)
					break
				}
				ev, err := model.DecodeRoundEvent(data)
				So(err, ShouldBeNil)
				So(len(ev.Balances), ShouldBeLessThanOrEqualTo, 2)
				rounds = append(rounds, ev.Round)
			}
			So(rounds, ShouldResemble, []int{1, 2, 3})
		})
	})
}
