package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
)

func TestKafkaSink(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a sink on a mock producer", t, func() {
		producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
		s := NewWithProducer(producer, "rounds")
		s.now = func() time.Time { return time.UnixMilli(1700000000000) }

		upd := model.RoundUpdate{
			Round: 4,
			Label: "Round 4",
			Players: []model.PlayerUpdate{
				{Player: "alice", Balance: 120, WinRate: 50, Win: true, Wins: 2, Total: 4},
			},
		}

		convey.Convey("When a round update is shown", func() {
			var sent *sarama.ProducerMessage
			producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
				sent = msg
				return nil
			})
			err := s.Show(context.Background(), upd)

			convey.Convey("Then one enveloped message is produced", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sent.Topic, convey.ShouldEqual, "rounds")

				key, _ := sent.Key.Encode()
				convey.So(string(key), convey.ShouldEqual, defaultKey)

				raw, _ := sent.Value.Encode()
				var env Envelope
				convey.So(json.Unmarshal(raw, &env), convey.ShouldBeNil)
				convey.So(env.Type, convey.ShouldEqual, TypeRoundUpdate)
				convey.So(env.TS, convey.ShouldEqual, int64(1700000000000))

				var got model.RoundUpdate
				convey.So(json.Unmarshal(env.Data, &got), convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, upd)
				convey.So(producer.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the broker rejects the message", func() {
			producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
			err := s.Show(context.Background(), upd)

			convey.Convey("Then the error is returned", func() {
				convey.So(errors.Is(err, sarama.ErrNotLeaderForPartition), convey.ShouldBeTrue)
				convey.So(s.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is already canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			convey.Convey("Then nothing is sent", func() {
				convey.So(s.Show(ctx, upd), convey.ShouldEqual, context.Canceled)
				convey.So(s.Close(), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given no brokers", t, func() {
		_, err := NewKafkaSink(nil, "rounds")
		convey.So(err, convey.ShouldEqual, ErrNoBrokers)
	})
}
