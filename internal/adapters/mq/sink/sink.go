// Package sink publishes round updates to Kafka for downstream consumers.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
)

// TypeRoundUpdate is the envelope type of every published round.
const TypeRoundUpdate = "round_update"

const defaultKey = "roundwatch"

// ErrNoBrokers is returned when the sink is built without brokers.
var ErrNoBrokers = errors.New("kafka sink needs at least one broker")

// Envelope wraps every message on the topic.
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// KafkaSink is a worker display writing one message per round.
type KafkaSink struct {
	topic string
	key   string
	p     sarama.SyncProducer
	now   func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the KafkaSink.
type Option func(*KafkaSink)

// WithLogger sets a custom logger for the sink.
func WithLogger(l logger.Logger) Option {
	return func(s *KafkaSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKey sets the message key. All rounds share one key so they land on
// one partition in order.
func WithKey(key string) Option {
	return func(s *KafkaSink) {
		if key != "" {
			s.key = key
		}
	}
}

// NewKafkaSink connects a synchronous producer to brokers.
func NewKafkaSink(brokers []string, topic string, opts ...Option) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	cfg := sarama.NewConfig()
	cfg.ClientID = "roundwatch"
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewWithProducer(p, topic, opts...), nil
}

// NewWithProducer builds a sink on an existing producer.
func NewWithProducer(p sarama.SyncProducer, topic string, opts ...Option) *KafkaSink {
	s := &KafkaSink{
		topic: topic,
		key:   defaultKey,
		p:     p,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sink")
	}
	return s
}

// Name identifies the sink as a display.
func (s *KafkaSink) Name() string { return "kafka" }

// Show publishes the round update.
func (s *KafkaSink) Show(ctx context.Context, upd model.RoundUpdate) error {
	return s.Emit(ctx, TypeRoundUpdate, upd)
}

// Emit wraps v in an Envelope and sends it synchronously.
func (s *KafkaSink) Emit(ctx context.Context, typ string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	b, err := json.Marshal(Envelope{Type: typ, TS: s.now().UnixMilli(), Data: data})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	partition, offset, err := s.p.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(s.key),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("kafka emit failed: %w", err)
	}
	s.logger.Debug(ctx, "round published",
		logger.String("topic", s.topic),
		logger.Int("partition", int(partition)),
		logger.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (s *KafkaSink) Close() error {
	if s.p != nil {
		return s.p.Close()
	}
	return nil
}
