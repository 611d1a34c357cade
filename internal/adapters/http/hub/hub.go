// Package hub pushes round updates to browsers over WebSocket.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
	"github.com/okian/roundwatch/pkg/metrics"
)

const (
	defaultSendBuffer   = 64
	defaultWriteTimeout = 5 * time.Second
)

// Message types sent to subscribers.
const (
	TypeSnapshot = "snapshot"
	TypeRound    = "round"
)

// ErrClosed is returned by Show after Close.
var ErrClosed = errors.New("hub closed")

// Message is the envelope written to subscribers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans round updates out to every connected subscriber. A subscriber
// whose buffer is full is disconnected instead of slowing the others.
type Hub struct {
	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	snapshot     func(ctx context.Context) any

	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool

	logger logger.Logger
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendBuffer:   defaultSendBuffer,
		writeTimeout: defaultWriteTimeout,
		subs:         make(map[string]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("hub")
	}
	return h
}

// Name identifies the hub as a display.
func (h *Hub) Name() string { return "hub" }

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and keeps the subscriber until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(ctx, "websocket upgrade failed", logger.Error(err))
		return
	}
	// the server's read timeout would otherwise end long-lived subscribers
	_ = conn.SetReadDeadline(time.Time{})

	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}

	if !h.add(ctx, sub) {
		_ = conn.Close()
		return
	}
	h.logger.Info(ctx, "subscriber joined", logger.String("id", sub.id))

	go h.writeLoop(sub)
	h.readLoop(ctx, sub)
}

// add queues the snapshot and registers sub under the write lock, so every
// round is either in the snapshot or broadcast to sub afterwards.
func (h *Hub) add(ctx context.Context, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.snapshot != nil {
		msg, err := json.Marshal(Message{Type: TypeSnapshot, Data: h.snapshot(ctx)})
		if err != nil {
			h.logger.Warn(ctx, "encode snapshot", logger.Error(err))
		} else {
			sub.send <- msg
		}
	}
	h.subs[sub.id] = sub
	metrics.UpdateSubscribers(len(h.subs))
	metrics.RecordSubscriberEvent("joined")
	return true
}

func (h *Hub) remove(sub *subscriber, event string) {
	h.mu.Lock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		metrics.UpdateSubscribers(len(h.subs))
		metrics.RecordSubscriberEvent(event)
	}
	h.mu.Unlock()
	sub.stop()
}

// readLoop discards inbound frames; it only notices the peer leaving.
func (h *Hub) readLoop(ctx context.Context, sub *subscriber) {
	defer func() {
		h.remove(sub, "left")
		h.logger.Info(ctx, "subscriber left", logger.String("id", sub.id))
	}()
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	defer func() { _ = sub.conn.Close() }()
	for msg := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = sub.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

// Show broadcasts one round update to every subscriber.
func (h *Hub) Show(ctx context.Context, upd model.RoundUpdate) error {
	msg, err := json.Marshal(Message{Type: TypeRound, Data: upd})
	if err != nil {
		return fmt.Errorf("encode round update: %w", err)
	}
	return h.Broadcast(ctx, msg)
}

// Broadcast queues msg on every subscriber and drops the ones that are full.
func (h *Hub) Broadcast(ctx context.Context, msg []byte) error {
	var slow []*subscriber

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	for _, sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn(ctx, "dropping slow subscriber", logger.String("id", sub.id))
		h.remove(sub, "dropped")
	}
	return nil
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[string]*subscriber)
	h.closed = true
	metrics.UpdateSubscribers(0)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	return nil
}
