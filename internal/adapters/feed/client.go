// Package feed reads round results from the game server's WebSocket
// endpoint and hands decoded events to the queue.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/roundwatch/internal/domain/model"
	"github.com/okian/roundwatch/pkg/logger"
	"github.com/okian/roundwatch/pkg/metrics"
)

const (
	defaultReadLimit        = 1 << 20
	defaultHandshakeTimeout = 10 * time.Second
	defaultEnqueueRetry     = 5 * time.Millisecond
)

// Enqueuer is the part of the queue the client writes to.
type Enqueuer interface {
	Enqueue(ctx context.Context, e model.RoundEvent) bool
	IsClosed() bool
}

// Client is a single inbound feed connection. It does not reconnect: once
// the server closes the stream Run returns and the tracked state stays as
// it is.
type Client struct {
	url          string
	queue        Enqueuer
	dialer       websocket.Dialer
	readLimit    int64
	enqueueRetry time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	logger logger.Logger
}

// NewClient creates a client for url that forwards events to q.
func NewClient(url string, q Enqueuer, opts ...Option) *Client {
	c := &Client{
		url:   url,
		queue: q,
		dialer: websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		readLimit:    defaultReadLimit,
		enqueueRetry: defaultEnqueueRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("feed")
	}
	return c
}

// Dial opens the connection.
func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDial, c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	metrics.SetFeedConnected(true)
	c.logger.Info(ctx, "feed connected", logger.String("url", c.url))
	return nil
}

// Run reads frames until the server closes the connection or ctx ends.
// A normal close from the server returns nil. Dial is called first when
// the client is not connected yet.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		if err := c.Dial(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		conn = c.conn
		c.mu.Unlock()
	}
	defer func() {
		c.connected.Store(false)
		metrics.SetFeedConnected(false)
	}()
	defer func() { _ = c.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		msgType, data, err := c.readFrame(conn)
		if errors.Is(err, errFrameTooLarge) {
			metrics.RecordFrameReceived()
			metrics.RecordFrameMalformed()
			c.logger.Warn(ctx, "oversized frame discarded", logger.Int64("limit", c.readLimit))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info(ctx, "feed closed by server")
				return nil
			}
			c.logger.Warn(ctx, "feed read failed", logger.Error(err))
			return fmt.Errorf("read feed: %w", err)
		}
		metrics.RecordFrameReceived()

		if msgType != websocket.TextMessage {
			metrics.RecordFrameMalformed()
			c.logger.Warn(ctx, "non-text frame discarded", logger.Int("type", msgType))
			continue
		}

		if err := c.handle(ctx, data); err != nil {
			return err
		}
	}
}

// readFrame reads the next message. Frames longer than readLimit are
// drained and reported with errFrameTooLarge; the connection stays usable.
func (c *Client) readFrame(conn *websocket.Conn) (int, []byte, error) {
	msgType, r, err := conn.NextReader()
	if err != nil {
		return 0, nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, c.readLimit+1))
	if err != nil {
		return 0, nil, err
	}
	if int64(len(data)) > c.readLimit {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return 0, nil, err
		}
		return msgType, nil, errFrameTooLarge
	}
	return msgType, data, nil
}

// handle decodes one frame and enqueues it. Decode failures are logged and
// dropped; only a closed queue is fatal.
func (c *Client) handle(ctx context.Context, data []byte) error {
	ev, err := model.DecodeRoundEvent(data)
	switch {
	case errors.Is(err, model.ErrInvalidBalance):
		metrics.RecordEventRejected("invalid_balance")
		c.logger.Warn(ctx, "round event rejected", logger.Error(err))
		return nil
	case err != nil:
		metrics.RecordFrameMalformed()
		c.logger.Warn(ctx, "malformed frame discarded", logger.Error(err), logger.Int("bytes", len(data)))
		return nil
	}

	for !c.queue.Enqueue(ctx, ev) {
		if c.queue.IsClosed() {
			return ErrQueueClosed
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.enqueueRetry):
		}
	}
	c.logger.Debug(ctx, "round received", logger.Int("round", ev.Round), logger.Int("players", len(ev.Balances)))
	return nil
}

// Connected reports whether the connection is currently open.
func (c *Client) Connected() bool { return c.connected.Load() }

// URL returns the feed endpoint.
func (c *Client) URL() string { return c.url }

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := c.conn.Close()
	c.conn = nil
	return err
}
