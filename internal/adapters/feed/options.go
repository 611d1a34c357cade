package feed

import (
	"time"

	"github.com/okian/roundwatch/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReadLimit caps the size of a single inbound frame in bytes. Larger
// frames are discarded without closing the connection.
func WithReadLimit(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithHandshakeTimeout bounds the WebSocket opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

// WithEnqueueRetry sets how long to wait between attempts when the queue is full.
func WithEnqueueRetry(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.enqueueRetry = d
		}
	}
}
