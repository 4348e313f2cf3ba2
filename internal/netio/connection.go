// Package netio provides the per-connection framing and outbound backpressure
// used by the game TCP acceptor (§4.15: "outbound frames are
// buffered per-connection; on exceeding a high-watermark the connection is
// flagged dead and recycled").
package netio

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/shadowot/realm/internal/protocol"
)

// DefaultOutboundQueueSize is the default buffered-frame capacity before a
// connection is considered backed up.
const DefaultOutboundQueueSize = 256

// Connection wraps one TCP socket with a codec and a buffered outbound
// queue. Reads happen on the caller's goroutine (ReadFrame); writes are
// pumped by a dedicated goroutine started by WritePump so a slow client
// socket never blocks the engine's command producer.
type Connection struct {
	conn  net.Conn
	codec *protocol.Codec

	outbound      chan []byte
	highWatermark int
	dead          atomic.Bool

	closeOnce sync.Once
	closed    chan struct{}
}

// NewConnection wraps conn with codec and an outbound queue of the given
// capacity. highWatermark is the queue depth at which the connection is
// marked dead rather than allowed to grow unbounded.
func NewConnection(conn net.Conn, codec *protocol.Codec, queueSize, highWatermark int) *Connection {
	if queueSize <= 0 {
		queueSize = DefaultOutboundQueueSize
	}
	if highWatermark <= 0 || highWatermark > queueSize {
		highWatermark = queueSize
	}
	return &Connection{
		conn:          conn,
		codec:         codec,
		outbound:      make(chan []byte, queueSize),
		highWatermark: highWatermark,
		closed:        make(chan struct{}),
	}
}

// RemoteAddr reports the underlying socket's remote address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Codec exposes the connection's framing codec so the caller can install an
// XTEA key once the handshake completes.
func (c *Connection) Codec() *protocol.Codec { return c.codec }

// ReadFrame reads and decodes the next frame from the socket.
func (c *Connection) ReadFrame() ([]byte, error) {
	return c.codec.ReadFrame(c.conn)
}

// Send enqueues payload for the write pump. It returns false, without
// blocking, once the queue is at or past the high watermark — the caller
// should then treat the connection as dead and recycle it.
func (c *Connection) Send(payload []byte) bool {
	if c.dead.Load() {
		return false
	}
	select {
	case c.outbound <- payload:
		if len(c.outbound) >= c.highWatermark {
			c.dead.Store(true)
		}
		return true
	default:
		c.dead.Store(true)
		return false
	}
}

// Dead reports whether the connection has been flagged for recycling.
func (c *Connection) Dead() bool { return c.dead.Load() }

// WritePump drains the outbound queue and writes each frame until ctx is
// canceled or the connection is closed. It is meant to run on its own
// goroutine for the lifetime of the connection.
func (c *Connection) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case payload := <-c.outbound:
			if err := c.codec.WriteFrame(c.conn, payload); err != nil {
				c.dead.Store(true)
				return
			}
		}
	}
}

// Close closes the underlying socket and stops the write pump. Safe to call
// more than once.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}
