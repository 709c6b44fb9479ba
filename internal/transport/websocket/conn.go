// Package websocket carries streaming messages over a gorilla websocket.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

const (
	sendChSize     = 1024
	recvChSize     = 16
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

var (
	ErrSendFull = errors.New("websocket send queue full")
	ErrClosed   = errors.New("websocket closed")
)

// Conn is a streaming.Transport over one websocket. A single goroutine
// writes; another reads and decodes inbound messages.
type Conn struct {
	conn   *ws.Conn
	sendCh chan streaming.Message
	recvCh chan streaming.Message
	done   chan struct{}

	mu     sync.Mutex
	closed bool

	logger *slog.Logger
}

// New wraps an established connection and starts its read and write loops.
func New(conn *ws.Conn, logger *slog.Logger) *Conn {
	c := &Conn{
		conn:   conn,
		sendCh: make(chan streaming.Message, sendChSize),
		recvCh: make(chan streaming.Message, recvChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	conn.SetReadLimit(maxMessageSize)

	go c.writeLoop()
	go c.readLoop()
	return c
}

// Dial connects to a websocket endpoint.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Conn, error) {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return New(conn, logger), nil
}

// Send queues msg for the write loop. It never blocks.
func (c *Conn) Send(msg streaming.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendFull
	}
}

// Receive yields decoded inbound messages. It is closed when the
// connection ends.
func (c *Conn) Receive() <-chan streaming.Message {
	return c.recvCh
}

// Done is closed once the connection has shut down for any reason.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and shuts down both loops.
func (c *Conn) Close() error {
	if !c.shutdown() {
		return nil
	}
	_ = c.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return c.conn.Close()
}

// shutdown marks the connection closed and reports whether this call did it.
func (c *Conn) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.done)
	return true
}

func (c *Conn) fail(err error) {
	if c.shutdown() {
		c.logger.Debug("WebSocket closed", "error", err)
		_ = c.conn.Close()
	}
}

// writeLoop encodes queued messages and pings the peer.
func (c *Conn) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.sendCh:
			data, err := streaming.Encode(msg)
			if err != nil {
				c.logger.Error("Failed to encode message", "type", msg.MessageType(), "error", err)
				continue
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.fail(err)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.fail(err)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

// readLoop decodes inbound messages until the connection fails.
func (c *Conn) readLoop() {
	defer close(c.recvCh)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				c.logger.Warn("WebSocket read error", "error", err)
			}
			c.fail(err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := streaming.Decode(data)
		if err != nil {
			c.logger.Debug("Dropping undecodable message", "error", err)
			continue
		}

		select {
		case c.recvCh <- msg:
		case <-c.done:
			return
		}
	}
}

var _ streaming.Transport = (*Conn)(nil)
