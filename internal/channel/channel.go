// Package channel provides a buffered channel whose sends never block and
// whose close is safe to call from any side, any number of times.
package channel

import (
	"errors"
	"sync"
)

var (
	ErrFull   = errors.New("channel full")
	ErrClosed = errors.New("channel closed")
)

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T) error
}

// Channel is a bounded buffer between one or more senders and a receiver.
type Channel[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

// New creates a channel holding at most size undelivered values.
func New[T any](size int) *Channel[T] {
	if size < 1 {
		size = 1
	}
	return &Channel[T]{ch: make(chan T, size)}
}

// Send queues v without blocking. It returns ErrFull when the buffer is at
// capacity and ErrClosed after Close.
func (c *Channel[T]) Send(v T) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.ch <- v:
		return nil
	default:
		return ErrFull
	}
}

// Receive returns the receive-only channel. It is closed by Close once the
// buffered values are drained.
func (c *Channel[T]) Receive() <-chan T {
	return c.ch
}

// Len returns the number of values waiting to be received.
func (c *Channel[T]) Len() int {
	return len(c.ch)
}

// Cap returns the buffer size.
func (c *Channel[T]) Cap() int {
	return cap(c.ch)
}

// Close stops further sends. Values already queued can still be received.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
