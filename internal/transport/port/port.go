// Package port implements an in-process bidirectional message port pair.
// A message sent on one end is received on the other.
package port

import (
	"errors"
	"sync"

	"github.com/OCAP2/launch-telemetry/internal/channel"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

var (
	ErrPortFull = errors.New("port full")
	ErrClosed   = errors.New("port closed")
)

// DefaultBuffer is the number of undelivered messages each direction holds.
const DefaultBuffer = 256

// Port is one end of a pair. Closing either end closes both.
type Port struct {
	out  *channel.Channel[streaming.Message]
	in   *channel.Channel[streaming.Message]
	once *sync.Once
}

// NewPair returns two connected ports.
func NewPair(buffer int) (*Port, *Port) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ab := channel.New[streaming.Message](buffer)
	ba := channel.New[streaming.Message](buffer)
	once := &sync.Once{}
	return &Port{out: ab, in: ba, once: once}, &Port{out: ba, in: ab, once: once}
}

// Send delivers msg to the other end without blocking.
func (p *Port) Send(msg streaming.Message) error {
	switch err := p.out.Send(msg); {
	case errors.Is(err, channel.ErrFull):
		return ErrPortFull
	case errors.Is(err, channel.ErrClosed):
		return ErrClosed
	default:
		return err
	}
}

// Receive yields messages sent by the other end. It is closed once the pair
// is closed and drained.
func (p *Port) Receive() <-chan streaming.Message {
	return p.in.Receive()
}

// Pending returns how many sent messages the other end has not read.
func (p *Port) Pending() int {
	return p.out.Len()
}

// Close closes both directions.
func (p *Port) Close() error {
	p.once.Do(func() {
		p.out.Close()
		p.in.Close()
	})
	return nil
}

var _ streaming.Transport = (*Port)(nil)
