package scopeflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/FilipeMaia/scopeflow/internal/domain"
)

// CaptureFunc handles one published capture.
type CaptureFunc func(c *Capture) error

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("scopeflow: channel sink closed")

// NewCallbackSink adapts a function into a Sink so callers can plug
// arbitrary handlers without defining structs.
func NewCallbackSink(name string, fn CaptureFunc) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes captures via a channel; it returns the sink, the
// read-only channel, and a close function the caller should invoke during
// shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan *Capture, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *Capture, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   CaptureFunc
}

func (s *callbackSink) Publish(c *domain.Capture) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(c)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan *Capture
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) Publish(c *domain.Capture) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- c:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
