package scopeflow

import (
	"errors"
	"testing"
	"time"
)

func testCapture(index int) *Capture {
	return &Capture{
		Index:      index,
		Times:      []float64{0, 1e-9},
		Voltages:   []float64{0.1, -0.1},
		CapturedAt: time.Now(),
	}
}

func TestCallbackSink(t *testing.T) {
	var got []int
	s := NewCallbackSink("", func(c *Capture) error {
		got = append(got, c.Index)
		return nil
	})

	if s.Name() != "callback" {
		t.Fatalf("expected default name callback, got %s", s.Name())
	}
	for i := 1; i <= 3; i++ {
		if err := s.Publish(testCapture(i)); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("unexpected deliveries %v", got)
	}
}

func TestCallbackSinkNilHandler(t *testing.T) {
	s := NewCallbackSink("broken", nil)
	if err := s.Publish(testCapture(1)); err == nil {
		t.Fatalf("expected error for nil handler")
	}
}

func TestChannelSink(t *testing.T) {
	s, ch, closeFn := NewChannelSink("waveforms", 2)
	if s.Name() != "waveforms" {
		t.Fatalf("expected name waveforms, got %s", s.Name())
	}

	if err := s.Publish(testCapture(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Publish(testCapture(2)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	closeFn()

	var got []int
	for c := range ch {
		got = append(got, c.Index)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected captures %v", got)
	}

	if err := s.Publish(testCapture(3)); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed after close, got %v", err)
	}
}

func TestChannelSinkDoubleClose(t *testing.T) {
	_, _, closeFn := NewChannelSink("", 0)
	closeFn()
	closeFn()
}
