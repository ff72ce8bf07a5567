package sink

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/domain"
)

func newIdleStreamSink(every, buffer int) *StreamSink {
	return &StreamSink{
		every: every,
		cap:   buffer,
		kick:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func TestStreamSinkDecimation(t *testing.T) {
	s := newIdleStreamSink(3, 16)

	for i := 1; i <= 9; i++ {
		c := &domain.Capture{Index: i, CapturedAt: time.Now()}
		if err := s.Publish(c); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var indices []int
	for {
		payload, ok := s.dequeue()
		if !ok {
			break
		}
		var p streamPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		indices = append(indices, p.CaptureIndex)
	}

	want := []int{1, 4, 7}
	if len(indices) != len(want) {
		t.Fatalf("expected %v after decimation, got %v", want, indices)
	}
	for i := range want {
		if indices[i] != want[i] {
			t.Fatalf("expected %v after decimation, got %v", want, indices)
		}
	}
}

func TestStreamSinkDropsOldestWhenFull(t *testing.T) {
	s := newIdleStreamSink(1, 3)

	for i := 1; i <= 5; i++ {
		s.enqueue([]byte(fmt.Sprintf("payload-%d", i)))
	}

	var got []string
	for {
		payload, ok := s.dequeue()
		if !ok {
			break
		}
		got = append(got, string(payload))
	}

	want := []string{"payload-3", "payload-4", "payload-5"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStreamSinkPayloadShape(t *testing.T) {
	s := newIdleStreamSink(1, 4)

	c := &domain.Capture{
		Index:      2,
		Times:      []float64{0, 1e-9},
		Voltages:   []float64{0.5, -0.5},
		Duration:   100 * time.Millisecond,
		RateHz:     10,
		CapturedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.Publish(c); err != nil {
		t.Fatalf("publish: %v", err)
	}

	payload, ok := s.dequeue()
	if !ok {
		t.Fatalf("expected a pending payload")
	}
	var p streamPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.CaptureIndex != 2 || p.RateHz != 10 || p.DurationSec != 0.1 {
		t.Fatalf("unexpected payload %+v", p)
	}
	if len(p.Times) != 2 || len(p.Voltages) != 2 {
		t.Fatalf("expected 2 samples in payload, got %d / %d", len(p.Times), len(p.Voltages))
	}
}
