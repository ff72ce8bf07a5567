package sim

import (
	"errors"
	"testing"

	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/scope"
)

func TestSimulatedAcquisition(t *testing.T) {
	sess := New(500)
	proto, err := scope.NewProtocol(domain.DialectTek, "CH1", 0)
	if err != nil {
		t.Fatalf("new protocol: %v", err)
	}

	if err := proto.Configure(sess); err != nil {
		t.Fatalf("configure: %v", err)
	}
	pre, err := proto.FetchPreamble(sess)
	if err != nil {
		t.Fatalf("fetch preamble: %v", err)
	}
	if pre.SampleCount != 500 {
		t.Fatalf("expected 500 samples, got %d", pre.SampleCount)
	}

	if err := proto.Trigger(sess); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := proto.AwaitComplete(sess); err != nil {
		t.Fatalf("await: %v", err)
	}
	raw, err := proto.FetchWaveform(sess)
	if err != nil {
		t.Fatalf("fetch waveform: %v", err)
	}

	codes, err := scope.DecodeFrame(proto.Framing(), raw, pre.SampleCount)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	times, volts := scope.ScalePhysical(pre, codes)
	if len(times) != 500 || len(volts) != 500 {
		t.Fatalf("expected 500 scaled points, got %d / %d", len(times), len(volts))
	}
	for i, v := range volts {
		if v < -2.5 || v > 2.5 {
			t.Fatalf("voltage %g at sample %d outside the simulated range", v, i)
		}
	}
	if sess.Triggers() != 1 {
		t.Fatalf("expected 1 trigger, got %d", sess.Triggers())
	}
}

func TestSimulatedPhaseAdvances(t *testing.T) {
	sess := New(64)
	first, err := sess.QueryBlock("CURVE?")
	if err != nil {
		t.Fatalf("first block: %v", err)
	}
	second, err := sess.QueryBlock("CURVE?")
	if err != nil {
		t.Fatalf("second block: %v", err)
	}
	if string(first) == string(second) {
		t.Fatalf("consecutive captures must differ")
	}
}

func TestSimulatedSessionClosed(t *testing.T) {
	sess := New(0)
	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := sess.Query("*IDN?"); !errors.Is(err, scope.ErrConnection) {
		t.Fatalf("expected connection error after close, got %v", err)
	}
}
