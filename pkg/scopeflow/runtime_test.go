package scopeflow

import (
	"context"
	"testing"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/ports"
)

type stubObs struct{}

func (stubObs) LogInfo(msg string, fields ...ports.Field)                {}
func (stubObs) LogError(msg string, err error, fields ...ports.Field)    {}
func (stubObs) LogCritical(msg string, err error, fields ...ports.Field) {}
func (stubObs) IncCounter(name string, v float64)                        {}
func (stubObs) ObserveLatency(name string, seconds float64)              {}
func (stubObs) SetGauge(name string, v float64)                          {}

func simConfig(t *testing.T, captures int) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Instrument.Transport = "sim"
	cfg.Instrument.Dialect = DialectTek
	cfg.Instrument.Source = "CH1"
	cfg.Instrument.Timeout = time.Second
	cfg.Capture.Count = captures
	cfg.Capture.RecordLength = 128
	cfg.Metrics.Addr = "" // no HTTP server in tests
	return cfg
}

func TestRuntimeSimulatedRun(t *testing.T) {
	var got []int
	rt, err := NewRuntime(simConfig(t, 3),
		WithObservability(stubObs{}),
		WithSink(NewCallbackSink("collect", func(c *Capture) error {
			got = append(got, c.Index)
			if len(c.Voltages) != 128 {
				t.Errorf("expected 128 samples, got %d", len(c.Voltages))
			}
			return nil
		})),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 captures, got %d", len(got))
	}
	result := rt.Result()
	if result == nil || result.State != StateComplete {
		t.Fatalf("expected complete result, got %+v", result)
	}
	if result.Published != 3 || result.Failures != 0 {
		t.Fatalf("expected 3 published / 0 failures, got %d / %d", result.Published, result.Failures)
	}
	if rt.Preamble() == nil || rt.Preamble().SampleCount != 128 {
		t.Fatalf("expected preamble with 128 samples, got %+v", rt.Preamble())
	}
}

func TestRuntimeRawLogReplayable(t *testing.T) {
	dir := t.TempDir()
	cfg := simConfig(t, 2)
	cfg.RawLog.Enabled = true
	cfg.RawLog.Dir = dir

	rt, err := NewRuntime(cfg, WithObservability(stubObs{}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rt.Result().Published != 2 {
		t.Fatalf("expected 2 published, got %d", rt.Result().Published)
	}
}

func TestRuntimeRejectsUnknownTransport(t *testing.T) {
	cfg := simConfig(t, 1)
	cfg.Instrument.Transport = "visa"
	if _, err := NewRuntime(cfg, WithObservability(stubObs{})); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestRuntimeRequiresConfig(t *testing.T) {
	if _, err := NewRuntime(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
