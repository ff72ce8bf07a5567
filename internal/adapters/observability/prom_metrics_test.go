package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("scopeflow_captures_total", 5)
	if got := testutil.ToFloat64(obs.counters["scopeflow_captures_total"]); got != 5 {
		t.Fatalf("expected captures counter 5, got %f", got)
	}

	obs.IncCounter("scopeflow_capture_failures_total", 2)
	if got := testutil.ToFloat64(obs.counters["scopeflow_capture_failures_total"]); got != 2 {
		t.Fatalf("expected failure counter 2, got %f", got)
	}

	obs.SetGauge("scopeflow_capture_rate_hz", 4.2)
	if got := testutil.ToFloat64(obs.gauges["scopeflow_capture_rate_hz"]); got != 4.2 {
		t.Fatalf("expected rate gauge 4.2, got %f", got)
	}

	obs.ObserveLatency("scopeflow_capture_duration_seconds", 0.25)
	hCollector := obs.histos["scopeflow_capture_duration_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected duration histogram to record 1 sample, got %d", samples)
	}

	// Unknown names must be ignored rather than panic.
	obs.IncCounter("scopeflow_unknown_total", 1)
	obs.SetGauge("scopeflow_unknown", 1)
	obs.ObserveLatency("scopeflow_unknown_seconds", 1)
}
