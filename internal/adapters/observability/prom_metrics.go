package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	captures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scopeflow_captures_total",
		Help: "Waveform captures acquired and published.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scopeflow_capture_failures_total",
		Help: "Capture iterations that failed and were skipped.",
	})
	rate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scopeflow_capture_rate_hz",
		Help: "Instantaneous capture rate of the last completed iteration.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scopeflow_capture_duration_seconds",
		Help:    "Wall time of a full trigger-fetch-decode-publish cycle.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(captures, failures, rate, duration)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"scopeflow_captures_total":         captures,
			"scopeflow_capture_failures_total": failures,
		},
		gauges: map[string]prometheus.Gauge{
			"scopeflow_capture_rate_hz": rate,
		},
		histos: map[string]prometheus.Observer{
			"scopeflow_capture_duration_seconds": duration,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var _ ports.Observability = (*PromObs)(nil)
