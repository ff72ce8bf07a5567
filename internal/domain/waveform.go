package domain

import (
	"fmt"
	"math"
	"time"
)

// Dialect selects the command vocabulary, binary-block framing, and scaling
// formula of an instrument family.
type Dialect string

const (
	DialectTek     Dialect = "tek"
	DialectAgilent Dialect = "agilent"
)

func (d Dialect) Valid() bool {
	return d == DialectTek || d == DialectAgilent
}

// Preamble is the scaling/metadata snapshot queried once per session and held
// immutable for the duration of a run.
type Preamble struct {
	SampleCount   int     `json:"sample_count" yaml:"sample_count"`
	TimeIncrement float64 `json:"time_increment" yaml:"time_increment"`
	TimeOrigin    float64 `json:"time_origin" yaml:"time_origin"`
	VoltageScale  float64 `json:"voltage_scale" yaml:"voltage_scale"`
	CodeOffset    float64 `json:"code_offset" yaml:"code_offset"`
	CodeZero      float64 `json:"code_zero" yaml:"code_zero"`
	Dialect       Dialect `json:"dialect" yaml:"dialect"`
}

// Validate rejects preambles that cannot produce meaningful physical samples.
func (p *Preamble) Validate() error {
	if p == nil {
		return fmt.Errorf("preamble is nil")
	}
	if p.SampleCount <= 0 {
		return fmt.Errorf("sample count must be > 0, got %d", p.SampleCount)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"time_increment", p.TimeIncrement},
		{"time_origin", p.TimeOrigin},
		{"voltage_scale", p.VoltageScale},
		{"code_offset", p.CodeOffset},
		{"code_zero", p.CodeZero},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s is not finite: %v", f.name, f.value)
		}
	}
	if !p.Dialect.Valid() {
		return fmt.Errorf("unknown dialect %q", p.Dialect)
	}
	return nil
}

// Capture is one decoded, scaled acquisition. Times and Voltages are parallel
// slices; index i of one corresponds to index i of the other.
type Capture struct {
	Index      int
	Times      []float64
	Voltages   []float64
	Duration   time.Duration
	RateHz     float64
	CapturedAt time.Time
}

// Len returns the number of physical samples in the capture.
func (c *Capture) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Times)
}
