package scopeflow

import (
	base "github.com/FilipeMaia/scopeflow/pkg/scopeflow"
)

// Re-exported errors for convenience.
var (
	ErrConnection        = base.ErrConnection
	ErrTransport         = base.ErrTransport
	ErrTimeout           = base.ErrTimeout
	ErrFraming           = base.ErrFraming
	ErrConfig            = base.ErrConfig
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/FilipeMaia/scopeflow directly.
type (
	Config           = base.Config
	InstrumentConfig = base.InstrumentConfig
	CaptureConfig    = base.CaptureConfig
	CSVConfig        = base.CSVConfig
	StreamConfig     = base.StreamConfig
	TimescaleConfig  = base.TimescaleConfig
	RawLogConfig     = base.RawLogConfig
	MetricsConfig    = base.MetricsConfig
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Capture          = base.Capture
	CaptureFunc      = base.CaptureFunc
	Preamble         = base.Preamble
	Dialect          = base.Dialect
	Framing          = base.Framing
	Session          = base.Session
	Sink             = base.Sink
	Observability    = base.Observability
	Field            = base.Field
	RawRecorder      = base.RawRecorder
	LoopState        = base.LoopState
)

// Dialects and run states.
const (
	DialectTek     = base.DialectTek
	DialectAgilent = base.DialectAgilent

	StateIdle        = base.StateIdle
	StateConfiguring = base.StateConfiguring
	StateRunning     = base.StateRunning
	StateComplete    = base.StateComplete
	StateAborted     = base.StateAborted
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSession(s Session) RuntimeOption {
	return base.WithSession(s)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithRecorder(r RawRecorder) RuntimeOption {
	return base.WithRecorder(r)
}

// Sink adapters.
func NewCallbackSink(name string, fn CaptureFunc) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan *Capture, func()) {
	return base.NewChannelSink(name, buffer)
}
