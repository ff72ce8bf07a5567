package scopeflow

import (
	"github.com/FilipeMaia/scopeflow/internal/app/config"
	"github.com/FilipeMaia/scopeflow/internal/app/pipeline"
	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/FilipeMaia/scopeflow/internal/scope"
)

// Capture is one scaled waveform acquisition.
type Capture = domain.Capture

// Preamble is the scaling snapshot fetched from the instrument before the
// first acquisition.
type Preamble = domain.Preamble

// Dialect selects the SCPI command set.
type Dialect = domain.Dialect

const (
	DialectTek     = domain.DialectTek
	DialectAgilent = domain.DialectAgilent
)

// Session abstracts the instrument transport (USBTMC, LXI socket, GPIB).
type Session = ports.Session

// Sink consumes published captures.
type Sink = ports.Sink

// Observability emits logs and metrics about the acquisition run.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Framing names the block envelope around waveform bytes.
type Framing = scope.Framing

const (
	FramingTek     = scope.FramingTek
	FramingAgilent = scope.FramingAgilent
	FramingNone    = scope.FramingNone
)

// RawRecorder receives every raw framed block before decoding.
type RawRecorder = pipeline.RawRecorder

// LoopState is the bookkeeping of a finished or in-flight run.
type LoopState = pipeline.LoopState

const (
	StateIdle        = pipeline.StateIdle
	StateConfiguring = pipeline.StateConfiguring
	StateRunning     = pipeline.StateRunning
	StateComplete    = pipeline.StateComplete
	StateAborted     = pipeline.StateAborted
)

// Config is the root configuration struct.
type Config = config.Config

type (
	InstrumentConfig = config.InstrumentConfig
	CaptureConfig    = config.CaptureConfig
	CSVConfig        = config.CSVConfig
	StreamConfig     = config.StreamConfig
	TimescaleConfig  = config.TimescaleConfig
	RawLogConfig     = config.RawLogConfig
	MetricsConfig    = config.MetricsConfig
)

// Error classes, matchable with errors.Is.
var (
	ErrConnection = scope.ErrConnection
	ErrTransport  = scope.ErrTransport
	ErrTimeout    = scope.ErrTimeout
	ErrFraming    = scope.ErrFraming
	ErrConfig     = scope.ErrConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
