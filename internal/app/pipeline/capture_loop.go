// Package pipeline drives the acquisition state machine: configure the
// instrument once, then trigger → await → fetch → decode → scale → publish
// per iteration, with per-iteration fault isolation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/FilipeMaia/scopeflow/internal/scope"
)

// State names the phase of an acquisition run.
type State string

const (
	StateIdle        State = "idle"
	StateConfiguring State = "configuring"
	StateRunning     State = "running"
	StateComplete    State = "complete"
	StateAborted     State = "aborted"
)

// LoopState carries the mutable per-run bookkeeping. It is constructed at run
// start and discarded at run end; nothing persists across runs.
type LoopState struct {
	State     State
	Iteration int // iterations attempted
	Published int // captures delivered to sinks
	Failures  int // recoverable per-iteration failures

	rateSum   float64
	rateCount int
}

func (s *LoopState) recordRate(hz float64) {
	s.rateSum += hz
	s.rateCount++
}

// AverageRateHz is the mean achieved rate over successful captures.
func (s *LoopState) AverageRateHz() float64 {
	if s.rateCount == 0 {
		return 0
	}
	return s.rateSum / float64(s.rateCount)
}

// RawRecorder receives every raw framed block before decoding, so a run can
// be replayed offline.
type RawRecorder interface {
	Record(iteration int, raw []byte) error
}

// PreambleRecorder is an optional extension of RawRecorder. Recorders that
// persist the scaling snapshot receive it once configuration succeeds.
type PreambleRecorder interface {
	RecordPreamble(pre *domain.Preamble) error
}

// Options bound one acquisition run.
type Options struct {
	// Captures is the number of iterations to attempt.
	Captures int

	// Framing overrides the dialect's default envelope. Leave empty unless
	// the transport is known to strip headers itself.
	Framing scope.Framing

	// Recorder, when set, is fed the raw block of every fetched capture.
	Recorder RawRecorder
}

// Loop owns the instrument session for the duration of one run.
type Loop struct {
	sess  ports.Session
	proto *scope.Protocol
	sinks []ports.Sink
	obs   ports.Observability
	opts  Options

	pre     *domain.Preamble
	framing scope.Framing
	state   LoopState
}

// New validates the wiring for a run. The session must already be open; the
// loop closes it exactly once when Run returns.
func New(sess ports.Session, proto *scope.Protocol, sinks []ports.Sink, obs ports.Observability, opts Options) (*Loop, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	if proto == nil {
		return nil, fmt.Errorf("protocol is required")
	}
	if obs == nil {
		return nil, fmt.Errorf("observability is required")
	}
	if opts.Captures <= 0 {
		return nil, scope.Classified(scope.ErrConfig, "new loop",
			fmt.Errorf("capture count must be > 0, got %d", opts.Captures))
	}
	framing := opts.Framing
	if framing == "" {
		framing = proto.Framing()
	}
	if !framing.Valid() {
		return nil, scope.Classified(scope.ErrConfig, "new loop",
			fmt.Errorf("unknown framing %q", opts.Framing))
	}
	return &Loop{
		sess:    sess,
		proto:   proto,
		sinks:   sinks,
		obs:     obs,
		opts:    opts,
		framing: framing,
		state:   LoopState{State: StateIdle},
	}, nil
}

// State returns a snapshot of the run bookkeeping.
func (l *Loop) State() LoopState { return l.state }

// Preamble returns the scaling snapshot fetched during configuration, or nil
// before Run reached that point.
func (l *Loop) Preamble() *domain.Preamble { return l.pre }

// Run configures the instrument, fetches the preamble, and executes the
// capture iterations. Transport and framing failures skip the iteration;
// a timeout aborts the run. The session is closed exactly once on the way
// out, whether the run completes, aborts, or is cancelled.
func (l *Loop) Run(ctx context.Context) (*LoopState, error) {
	defer func() {
		if err := l.sess.Close(); err != nil {
			l.obs.LogError("session_close_failed", err)
		}
	}()

	if err := l.configure(); err != nil {
		l.state.State = StateAborted
		return &l.state, fmt.Errorf("setup: %w", err)
	}

	if pr, ok := l.opts.Recorder.(PreambleRecorder); ok {
		if err := pr.RecordPreamble(l.pre); err != nil {
			l.obs.LogError("raw_record_failed", err)
		}
	}

	l.state.State = StateRunning
	for i := 0; i < l.opts.Captures; i++ {
		select {
		case <-ctx.Done():
			l.state.State = StateAborted
			l.obs.LogInfo("run_cancelled", ports.Field{Key: "iteration", Value: i})
			return &l.state, ctx.Err()
		default:
		}

		l.state.Iteration = i + 1
		start := time.Now()

		capture, err := l.captureOnce(i + 1)
		if err != nil {
			l.state.Failures++
			l.obs.IncCounter("scopeflow_capture_failures_total", 1)
			if errors.Is(err, scope.ErrTimeout) {
				l.state.State = StateAborted
				l.obs.LogCritical("capture_timeout", err, ports.Field{Key: "iteration", Value: i + 1})
				return &l.state, fmt.Errorf(
					"capture %d: %w (the instrument may not be triggering; check the trigger source and level)",
					i+1, err)
			}
			l.obs.LogError("capture_failed", err, ports.Field{Key: "iteration", Value: i + 1})
			continue
		}

		elapsed := time.Since(start)
		capture.Duration = elapsed
		capture.RateHz = 0
		if secs := elapsed.Seconds(); secs > 0 {
			capture.RateHz = 1 / secs
		}
		l.state.recordRate(capture.RateHz)

		l.publish(capture)
		l.state.Published++

		l.obs.IncCounter("scopeflow_captures_total", 1)
		l.obs.ObserveLatency("scopeflow_capture_duration_seconds", elapsed.Seconds())
		l.obs.SetGauge("scopeflow_capture_rate_hz", capture.RateHz)
		l.obs.LogInfo("capture_complete",
			ports.Field{Key: "iteration", Value: i + 1},
			ports.Field{Key: "of", Value: l.opts.Captures},
			ports.Field{Key: "rate_hz", Value: capture.RateHz})
	}

	l.state.State = StateComplete
	if err := l.proto.Release(l.sess); err != nil {
		l.obs.LogError("release_failed", err)
	}
	l.obs.LogInfo("run_complete",
		ports.Field{Key: "published", Value: l.state.Published},
		ports.Field{Key: "failures", Value: l.state.Failures},
		ports.Field{Key: "avg_rate_hz", Value: l.state.AverageRateHz()})
	return &l.state, nil
}

func (l *Loop) configure() error {
	l.state.State = StateConfiguring

	idn, err := l.proto.Identify(l.sess)
	if err != nil {
		return err
	}
	l.obs.LogInfo("connected", ports.Field{Key: "instrument", Value: idn})

	if err := l.proto.Configure(l.sess); err != nil {
		return err
	}

	pre, err := l.proto.FetchPreamble(l.sess)
	if err != nil {
		return err
	}
	if err := pre.Validate(); err != nil {
		return scope.Classified(scope.ErrConfig, "validate preamble", err)
	}
	l.pre = pre
	l.obs.LogInfo("preamble_acquired",
		ports.Field{Key: "sample_count", Value: pre.SampleCount},
		ports.Field{Key: "time_increment", Value: pre.TimeIncrement},
		ports.Field{Key: "voltage_scale", Value: pre.VoltageScale})
	return nil
}

func (l *Loop) captureOnce(iteration int) (*domain.Capture, error) {
	if err := l.proto.Trigger(l.sess); err != nil {
		return nil, err
	}
	if err := l.proto.AwaitComplete(l.sess); err != nil {
		return nil, err
	}
	raw, err := l.proto.FetchWaveform(l.sess)
	if err != nil {
		return nil, err
	}

	if l.opts.Recorder != nil {
		if err := l.opts.Recorder.Record(iteration, raw); err != nil {
			l.obs.LogError("raw_record_failed", err, ports.Field{Key: "iteration", Value: iteration})
		}
	}

	codes, err := scope.DecodeFrame(l.framing, raw, l.pre.SampleCount)
	if err != nil {
		return nil, err
	}
	times, voltages := scope.ScalePhysical(l.pre, codes)

	return &domain.Capture{
		Index:      iteration,
		Times:      times,
		Voltages:   voltages,
		CapturedAt: time.Now(),
	}, nil
}

// publish delivers the capture to every sink. Sink failures are best-effort:
// reported, never bounced back into the capture failure policy.
func (l *Loop) publish(c *domain.Capture) {
	for _, s := range l.sinks {
		if err := s.Publish(c); err != nil {
			l.obs.LogError("sink_publish_failed", err,
				ports.Field{Key: "sink", Value: s.Name()},
				ports.Field{Key: "iteration", Value: c.Index})
		}
	}
}
