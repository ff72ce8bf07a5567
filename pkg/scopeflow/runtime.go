package scopeflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FilipeMaia/scopeflow/internal/adapters/gpib"
	"github.com/FilipeMaia/scopeflow/internal/adapters/lxi"
	"github.com/FilipeMaia/scopeflow/internal/adapters/observability"
	"github.com/FilipeMaia/scopeflow/internal/adapters/rawlog"
	"github.com/FilipeMaia/scopeflow/internal/adapters/sim"
	"github.com/FilipeMaia/scopeflow/internal/adapters/sink"
	"github.com/FilipeMaia/scopeflow/internal/adapters/usbtmc"
	"github.com/FilipeMaia/scopeflow/internal/app/pipeline"
	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/FilipeMaia/scopeflow/internal/scope"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	session       Session
	sinks         []Sink
	observability Observability
	recorder      RawRecorder
}

// WithSession injects a custom session so the runtime talks to any
// transport, including test doubles.
func WithSession(s Session) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.session = s
	}
}

// WithSink adds a sink alongside the ones built from config. May be
// given more than once.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sinks = append(o.sinks, s)
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithRecorder overrides the raw capture log built from config.
func WithRecorder(r RawRecorder) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.recorder = r
	}
}

// Runtime wires the session, protocol, sinks, and metrics stack for one
// acquisition run.
type Runtime struct {
	cfg        *Config
	obs        ports.Observability
	loop       *pipeline.Loop
	db         *sql.DB
	rawWriter  *rawlog.Writer
	streamSink *sink.StreamSink
	metricsSrv *http.Server
	result     *pipeline.LoopState
}

// NewRuntime bootstraps the default adapters: a session chosen by the
// configured transport, the CSV, MQTT, and Timescale sinks that the config
// enables, a raw capture log, and Prometheus observability. RuntimeOption
// values override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	r := &Runtime{cfg: cfg, obs: obs}

	sess := overrides.session
	if sess == nil {
		var err error
		sess, err = openSession(cfg)
		if err != nil {
			return nil, err
		}
	}

	proto, err := scope.NewProtocol(cfg.Instrument.Dialect, cfg.Instrument.Source, cfg.Capture.RecordLength)
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	sinks, err := r.buildSinks(overrides.sinks)
	if err != nil {
		_ = sess.Close()
		_ = r.closeResources()
		return nil, err
	}

	recorder := overrides.recorder
	if recorder == nil && cfg.RawLog.Enabled {
		w, err := rawlog.Create(cfg.RawLog.Dir)
		if err != nil {
			_ = sess.Close()
			_ = r.closeResources()
			return nil, fmt.Errorf("rawlog: %w", err)
		}
		r.rawWriter = w
		recorder = w
	}

	loop, err := pipeline.New(sess, proto, sinks, obs, pipeline.Options{
		Captures: cfg.Capture.Count,
		Framing:  cfg.Capture.Framing,
		Recorder: recorder,
	})
	if err != nil {
		_ = sess.Close()
		_ = r.closeResources()
		return nil, err
	}
	r.loop = loop
	return r, nil
}

func openSession(cfg *Config) (Session, error) {
	switch cfg.Instrument.Transport {
	case "usbtmc":
		return usbtmc.Open(cfg.Instrument.Resource)
	case "lxi":
		return lxi.Open(cfg.Instrument.Resource, cfg.Instrument.Timeout)
	case "gpib":
		return gpib.Open(cfg.Instrument.Resource, cfg.Instrument.GPIBAddress)
	case "sim":
		return sim.New(cfg.Capture.RecordLength), nil
	}
	return nil, scope.Classified(scope.ErrConfig, "open session",
		fmt.Errorf("unknown transport %q", cfg.Instrument.Transport))
}

func (r *Runtime) buildSinks(extra []Sink) ([]Sink, error) {
	sinks := append([]Sink(nil), extra...)

	if r.cfg.CSV.Enabled {
		csvSink, err := sink.NewCSVSink(r.cfg.CSV.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csvSink)
	}

	if r.cfg.Stream.Broker != "" {
		streamSink, err := sink.NewStreamSink(sink.StreamOptions{
			Broker:     r.cfg.Stream.Broker,
			Topic:      r.cfg.Stream.Topic,
			ClientID:   r.cfg.Stream.ClientID,
			QoS:        r.cfg.Stream.QoS,
			Decimation: r.cfg.Stream.Decimation,
			Buffer:     r.cfg.Stream.Buffer,
		})
		if err != nil {
			return nil, err
		}
		r.streamSink = streamSink
		sinks = append(sinks, streamSink)
	}

	if r.cfg.Timescale.ConnString != "" {
		db, err := sql.Open("postgres", r.cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		r.db = db
		sinks = append(sinks, sink.NewTimescaleSink(db, r.cfg.Timescale.Table))
	}

	return sinks, nil
}

// Run executes the acquisition and blocks until it finishes, aborts, or
// the context is cancelled. The run is finite; Run returns once the
// configured number of captures has been attempted.
func (r *Runtime) Run(ctx context.Context) error {
	r.startMetrics()
	state, err := r.loop.Run(ctx)
	r.result = state
	if e := r.closeResources(); e != nil {
		r.obs.LogError("shutdown_failed", e)
	}
	r.stopMetrics()
	return err
}

// Result returns the bookkeeping of the last run, or nil before Run.
func (r *Runtime) Result() *LoopState { return r.result }

// Preamble returns the scaling snapshot once the run configured the
// instrument.
func (r *Runtime) Preamble() *Preamble { return r.loop.Preamble() }

func (r *Runtime) startMetrics() {
	if r.cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}

func (r *Runtime) stopMetrics() {
	if r.metricsSrv == nil {
		return
	}
	if err := r.metricsSrv.Close(); err != nil {
		log.Printf("metrics server close: %v", err)
	}
}

func (r *Runtime) closeResources() error {
	var errs []error
	if r.rawWriter != nil {
		if err := r.rawWriter.Close(); err != nil {
			errs = append(errs, err)
		}
		r.rawWriter = nil
	}
	if r.streamSink != nil {
		if err := r.streamSink.Close(); err != nil {
			errs = append(errs, err)
		}
		r.streamSink = nil
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
		r.db = nil
	}
	return errors.Join(errs...)
}
