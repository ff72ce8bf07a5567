package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/FilipeMaia/scopeflow/pkg/scopeflow"
)

// Captures ten waveforms from the simulated scope and prints a summary
// line per capture. Point Transport at usbtmc or lxi to use real
// hardware.
func main() {
	cfg := &scopeflow.Config{}
	cfg.Instrument.Transport = "sim"
	cfg.Instrument.Dialect = scopeflow.DialectTek
	cfg.Instrument.Source = "CH1"
	cfg.Instrument.Timeout = 5 * time.Second
	cfg.Capture.Count = 10
	cfg.Capture.RecordLength = 500
	cfg.Metrics.Addr = ":9100"

	rt, err := scopeflow.NewRuntime(cfg,
		scopeflow.WithSink(scopeflow.NewCallbackSink("print", func(c *scopeflow.Capture) error {
			fmt.Printf("capture %d: %d samples, %.2f Hz\n", c.Index, c.Len(), c.RateHz)
			return nil
		})),
	)
	if err != nil {
		log.Fatalf("new runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("capture run failed: %v", err)
	}
}
