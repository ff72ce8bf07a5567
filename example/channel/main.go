package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/FilipeMaia/scopeflow/pkg/scopeflow"
)

// Streams captures out over a channel so a consumer goroutine can
// process them while the acquisition continues.
func main() {
	cfg := &scopeflow.Config{}
	cfg.Instrument.Transport = "sim"
	cfg.Instrument.Dialect = scopeflow.DialectTek
	cfg.Instrument.Source = "CH1"
	cfg.Instrument.Timeout = 5 * time.Second
	cfg.Capture.Count = 20
	cfg.Capture.RecordLength = 1000

	sink, captures, closeCaptures := scopeflow.NewChannelSink("fanout", 8)

	rt, err := scopeflow.NewRuntime(cfg, scopeflow.WithSink(sink))
	if err != nil {
		log.Fatalf("new runtime: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for c := range captures {
			peak := 0.0
			for _, v := range c.Voltages {
				if v > peak {
					peak = v
				}
			}
			fmt.Printf("capture %d: peak %.3f V at %s\n", c.Index, peak, c.CapturedAt.Format(time.RFC3339))
		}
	}()

	if err := rt.Run(context.Background()); err != nil {
		log.Fatalf("capture run failed: %v", err)
	}
	closeCaptures()
	<-done
}
