package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/adapters/rawlog"
	"github.com/FilipeMaia/scopeflow/internal/adapters/sink"
	"github.com/FilipeMaia/scopeflow/internal/scope"
	"github.com/FilipeMaia/scopeflow/pkg/scopeflow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "replay":
		err = replayCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("scope-capture %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to capture configuration file")
	count := fs.Int("count", 0, "Override the configured number of captures")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := scopeflow.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *count > 0 {
		cfg.Capture.Count = *count
	}

	rt, err := scopeflow.NewRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := rt.Run(ctx)
	if result := rt.Result(); result != nil {
		fmt.Printf("captures: %d published, %d failed, avg rate %.2f Hz\n",
			result.Published, result.Failures, result.AverageRateHz())
	}
	return runErr
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := scopeflow.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

// replayCommand re-decodes a raw capture log into CSV files, using the
// preamble stored in the log.
func replayCommand(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	logPath := fs.String("log", "", "Path to a .rawlog capture file")
	outDir := fs.String("out", "./captures", "Directory for the decoded CSV files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *logPath == "" {
		return fmt.Errorf("-log is required")
	}

	r, err := rawlog.Open(*logPath)
	if err != nil {
		return err
	}
	defer r.Close()

	pre := r.Preamble()
	framing := scope.FramingFor(pre.Dialect)

	csvSink, err := sink.NewCSVSink(*outDir)
	if err != nil {
		return err
	}

	var decoded, skipped int
	for {
		iteration, raw, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		codes, err := scope.DecodeFrame(framing, raw, pre.SampleCount)
		if err != nil {
			fmt.Fprintf(os.Stderr, "capture %d: %v\n", iteration, err)
			skipped++
			continue
		}
		times, voltages := scope.ScalePhysical(pre, codes)
		capture := &scopeflow.Capture{
			Index:      iteration,
			Times:      times,
			Voltages:   voltages,
			CapturedAt: time.Now(),
		}
		if err := csvSink.Publish(capture); err != nil {
			return err
		}
		decoded++
	}

	fmt.Printf("replayed %d captures to %s (%d skipped)\n", decoded, *outDir, skipped)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"scopeflow_captures_total":         0,
		"scopeflow_capture_failures_total": 0,
		"scopeflow_capture_rate_hz":        0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] captures=%.0f failures=%.0f rate_hz=%.2f\n",
		time.Now().Format(time.RFC3339),
		targets["scopeflow_captures_total"],
		targets["scopeflow_capture_failures_total"],
		targets["scopeflow_capture_rate_hz"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`scope-capture CLI

Usage:
  scope-capture <command> [flags]

Commands:
  run        Acquire waveforms from the configured instrument
  validate   Load and validate a config file without touching hardware
  replay     Re-decode a raw capture log into CSV files
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  scope-capture run -config ./config.yaml -count 50
  scope-capture validate -config ./config.yaml
  scope-capture replay -log ./data/rawlog/capture_20260830-120000.rawlog -out ./captures
  scope-capture stats -url http://localhost:9100/metrics -interval 1s
`)
}
