package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/domain"
)

func TestCSVSinkPublish(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewCSVSink(dir)
	if err != nil {
		t.Fatalf("new csv sink: %v", err)
	}

	captured := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	capture := &domain.Capture{
		Index:      7,
		Times:      []float64{0, 1e-9, 2e-9},
		Voltages:   []float64{0.1, -0.1, 1.27},
		CapturedAt: captured,
	}

	if err := sink.Publish(capture); err != nil {
		t.Fatalf("publish: %v", err)
	}

	path := filepath.Join(dir, "waveform_007_20260314-150926.csv")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected capture file at %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Time(s)" || rows[0][1] != "Voltage(V)" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "0" || rows[1][1] != "0.1" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[3][1] != "1.27" {
		t.Fatalf("unexpected last voltage %v", rows[3])
	}
}

func TestCSVSinkZeroPadsIndex(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewCSVSink(dir)
	if err != nil {
		t.Fatalf("new csv sink: %v", err)
	}

	capture := &domain.Capture{
		Index:      42,
		Times:      []float64{0},
		Voltages:   []float64{0},
		CapturedAt: time.Now(),
	}
	if err := sink.Publish(capture); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one file, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "waveform_042_") {
		t.Fatalf("expected zero padded index in %s", entries[0].Name())
	}
}
