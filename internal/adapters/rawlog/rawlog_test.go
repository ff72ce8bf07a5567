package rawlog

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/FilipeMaia/scopeflow/internal/domain"
)

func testPreamble() *domain.Preamble {
	return &domain.Preamble{
		SampleCount:   4,
		TimeIncrement: 1e-9,
		VoltageScale:  0.01,
		Dialect:       domain.DialectTek,
	}
}

func TestRawLogRoundTrip(t *testing.T) {
	dir := t.TempDir()

	w, err := Create(dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.RecordPreamble(testPreamble()); err != nil {
		t.Fatalf("record preamble: %v", err)
	}
	blocks := [][]byte{
		[]byte("#14\x01\x02\x03\x04\n"),
		[]byte("#14\x05\x06\x07\x08\n"),
	}
	for i, b := range blocks {
		if err := w.Record(i+1, b); err != nil {
			t.Fatalf("record %d: %v", i+1, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r, err := Open(w.Path())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	pre := r.Preamble()
	if pre.SampleCount != 4 || pre.Dialect != domain.DialectTek {
		t.Fatalf("unexpected preamble %+v", pre)
	}

	for i, want := range blocks {
		iter, raw, err := r.Next()
		if err != nil {
			t.Fatalf("next %d: %v", i+1, err)
		}
		if iter != i+1 {
			t.Fatalf("expected iteration %d, got %d", i+1, iter)
		}
		if string(raw) != string(want) {
			t.Fatalf("block %d mismatch", i+1)
		}
	}
	if _, _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF at end, got %v", err)
	}
}

func TestRawLogToleratesTruncatedTail(t *testing.T) {
	dir := t.TempDir()

	w, err := Create(dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.RecordPreamble(testPreamble()); err != nil {
		t.Fatalf("record preamble: %v", err)
	}
	if err := w.Record(1, []byte("#14\x01\x02\x03\x04\n")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	// Simulate a crash mid-record.
	stat, err := os.Stat(w.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := os.Truncate(w.Path(), stat.Size()-3); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	r, err := Open(w.Path())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF for truncated record, got %v", err)
	}
}

func TestRawLogRejectsZeroIteration(t *testing.T) {
	dir := t.TempDir()

	w, err := Create(dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.RecordPreamble(testPreamble()); err != nil {
		t.Fatalf("record preamble: %v", err)
	}
	defer w.Close()

	if err := w.Record(0, []byte("x")); err == nil {
		t.Fatalf("iteration 0 is reserved for the preamble record")
	}
}
