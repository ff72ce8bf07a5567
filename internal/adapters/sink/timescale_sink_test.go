package sink

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/FilipeMaia/scopeflow/internal/domain"
)

func TestTimescaleSinkPublish(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "captures")
	ts := time.Now()

	capture := &domain.Capture{
		Index:      3,
		Times:      []float64{0, 1e-9, 2e-9},
		Voltages:   []float64{0.1, -0.1, 0},
		Duration:   250 * time.Millisecond,
		RateHz:     4,
		CapturedAt: ts,
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO captures (captured_at, capture_index, sample_count, duration_seconds, rate_hz, samples) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (captured_at, capture_index) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(ts, 3, 3, 0.25, 4.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Publish(capture); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "captures")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
