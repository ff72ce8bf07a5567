package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/ports"
)

type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) Publish(c *domain.Capture) error {
	samples, err := json.Marshal(struct {
		Times    []float64 `json:"times"`
		Voltages []float64 `json:"voltages"`
	}{c.Times, c.Voltages})
	if err != nil {
		return fmt.Errorf("marshal samples: %w", err)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (captured_at, capture_index, sample_count, duration_seconds, rate_hz, samples)")
	b.WriteString(" VALUES ($1,$2,$3,$4,$5,$6)")
	// Re-running a capture session must not duplicate rows.
	b.WriteString(" ON CONFLICT (captured_at, capture_index) DO NOTHING")

	_, err = t.db.Exec(b.String(),
		c.CapturedAt,
		c.Index,
		c.Len(),
		c.Duration.Seconds(),
		c.RateHz,
		samples,
	)
	return err
}

var _ ports.Sink = (*TimescaleSink)(nil)
