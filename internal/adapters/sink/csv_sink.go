package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/ports"
)

// CSVSink writes each capture to its own file, one sample per row.
type CSVSink struct {
	dir string
}

func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Publish(c *domain.Capture) error {
	name := fmt.Sprintf("waveform_%03d_%s.csv", c.Index, c.CapturedAt.Format("20060102-150405"))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Time(s)", "Voltage(V)"}); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for i := range c.Times {
		row := []string{
			strconv.FormatFloat(c.Times[i], 'g', -1, 64),
			strconv.FormatFloat(c.Voltages[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

var _ ports.Sink = (*CSVSink)(nil)
