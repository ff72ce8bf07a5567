package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/ports"
)

// Protocol is the fixed command vocabulary of one instrument dialect. The
// commands themselves are external contracts and are not configurable.
type Protocol struct {
	dialect      domain.Dialect
	source       string
	recordLength int
}

// NewProtocol builds the command set for a dialect and waveform source
// (e.g. "CH2" on TEK, "CHAN4" on Agilent). recordLength sets the requested
// acquisition length on dialects that support it; zero leaves the
// instrument's current record length untouched.
func NewProtocol(d domain.Dialect, source string, recordLength int) (*Protocol, error) {
	if !d.Valid() {
		return nil, Classified(ErrConfig, "new protocol", fmt.Errorf("unknown dialect %q", d))
	}
	if source == "" {
		return nil, Classified(ErrConfig, "new protocol", fmt.Errorf("waveform source is required"))
	}
	if recordLength < 0 {
		return nil, Classified(ErrConfig, "new protocol", fmt.Errorf("record length must be >= 0, got %d", recordLength))
	}
	return &Protocol{dialect: d, source: source, recordLength: recordLength}, nil
}

func (p *Protocol) Dialect() domain.Dialect { return p.dialect }

// Framing returns the binary-block envelope this dialect transfers with.
func (p *Protocol) Framing() Framing { return FramingFor(p.dialect) }

// Identify queries and returns the instrument identification string.
func (p *Protocol) Identify(sess ports.Session) (string, error) {
	idn, err := sess.Query("*IDN?")
	if err != nil {
		return "", fmt.Errorf("identify: %w", err)
	}
	return strings.TrimSpace(idn), nil
}

// Configure puts the instrument into single-shot, 8-bit signed binary
// transfer mode for the configured source.
func (p *Protocol) Configure(sess ports.Session) error {
	var cmds []string
	switch p.dialect {
	case domain.DialectAgilent:
		cmds = []string{
			":STOP",
			":WAVEFORM:SOURCE " + p.source,
			":WAVEFORM:FORMAT BYTE",
			":WAVEFORM:UNSIGNED OFF",
		}
		if p.recordLength > 0 {
			cmds = append(cmds, fmt.Sprintf(":ACQUIRE:POINTS %d", p.recordLength))
		}
		cmds = append(cmds, ":ACQUIRE:TYPE NORMAL")
	default:
		cmds = []string{
			"DATA:SOURCE " + p.source,
			"DATA:ENCDG RIBinary",
			"DATA:WIDTH 1",
			"HEADER OFF",
			"ACQUIRE:STOPAFTER SEQUENCE",
		}
	}
	for _, cmd := range cmds {
		if err := sess.Write(cmd); err != nil {
			return fmt.Errorf("configure %q: %w", cmd, err)
		}
	}
	return nil
}

// FetchPreamble queries the scaling snapshot. Called once per run; the run
// assumes a stable instrument configuration afterwards.
func (p *Protocol) FetchPreamble(sess ports.Session) (*domain.Preamble, error) {
	if p.dialect == domain.DialectAgilent {
		return p.fetchAgilentPreamble(sess)
	}
	return p.fetchTekPreamble(sess)
}

func (p *Protocol) fetchTekPreamble(sess ports.Session) (*domain.Preamble, error) {
	points, err := queryInt(sess, "WFMPRE:NR_PT?")
	if err != nil {
		return nil, err
	}
	xincr, err := queryFloat(sess, "WFMPRE:XINCR?")
	if err != nil {
		return nil, err
	}
	xzero, err := queryFloat(sess, "WFMPRE:XZERO?")
	if err != nil {
		return nil, err
	}
	ymult, err := queryFloat(sess, "WFMPRE:YMULT?")
	if err != nil {
		return nil, err
	}
	yoff, err := queryFloat(sess, "WFMPRE:YOFF?")
	if err != nil {
		return nil, err
	}
	yzero, err := queryFloat(sess, "WFMPRE:YZERO?")
	if err != nil {
		return nil, err
	}
	return &domain.Preamble{
		SampleCount:   points,
		TimeIncrement: xincr,
		TimeOrigin:    xzero,
		VoltageScale:  ymult,
		CodeOffset:    yoff,
		CodeZero:      yzero,
		Dialect:       domain.DialectTek,
	}, nil
}

// fetchAgilentPreamble parses the comma-separated :WAVEFORM:PREAMBLE?
// response: format,type,points,count,xinc,xorg,xref,yinc,yorg,yref.
func (p *Protocol) fetchAgilentPreamble(sess ports.Session) (*domain.Preamble, error) {
	raw, err := sess.Query(":WAVEFORM:PREAMBLE?")
	if err != nil {
		return nil, fmt.Errorf("query preamble: %w", err)
	}
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) < 10 {
		return nil, Classified(ErrConfig, "parse preamble",
			fmt.Errorf("expected 10 fields, got %d in %q", len(fields), raw))
	}
	nums := make([]float64, 10)
	for i := 2; i < 10; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return nil, Classified(ErrConfig, "parse preamble",
				fmt.Errorf("field %d %q is not numeric", i, fields[i]))
		}
		nums[i] = v
	}
	return &domain.Preamble{
		SampleCount:   int(nums[2]),
		TimeIncrement: nums[4],
		TimeOrigin:    nums[5],
		VoltageScale:  nums[7],
		CodeOffset:    nums[8],
		CodeZero:      nums[9],
		Dialect:       domain.DialectAgilent,
	}, nil
}

// Trigger starts a single acquisition. TEK arms and returns, requiring the
// explicit completion poll; Agilent's :DIGITIZE is itself single-shot.
func (p *Protocol) Trigger(sess ports.Session) error {
	var cmd string
	if p.dialect == domain.DialectAgilent {
		cmd = ":DIGITIZE " + p.source
	} else {
		cmd = "ACQUIRE:STATE ON"
	}
	if err := sess.Write(cmd); err != nil {
		return fmt.Errorf("trigger: %w", err)
	}
	return nil
}

// AwaitComplete blocks until the armed acquisition finishes, bounded by the
// session timeout. Only the TEK dialect needs the *OPC? poll.
func (p *Protocol) AwaitComplete(sess ports.Session) error {
	if p.dialect == domain.DialectAgilent {
		return nil
	}
	resp, err := sess.Query("*OPC?")
	if err != nil {
		return fmt.Errorf("operation complete poll: %w", err)
	}
	if strings.TrimSpace(resp) != "1" {
		return Classified(ErrTransport, "operation complete poll",
			fmt.Errorf("unexpected response %q", resp))
	}
	return nil
}

// FetchWaveform issues the data query and returns the raw framed block.
func (p *Protocol) FetchWaveform(sess ports.Session) ([]byte, error) {
	cmd := "CURVE?"
	if p.dialect == domain.DialectAgilent {
		cmd = ":WAVEFORM:DATA?"
	}
	raw, err := sess.QueryBlock(cmd)
	if err != nil {
		return nil, fmt.Errorf("fetch waveform: %w", err)
	}
	return raw, nil
}

// Release returns the instrument to free-running acquisition after a run.
// Only Agilent scopes are parked by the single-shot configuration.
func (p *Protocol) Release(sess ports.Session) error {
	if p.dialect != domain.DialectAgilent {
		return nil
	}
	if err := sess.Write(":RUN"); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

func queryFloat(sess ports.Session, cmd string) (float64, error) {
	resp, err := sess.Query(cmd)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", cmd, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, Classified(ErrConfig, "query "+cmd,
			fmt.Errorf("response %q is not numeric", resp))
	}
	return v, nil
}

func queryInt(sess ports.Session, cmd string) (int, error) {
	v, err := queryFloat(sess, cmd)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
