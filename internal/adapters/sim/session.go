package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/FilipeMaia/scopeflow/internal/scope"
)

const (
	defaultSamples = 2500
	timeIncrement  = 1.0e-6
	voltageScale   = 0.02
	amplitude      = 100.0
	cycles         = 4.0
)

// Session is an in-process stand-in for a Tektronix scope. Each
// triggered acquisition produces a sine burst with an advancing phase
// so consecutive captures are distinguishable.
type Session struct {
	mu       sync.Mutex
	samples  int
	phase    float64
	triggers int
	closed   bool
}

func New(recordLength int) *Session {
	if recordLength <= 0 {
		recordLength = defaultSamples
	}
	return &Session{samples: recordLength}
}

func (s *Session) Write(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return scope.Classified(scope.ErrConnection, "write "+cmd, errors.New("session closed"))
	}
	if cmd == "ACQUIRE:STATE ON" {
		s.triggers++
	}
	return nil
}

func (s *Session) Query(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", scope.Classified(scope.ErrConnection, "query "+cmd, errors.New("session closed"))
	}
	switch cmd {
	case "*IDN?":
		return "SCOPEFLOW,SIMULATED SCOPE,0,1.0", nil
	case "*OPC?":
		return "1", nil
	case "WFMPRE:NR_PT?":
		return fmt.Sprintf("%d", s.samples), nil
	case "WFMPRE:XINCR?":
		return fmt.Sprintf("%g", timeIncrement), nil
	case "WFMPRE:XZERO?":
		return "0.0", nil
	case "WFMPRE:YMULT?":
		return fmt.Sprintf("%g", voltageScale), nil
	case "WFMPRE:YOFF?":
		return "0.0", nil
	case "WFMPRE:YZERO?":
		return "0.0", nil
	}
	return "", scope.Classified(scope.ErrTransport, "query "+cmd,
		fmt.Errorf("unsupported query"))
}

func (s *Session) QueryBlock(cmd string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, scope.Classified(scope.ErrConnection, "query "+cmd, errors.New("session closed"))
	}
	if cmd != "CURVE?" {
		return nil, scope.Classified(scope.ErrTransport, "query "+cmd,
			fmt.Errorf("unsupported block query"))
	}

	payload := make([]byte, s.samples)
	for i := range payload {
		x := cycles * 2 * math.Pi * float64(i) / float64(s.samples)
		payload[i] = byte(int8(amplitude * math.Sin(x+s.phase)))
	}
	s.phase += math.Pi / 16

	header := fmt.Sprintf("#%d%d", len(fmt.Sprintf("%d", s.samples)), s.samples)
	block := make([]byte, 0, len(header)+s.samples+1)
	block = append(block, header...)
	block = append(block, payload...)
	block = append(block, '\n')
	return block, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Triggers reports how many acquisitions were started.
func (s *Session) Triggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

var _ ports.Session = (*Session)(nil)
