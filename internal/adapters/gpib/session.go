package gpib

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/FilipeMaia/scopeflow/internal/scope"
	"github.com/gotmc/prologix"
	"github.com/gotmc/prologix/driver/vcp"
)

// Session drives an instrument behind a Prologix GPIB-USB controller
// exposed as a virtual COM port.
type Session struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	ctrl   *prologix.Controller
	closed bool
}

func Open(serialPort string, gpibAddress int) (*Session, error) {
	port, err := vcp.NewVCP(serialPort)
	if err != nil {
		return nil, scope.Classified(scope.ErrConnection, fmt.Sprintf("open %s", serialPort), err)
	}
	ctrl, err := prologix.NewController(port, gpibAddress, false)
	if err != nil {
		_ = port.Close()
		return nil, scope.Classified(scope.ErrConnection,
			fmt.Sprintf("gpib controller addr %d", gpibAddress), err)
	}
	return &Session{port: port, ctrl: ctrl}, nil
}

func (s *Session) Write(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return scope.Classified(scope.ErrConnection, "write "+cmd, errors.New("session closed"))
	}
	if err := s.ctrl.Command(cmd); err != nil {
		return scope.ClassifyTransport("write "+cmd, err)
	}
	return nil
}

func (s *Session) Query(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", scope.Classified(scope.ErrConnection, "query "+cmd, errors.New("session closed"))
	}
	resp, err := s.ctrl.Query(cmd)
	// The controller reads until its timeout and reports EOF once the
	// instrument stops talking.
	if err != nil && !errors.Is(err, io.EOF) {
		return "", scope.ClassifyTransport("query "+cmd, err)
	}
	return resp, nil
}

func (s *Session) QueryBlock(cmd string) ([]byte, error) {
	resp, err := s.Query(cmd)
	if err != nil {
		return nil, err
	}
	return []byte(resp), nil
}

// Close hands the instrument back to front-panel control before
// releasing the serial port. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if e := s.ctrl.FrontPanel(true); e != nil {
		err = errors.Join(err, e)
	}
	if e := s.port.Close(); e != nil {
		err = errors.Join(err, e)
	}
	if err != nil {
		return scope.Classified(scope.ErrConnection, "close", err)
	}
	return nil
}

var _ ports.Session = (*Session)(nil)
