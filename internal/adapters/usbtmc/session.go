package usbtmc

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/FilipeMaia/scopeflow/internal/scope"
	"github.com/gotmc/usbtmc"
)

// Session talks to a USBTMC instrument addressed by a VISA resource
// string such as USB0::0x0699::0x0363::C102220::INSTR.
type Session struct {
	mu     sync.Mutex
	uctx   *usbtmc.Context
	dev    *usbtmc.Device
	closed bool
}

func Open(resource string) (*Session, error) {
	uctx, err := usbtmc.NewContext()
	if err != nil {
		return nil, scope.Classified(scope.ErrConnection, "usbtmc context", err)
	}
	dev, err := uctx.NewDevice(resource)
	if err != nil {
		_ = uctx.Close()
		return nil, scope.Classified(scope.ErrConnection, fmt.Sprintf("open %s", resource), err)
	}
	return &Session{uctx: uctx, dev: dev}, nil
}

func (s *Session) Write(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return scope.Classified(scope.ErrConnection, "write "+cmd, errors.New("session closed"))
	}
	if _, err := s.dev.WriteString(cmd + "\n"); err != nil {
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
	resp, err := s.dev.Query(cmd + "\n")
	if err != nil {
		return "", scope.ClassifyTransport("query "+cmd, err)
	}
	return resp, nil
}

func (s *Session) QueryBlock(cmd string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, scope.Classified(scope.ErrConnection, "query "+cmd, errors.New("session closed"))
	}
	if _, err := s.dev.WriteString(cmd + "\n"); err != nil {
		return nil, scope.ClassifyTransport("write "+cmd, err)
	}

	// A waveform block spans multiple bulk transfers. Read until the
	// device signals the end of the message with a short transfer.
	var block []byte
	chunk := make([]byte, 64*1024)
	for {
		n, err := s.dev.Read(chunk)
		if n > 0 {
			block = append(block, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(block) > 0 {
				break
			}
			return nil, scope.ClassifyTransport("read "+cmd, err)
		}
		if n < len(chunk) {
			break
		}
	}
	return block, nil
}

// Close releases the device and the libusb context. Safe to call more
// than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if e := s.dev.Close(); e != nil {
		err = errors.Join(err, e)
	}
	if e := s.uctx.Close(); e != nil {
		err = errors.Join(err, e)
	}
	if err != nil {
		return scope.Classified(scope.ErrConnection, "close", err)
	}
	return nil
}

var _ ports.Session = (*Session)(nil)
