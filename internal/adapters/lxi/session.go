package lxi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/ports"
	"github.com/FilipeMaia/scopeflow/internal/scope"
)

const defaultTimeout = 5 * time.Second

// Session drives an instrument over its raw SCPI socket, typically
// port 5025 on LXI-capable scopes.
type Session struct {
	mu      sync.Mutex
	conn    net.Conn
	rd      *bufio.Reader
	timeout time.Duration
	closed  bool
}

func Open(addr string, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, scope.Classified(scope.ErrConnection, fmt.Sprintf("dial %s", addr), err)
	}
	return &Session{
		conn:    conn,
		rd:      bufio.NewReaderSize(conn, 64*1024),
		timeout: timeout,
	}, nil
}

func (s *Session) Write(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return scope.Classified(scope.ErrConnection, "write "+cmd, errors.New("session closed"))
	}
	return s.send(cmd)
}

func (s *Session) Query(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", scope.Classified(scope.ErrConnection, "query "+cmd, errors.New("session closed"))
	}
	if err := s.send(cmd); err != nil {
		return "", err
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return "", scope.Classified(scope.ErrTransport, "query "+cmd, err)
	}
	line, err := s.rd.ReadString('\n')
	if err != nil {
		return "", scope.ClassifyTransport("query "+cmd, err)
	}
	return line, nil
}

func (s *Session) QueryBlock(cmd string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, scope.Classified(scope.ErrConnection, "query "+cmd, errors.New("session closed"))
	}
	if err := s.send(cmd); err != nil {
		return nil, err
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return nil, scope.Classified(scope.ErrTransport, "query "+cmd, err)
	}

	first, err := s.rd.Peek(1)
	if err != nil {
		return nil, scope.ClassifyTransport("read "+cmd, err)
	}
	if first[0] != '#' {
		// Newline-delimited block.
		line, err := s.rd.ReadBytes('\n')
		if err != nil {
			return nil, scope.ClassifyTransport("read "+cmd, err)
		}
		return line, nil
	}
	return s.readDefiniteBlock(cmd)
}

// readDefiniteBlock consumes an IEEE 488.2 definite-length block and
// returns it whole, header included, so the caller can decode it the
// same way regardless of transport.
func (s *Session) readDefiniteBlock(cmd string) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(s.rd, header); err != nil {
		return nil, scope.ClassifyTransport("read "+cmd, err)
	}
	digits := int(header[1] - '0')
	if digits < 1 || digits > 9 {
		return nil, scope.Classified(scope.ErrFraming, "read "+cmd,
			fmt.Errorf("invalid block digit count %q", header[1]))
	}

	lenField := make([]byte, digits)
	if _, err := io.ReadFull(s.rd, lenField); err != nil {
		return nil, scope.ClassifyTransport("read "+cmd, err)
	}
	payloadLen, err := strconv.Atoi(string(lenField))
	if err != nil || payloadLen < 0 {
		return nil, scope.Classified(scope.ErrFraming, "read "+cmd,
			fmt.Errorf("invalid block length %q", lenField))
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(s.rd, payload); err != nil {
		return nil, scope.ClassifyTransport("read "+cmd, err)
	}

	var block bytes.Buffer
	block.Grow(2 + digits + payloadLen + 1)
	block.Write(header)
	block.Write(lenField)
	block.Write(payload)

	// Consume the trailing terminator if the instrument sends one.
	if b, err := s.rd.ReadByte(); err == nil {
		if b == '\n' {
			block.WriteByte(b)
		} else {
			_ = s.rd.UnreadByte()
		}
	}
	return block.Bytes(), nil
}

func (s *Session) send(cmd string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return scope.Classified(scope.ErrTransport, "write "+cmd, err)
	}
	if _, err := s.conn.Write([]byte(cmd + "\n")); err != nil {
		return scope.ClassifyTransport("write "+cmd, err)
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return scope.Classified(scope.ErrConnection, "close", err)
	}
	return nil
}

var _ ports.Session = (*Session)(nil)
