package rawlog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/domain"
)

const recordHeaderLen = 12

// preambleRecord marks the file header entry that carries the scaling
// parameters instead of waveform bytes.
const preambleRecord = 0

// Writer appends raw instrument blocks to a capture log so a run can be
// re-decoded offline. The file starts with one JSON preamble record,
// followed by one record per capture:
// [8 bytes iteration][4 bytes len][len bytes block].
type Writer struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
	path string
}

func Create(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("capture_%s.rawlog", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &Writer{
		file: f,
		w:    bufio.NewWriterSize(f, 1<<20),
		path: path,
	}, nil
}

func (w *Writer) Path() string { return w.path }

// RecordPreamble writes the scaling snapshot header. Must be called before
// the first Record or the log will not replay.
func (w *Writer) RecordPreamble(pre *domain.Preamble) error {
	header, err := json.Marshal(pre)
	if err != nil {
		return fmt.Errorf("marshal preamble: %w", err)
	}
	return w.append(preambleRecord, header)
}

func (w *Writer) Record(iteration int, raw []byte) error {
	if iteration < 1 {
		return fmt.Errorf("rawlog: iteration must be positive, got %d", iteration)
	}
	return w.append(uint64(iteration), raw)
}

func (w *Writer) append(id uint64, body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], id)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(body)))

	if _, err := w.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(body); err != nil {
		return err
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.w.Flush()
	if e := w.file.Close(); e != nil {
		err = errors.Join(err, e)
	}
	w.file = nil
	return err
}

// Reader replays a capture log.
type Reader struct {
	file *os.File
	r    *bufio.Reader
	pre  *domain.Preamble
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{file: f, r: bufio.NewReaderSize(f, 1<<20)}

	id, body, err := r.readRecord()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rawlog %s: missing preamble record: %w", path, err)
	}
	if id != preambleRecord {
		_ = f.Close()
		return nil, fmt.Errorf("rawlog %s: first record is not a preamble", path)
	}
	var pre domain.Preamble
	if err := json.Unmarshal(body, &pre); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rawlog %s: corrupt preamble: %w", path, err)
	}
	r.pre = &pre
	return r, nil
}

func (r *Reader) Preamble() *domain.Preamble { return r.pre }

// Next returns the next recorded block. A record cut short by a crash
// ends the log without error.
func (r *Reader) Next() (int, []byte, error) {
	id, body, err := r.readRecord()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}
	return int(id), body, nil
}

func (r *Reader) readRecord() (uint64, []byte, error) {
	var hdr [recordHeaderLen]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return 0, nil, err
	}
	id := binary.BigEndian.Uint64(hdr[0:8])
	length := binary.BigEndian.Uint32(hdr[8:12])

	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	return id, body, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}
