package scope

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/FilipeMaia/scopeflow/internal/domain"
)

// Framing identifies the binary-block envelope around a waveform payload.
type Framing string

const (
	// FramingTek is the IEEE-488.2 definite-length block: a '#' marker, one
	// ASCII digit giving the length of the length field, the ASCII decimal
	// payload length, the payload, and a trailing terminator byte.
	FramingTek Framing = "tek"

	// FramingAgilent treats everything up to and including the first newline
	// as the header; the payload is the remainder of the buffer.
	FramingAgilent Framing = "agilent"

	// FramingNone passes the buffer through untouched, for transports that
	// already strip the envelope.
	FramingNone Framing = "none"
)

func (f Framing) Valid() bool {
	return f == FramingTek || f == FramingAgilent || f == FramingNone
}

// FramingFor returns the default envelope used by a dialect.
func FramingFor(d domain.Dialect) Framing {
	if d == domain.DialectAgilent {
		return FramingAgilent
	}
	return FramingTek
}

// DecodeFrame strips the instrument envelope from raw and reconciles the
// payload length against the expected sample count. Payloads longer than want
// are truncated from the front (termination slop from the transport); shorter
// payloads fail with a framing error. It never pads.
func DecodeFrame(f Framing, raw []byte, want int) ([]int8, error) {
	payload, err := stripEnvelope(f, raw)
	if err != nil {
		return nil, err
	}
	if len(payload) < want {
		return nil, Classified(ErrFraming, "reconcile sample count",
			fmt.Errorf("decoded %d samples, preamble expects %d", len(payload), want))
	}
	codes := make([]int8, want)
	for i := 0; i < want; i++ {
		codes[i] = int8(payload[i])
	}
	return codes, nil
}

func stripEnvelope(f Framing, raw []byte) ([]byte, error) {
	switch f {
	case FramingTek:
		return stripBlockHeader(raw)
	case FramingAgilent:
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			return nil, Classified(ErrFraming, "strip newline header",
				fmt.Errorf("no newline in %d-byte buffer", len(raw)))
		}
		return raw[idx+1:], nil
	case FramingNone:
		return raw, nil
	default:
		return nil, Classified(ErrFraming, "strip envelope", fmt.Errorf("unknown framing %q", f))
	}
}

// stripBlockHeader parses a definite-length block. The header spans 2 + d
// bytes, where d is the single ASCII digit after the marker; the payload is
// exactly the declared length starting right after the header. Anything past
// the payload (the trailing terminator) is ignored.
func stripBlockHeader(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, Classified(ErrFraming, "parse block header",
			fmt.Errorf("buffer is %d bytes, header needs at least 2", len(raw)))
	}
	if raw[0] != '#' {
		return nil, Classified(ErrFraming, "parse block header",
			fmt.Errorf("marker byte is %q, expected '#'", raw[0]))
	}
	digits := int(raw[1] - '0')
	if digits < 1 || digits > 9 {
		return nil, Classified(ErrFraming, "parse block header",
			fmt.Errorf("length-of-length byte %q is not a digit", raw[1]))
	}
	headerLen := 2 + digits
	if len(raw) < headerLen {
		return nil, Classified(ErrFraming, "parse block header",
			fmt.Errorf("buffer is %d bytes, header declares %d", len(raw), headerLen))
	}
	length, err := strconv.Atoi(string(raw[2:headerLen]))
	if err != nil || length < 0 {
		return nil, Classified(ErrFraming, "parse block length",
			fmt.Errorf("length field %q is not a non-negative integer", raw[2:headerLen]))
	}
	end := headerLen + length
	if end > len(raw) {
		// Short payload; the sample-count reconciliation rejects it.
		end = len(raw)
	}
	return raw[headerLen:end], nil
}
