// Package scope implements the oscilloscope acquisition core: the error
// taxonomy, binary-block frame decoding, raw-code scaling, and the per-dialect
// SCPI command protocols.
package scope

import (
	"errors"
	"fmt"
	"strings"
)

// Classification sentinels. The acquisition loop decides between
// skip-and-continue and abort by matching these with errors.Is.
var (
	// ErrConnection marks a session open failure. Fatal before the loop starts.
	ErrConnection = errors.New("scopeflow: connection failed")

	// ErrTransport marks a mid-run read/write failure. The iteration is
	// skipped and the loop continues.
	ErrTransport = errors.New("scopeflow: transport failure")

	// ErrTimeout marks a missed response deadline. Treated as structural
	// (the instrument is likely not triggering), so the run aborts.
	ErrTimeout = errors.New("scopeflow: response timeout")

	// ErrFraming marks a malformed binary block. The iteration is skipped.
	ErrFraming = errors.New("scopeflow: malformed binary block")

	// ErrConfig marks an unusable preamble or configuration. Fatal before
	// the loop starts.
	ErrConfig = errors.New("scopeflow: invalid configuration")
)

// Error tags an underlying failure with its classification.
type Error struct {
	Class error
	Op    string
	Err   error
}

// Classified wraps err so that errors.Is(result, class) holds.
func Classified(class error, op string, err error) error {
	return &Error{Class: class, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Class)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Is(target error) bool { return target == e.Class }

func (e *Error) Unwrap() error { return e.Err }

// ClassifyTransport maps a session-level failure to ErrTimeout or
// ErrTransport. Already-classified errors pass through unchanged. The vendor
// drivers do not agree on a timeout type, so after checking for the net-style
// Timeout method this falls back to matching the error text.
func ClassifyTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return Classified(ErrTimeout, op, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return Classified(ErrTimeout, op, err)
	}
	return Classified(ErrTransport, op, err)
}
