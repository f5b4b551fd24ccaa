package reply

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped by every parse failure.
var ErrMalformedResponse = errors.New("reply: malformed response")

// MalformedResponseError describes why a reply line was rejected.
type MalformedResponseError struct {
	// Kind names the expected reply, e.g. "counts" or "settings".
	Kind string
	// Line is the offending reply line.
	Line string
	// Reason explains the mismatch.
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("reply: malformed %s response %q: %s", e.Kind, e.Line, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

func malformed(kind, line, format string, args ...any) error {
	return &MalformedResponseError{Kind: kind, Line: line, Reason: fmt.Sprintf(format, args...)}
}
