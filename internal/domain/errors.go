package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the coarse classification the transport layer maps to a status.
type ErrorKind string

const (
	KindInvalidDateFormat ErrorKind = "invalid_date_format"
	KindEphemeris         ErrorKind = "ephemeris_error"
	KindUnknownSign       ErrorKind = "unknown_sign"
)

// Error is the single error type raised by the ephemeris and zodiac core.
type Error struct {
	Kind    ErrorKind
	Op      string
	Input   string    // Offending client text, if any
	Body    string    // Offending body, if any
	Instant time.Time // Instant being evaluated, zero when not relevant
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Body != "" {
		base += fmt.Sprintf(" (body=%s)", e.Body)
	}
	if !e.Instant.IsZero() {
		base += fmt.Sprintf(" (instant=%s)", e.Instant.UTC().Format(time.RFC3339))
	}
	if e.Input != "" {
		base += fmt.Sprintf(" (input=%q)", e.Input)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err carries a domain Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first domain Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
