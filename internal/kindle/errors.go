package kindle

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedHeader  = errors.New("malformed header")
	ErrUnrecognizedLine = errors.New("unrecognized line")
	ErrOrphanNote       = errors.New("note without a preceding highlight")
)

// ErrorKind is the machine-readable category of a ParseError.
type ErrorKind string

const (
	KindMalformedHeader  ErrorKind = "malformed_header"
	KindUnrecognizedLine ErrorKind = "unrecognized_line"
	KindOrphanNote       ErrorKind = "orphan_note"
)

// ParseError reports the first line that stopped parsing.
// Position is the zero-based index of the line in the input.
type ParseError struct {
	Kind     ErrorKind
	Position int
	Line     string
	Expected string // header shape, only set for KindMalformedHeader
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindMalformedHeader:
		return fmt.Sprintf("line %d should be %s, got %q", e.Position+1, e.Expected, e.Line)
	case KindOrphanNote:
		return fmt.Sprintf("note on line %d has no highlight to attach to: %q", e.Position+1, e.Line)
	default:
		return fmt.Sprintf("something unexpected was encountered on line %d: %q", e.Position+1, e.Line)
	}
}

// Unwrap lets callers match a kind with errors.Is.
func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case KindMalformedHeader:
		return ErrMalformedHeader
	case KindOrphanNote:
		return ErrOrphanNote
	default:
		return ErrUnrecognizedLine
	}
}

// KindOf returns the ErrorKind of err, or "" when err is not a ParseError.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
