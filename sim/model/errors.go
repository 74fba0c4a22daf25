package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDataFormat marks malformed or inconsistent coupling and ground-state input.
	ErrDataFormat = errors.New("data format error")

	// ErrInvalidIndex marks a coupling that references an out-of-range spin or a self-loop.
	ErrInvalidIndex = errors.New("invalid spin index")

	// ErrUnsupportedTopology marks a lattice selector or coupling representation
	// that no update kernel understands.
	ErrUnsupportedTopology = errors.New("unsupported topology")

	// ErrDegreeExceeded marks a spin with more couplings than the neighbor table can hold.
	ErrDegreeExceeded = errors.New("neighbor degree exceeded")
)

// DataFormatError identifies the input and line that failed to parse.
// Line is 1-based; 0 means the problem is not tied to a single line.
type DataFormatError struct {
	Source string
	Line   int
	Reason string
}

func (e *DataFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s line %d: %s", ErrDataFormat, e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrDataFormat, e.Source, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrDataFormat).
func (e *DataFormatError) Unwrap() error {
	return ErrDataFormat
}

func dataFormatErrorf(source string, line int, format string, args ...any) error {
	return &DataFormatError{Source: source, Line: line, Reason: fmt.Sprintf(format, args...)}
}
