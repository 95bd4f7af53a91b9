/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error taxonomy for the modernizer core. Fatal structural failures are
reported as InputError values carrying an excerpt and offset; recoverable issues are
collected as warnings.
*/

package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnrecognizedFormat means no detector signature reached the confidence threshold
	ErrUnrecognizedFormat = errors.New("unrecognized format")
	// ErrAmbiguousColumnBoundaries means fixed-width inference found no stable boundary set
	ErrAmbiguousColumnBoundaries = errors.New("ambiguous column boundaries")
	// ErrInconsistentColumnCount means delimited rows diverge beyond tolerance
	ErrInconsistentColumnCount = errors.New("inconsistent column count")
	// ErrMalformedDeclaration marks a DDS or RPG line that could not be parsed
	ErrMalformedDeclaration = errors.New("malformed declaration")
	// ErrOverlayUnavailable means the advisory step failed or timed out
	ErrOverlayUnavailable = errors.New("overlay unavailable")

	ErrIncompleteDescriptor = errors.New("incomplete field descriptor")
	ErrInvalidDescriptors   = errors.New("invalid field descriptors")
	ErrDuplicateEntity      = errors.New("duplicate entity")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedFormat    = errors.New("unsupported format")
)

// maxExcerpt bounds the amount of source text copied into errors and warnings
const maxExcerpt = 80

// InputError is a fatal failure for one input, with enough context to diagnose it
type InputError struct {
	Kind    error    // One of the sentinel errors above
	Input   string   // Input name
	Line    int      // 1-based line of the first offending row, 0 if unknown
	Offset  int      // Byte offset of that line within the input
	Excerpt string   // Offending text, truncated
	Lines   []string // Additional offending sample lines
	Detail  string
}

// Error implements error
func (e *InputError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Input != "" {
		fmt.Fprintf(&b, " in %s", e.Input)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d (offset %d)", e.Line, e.Offset)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Excerpt != "" {
		fmt.Fprintf(&b, " near %q", e.Excerpt)
	}
	return b.String()
}

// Unwrap lets errors.Is match the sentinel kind
func (e *InputError) Unwrap() error {
	return e.Kind
}

// NewInputError builds an InputError for the given line of an input.
// line is 1-based; a zero line reports the start of the input.
func NewInputError(kind error, in *RawInput, line int, detail string) *InputError {
	err := &InputError{Kind: kind, Detail: detail}
	if in == nil {
		return err
	}
	err.Input = in.Name
	lines := in.Lines()
	if line <= 0 {
		if len(lines) > 0 {
			err.Excerpt = Excerpt(lines[0])
		}
		return err
	}
	err.Line = line
	err.Offset = LineOffset(lines, line)
	if line <= len(lines) {
		err.Excerpt = Excerpt(lines[line-1])
	}
	return err
}

// LineOffset returns the byte offset of a 1-based line in normalised content
func LineOffset(lines []string, line int) int {
	offset := 0
	for i := 0; i < line-1 && i < len(lines); i++ {
		offset += len(lines[i]) + 1
	}
	return offset
}

// Excerpt truncates source text for diagnostics
func Excerpt(s string) string {
	s = strings.TrimRight(s, " \t")
	if len(s) > maxExcerpt {
		return s[:maxExcerpt] + "..."
	}
	return s
}
