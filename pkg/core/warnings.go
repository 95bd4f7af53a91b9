/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: warnings.go
Description: Non-fatal diagnostics accumulated by every stage and returned alongside
successful results.
*/

package core

import (
	"fmt"
)

// Warning codes
const (
	WarnMalformedDeclaration = "MALFORMED_DECLARATION"
	WarnRaggedRow            = "RAGGED_ROW"
	WarnUnknownKey           = "UNKNOWN_KEY"
	WarnOverlappingField     = "OVERLAPPING_FIELD"
	WarnExtraRecordFormat    = "EXTRA_RECORD_FORMAT"
	WarnDuplicateName        = "DUPLICATE_NAME"
	WarnNoPrimaryKey         = "NO_PRIMARY_KEY"
	WarnKeyNotVerified       = "KEY_NOT_VERIFIED"
	WarnOverlayUnavailable   = "OVERLAY_UNAVAILABLE"
	WarnOverlayUnmatched     = "OVERLAY_UNMATCHED"
	WarnOverlayInvalidName   = "OVERLAY_INVALID_NAME"
	WarnDuplicateInput       = "DUPLICATE_INPUT"
	WarnEntityRenamed        = "ENTITY_RENAMED"
	WarnHintOverridden       = "HINT_OVERRIDDEN"
)

// Warning is a recoverable issue. Line is 1-based and zero when the issue is not
// tied to a source line.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Input   string `json:"input,omitempty"`
	Line    int    `json:"line,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", w.Code, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Warnings is an ordered list of warnings
type Warnings []Warning

// Add appends a warning built from a format string
func (ws *Warnings) Add(code string, line int, excerpt string, format string, args ...interface{}) {
	*ws = append(*ws, Warning{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Excerpt: Excerpt(excerpt),
	})
}

// Extend appends all warnings from other
func (ws *Warnings) Extend(other Warnings) {
	*ws = append(*ws, other...)
}

// WithInput returns a copy of the list tagged with an input name
func (ws Warnings) WithInput(name string) Warnings {
	out := make(Warnings, len(ws))
	for i, w := range ws {
		if w.Input == "" {
			w.Input = name
		}
		out[i] = w
	}
	return out
}

// Count returns the number of warnings with the given code
func (ws Warnings) Count(code string) int {
	n := 0
	for _, w := range ws {
		if w.Code == code {
			n++
		}
	}
	return n
}

// Has reports whether any warning has the given code
func (ws Warnings) Has(code string) bool {
	return ws.Count(code) > 0
}
