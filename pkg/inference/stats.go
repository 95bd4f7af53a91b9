/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Per-column sample statistics gathered from parsed records. The heuristics in
inference.go only look at these statistics, never at the records themselves.
*/

package inference

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// ColumnStats holds what was observed for one field across records
type ColumnStats struct {
	Total     int            // Records inspected
	Blank     int            // Records with an empty or all-space value
	Values    map[string]int // Distinct trimmed values and their counts
	MaxLength int            // Longest trimmed value in characters
	Examples  []string       // First distinct values, at most 5
}

// NewColumnStats creates empty statistics
func NewColumnStats() *ColumnStats {
	return &ColumnStats{Values: make(map[string]int)}
}

// Collect gathers statistics for the field with the given ordinal
func Collect(ordinal int, records []core.Record) *ColumnStats {
	stats := NewColumnStats()
	for _, r := range records {
		stats.Add(r.Value(ordinal))
	}
	return stats
}

// Add records one raw value
func (s *ColumnStats) Add(raw string) {
	s.Total++
	v := strings.TrimSpace(raw)
	if v == "" {
		s.Blank++
		return
	}
	if n := utf8.RuneCountInString(v); n > s.MaxLength {
		s.MaxLength = n
	}
	if _, seen := s.Values[v]; !seen && len(s.Examples) < 5 {
		s.Examples = append(s.Examples, v)
	}
	s.Values[v]++
}

// NonBlank returns the number of non-blank samples
func (s *ColumnStats) NonBlank() int {
	return s.Total - s.Blank
}

// Distinct returns the number of distinct non-blank values
func (s *ColumnStats) Distinct() int {
	return len(s.Values)
}

// Sorted returns the distinct values in lexical order
func (s *ColumnStats) Sorted() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All reports whether every distinct value satisfies fn
func (s *ColumnStats) All(fn func(string) bool) bool {
	for v := range s.Values {
		if !fn(v) {
			return false
		}
	}
	return true
}
