/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference.go
Description: Type inferencer. Declared type hints from DDS, SQL and RPG always win; sampled
values are classified by ordered heuristics: numeric, date, boolean, enum, then string.
*/

package inference

import (
	"regexp"
	"strings"
	"time"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// Options controls the value heuristics
type Options struct {
	EnumRatio         float64 // Distinct/non-blank must be below this for ENUM
	EnumMinSamples    int     // Non-blank samples required before ENUM is considered
	EnumMaxCandidates int     // Upper bound on ENUM candidates
}

// DefaultOptions returns the documented inference defaults
func DefaultOptions() Options {
	return Options{
		EnumRatio:         0.5,
		EnumMinSamples:    2,
		EnumMaxCandidates: 10,
	}
}

var (
	numberRe       = regexp.MustCompile(`^[+-]?(\d+)(?:\.(\d+))?$`)
	trailingSignRe = regexp.MustCompile(`^(\d+)(?:\.(\d+))?-$`)
	digitsRe       = regexp.MustCompile(`^\d+$`)
	postalNameRe   = regexp.MustCompile(`(?i)(ZIP|POSTAL|POSTCODE)`)
)

// postalLengths are the digit counts of US ZIP and ZIP+4 codes
var postalLengths = map[int]bool{5: true, 9: true}

// dateLayout pairs a Go layout with the name reported in InferredType.Format
type dateLayout struct {
	layout string
	name   string
}

// dateLayouts are tried in order; a column takes the first layout every value parses with
var dateLayouts = []dateLayout{
	{"20060102", "YYYYMMDD"},
	{"01022006", "MMDDYYYY"},
	{"2006-01-02", "YYYY-MM-DD"},
	{"01/02/2006", "MM/DD/YYYY"},
	{"2006/01/02", "YYYY/MM/DD"},
	{"02.01.2006", "DD.MM.YYYY"},
	{"2006-01-02-15.04.05.000000", "timestamp"},
	{"2006-01-02-15.04.05", "timestamp"},
	{"2006-01-02 15:04:05", "timestamp"},
	{"2006-01-02T15:04:05", "timestamp"},
}

// booleanPairs are the accepted true/false spellings
var booleanPairs = [][2]string{
	{"Y", "N"},
	{"YES", "NO"},
	{"T", "F"},
	{"TRUE", "FALSE"},
}

// Inferencer assigns InferredTypes to field descriptors
type Inferencer struct {
	opts Options
}

// NewInferencer creates an inferencer, filling unset options with defaults
func NewInferencer(opts Options) *Inferencer {
	d := DefaultOptions()
	if opts.EnumRatio <= 0 {
		opts.EnumRatio = d.EnumRatio
	}
	if opts.EnumMinSamples <= 0 {
		opts.EnumMinSamples = d.EnumMinSamples
	}
	if opts.EnumMaxCandidates <= 0 {
		opts.EnumMaxCandidates = d.EnumMaxCandidates
	}
	return &Inferencer{opts: opts}
}

// InferAll returns copies of fields with Type populated. The input slice is not modified.
func (inf *Inferencer) InferAll(fields []core.FieldDescriptor, records []core.Record) []core.FieldDescriptor {
	out := make([]core.FieldDescriptor, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
		t := inf.Infer(f, records)
		out[i].Type = &t
	}
	return out
}

// Infer returns the type of one field given the records parsed alongside it
func (inf *Inferencer) Infer(field core.FieldDescriptor, records []core.Record) core.InferredType {
	stats := Collect(field.Ordinal, records)
	if field.Declared != nil {
		return fromDeclared(*field.Declared, stats)
	}
	return inf.classify(field.Name, stats)
}

func fromDeclared(d core.DeclaredType, stats *ColumnStats) core.InferredType {
	t := core.InferredType{
		Kind:      d.Kind,
		Nullable:  d.Nullable || stats.Blank > 0,
		MaxLength: d.Length,
		Format:    d.Format,
		Source:    core.SourceDeclared,
	}
	if d.Kind.IsNumeric() {
		t.Precision = d.Length
		t.Scale = d.Scale
	}
	if stats.MaxLength > t.MaxLength {
		t.MaxLength = stats.MaxLength
	}
	return t
}

// classify applies the ordered value heuristics
func (inf *Inferencer) classify(name string, stats *ColumnStats) core.InferredType {
	t := core.InferredType{
		Kind:      core.KindString,
		Nullable:  stats.Blank > 0,
		MaxLength: stats.MaxLength,
		Source:    core.SourceSampled,
	}
	if stats.NonBlank() == 0 {
		t.Nullable = true
		return t
	}

	if postalCode(name, stats) {
		return t
	}
	if precision, scale, ok := numeric(stats); ok {
		t.Kind = core.KindInteger
		if scale > 0 {
			t.Kind = core.KindDecimal
		}
		t.Precision, t.Scale = precision, scale
		if layout, ok := dateFormat(stats); ok && scale == 0 {
			t.Format = layout
		}
		return t
	}
	if layout, ok := dateFormat(stats); ok {
		t.Kind = core.KindDate
		t.Format = layout
		return t
	}
	if boolean(stats) {
		t.Kind = core.KindBoolean
		return t
	}
	if inf.enum(stats) {
		t.Kind = core.KindEnum
		t.Candidates = stats.Sorted()
		return t
	}
	return t
}

// numeric reports whether every value is a number and returns the digits needed to
// hold them. A leading zero marks a code such as a ZIP or item number.
func numeric(stats *ColumnStats) (precision, scale int, ok bool) {
	whole := 0
	hasPoint := false
	for v := range stats.Values {
		m := numberRe.FindStringSubmatch(v)
		if m == nil {
			m = trailingSignRe.FindStringSubmatch(v)
		}
		if m == nil {
			return 0, 0, false
		}
		digits, fraction := m[1], m[2]
		if len(digits) > 1 && digits[0] == '0' {
			return 0, 0, false
		}
		if strings.Contains(v, ".") {
			hasPoint = true
		}
		if len(digits) > whole {
			whole = len(digits)
		}
		if len(fraction) > scale {
			scale = len(fraction)
		}
	}
	if !hasPoint {
		scale = 0
	}
	return whole + scale, scale, true
}

// postalCode reports whether an all-digit column holds postal codes: either its name
// says so, or every value has the exact length of a ZIP or ZIP+4.
func postalCode(name string, stats *ColumnStats) bool {
	length := -1
	same := stats.All(func(v string) bool {
		if !digitsRe.MatchString(v) {
			return false
		}
		if length >= 0 && len(v) != length {
			length = 0
		} else if length < 0 {
			length = len(v)
		}
		return true
	})
	if !same {
		return false
	}
	return postalNameRe.MatchString(name) || postalLengths[length]
}

func dateFormat(stats *ColumnStats) (string, bool) {
	for _, dl := range dateLayouts {
		ok := stats.All(func(v string) bool {
			if len(v) != len(dl.layout) {
				return false
			}
			_, err := time.Parse(dl.layout, v)
			return err == nil
		})
		if ok {
			return dl.name, true
		}
	}
	return "", false
}

func boolean(stats *ColumnStats) bool {
	for _, pair := range booleanPairs {
		if stats.All(func(v string) bool {
			u := strings.ToUpper(v)
			return u == pair[0] || u == pair[1]
		}) {
			return true
		}
	}
	return false
}

func (inf *Inferencer) enum(stats *ColumnStats) bool {
	n := stats.NonBlank()
	if n < inf.opts.EnumMinSamples || stats.Distinct() > inf.opts.EnumMaxCandidates {
		return false
	}
	return float64(stats.Distinct())/float64(n) < inf.opts.EnumRatio
}
