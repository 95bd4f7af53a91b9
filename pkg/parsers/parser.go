/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser.go
Description: Structural parser interface and registry. Each parser is a pure function
from an immutable RawInput to field descriptors, sample records and warnings, and
contributes detection signatures to the format detector.
*/

package parsers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// Detection priorities. Lower values are checked first and win ties.
const (
	PriorityDDS                = 1
	PriorityRPG                = 2
	PriorityGreenScreen        = 3
	PriorityDelimitedHeader    = 4
	PriorityFixedWidth         = 5
	PriorityDelimitedFrequency = 6
)

// Signature scores how strongly a sample of non-blank lines matches a format
type Signature struct {
	Name     string
	Kind     core.FormatKind
	Priority int
	Score    func(lines []string, opts Options) float64
}

// Column is an explicit fixed-width boundary supplied by accompanying metadata
type Column struct {
	Name   string `json:"name" yaml:"name"`
	Offset int    `json:"offset" yaml:"offset"`
	Length int    `json:"length" yaml:"length"`
}

// Options controls parsing. Zero values fall back to the defaults.
type Options struct {
	SampleSize      int      // Lines scanned for boundaries and delimiters
	ColumnTolerance float64  // Share of ragged delimited rows tolerated
	SingleRowGutter int      // Blank columns required to split a single-row sample
	Columns         []Column // Explicit fixed-width layout
	HasHeader       *bool    // Force header detection on or off
	Delimiter       rune     // Force a delimiter
}

// DefaultOptions returns the documented parsing defaults
func DefaultOptions() Options {
	return Options{
		SampleSize:      50,
		ColumnTolerance: 0.1,
		SingleRowGutter: 2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleSize <= 0 {
		o.SampleSize = d.SampleSize
	}
	if o.ColumnTolerance < 0 {
		o.ColumnTolerance = d.ColumnTolerance
	}
	if o.SingleRowGutter <= 0 {
		o.SingleRowGutter = d.SingleRowGutter
	}
	return o
}

// FileRef is a file declared by an RPG F-spec or DCL-F statement
type FileRef struct {
	Name     string `json:"name"`
	Usage    string `json:"usage"`
	Device   string `json:"device"`
	External bool   `json:"external"`
	Keyed    bool   `json:"keyed"`
}

// Header is the structural layout recovered from an input
type Header struct {
	Entity    string                 // Record format, table, data structure or screen name
	Variant   string                 // Sub-format, e.g. "sql", "free", "display", "capture"
	Fields    []core.FieldDescriptor // Ordered descriptors
	Delimiter rune                   // Delimited inputs only
	BodyStart int                    // 0-based line index where records begin
	Files     []FileRef
	Warnings  core.Warnings
}

// Result is the complete output of one parse call
type Result struct {
	Kind      core.FormatKind        `json:"kind"`
	Variant   string                 `json:"variant,omitempty"`
	Entity    string                 `json:"entity,omitempty"`
	Fields    []core.FieldDescriptor `json:"fields"`
	Records   []core.Record          `json:"records"`
	Warnings  core.Warnings          `json:"warnings,omitempty"`
	Delimiter string                 `json:"delimiter,omitempty"`
	Files     []FileRef              `json:"files,omitempty"`
}

// Parser is implemented by every structural parser
type Parser interface {
	// Kind returns the format handled by the parser
	Kind() core.FormatKind
	// Signatures returns the detection signatures contributed by the parser
	Signatures() []Signature
	// ParseHeader recovers the field layout
	ParseHeader(in *core.RawInput, opts Options) (*Header, error)
	// ParseRecords extracts sample records using a layout from ParseHeader
	ParseRecords(in *core.RawInput, header *Header, opts Options) ([]core.Record, core.Warnings, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[core.FormatKind]Parser{}
)

func init() {
	Register(NewFixedWidthParser())
	Register(NewDelimitedParser())
	Register(NewDDSParser())
	Register(NewRPGParser())
	Register(NewGreenScreenParser())
}

// Register adds or replaces the parser for its kind
func Register(p Parser) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Kind()] = p
}

// Lookup returns the parser for a format kind
func Lookup(kind core.FormatKind) (Parser, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, kind)
	}
	return p, nil
}

// Signatures returns the signatures of every registered parser in priority order
func Signatures() []Signature {
	registryMu.RLock()
	var sigs []Signature
	for _, p := range registry {
		sigs = append(sigs, p.Signatures()...)
	}
	registryMu.RUnlock()

	sort.SliceStable(sigs, func(i, j int) bool {
		if sigs[i].Priority != sigs[j].Priority {
			return sigs[i].Priority < sigs[j].Priority
		}
		return sigs[i].Name < sigs[j].Name
	})
	return sigs
}

// Parse runs the parser for kind over the input and validates the descriptor sequence
func Parse(in *core.RawInput, kind core.FormatKind, opts Options) (*Result, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil input", core.ErrInvalidInput)
	}
	p, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	header, err := p.ParseHeader(in, opts)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateDescriptors(header.Fields); err != nil {
		return nil, fmt.Errorf("parse %s: %w", in.Name, err)
	}

	records, warnings, err := p.ParseRecords(in, header, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Kind:     kind,
		Variant:  header.Variant,
		Entity:   header.Entity,
		Fields:   header.Fields,
		Records:  records,
		Files:    header.Files,
		Warnings: append(append(core.Warnings{}, header.Warnings...), warnings...),
	}
	if header.Delimiter != 0 {
		result.Delimiter = string(header.Delimiter)
	}
	if result.Records == nil {
		result.Records = []core.Record{}
	}
	return result, nil
}
