/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the AS/400 modernizer. Defines the canonical intermediate
representation shared by every stage: raw inputs, field descriptors, records, inferred
types, entity schemas and service boundaries.
*/

package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/highwayhash"
)

// FormatKind identifies the structural format of a legacy artifact
type FormatKind string

const (
	FormatUnknown     FormatKind = ""
	FormatFixedWidth  FormatKind = "fixed_width"
	FormatDelimited   FormatKind = "delimited"
	FormatDDS         FormatKind = "dds"
	FormatRPG         FormatKind = "rpg"
	FormatGreenScreen FormatKind = "green_screen"
)

// AllFormats lists every supported format in detection priority order
var AllFormats = []FormatKind{
	FormatDDS,
	FormatRPG,
	FormatGreenScreen,
	FormatDelimited,
	FormatFixedWidth,
}

// ParseFormatKind converts a user supplied name into a FormatKind.
// Empty strings and "auto" map to FormatUnknown.
func ParseFormatKind(s string) (FormatKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatUnknown, nil
	case "fixed_width", "fixed", "fixed-width":
		return FormatFixedWidth, nil
	case "delimited", "csv":
		return FormatDelimited, nil
	case "dds", "sql", "db2":
		return FormatDDS, nil
	case "rpg", "rpgle":
		return FormatRPG, nil
	case "green_screen", "screen", "dspf", "green-screen":
		return FormatGreenScreen, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: unknown format %q", ErrInvalidInput, s)
	}
}

// fingerprintKey is the fixed highwayhash key used for content fingerprints
var fingerprintKey = []byte("AS400-MODERNIZER-FINGERPRINT-KEY")

// RawInput is a legacy artifact as received from a collaborator.
// It is immutable once constructed: the content is copied in and copied out.
type RawInput struct {
	ID         string     `json:"id"`          // Unique identifier
	Name       string     `json:"name"`        // File, member or table name
	Hint       FormatKind `json:"hint"`        // Caller supplied format, may be empty
	ReceivedAt time.Time  `json:"received_at"` // When the input was ingested
	content    []byte
}

// NewRawInput creates a RawInput from the given bytes
func NewRawInput(name string, content []byte, hint FormatKind) *RawInput {
	buf := make([]byte, len(content))
	copy(buf, content)
	return &RawInput{
		ID:         uuid.New().String(),
		Name:       name,
		Hint:       hint,
		ReceivedAt: time.Now(),
		content:    buf,
	}
}

// Content returns a copy of the raw bytes
func (r *RawInput) Content() []byte {
	buf := make([]byte, len(r.content))
	copy(buf, r.content)
	return buf
}

// Len returns the size of the raw content in bytes
func (r *RawInput) Len() int {
	return len(r.content)
}

// Text returns the content as a string
func (r *RawInput) Text() string {
	return string(r.content)
}

// Lines splits the content into lines, normalising CRLF endings and dropping
// trailing blank lines. Leading and inner blank lines are preserved so that line
// numbers stay meaningful for diagnostics.
func (r *RawInput) Lines() []string {
	text := strings.ReplaceAll(string(r.content), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Fingerprint returns a stable hash of the content
func (r *RawInput) Fingerprint() string {
	hash, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return ""
	}
	hash.Write(r.content)
	return fmt.Sprintf("%016x", hash.Sum64())
}

// TypeKind is the semantic type assigned to a field
type TypeKind string

const (
	KindString  TypeKind = "STRING"
	KindInteger TypeKind = "INTEGER"
	KindDecimal TypeKind = "DECIMAL"
	KindDate    TypeKind = "DATE"
	KindBoolean TypeKind = "BOOLEAN"
	KindEnum    TypeKind = "ENUM"
)

// IsNumeric reports whether values of this kind are arithmetic
func (k TypeKind) IsNumeric() bool {
	return k == KindInteger || k == KindDecimal
}

// DeclaredType is a type written down in DDS, RPG or SQL source
type DeclaredType struct {
	Code     string   `json:"code"`     // Type code as declared (A, P, S, CHAR, DECIMAL...)
	Kind     TypeKind `json:"kind"`     // Mapped semantic kind
	Length   int      `json:"length"`   // Declared length or precision
	Scale    int      `json:"scale"`    // Declared decimal positions
	Nullable bool     `json:"nullable"` // ALWNULL or a nullable SQL column
	Format   string   `json:"format"`   // Extra qualifier such as "time" or "timestamp"
}

// InferredType is the typed view of a field after inference
type InferredType struct {
	Kind       TypeKind `json:"kind"`
	Precision  int      `json:"precision,omitempty"`  // Total digits for numeric kinds
	Scale      int      `json:"scale,omitempty"`      // Fraction digits for DECIMAL
	Candidates []string `json:"candidates,omitempty"` // Observed values for ENUM
	Nullable   bool     `json:"nullable"`
	MaxLength  int      `json:"max_length"`
	Format     string   `json:"format,omitempty"` // Date layout or other qualifier
	Source     string   `json:"source"`           // "declared" or "sampled"
}

// Type sources
const (
	SourceDeclared = "declared"
	SourceSampled  = "sampled"
)

// String renders the type the way it appears in reports, e.g. DECIMAL(7,2)
func (t InferredType) String() string {
	switch t.Kind {
	case KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case KindEnum:
		return fmt.Sprintf("ENUM(%s)", strings.Join(t.Candidates, "|"))
	default:
		return string(t.Kind)
	}
}

// FieldDescriptor describes one field of a legacy record layout
type FieldDescriptor struct {
	Name        string        `json:"name"`                  // Declared or positional name
	Ordinal     int           `json:"ordinal"`               // 1-based position within the parse
	Offset      int           `json:"offset"`                // 0-based start column (fixed-width, screens)
	Length      int           `json:"length"`                // Width in characters, 0 when unknown
	Row         int           `json:"row,omitempty"`         // Screen row for display layouts
	Group       string        `json:"group,omitempty"`       // Owning data structure or record format
	Description string        `json:"description,omitempty"` // TEXT/COLHDG or screen label
	Key         bool          `json:"key,omitempty"`         // Declared as a key field
	Declared    *DeclaredType `json:"declared,omitempty"`    // Type hint from source metadata
	Type        *InferredType `json:"type,omitempty"`        // Set by the type inferencer
}

// Typed reports whether inference has been applied
func (f FieldDescriptor) Typed() bool {
	return f.Type != nil
}

// Record is one row of sampled values.
// Values[i] belongs to the descriptor with ordinal i+1.
type Record struct {
	Line   int      `json:"line"` // 1-based source line
	Values []string `json:"values"`
}

// Value returns the value for the given ordinal or "" when absent
func (r Record) Value(ordinal int) string {
	if ordinal < 1 || ordinal > len(r.Values) {
		return ""
	}
	return r.Values[ordinal-1]
}

// ForeignKey is a proposed reference from a field to another entity.
// References are advisory and never enforced against data.
type ForeignKey struct {
	Field           string  `json:"field"`
	References      string  `json:"references"`
	ReferencedField string  `json:"referenced_field"`
	Confidence      float64 `json:"confidence"`
}

// FieldAnnotation carries advisory metadata attached by the mapping overlay
type FieldAnnotation struct {
	SuggestedName string  `json:"suggested_name,omitempty"`
	Description   string  `json:"description,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Source        string  `json:"source,omitempty"`
}

// EntitySchema is the canonical typed representation of one legacy record type
type EntitySchema struct {
	Name        string                     `json:"name"`
	Source      FormatKind                 `json:"source"`
	Fields      []FieldDescriptor          `json:"fields"`
	PrimaryKey  []string                   `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey               `json:"foreign_keys,omitempty"`
	Annotations map[string]FieldAnnotation `json:"annotations,omitempty"`
}

// Field returns the descriptor with the given name (case-insensitive)
func (e *EntitySchema) Field(name string) (FieldDescriptor, bool) {
	for _, f := range e.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// IsPrimaryKey reports whether the named field is part of the primary key
func (e *EntitySchema) IsPrimaryKey(name string) bool {
	for _, k := range e.PrimaryKey {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so derived stages never mutate shared schemas
func (e *EntitySchema) Clone() *EntitySchema {
	out := &EntitySchema{
		Name:   e.Name,
		Source: e.Source,
		Fields: make([]FieldDescriptor, len(e.Fields)),
	}
	for i, f := range e.Fields {
		out.Fields[i] = f.Clone()
	}
	out.PrimaryKey = append([]string(nil), e.PrimaryKey...)
	out.ForeignKeys = append([]ForeignKey(nil), e.ForeignKeys...)
	if e.Annotations != nil {
		out.Annotations = make(map[string]FieldAnnotation, len(e.Annotations))
		for k, v := range e.Annotations {
			out.Annotations[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the descriptor
func (f FieldDescriptor) Clone() FieldDescriptor {
	out := f
	if f.Declared != nil {
		d := *f.Declared
		out.Declared = &d
	}
	if f.Type != nil {
		t := *f.Type
		t.Candidates = append([]string(nil), f.Type.Candidates...)
		out.Type = &t
	}
	return out
}

// CrossReference is a foreign-key edge that leaves its service boundary
type CrossReference struct {
	Entity         string `json:"entity"`
	Field          string `json:"field"`
	Target         string `json:"target"`
	TargetBoundary string `json:"target_boundary"`
}

// ServiceBoundary is a proposed microservice owning a set of entities
type ServiceBoundary struct {
	Name       string           `json:"name"`
	Entities   []string         `json:"entities"`
	References []CrossReference `json:"references,omitempty"`
}

// Owns reports whether the boundary owns the named entity
func (b ServiceBoundary) Owns(entity string) bool {
	for _, e := range b.Entities {
		if e == entity {
			return true
		}
	}
	return false
}
