/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: synthesize.go
Description: Schema synthesizer. Merges typed field descriptors into an entity schema and
selects a primary key that is verified against the sampled records.
*/

package schema

import (
	"fmt"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/sirupsen/logrus"
)

// Options controls key detection and reference matching
type Options struct {
	KeySuffixes       []string // Preferred primary key name endings
	ReferencePrefixes []string // Leading tokens ignored when matching references
	ReferenceSuffixes []string // Trailing name parts ignored when matching references
}

// DefaultOptions returns the documented synthesis defaults
func DefaultOptions() Options {
	return Options{
		KeySuffixes:       []string{"ID", "NUM", "CODE"},
		ReferencePrefixes: []string{"FK", "REF"},
		ReferenceSuffixes: []string{"ID", "NUM", "NO", "NBR", "CODE", "KEY"},
	}
}

// Synthesizer builds entity schemas
type Synthesizer struct {
	opts   Options
	names  normalizer
	logger *logrus.Logger
}

// NewSynthesizer creates a synthesizer, filling unset options with defaults
func NewSynthesizer(opts Options, logger *logrus.Logger) *Synthesizer {
	d := DefaultOptions()
	if opts.KeySuffixes == nil {
		opts.KeySuffixes = d.KeySuffixes
	}
	if opts.ReferencePrefixes == nil {
		opts.ReferencePrefixes = d.ReferencePrefixes
	}
	if opts.ReferenceSuffixes == nil {
		opts.ReferenceSuffixes = d.ReferenceSuffixes
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Synthesizer{
		opts:   opts,
		names:  newNormalizer(opts.ReferencePrefixes, opts.ReferenceSuffixes),
		logger: logger,
	}
}

// Synthesize builds an entity from typed descriptors. Records are only used to verify
// key candidates; the schema does not keep them.
func (s *Synthesizer) Synthesize(name string, source core.FormatKind, fields []core.FieldDescriptor, records []core.Record) (*core.EntitySchema, core.Warnings, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil, fmt.Errorf("%w: entity name is empty", core.ErrInvalidInput)
	}
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("%w: entity %s has no fields", core.ErrIncompleteDescriptor, name)
	}
	for _, f := range fields {
		if !f.Typed() {
			return nil, nil, fmt.Errorf("%w: field %s of %s has no inferred type", core.ErrIncompleteDescriptor, f.Name, name)
		}
	}
	if err := core.ValidateDescriptors(fields); err != nil {
		return nil, nil, fmt.Errorf("synthesize %s: %w", name, err)
	}

	entity := &core.EntitySchema{
		Name:   name,
		Source: source,
		Fields: make([]core.FieldDescriptor, len(fields)),
	}
	for i, f := range fields {
		entity.Fields[i] = f.Clone()
	}

	var warnings core.Warnings
	entity.PrimaryKey = s.primaryKey(entity.Fields, records, &warnings)
	if len(entity.PrimaryKey) == 0 {
		warnings.Add(core.WarnNoPrimaryKey, 0, "", "no field of %s is non-null and unique across %d record(s)", name, len(records))
	}

	s.logger.WithFields(logrus.Fields{
		"entity":      name,
		"fields":      len(entity.Fields),
		"primary_key": strings.Join(entity.PrimaryKey, ","),
	}).Debug("Entity synthesized")
	return entity, warnings, nil
}

// primaryKey prefers verified declared keys, then a candidate with an identifier suffix,
// then the first candidate by ordinal
func (s *Synthesizer) primaryKey(fields []core.FieldDescriptor, records []core.Record, warnings *core.Warnings) []string {
	var declared []core.FieldDescriptor
	for _, f := range fields {
		if f.Key {
			declared = append(declared, f)
		}
	}
	if len(declared) > 0 {
		if verifyKey(declared, records) {
			names := make([]string, len(declared))
			for i, f := range declared {
				names[i] = f.Name
			}
			return names
		}
		warnings.Add(core.WarnKeyNotVerified, 0, "", "declared key %s is nullable or has duplicate values", keyNames(declared))
	}

	var candidates []core.FieldDescriptor
	for _, f := range fields {
		if keyKind(f.Type.Kind) && verifyKey([]core.FieldDescriptor{f}, records) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	pick := candidates[0]
	for _, f := range candidates {
		if s.hasKeySuffix(f.Name) {
			pick = f
			break
		}
	}
	// with no records uniqueness holds vacuously
	if len(records) == 0 {
		warnings.Add(core.WarnKeyNotVerified, 0, "", "key %s inferred without sample records to verify it", pick.Name)
	}
	return []string{pick.Name}
}

func (s *Synthesizer) hasKeySuffix(name string) bool {
	upper := strings.ToUpper(strings.Join(Tokenize(name), ""))
	for _, suffix := range s.opts.KeySuffixes {
		if strings.HasSuffix(upper, strings.ToUpper(suffix)) {
			return true
		}
	}
	return false
}

// keyKind excludes kinds that make poor identifiers
func keyKind(k core.TypeKind) bool {
	return k != core.KindBoolean && k != core.KindDecimal
}

// verifyKey checks that the key fields are non-null and their combined values unique
func verifyKey(key []core.FieldDescriptor, records []core.Record) bool {
	for _, f := range key {
		if f.Type == nil || f.Type.Nullable {
			return false
		}
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		parts := make([]string, len(key))
		for i, f := range key {
			v := strings.TrimSpace(r.Value(f.Ordinal))
			if v == "" {
				return false
			}
			parts[i] = v
		}
		tuple := strings.Join(parts, "\x00")
		if _, dup := seen[tuple]; dup {
			return false
		}
		seen[tuple] = struct{}{}
	}
	return true
}

func keyNames(fields []core.FieldDescriptor) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}
