/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: link.go
Description: Second synthesis pass. Proposes foreign keys by matching field names against
the single-field primary keys of every other entity. References are advisory; cycles and
forward references are fine because all entities are known when linking runs.
*/

package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/sirupsen/logrus"
)

// Match confidences
const (
	ConfidenceExact      = 1.0
	ConfidenceNormalized = 0.8
)

// keyTarget is a primary key that fields of other entities may reference
type keyTarget struct {
	entity  string
	field   core.FieldDescriptor
	stem    string
	generic bool // key name carries no entity stem, such as ID
}

// Link returns copies of entities with ForeignKeys filled in. Entity names must be unique.
func (s *Synthesizer) Link(entities []*core.EntitySchema) ([]*core.EntitySchema, error) {
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		key := strings.ToUpper(e.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateEntity, e.Name)
		}
		seen[key] = true
	}

	var targets []keyTarget
	for _, e := range entities {
		if len(e.PrimaryKey) != 1 {
			continue
		}
		f, ok := e.Field(e.PrimaryKey[0])
		if !ok || f.Type == nil {
			continue
		}
		t := keyTarget{entity: e.Name, field: f, stem: s.names.stem(f.Name)}
		if t.stem == "" {
			t.generic = true
			t.stem = s.names.joined(e.Name)
		}
		targets = append(targets, t)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].entity < targets[j].entity
	})

	out := make([]*core.EntitySchema, len(entities))
	linked := 0
	for i, e := range entities {
		c := e.Clone()
		c.ForeignKeys = nil
		for _, f := range c.Fields {
			if fk, ok := s.reference(c.Name, f, targets); ok {
				c.ForeignKeys = append(c.ForeignKeys, fk)
			}
		}
		linked += len(c.ForeignKeys)
		out[i] = c
	}

	s.logger.WithFields(logrus.Fields{
		"entities":     len(entities),
		"foreign_keys": linked,
	}).Debug("Entities linked")
	return out, nil
}

// reference finds the best key target for one field
func (s *Synthesizer) reference(entity string, f core.FieldDescriptor, targets []keyTarget) (core.ForeignKey, bool) {
	if f.Type == nil {
		return core.ForeignKey{}, false
	}
	joined := s.names.joined(f.Name)
	stem := s.names.stem(f.Name)

	var best core.ForeignKey
	for _, t := range targets {
		if strings.EqualFold(t.entity, entity) || !compatible(f.Type.Kind, t.field.Type.Kind) {
			continue
		}
		confidence := 0.0
		switch {
		case !t.generic && strings.EqualFold(f.Name, t.field.Name):
			confidence = ConfidenceExact
		case !t.generic && stem != "" && stem == t.stem:
			confidence = ConfidenceNormalized
		case t.generic && stem != joined && stem == t.stem:
			confidence = ConfidenceNormalized
		}
		if confidence > best.Confidence {
			best = core.ForeignKey{
				Field:           f.Name,
				References:      t.entity,
				ReferencedField: t.field.Name,
				Confidence:      confidence,
			}
		}
	}
	return best, best.Confidence > 0
}

// compatible reports whether a field of kind a can hold values of a key of kind b.
// Character columns often carry numeric codes, so text and integers are compatible.
func compatible(a, b core.TypeKind) bool {
	switch {
	case a == b:
		return true
	case a.IsNumeric() && b.IsNumeric():
		return true
	case textual(a) && (textual(b) || b == core.KindInteger):
		return true
	case textual(b) && a == core.KindInteger:
		return true
	default:
		return false
	}
}

func textual(k core.TypeKind) bool {
	return k == core.KindString || k == core.KindEnum
}
