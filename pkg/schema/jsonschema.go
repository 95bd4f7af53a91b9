/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: jsonschema.go
Description: JSON Schema export. Each entity becomes an object schema with camelCase
properties; the legacy layout travels along in x-legacy extensions so generated services
can map back to the original records.
*/

package schema

import (
	"encoding/json"
	"strconv"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// Draft is the JSON Schema dialect emitted
const Draft = "https://json-schema.org/draft/2020-12/schema"

// JSONSchema is the modern representation of one entity
type JSONSchema struct {
	Schema      string                     `json:"$schema"`
	ID          string                     `json:"$id"`
	Title       string                     `json:"title"`
	Type        string                     `json:"type"`
	Properties  map[string]*PropertySchema `json:"properties"`
	Order       []string                   `json:"x-propertyOrder"`
	Required    []string                   `json:"required,omitempty"`
	PrimaryKey  []string                   `json:"x-primaryKey,omitempty"`
	References  []Reference                `json:"x-references,omitempty"`
	Legacy      LegacyEntity               `json:"x-legacy"`
	Description string                     `json:"description,omitempty"`
}

// PropertySchema describes one property
type PropertySchema struct {
	Type        TypeList        `json:"type"`
	Format      string          `json:"format,omitempty"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	MaxLength   *int            `json:"maxLength,omitempty"`
	Precision   int             `json:"x-precision,omitempty"`
	Scale       int             `json:"x-scale,omitempty"`
	Relation    *RelationSchema `json:"x-relation,omitempty"`
	Legacy      LegacyField     `json:"x-legacy"`
}

// RelationSchema marks a property as a reference to another entity
type RelationSchema struct {
	Target      string  `json:"target"`
	Type        string  `json:"type"`
	KeyProperty string  `json:"key_property"`
	Confidence  float64 `json:"confidence"`
}

// Reference is an entity level view of a foreign key
type Reference struct {
	Property string `json:"property"`
	Target   string `json:"target"`
	Key      string `json:"key"`
}

// LegacyEntity records where an entity came from
type LegacyEntity struct {
	Name   string          `json:"name"`
	Format core.FormatKind `json:"format"`
}

// LegacyField records the original layout of a property
type LegacyField struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Code   string `json:"code,omitempty"`
	Offset int    `json:"offset"`
	Length int    `json:"length,omitempty"`
	Row    int    `json:"row,omitempty"`
	Group  string `json:"group,omitempty"`
	Layout string `json:"layout,omitempty"`
}

// TypeList is a JSON Schema type keyword, written as a string when it has one member
type TypeList []string

// MarshalJSON implements json.Marshaler
func (t TypeList) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON implements json.Unmarshaler
func (t *TypeList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*t = TypeList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

// PropertyNames maps field names to unique property names. Overlay suggestions are used
// when present, the camelCase legacy name otherwise.
func PropertyNames(entity *core.EntitySchema) map[string]string {
	names := make(map[string]string, len(entity.Fields))
	used := map[string]bool{}
	for _, f := range entity.Fields {
		base := CamelCase(f.Name)
		if a, ok := entity.Annotations[f.Name]; ok && a.SuggestedName != "" {
			base = CamelCase(a.SuggestedName)
		}
		if base == "" {
			base = "field" + strconv.Itoa(f.Ordinal)
		}
		name := base
		for n := 2; used[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		used[name] = true
		names[f.Name] = name
	}
	return names
}

// ToJSONSchema converts an entity into its JSON Schema representation
func ToJSONSchema(entity *core.EntitySchema) *JSONSchema {
	props := PropertyNames(entity)
	out := &JSONSchema{
		Schema:     Draft,
		ID:         "urn:as400:" + Kebab(entity.Name),
		Title:      entity.Name,
		Type:       "object",
		Properties: make(map[string]*PropertySchema, len(entity.Fields)),
		Legacy:     LegacyEntity{Name: entity.Name, Format: entity.Source},
	}

	fks := make(map[string]core.ForeignKey, len(entity.ForeignKeys))
	for _, fk := range entity.ForeignKeys {
		fks[fk.Field] = fk
	}

	for _, f := range entity.Fields {
		name := props[f.Name]
		p := property(f)
		if a, ok := entity.Annotations[f.Name]; ok && a.Description != "" {
			p.Description = a.Description
		}
		if fk, ok := fks[f.Name]; ok {
			p.Relation = &RelationSchema{
				Target:      fk.References,
				Type:        "reference",
				KeyProperty: CamelCase(fk.ReferencedField),
				Confidence:  fk.Confidence,
			}
			out.References = append(out.References, Reference{Property: name, Target: fk.References, Key: fk.ReferencedField})
		}
		out.Properties[name] = p
		out.Order = append(out.Order, name)
		if f.Type != nil && !f.Type.Nullable {
			out.Required = append(out.Required, name)
		}
	}
	for _, k := range entity.PrimaryKey {
		out.PrimaryKey = append(out.PrimaryKey, props[k])
	}
	return out
}

// property maps one typed field onto JSON Schema keywords
func property(f core.FieldDescriptor) *PropertySchema {
	t := core.InferredType{Kind: core.KindString}
	if f.Type != nil {
		t = *f.Type
	}
	p := &PropertySchema{
		Description: f.Description,
		Legacy: LegacyField{
			Name:   f.Name,
			Type:   t.String(),
			Offset: f.Offset,
			Length: f.Length,
			Row:    f.Row,
			Group:  f.Group,
		},
	}
	if f.Declared != nil {
		p.Legacy.Code = f.Declared.Code
	}

	var base string
	switch t.Kind {
	case core.KindInteger:
		base = "integer"
		p.Precision = t.Precision
		p.Legacy.Layout = t.Format
	case core.KindDecimal:
		base = "number"
		p.Precision, p.Scale = t.Precision, t.Scale
	case core.KindBoolean:
		base = "boolean"
	case core.KindDate:
		base = "string"
		p.Format = "date"
		switch t.Format {
		case "timestamp":
			p.Format = "date-time"
		case "date", "":
		default:
			p.Legacy.Layout = t.Format
		}
	case core.KindEnum:
		base = "string"
		p.Enum = append([]string(nil), t.Candidates...)
	default:
		base = "string"
		if t.Format == "time" {
			p.Format = "time"
		}
		if t.MaxLength > 0 {
			n := t.MaxLength
			p.MaxLength = &n
		}
	}
	p.Type = TypeList{base}
	if t.Nullable {
		p.Type = append(p.Type, "null")
	}
	return p
}
