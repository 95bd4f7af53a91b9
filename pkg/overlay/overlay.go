/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: overlay.go
Description: Non-authoritative merge of advisory field annotations. Suggested names and
descriptions are attached as annotations; inferred types, keys and references are never
touched.
*/

package overlay

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// maxNameLength bounds suggested property names
const maxNameLength = 64

var suggestedNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Annotation is one advisory suggestion keyed by field ordinal, name, or both
type Annotation struct {
	Ordinal       int     `json:"ordinal,omitempty" yaml:"ordinal,omitempty" toml:"ordinal,omitempty"`
	Field         string  `json:"field,omitempty" yaml:"field,omitempty" toml:"field,omitempty"`
	SuggestedName string  `json:"suggested_name,omitempty" yaml:"suggested_name,omitempty" toml:"suggested_name,omitempty"`
	Description   string  `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Confidence    float64 `json:"confidence,omitempty" yaml:"confidence,omitempty" toml:"confidence,omitempty"`
}

// AnnotationSet is everything an advisor proposes for one entity
type AnnotationSet struct {
	Entity      string       `json:"entity,omitempty" yaml:"entity,omitempty"`
	Source      string       `json:"source,omitempty" yaml:"source,omitempty"`
	Annotations []Annotation `json:"fields" yaml:"fields"`
}

// Apply returns a copy of entity with the set merged in as annotations. Annotations that
// match no field or carry an unusable name are reported as warnings. A nil set returns
// an unchanged copy.
func Apply(entity *core.EntitySchema, set *AnnotationSet) (*core.EntitySchema, core.Warnings) {
	out := entity.Clone()
	var warnings core.Warnings
	if set == nil || len(set.Annotations) == 0 {
		return out, warnings
	}

	source := set.Source
	if source == "" {
		source = "overlay"
	}
	if out.Annotations == nil {
		out.Annotations = make(map[string]core.FieldAnnotation, len(set.Annotations))
	}

	for _, a := range set.Annotations {
		field, ok := match(out, a)
		if !ok {
			warnings.Add(core.WarnOverlayUnmatched, 0, "",
				"annotation for %s matches no field of %s", describe(a), out.Name)
			continue
		}

		merged := out.Annotations[field.Name]
		merged.Source = source
		if name := strings.TrimSpace(a.SuggestedName); name != "" {
			if len(name) <= maxNameLength && suggestedNameRe.MatchString(name) {
				merged.SuggestedName = name
			} else {
				warnings.Add(core.WarnOverlayInvalidName, 0, name,
					"suggested name for %s.%s is not a valid identifier", out.Name, field.Name)
			}
		}
		if d := strings.TrimSpace(a.Description); d != "" {
			merged.Description = d
		}
		merged.Confidence = clamp(a.Confidence)
		if merged.SuggestedName == "" && merged.Description == "" {
			continue
		}
		out.Annotations[field.Name] = merged
	}
	if len(out.Annotations) == 0 {
		out.Annotations = nil
	}
	return out, warnings
}

// match resolves an annotation by ordinal first, then by name
func match(entity *core.EntitySchema, a Annotation) (core.FieldDescriptor, bool) {
	if a.Ordinal > 0 {
		for _, f := range entity.Fields {
			if f.Ordinal == a.Ordinal {
				return f, true
			}
		}
	}
	if a.Field != "" {
		return entity.Field(a.Field)
	}
	return core.FieldDescriptor{}, false
}

func describe(a Annotation) string {
	switch {
	case a.Field != "" && a.Ordinal > 0:
		return fmt.Sprintf("%s (#%d)", a.Field, a.Ordinal)
	case a.Field != "":
		return a.Field
	default:
		return fmt.Sprintf("#%d", a.Ordinal)
	}
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
