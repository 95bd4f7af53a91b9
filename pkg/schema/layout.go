/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: layout.go
Description: Fixed-width export. Renders records back into the byte layout of an entity
so that a parsed flat file can be reproduced and re-parsed with explicit columns.
*/

package schema

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/parsers"
)

// FixedWidthLayout returns the positioned columns of an entity in offset order. Fields
// without a length, such as delimited columns, have no layout.
func FixedWidthLayout(entity *core.EntitySchema) ([]parsers.Column, error) {
	var cols []parsers.Column
	for _, f := range entity.Fields {
		if f.Length <= 0 {
			return nil, fmt.Errorf("%w: field %s of %s has no fixed length", core.ErrInvalidInput, f.Name, entity.Name)
		}
		cols = append(cols, parsers.Column{Name: f.Name, Offset: f.Offset, Length: f.Length})
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Offset < cols[j].Offset })
	for i := 1; i < len(cols); i++ {
		if cols[i].Offset < cols[i-1].Offset+cols[i-1].Length {
			return nil, fmt.Errorf("%w: fields %s and %s overlap", core.ErrInvalidDescriptors, cols[i-1].Name, cols[i].Name)
		}
	}
	return cols, nil
}

// RenderFixedWidth writes records in the entity's layout, one line per record. Numeric
// values are right aligned as in legacy zoned fields, everything else is left aligned.
// Trailing blanks are trimmed from each line.
func RenderFixedWidth(entity *core.EntitySchema, records []core.Record) (string, error) {
	cols, err := FixedWidthLayout(entity)
	if err != nil {
		return "", err
	}
	numeric := make(map[string]bool, len(entity.Fields))
	ordinals := make(map[string]int, len(entity.Fields))
	for _, f := range entity.Fields {
		numeric[f.Name] = f.Type != nil && f.Type.Kind.IsNumeric()
		ordinals[f.Name] = f.Ordinal
	}

	var b strings.Builder
	for _, r := range records {
		var line strings.Builder
		pos := 0
		for _, c := range cols {
			v := strings.TrimSpace(r.Value(ordinals[c.Name]))
			n := utf8.RuneCountInString(v)
			if n > c.Length {
				return "", fmt.Errorf("%w: value %q of %s at line %d exceeds %d characters",
					core.ErrInvalidInput, v, c.Name, r.Line, c.Length)
			}
			line.WriteString(strings.Repeat(" ", c.Offset-pos))
			pad := strings.Repeat(" ", c.Length-n)
			if numeric[c.Name] {
				line.WriteString(pad + v)
			} else {
				line.WriteString(v + pad)
			}
			pos = c.Offset + c.Length
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}
	return b.String(), nil
}
