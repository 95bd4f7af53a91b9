/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: validate.go
Description: Structural invariants for field descriptor sequences.
*/

package core

import (
	"fmt"
)

type span struct {
	row   int
	group string
}

// ValidateDescriptors checks that ordinals are strictly increasing from 1 and that
// positional fields sharing a row and group never overlap.
func ValidateDescriptors(fields []FieldDescriptor) error {
	lastEnd := map[span]int{}
	for i, f := range fields {
		if f.Ordinal != i+1 {
			return fmt.Errorf("%w: field %q has ordinal %d, expected %d", ErrInvalidDescriptors, f.Name, f.Ordinal, i+1)
		}
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidDescriptors, f.Ordinal)
		}
		if f.Length <= 0 {
			continue
		}
		if f.Offset < 0 {
			return fmt.Errorf("%w: field %q has negative offset", ErrInvalidDescriptors, f.Name)
		}
		key := span{row: f.Row, group: f.Group}
		if end, ok := lastEnd[key]; ok && f.Offset < end {
			return fmt.Errorf("%w: field %q at offset %d overlaps previous field ending at %d",
				ErrInvalidDescriptors, f.Name, f.Offset, end)
		}
		lastEnd[key] = f.Offset + f.Length
	}
	return nil
}
