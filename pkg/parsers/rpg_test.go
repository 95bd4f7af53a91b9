/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: rpg_test.go
Description: Tests for fixed-form and free-form RPG declaration extraction.
*/

package parsers

import (
	"testing"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPGFixedForm(t *testing.T) {
	result, err := Parse(raw("CUSTINQ.RPGLE", customerRPG), core.FormatRPG, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "fixed", result.Variant)
	assert.Equal(t, "CustomerDS", result.Entity)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Files, 2)
	assert.Equal(t, FileRef{Name: "CUSTOMER", Usage: "I", Device: "DISK", External: true, Keyed: true}, result.Files[0])
	assert.Equal(t, "DSPCUST", result.Files[1].Name)
	assert.Equal(t, "WORKSTN", result.Files[1].Device)
	assert.False(t, result.Files[1].Keyed)

	assert.Equal(t, []string{"CustID", "CustName", "Address", "City", "State", "ZipCode", "Phone", "CreateDate", "Status"},
		fieldNames(result.Fields))
	last := result.Fields[8]
	assert.Equal(t, 137, last.Offset)
	assert.Equal(t, 1, last.Length)
	assert.Equal(t, "CustomerDS", last.Group)
	assert.Equal(t, core.KindString, last.Declared.Kind)
}

func TestRPGFreeForm(t *testing.T) {
	result, err := Parse(raw("ORDERS.RPGLE", orderFreeRPG), core.FormatRPG, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "free", result.Variant)
	assert.Equal(t, "OrderDS", result.Entity)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "*INPUT", result.Files[0].Usage)
	assert.True(t, result.Files[0].Keyed)

	require.Equal(t, []string{"OrderNo", "Amount", "OrdQty", "Shipped"}, fieldNames(result.Fields))

	amount := result.Fields[1]
	assert.Equal(t, 8, amount.Offset)
	assert.Equal(t, 5, amount.Length)
	assert.Equal(t, core.KindDecimal, amount.Declared.Kind)
	assert.Equal(t, 2, amount.Declared.Scale)

	qty := result.Fields[2]
	assert.Equal(t, 13, qty.Offset)
	assert.Equal(t, "P", qty.Declared.Code)
	assert.Equal(t, core.KindInteger, qty.Declared.Kind)

	shipped := result.Fields[3]
	assert.Equal(t, 16, shipped.Offset)
	assert.Equal(t, core.KindBoolean, shipped.Declared.Kind)
}

func TestRPGOverlappingSubfieldIsSkipped(t *testing.T) {
	text := `     D OrderDS         DS
     D  OrderNo                1      8
     D  Prefix                 1      2
     D  Amount                 9     13P 2`

	result, err := Parse(raw("OVERLAY.RPGLE", text), core.FormatRPG, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"OrderNo", "Amount"}, fieldNames(result.Fields))
	assert.True(t, result.Warnings.Has(core.WarnOverlappingField))

	amount := result.Fields[1]
	assert.Equal(t, 8, amount.Offset)
	assert.Equal(t, 5, amount.Length)
	assert.Equal(t, 9, amount.Declared.Length)
	assert.Equal(t, core.KindDecimal, amount.Declared.Kind)
}

func TestRPGSubfieldOutsideStructure(t *testing.T) {
	text := `     D Total           S              9P 2
     D  Loose                         5A`

	result, err := Parse(raw("LOOSE.RPGLE", text), core.FormatRPG, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Fields)
	assert.True(t, result.Warnings.Has(core.WarnMalformedDeclaration))
}

func groups(fields []core.FieldDescriptor) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Group
	}
	return out
}

func TestRPGUnnamedStructuresFixedForm(t *testing.T) {
	text := `     D                 DS
     D  CUSTNO                 1      7  0
     D  CUSTNM                 8     37
     D                 DS
     D  ORDNO                  1      9  0
     D  ORDAMT                10     18  2`

	result, err := Parse(raw("TWO.RPGLE", text), core.FormatRPG, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Entity)
	assert.Equal(t, []string{"CUSTNO", "CUSTNM", "ORDNO", "ORDAMT"}, fieldNames(result.Fields))
	assert.Equal(t, []string{"DS#1", "DS#1", "DS#2", "DS#2"}, groups(result.Fields))

	ordno := result.Fields[2]
	assert.Equal(t, 0, ordno.Offset)
	assert.Equal(t, 9, ordno.Length)
	assert.Equal(t, core.KindInteger, ordno.Declared.Kind)

	amount := result.Fields[3]
	assert.Equal(t, 9, amount.Offset)
	assert.Equal(t, core.KindDecimal, amount.Declared.Kind)
	assert.Equal(t, 2, amount.Declared.Scale)
}

func TestRPGUnnamedStructuresFreeForm(t *testing.T) {
	text := `**FREE
dcl-ds *n;
  custno zoned(7:0);
  custnm char(30);
end-ds;
dcl-ds *n;
  ordno zoned(9:0);
  ordamt zoned(9:2);
end-ds;
dcl-ds Totals;
  count int(10);
end-ds;`

	result, err := Parse(raw("TWO.RPGLE", text), core.FormatRPG, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Warnings)
	assert.Equal(t, "Totals", result.Entity)
	assert.Equal(t, []string{"custno", "custnm", "ordno", "ordamt", "count"}, fieldNames(result.Fields))
	assert.Equal(t, []string{"DS#1", "DS#1", "DS#2", "DS#2", "Totals"}, groups(result.Fields))
	assert.Equal(t, 0, result.Fields[2].Offset)
	assert.Equal(t, 9, result.Fields[3].Offset)
	assert.Equal(t, 4, result.Fields[4].Length)
}
