/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fixedwidth_test.go
Description: Tests for column boundary inference and fixed-width record extraction.
*/

package parsers

import (
	"errors"
	"testing"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWidthSingleLine(t *testing.T) {
	result, err := Parse(raw("customer.dat", customerFlat), core.FormatFixedWidth, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "inferred", result.Variant)
	require.Len(t, result.Fields, 7)
	assert.Equal(t, []string{"field_1", "field_2", "field_3", "field_4", "field_5", "field_6", "field_7"}, fieldNames(result.Fields))

	offsets := make([]int, len(result.Fields))
	lengths := make([]int, len(result.Fields))
	for i, f := range result.Fields {
		offsets[i], lengths[i] = f.Offset, f.Length
	}
	assert.Equal(t, []int{0, 7, 19, 34, 46, 48, 54}, offsets)
	assert.Equal(t, []int{7, 12, 15, 12, 2, 6, 8}, lengths)

	require.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.Records[0].Line)
	assert.Equal(t, []string{"CUST001", "JOHN DOE", "123 MAIN ST", "NEW YORK", "NY", "10001", "555-0123"}, result.Records[0].Values)
}

func TestFixedWidthMultipleRows(t *testing.T) {
	text := "ITEM01  BOLT        0100  12.50\n" +
		"ITEM02  NUT         0250  03.75\n" +
		"ITEM03  WASHER      0005  00.20\n"

	result, err := Parse(raw("items.dat", text), core.FormatFixedWidth, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Fields, 4)
	assert.Equal(t, 8, result.Fields[1].Offset)
	assert.Equal(t, 20, result.Fields[2].Offset)
	assert.Equal(t, 26, result.Fields[3].Offset)

	require.Len(t, result.Records, 3)
	assert.Equal(t, []string{"ITEM02", "NUT", "0250", "03.75"}, result.Records[1].Values)
	assert.Equal(t, 3, result.Records[2].Line)
}

func TestFixedWidthHeaderRowNamesColumns(t *testing.T) {
	text := "ITEM    NAME        QTY   PRICE\n" +
		"ITEM01  BOLT        0100  12.50\n" +
		"ITEM02  NUT         0250  03.75\n"
	hasHeader := true
	opts := DefaultOptions()
	opts.HasHeader = &hasHeader

	result, err := Parse(raw("items.dat", text), core.FormatFixedWidth, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"ITEM", "NAME", "QTY", "PRICE"}, fieldNames(result.Fields))
	require.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Records[0].Line)
	assert.Equal(t, "BOLT", result.Records[0].Values[1])
}

func TestFixedWidthExplicitColumns(t *testing.T) {
	opts := DefaultOptions()
	opts.Columns = []Column{
		{Name: "CUSTID", Offset: 0, Length: 7},
		{Name: "NAME", Offset: 7, Length: 12},
	}

	result, err := Parse(raw("customer.dat", customerFlat), core.FormatFixedWidth, opts)
	require.NoError(t, err)

	assert.Equal(t, "explicit", result.Variant)
	assert.Equal(t, []string{"CUSTID", "NAME"}, fieldNames(result.Fields))
	require.Len(t, result.Records, 1)
	assert.Equal(t, []string{"CUST001", "JOHN DOE"}, result.Records[0].Values)
}

func TestFixedWidthDigitLetterBoundary(t *testing.T) {
	text := "ORD001CUSTA\nORD002CUSTB\n"

	result, err := Parse(raw("orders.dat", text), core.FormatFixedWidth, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Fields, 2)
	assert.Equal(t, []string{"ORD001", "CUSTA"}, result.Records[0].Values)
}

func TestFixedWidthStateCodeBoundary(t *testing.T) {
	text := "CUST001  NY10001  A\n" +
		"CUST002  CA90210  B\n"

	result, err := Parse(raw("customers.dat", text), core.FormatFixedWidth, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Fields, 4)
	assert.Equal(t, []string{"CUST002", "CA", "90210", "B"}, result.Records[1].Values)

	// a letter run longer than a state code stays with its digits
	result, err = Parse(raw("orders.dat", "ORD  CUST001  X\nORD  CUST002  Y\n"), core.FormatFixedWidth, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD", "CUST001", "X"}, result.Records[0].Values)
}

func TestFixedWidthAmbiguousBoundaries(t *testing.T) {
	_, err := Parse(raw("blob.dat", "ABCDEFGHIJKLMNOP\nQRSTUVWXYZABCDEF\n"), core.FormatFixedWidth, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAmbiguousColumnBoundaries))

	var inputErr *core.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, 1, inputErr.Line)
	assert.Equal(t, "blob.dat", inputErr.Input)
}

func TestFixedWidthIsIdempotent(t *testing.T) {
	in := raw("customer.dat", customerFlat)
	first, err := Parse(in, core.FormatFixedWidth, DefaultOptions())
	require.NoError(t, err)
	second, err := Parse(in, core.FormatFixedWidth, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
