/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference_test.go
Description: Tests for declared type precedence and the ordered value heuristics.
*/

package inference

import (
	"testing"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(values ...string) []core.Record {
	records := make([]core.Record, len(values))
	for i, v := range values {
		records[i] = core.Record{Line: i + 1, Values: []string{v}}
	}
	return records
}

func inferColumn(values ...string) core.InferredType {
	field := core.FieldDescriptor{Name: "F", Ordinal: 1}
	return NewInferencer(DefaultOptions()).Infer(field, column(values...))
}

func TestInferHeuristics(t *testing.T) {
	cases := []struct {
		name   string
		values []string
		kind   core.TypeKind
	}{
		{"integer", []string{"10", "250", "-3"}, core.KindInteger},
		{"trailing sign", []string{"10-", "25"}, core.KindInteger},
		{"decimal", []string{"50000.00", "25000.5", "0.75"}, core.KindDecimal},
		{"leading zero is a code", []string{"01234", "10001", "90210"}, core.KindString},
		{"zip code", []string{"10001", "90210"}, core.KindString},
		{"zip plus four", []string{"100011234", "902101000"}, core.KindString},
		{"mixed width counts", []string{"10001", "250", "7"}, core.KindInteger},
		{"phone", []string{"555-0123", "555-0456"}, core.KindString},
		{"iso date", []string{"2024-01-01", "2023-12-31"}, core.KindDate},
		{"us date", []string{"01/15/2024", "12/31/2023"}, core.KindDate},
		{"db2 timestamp", []string{"2024-01-01-10.30.00.000000"}, core.KindDate},
		{"yes no", []string{"Y", "N", "Y", "Y"}, core.KindBoolean},
		{"true false", []string{"true", "FALSE"}, core.KindBoolean},
		{"enum", []string{"A", "I", "A", "A", "I", "A"}, core.KindEnum},
		{"free text", []string{"JOHN DOE", "JANE SMITH", "BOB JOHNSON"}, core.KindString},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inferColumn(tc.values...)
			assert.Equal(t, tc.kind, got.Kind, got.String())
			assert.Equal(t, core.SourceSampled, got.Source)
		})
	}
}

func TestInferDecimalPrecision(t *testing.T) {
	got := inferColumn("50000.00", "125000.5", "0.75")
	assert.Equal(t, core.KindDecimal, got.Kind)
	assert.Equal(t, 2, got.Scale)
	assert.Equal(t, 8, got.Precision)
	assert.Equal(t, "DECIMAL(8,2)", got.String())
}

func TestInferEightDigitDatesAreNumeric(t *testing.T) {
	got := inferColumn("20240101", "20240215")
	assert.Equal(t, core.KindInteger, got.Kind)
	assert.Equal(t, "YYYYMMDD", got.Format)

	got = inferColumn("20241399", "12345678")
	assert.Equal(t, core.KindInteger, got.Kind)
	assert.Empty(t, got.Format)

	got = inferColumn("01152024", "12312023")
	assert.Equal(t, core.KindDate, got.Kind)
	assert.Equal(t, "MMDDYYYY", got.Format)
}

func TestInferPostalCodeByName(t *testing.T) {
	inf := NewInferencer(DefaultOptions())
	zip := core.FieldDescriptor{Name: "ZIPCODE", Ordinal: 1}
	assert.Equal(t, core.KindString, inf.Infer(zip, column("1001", "90210", "501")).Kind)

	qty := core.FieldDescriptor{Name: "QTY", Ordinal: 1}
	assert.Equal(t, core.KindInteger, inf.Infer(qty, column("1001", "90210", "501")).Kind)
}

func TestInferEnumCandidates(t *testing.T) {
	got := inferColumn("PENDING", "SHIPPED", "PENDING", "CLOSED", "PENDING", "SHIPPED", "CLOSED", "PENDING")
	require.Equal(t, core.KindEnum, got.Kind)
	assert.Equal(t, []string{"CLOSED", "PENDING", "SHIPPED"}, got.Candidates)
	assert.Equal(t, "ENUM(CLOSED|PENDING|SHIPPED)", got.String())
}

func TestInferEnumThresholds(t *testing.T) {
	// one sample is below the minimum
	assert.Equal(t, core.KindString, inferColumn("OPEN").Kind)

	// half distinct is not below the ratio
	assert.Equal(t, core.KindString, inferColumn("A", "B", "A", "B").Kind)

	inf := NewInferencer(Options{EnumRatio: 0.9, EnumMaxCandidates: 2})
	field := core.FieldDescriptor{Name: "F", Ordinal: 1}
	assert.Equal(t, core.KindString, inf.Infer(field, column("A", "B", "C", "A", "B", "C", "A")).Kind)
}

func TestInferNullable(t *testing.T) {
	got := inferColumn("10", "", "20")
	assert.Equal(t, core.KindInteger, got.Kind)
	assert.True(t, got.Nullable)

	got = inferColumn("10", "20")
	assert.False(t, got.Nullable)

	got = inferColumn("", "  ")
	assert.Equal(t, core.KindString, got.Kind)
	assert.True(t, got.Nullable)
}

func TestDeclaredTypeWins(t *testing.T) {
	field := core.FieldDescriptor{
		Name:     "ZIPCODE",
		Ordinal:  1,
		Declared: &core.DeclaredType{Code: "S", Kind: core.KindInteger, Length: 5},
	}
	got := NewInferencer(DefaultOptions()).Infer(field, column("ABCDE", "", "FGHIJ"))

	assert.Equal(t, core.KindInteger, got.Kind)
	assert.Equal(t, 5, got.Precision)
	assert.True(t, got.Nullable)
	assert.Equal(t, core.SourceDeclared, got.Source)
}

func TestDeclaredNullableWithoutRecords(t *testing.T) {
	field := core.FieldDescriptor{
		Name:     "AMOUNT",
		Ordinal:  1,
		Declared: &core.DeclaredType{Code: "P", Kind: core.KindDecimal, Length: 9, Scale: 2, Nullable: true},
	}
	got := NewInferencer(DefaultOptions()).Infer(field, nil)

	assert.Equal(t, "DECIMAL(9,2)", got.String())
	assert.True(t, got.Nullable)
	assert.Equal(t, 9, got.MaxLength)
}

func TestInferAllLeavesInputUntouched(t *testing.T) {
	fields := []core.FieldDescriptor{
		{Name: "ID", Ordinal: 1},
		{Name: "NAME", Ordinal: 2},
	}
	records := []core.Record{
		{Line: 1, Values: []string{"CUST001", "JOHN DOE"}},
		{Line: 2, Values: []string{"CUST002", "JANE SMITH"}},
	}

	inf := NewInferencer(DefaultOptions())
	typed := inf.InferAll(fields, records)

	require.Len(t, typed, 2)
	assert.Nil(t, fields[0].Type)
	assert.True(t, typed[0].Typed())
	assert.Equal(t, 10, typed[1].Type.MaxLength)
	assert.Equal(t, typed, inf.InferAll(fields, records))
}
