/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dds_test.go
Description: Tests for DDS physical file and SQL table declaration parsing.
*/

package parsers

import (
	"testing"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDDSCustomerFile(t *testing.T) {
	result, err := Parse(raw("CUSTOMER.PF", customerDDS), core.FormatDDS, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "CUSTOMER", result.Entity)
	require.Len(t, result.Fields, 9)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Warnings)

	id := result.Fields[0]
	assert.Equal(t, "CUSTID", id.Name)
	assert.Equal(t, 1, id.Ordinal)
	assert.True(t, id.Key)
	assert.Equal(t, "Customer ID", id.Description)
	require.NotNil(t, id.Declared)
	assert.Equal(t, "A", id.Declared.Code)
	assert.Equal(t, core.KindString, id.Declared.Kind)
	assert.Equal(t, 10, id.Declared.Length)

	name := result.Fields[1]
	assert.Equal(t, 10, name.Offset)
	assert.Equal(t, 30, name.Length)
	assert.False(t, name.Key)
}

func TestDDSMalformedLineIsSkipped(t *testing.T) {
	text := `     A          R ORDREC                    TEXT('Orders')
     A            ORDID          8A         TEXT('Order ID')
     A            CUSTID        10A         COLHDG('Customer' 'ID')
     A            BADFLD        10Q
     A            AMOUNT         9P 2       ALWNULL
     A          K ORDID`

	result, err := Parse(raw("ORDERS.PF", text), core.FormatDDS, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "ORDREC", result.Entity)
	assert.Equal(t, []string{"ORDID", "CUSTID", "AMOUNT"}, fieldNames(result.Fields))
	assert.Equal(t, 3, result.Fields[2].Ordinal)
	assert.Equal(t, "Customer ID", result.Fields[1].Description)

	amount := result.Fields[2].Declared
	require.NotNil(t, amount)
	assert.Equal(t, core.KindDecimal, amount.Kind)
	assert.Equal(t, 9, amount.Length)
	assert.Equal(t, 2, amount.Scale)
	assert.True(t, amount.Nullable)
	assert.Equal(t, 18, result.Fields[2].Offset)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.WarnMalformedDeclaration, result.Warnings[0].Code)
	assert.Equal(t, 4, result.Warnings[0].Line)
}

func TestDDSPackedDecimal(t *testing.T) {
	result, err := Parse(raw("EMPLOYEE.PF", employeeDDS), core.FormatDDS, DefaultOptions())
	require.NoError(t, err)

	salary := result.Fields[4]
	assert.Equal(t, "SALARY", salary.Name)
	assert.Equal(t, "Annual Salary", salary.Description)
	assert.Equal(t, "P", salary.Declared.Code)
	assert.Equal(t, core.KindDecimal, salary.Declared.Kind)
	assert.Equal(t, 2, salary.Declared.Scale)
}

func TestDDSContinuedTextAndUnknownKey(t *testing.T) {
	text := `     A          R ITEMREC
     A            ITEMNO         6S 0       TEXT('Item +
     A                                      number')
     A            ADDED           L         DATFMT(*ISO)
     A          K ITEMCODE`

	result, err := Parse(raw("ITEMS.PF", text), core.FormatDDS, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Fields, 2)
	assert.Equal(t, "Item number", result.Fields[0].Description)
	assert.Equal(t, core.KindInteger, result.Fields[0].Declared.Kind)

	added := result.Fields[1]
	assert.Equal(t, core.KindDate, added.Declared.Kind)
	assert.Equal(t, "date", added.Declared.Format)
	assert.Equal(t, 6, added.Offset)
	assert.Equal(t, 10, added.Length)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.WarnUnknownKey, result.Warnings[0].Code)
}

func TestDDSSecondRecordFormatIgnored(t *testing.T) {
	text := `     A          R FIRST
     A            A1             5A
     A          R SECOND
     A            B1             5A`

	result, err := Parse(raw("MULTI.PF", text), core.FormatDDS, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "FIRST", result.Entity)
	assert.Equal(t, []string{"A1"}, fieldNames(result.Fields))
	assert.True(t, result.Warnings.Has(core.WarnExtraRecordFormat))
}

func TestSQLCreateTable(t *testing.T) {
	result, err := Parse(raw("customer.sql", customerSQL), core.FormatDDS, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "sql", result.Variant)
	assert.Equal(t, "CUSTOMER", result.Entity)
	require.Len(t, result.Fields, 9)

	id := result.Fields[0]
	assert.Equal(t, "CUSTID", id.Name)
	assert.True(t, id.Key)
	assert.False(t, id.Declared.Nullable)
	assert.Equal(t, 10, id.Length)

	assert.False(t, result.Fields[1].Declared.Nullable)
	assert.True(t, result.Fields[2].Declared.Nullable)

	created := result.Fields[7]
	assert.Equal(t, "CREATEDATE", created.Name)
	assert.Equal(t, core.KindDate, created.Declared.Kind)
	assert.Equal(t, "date", created.Declared.Format)
	assert.Empty(t, result.Warnings)
}

func TestSQLScaleSelectsKind(t *testing.T) {
	text := `CREATE TABLE LIB.ORDERS (
    ORDNO DECIMAL(7, 0) NOT NULL PRIMARY KEY,
    TOTAL DECIMAL(11, 2),
    NOTE BLOB,
    CONSTRAINT FK_CUST FOREIGN KEY (CUSTID) REFERENCES CUSTOMER (CUSTID)
)`

	result, err := Parse(raw("orders.sql", text), core.FormatDDS, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "ORDERS", result.Entity)
	assert.Equal(t, []string{"ORDNO", "TOTAL"}, fieldNames(result.Fields))
	assert.Equal(t, core.KindInteger, result.Fields[0].Declared.Kind)
	assert.True(t, result.Fields[0].Key)
	assert.Equal(t, core.KindDecimal, result.Fields[1].Declared.Kind)
	assert.Equal(t, 1, result.Warnings.Count(core.WarnMalformedDeclaration))
}
