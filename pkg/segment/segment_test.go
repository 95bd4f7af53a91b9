/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: segment_test.go
Description: Tests for service boundary proposals.
*/

package segment

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// node builds an entity with the given field names that references each target once
func node(name string, fields []string, targets ...string) *core.EntitySchema {
	e := &core.EntitySchema{Name: name, Source: core.FormatDDS}
	for i, f := range fields {
		e.Fields = append(e.Fields, core.FieldDescriptor{
			Name:    f,
			Ordinal: i + 1,
			Type:    &core.InferredType{Kind: core.KindString},
		})
	}
	for _, t := range targets {
		e.ForeignKeys = append(e.ForeignKeys, core.ForeignKey{
			Field:           t + "_ID",
			References:      t,
			ReferencedField: "ID",
			Confidence:      1,
		})
	}
	return e
}

func assertPartition(t *testing.T, entities []*core.EntitySchema, boundaries []core.ServiceBoundary) {
	t.Helper()
	var want, got []string
	for _, e := range entities {
		want = append(want, e.Name)
	}
	for _, b := range boundaries {
		assert.NotEmpty(t, b.Entities, "boundary %s is empty", b.Name)
		got = append(got, b.Entities...)
	}
	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func ownerOf(boundaries []core.ServiceBoundary, entity string) string {
	for _, b := range boundaries {
		if b.Owns(entity) {
			return b.Name
		}
	}
	return ""
}

func TestSegmentCustomerAndOrder(t *testing.T) {
	entities := []*core.EntitySchema{
		node("Customer", []string{"CustID", "Name"}),
		node("Order", []string{"OrderID", "CustID"}, "Customer"),
	}

	boundaries, err := NewSegmenter(DefaultOptions(), quietLogger()).Segment(entities)
	require.NoError(t, err)

	require.Len(t, boundaries, 1)
	assert.Equal(t, "customer-service", boundaries[0].Name)
	assert.Equal(t, []string{"Customer", "Order"}, boundaries[0].Entities)
	assert.Empty(t, boundaries[0].References)
}

func TestSegmentSplitsWhenSizeExceeded(t *testing.T) {
	entities := []*core.EntitySchema{
		node("Customer", []string{"CustID", "Name"}),
		node("Order", []string{"OrderID", "CustID"}, "Customer"),
	}

	boundaries, err := NewSegmenter(Options{MaxBoundarySize: 1, PrefixWeight: 0.5}, quietLogger()).Segment(entities)
	require.NoError(t, err)

	require.Len(t, boundaries, 2)
	assert.Equal(t, "customer-service", boundaries[0].Name)
	assert.Equal(t, "order-service", boundaries[1].Name)
	assert.Equal(t, []core.CrossReference{{
		Entity:         "Order",
		Field:          "Customer_ID",
		Target:         "Customer",
		TargetBoundary: "customer-service",
	}}, boundaries[1].References)
	assertPartition(t, entities, boundaries)
}

func TestSegmentUnrelatedEntitiesAreSingletons(t *testing.T) {
	entities := []*core.EntitySchema{
		node("Vendor", []string{"VNID"}),
		node("Item", []string{"ITID"}),
		node("Ledger", []string{"LGID"}, "External"),
	}

	boundaries, err := NewSegmenter(DefaultOptions(), quietLogger()).Segment(entities)
	require.NoError(t, err)

	require.Len(t, boundaries, 3)
	assert.Equal(t, []string{"item-service", "ledger-service", "vendor-service"},
		[]string{boundaries[0].Name, boundaries[1].Name, boundaries[2].Name})
	assertPartition(t, entities, boundaries)
}

func TestSegmentSplitsLargeComponentAlongClusters(t *testing.T) {
	// two dense clusters with distinct field prefixes joined by one bridge
	ar := []string{"AR_ID", "AR_AMT"}
	inv := []string{"IV_ID", "IV_QTY"}
	entities := []*core.EntitySchema{
		node("ArA", ar, "ArB", "ArC", "ArD"),
		node("ArB", ar, "ArC", "ArD"),
		node("ArC", ar, "ArD"),
		node("ArD", ar, "InvA"),
		node("InvA", inv, "InvB", "InvC", "InvD"),
		node("InvB", inv, "InvC", "InvD"),
		node("InvC", inv, "InvD"),
		node("InvD", inv),
	}

	boundaries, err := NewSegmenter(Options{MaxBoundarySize: 5, PrefixWeight: 0.5}, quietLogger()).Segment(entities)
	require.NoError(t, err)

	assertPartition(t, entities, boundaries)
	require.Len(t, boundaries, 2)
	for _, b := range boundaries {
		assert.LessOrEqual(t, len(b.Entities), 5)
	}
	ar1 := ownerOf(boundaries, "ArA")
	for _, n := range []string{"ArB", "ArC", "ArD"} {
		assert.Equal(t, ar1, ownerOf(boundaries, n))
	}
	inv1 := ownerOf(boundaries, "InvA")
	assert.NotEqual(t, ar1, inv1)
	for _, n := range []string{"InvB", "InvC", "InvD"} {
		assert.Equal(t, inv1, ownerOf(boundaries, n))
	}

	var crossing []core.CrossReference
	for _, b := range boundaries {
		crossing = append(crossing, b.References...)
	}
	require.Len(t, crossing, 1)
	assert.Equal(t, "ArD", crossing[0].Entity)
	assert.Equal(t, "InvA", crossing[0].Target)
}

func TestSegmentToleratesCycles(t *testing.T) {
	entities := []*core.EntitySchema{
		node("Employee", []string{"EmpID"}, "Dept"),
		node("Dept", []string{"DeptID"}, "Employee"),
		node("Project", []string{"PrjID"}, "Dept", "Project"),
	}

	boundaries, err := NewSegmenter(DefaultOptions(), quietLogger()).Segment(entities)
	require.NoError(t, err)
	require.Len(t, boundaries, 1)
	assert.Equal(t, "dept-service", boundaries[0].Name)
	assertPartition(t, entities, boundaries)
}

func TestSegmentIsDeterministic(t *testing.T) {
	build := func() []*core.EntitySchema {
		var entities []*core.EntitySchema
		for i := 0; i < 12; i++ {
			var targets []string
			if i > 0 {
				targets = append(targets, fmt.Sprintf("E%02d", i-1))
			}
			if i%3 == 0 && i+2 < 12 {
				targets = append(targets, fmt.Sprintf("E%02d", i+2))
			}
			entities = append(entities, node(fmt.Sprintf("E%02d", i), []string{fmt.Sprintf("F%d_ID", i%4)}, targets...))
		}
		return entities
	}

	seg := NewSegmenter(Options{MaxBoundarySize: 4, PrefixWeight: 0.5}, quietLogger())
	first, err := seg.Segment(build())
	require.NoError(t, err)

	reversed := build()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	second, err := seg.Segment(reversed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assertPartition(t, build(), first)
	for _, b := range first {
		assert.LessOrEqual(t, len(b.Entities), 4)
	}
}

func TestSegmentRejectsDuplicates(t *testing.T) {
	_, err := NewSegmenter(DefaultOptions(), quietLogger()).Segment([]*core.EntitySchema{
		node("Customer", nil), node("customer", nil),
	})
	assert.True(t, errors.Is(err, core.ErrDuplicateEntity))

	_, err = NewSegmenter(DefaultOptions(), quietLogger()).Segment([]*core.EntitySchema{nil})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	boundaries, err := NewSegmenter(DefaultOptions(), quietLogger()).Segment(nil)
	require.NoError(t, err)
	assert.Empty(t, boundaries)
}

func TestFieldPrefix(t *testing.T) {
	assert.Equal(t, "CUST", fieldPrefix("CUST_NAME"))
	assert.Equal(t, "CS", fieldPrefix("CSNAME"))
	assert.Equal(t, "ID", fieldPrefix("ID"))
	assert.Equal(t, "", fieldPrefix("__"))
	assert.InDelta(t, 1.0/3.0, jaccard(map[string]bool{"A": true, "B": true}, map[string]bool{"B": true, "C": true}), 1e-9)
}
