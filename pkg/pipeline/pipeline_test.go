/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pipeline_test.go
Description: Tests for batch orchestration: per-input outcomes, duplicates, collisions,
hint fallback, linking, segmentation, overlay enrichment and cancellation.
*/

package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/kleascm/as400-modernizer/pkg/config"
	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/overlay"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerDDS = `A                                      UNIQUE
A          R CUSTOMER
A            CUSTID         10A        TEXT('Customer ID')
A            CUSTNAME       30A        TEXT('Customer Name')
A            CITY           20A        TEXT('City')
A            STATUS          1A        TEXT('Status')
A          K CUSTID`

const ordersCSV = "ORDER_ID,CUSTID,AMOUNT\nO1001,CUST001,19.99\nO1002,CUST002,5.00\n"

type recorder struct {
	mu       sync.Mutex
	inputs   []string
	finished int
}

func (r *recorder) OnInputProcessed(outcome *InputOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, outcome.Input)
}

func (r *recorder) OnBatchFinished(report *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
}

type failingAdvisor struct{}

func (failingAdvisor) Name() string { return "failing" }

func (failingAdvisor) Advise(ctx context.Context, entity *core.EntitySchema) (*overlay.AnnotationSet, error) {
	return nil, errors.New("service down")
}

func newPipeline(workers int, advisor overlay.Advisor) *Pipeline {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := config.Default()
	cfg.Workers = workers
	return New(cfg, advisor, logger)
}

func batch() []*core.RawInput {
	return []*core.RawInput{
		core.NewRawInput("customer.pf", []byte(customerDDS), core.FormatDDS),
		core.NewRawInput("orders.csv", []byte(ordersCSV), core.FormatDelimited),
		core.NewRawInput("orders-copy.csv", []byte(ordersCSV), core.FormatDelimited),
		core.NewRawInput("empty.dat", nil, core.FormatUnknown),
	}
}

func entityByName(t *testing.T, report *Report, name string) *core.EntitySchema {
	t.Helper()
	for _, e := range report.Entities {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entity %s not found", name)
	return nil
}

func TestRunBatch(t *testing.T) {
	p := newPipeline(2, nil)
	rec := &recorder{}
	p.AddReporter(rec)

	report, err := p.Run(context.Background(), batch())
	require.NoError(t, err)
	require.Len(t, report.Inputs, 4)

	customer := report.Inputs[0]
	require.NoError(t, customer.Err)
	assert.Equal(t, "CUSTOMER", customer.EntityName)
	assert.Equal(t, core.FormatDDS, customer.Format)
	assert.Nil(t, customer.Detection)

	orders := report.Inputs[1]
	require.NoError(t, orders.Err)
	assert.Equal(t, "ORDERS", orders.EntityName)
	assert.Equal(t, core.FormatDelimited, orders.Format)
	assert.Equal(t, 3, orders.Fields)
	assert.Equal(t, 2, orders.Records)

	dup := report.Inputs[2]
	assert.True(t, dup.Skipped)
	assert.True(t, dup.Warnings.Has(core.WarnDuplicateInput))
	assert.Equal(t, "orders-copy.csv", dup.Warnings[0].Input)
	assert.Nil(t, dup.Entity)

	empty := report.Inputs[3]
	assert.True(t, errors.Is(empty.Err, core.ErrUnrecognizedFormat))
	assert.NotEmpty(t, empty.Error)
	assert.Equal(t, []*InputOutcome{empty}, report.Failures())

	require.Len(t, report.Entities, 2)
	linked := entityByName(t, report, "ORDERS")
	assert.Equal(t, []string{"ORDER_ID"}, linked.PrimaryKey)
	require.Len(t, linked.ForeignKeys, 1)
	fk := linked.ForeignKeys[0]
	assert.Equal(t, "CUSTID", fk.Field)
	assert.Equal(t, "CUSTOMER", fk.References)
	assert.Equal(t, "CUSTID", fk.ReferencedField)
	assert.Greater(t, fk.Confidence, 0.0)
	assert.Empty(t, orders.Entity.ForeignKeys, "outcome keeps the unlinked entity")

	require.Len(t, report.Boundaries, 1)
	assert.Equal(t, "customer-service", report.Boundaries[0].Name)
	assert.ElementsMatch(t, []string{"CUSTOMER", "ORDERS"}, report.Boundaries[0].Entities)

	assert.Equal(t, int64(4), report.Stats.Inputs)
	assert.Equal(t, int64(2), report.Stats.Processed)
	assert.Equal(t, int64(1), report.Stats.Failed)
	assert.Equal(t, int64(1), report.Stats.Skipped)
	assert.Equal(t, int64(len(report.AllWarnings())), report.Stats.Warnings)

	assert.ElementsMatch(t, []string{"customer.pf", "orders.csv", "orders-copy.csv", "empty.dat"}, rec.inputs)
	assert.Equal(t, 1, rec.finished)
}

func TestRunIsIndependentOfWorkerCount(t *testing.T) {
	one, err := newPipeline(1, nil).Run(context.Background(), batch())
	require.NoError(t, err)
	many, err := newPipeline(8, nil).Run(context.Background(), batch())
	require.NoError(t, err)

	assert.Equal(t, one.Entities, many.Entities)
	assert.Equal(t, one.Boundaries, many.Boundaries)
	for i := range one.Inputs {
		assert.Equal(t, one.Inputs[i].EntityName, many.Inputs[i].EntityName)
		assert.Equal(t, one.Inputs[i].Warnings, many.Inputs[i].Warnings)
	}
}

func TestRunRenamesCollidingEntities(t *testing.T) {
	inputs := []*core.RawInput{
		core.NewRawInput("a.pf", []byte(customerDDS), core.FormatDDS),
		core.NewRawInput("b.pf", []byte(customerDDS+"\n"), core.FormatDDS),
	}
	report, err := newPipeline(2, nil).Run(context.Background(), inputs)
	require.NoError(t, err)

	assert.Equal(t, "CUSTOMER", report.Inputs[0].EntityName)
	assert.Equal(t, "CUSTOMER_2", report.Inputs[1].EntityName)
	require.Len(t, report.Entities, 2)
	assert.Equal(t, "CUSTOMER_2", report.Entities[1].Name)
	require.True(t, report.Warnings.Has(core.WarnEntityRenamed))
	assert.Equal(t, "b.pf", report.Warnings[0].Input)
}

func TestRunFallsBackWhenHintFails(t *testing.T) {
	inputs := []*core.RawInput{core.NewRawInput("orders.pf", []byte(ordersCSV), core.FormatDDS)}
	report, err := newPipeline(1, nil).Run(context.Background(), inputs)
	require.NoError(t, err)

	out := report.Inputs[0]
	require.NoError(t, out.Err)
	assert.Equal(t, core.FormatDelimited, out.Format)
	require.NotNil(t, out.Detection)
	assert.Equal(t, core.FormatDelimited, out.Detection.Kind)
	assert.True(t, out.Warnings.Has(core.WarnHintOverridden))
}

func TestRunAppliesOverlay(t *testing.T) {
	advisor, err := overlay.NewFileAdvisor("mapping.yaml", []byte(`
entities:
  CUSTOMER:
    - field: CUSTNAME
      suggested_name: customerName
      description: Customer legal name
      confidence: 0.9
`))
	require.NoError(t, err)

	report, err := newPipeline(2, advisor).Run(context.Background(), batch())
	require.NoError(t, err)

	customer := entityByName(t, report, "CUSTOMER")
	assert.Equal(t, "customerName", customer.Annotations["CUSTNAME"].SuggestedName)
	assert.Equal(t, []string{"CUSTID"}, customer.PrimaryKey)
	assert.Empty(t, report.Warnings)
}

func TestRunSurvivesOverlayFailure(t *testing.T) {
	report, err := newPipeline(2, failingAdvisor{}).Run(context.Background(), batch())
	require.NoError(t, err)

	require.Len(t, report.Entities, 2)
	assert.Equal(t, 2, report.Warnings.Count(core.WarnOverlayUnavailable))
	assert.Len(t, report.Boundaries, 1)
	assert.Empty(t, entityByName(t, report, "CUSTOMER").Annotations)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newPipeline(2, nil).Run(ctx, batch())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, report)
	for i, out := range report.Inputs {
		if i == 2 {
			assert.True(t, out.Skipped)
			continue
		}
		assert.True(t, errors.Is(out.Err, context.Canceled), "input %d", i)
	}
	assert.Empty(t, report.Entities)
}

func TestRunRejectsNilInput(t *testing.T) {
	report, err := newPipeline(1, nil).Run(context.Background(), []*core.RawInput{nil})
	require.NoError(t, err)
	assert.True(t, errors.Is(report.Inputs[0].Err, core.ErrInvalidInput))
	assert.Empty(t, report.Boundaries)
}

func TestEntityName(t *testing.T) {
	assert.Equal(t, "CUSTREC", EntityName(" CUSTREC ", "cust.pf"))
	assert.Equal(t, "CUST_MASTER", EntityName("", "cust master.csv"))
	assert.Equal(t, "ORDERS_2024", EntityName("", "orders-2024.dat"))
	assert.Equal(t, "ENTITY", EntityName("", "---.txt"))
}
