/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pipeline.go
Description: Batch orchestration. Each input is detected, parsed, typed and synthesized
on a pool of workers; entities are then linked, optionally enriched by the overlay and
grouped into service boundaries.
*/

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kleascm/as400-modernizer/pkg/config"
	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/detect"
	"github.com/kleascm/as400-modernizer/pkg/inference"
	"github.com/kleascm/as400-modernizer/pkg/overlay"
	"github.com/kleascm/as400-modernizer/pkg/parsers"
	"github.com/kleascm/as400-modernizer/pkg/schema"
	"github.com/kleascm/as400-modernizer/pkg/segment"
	"github.com/sirupsen/logrus"
)

// InputOutcome is the result of processing one input
type InputOutcome struct {
	Input       string             `json:"input"`
	ID          string             `json:"id"`
	Fingerprint string             `json:"fingerprint"`
	Format      core.FormatKind    `json:"format,omitempty"`
	Variant     string             `json:"variant,omitempty"`
	Detection   *detect.Detection  `json:"detection,omitempty"`
	EntityName  string             `json:"entity,omitempty"`
	Fields      int                `json:"fields"`
	Records     int                `json:"records"`
	Skipped     bool               `json:"skipped,omitempty"`
	Error       string             `json:"error,omitempty"`
	Warnings    core.Warnings      `json:"warnings,omitempty"`
	Duration    time.Duration      `json:"duration"`
	Entity      *core.EntitySchema `json:"-"` // Unlinked entity, nil on failure
	Result      *parsers.Result    `json:"-"` // Structural parse result with typed fields
	Err         error              `json:"-"`
}

func (o *InputOutcome) fail(err error) *InputOutcome {
	o.Err = err
	o.Error = err.Error()
	return o
}

// Report is the result of a batch. Warnings holds batch-level warnings; per-input
// warnings stay on their outcome.
type Report struct {
	Inputs     []*InputOutcome        `json:"inputs"`
	Entities   []*core.EntitySchema   `json:"entities"`
	Boundaries []core.ServiceBoundary `json:"boundaries"`
	Warnings   core.Warnings          `json:"warnings,omitempty"`
	Stats      Stats                  `json:"stats"`
}

// AllWarnings returns per-input warnings in input order followed by batch warnings
func (r *Report) AllWarnings() core.Warnings {
	var all core.Warnings
	for _, o := range r.Inputs {
		all.Extend(o.Warnings)
	}
	all.Extend(r.Warnings)
	return all
}

// Failures returns the outcomes of inputs rejected with a fatal error
func (r *Report) Failures() []*InputOutcome {
	var failed []*InputOutcome
	for _, o := range r.Inputs {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Pipeline runs batches of inputs through every stage
type Pipeline struct {
	workers     int
	parseOpts   parsers.Options
	detector    *detect.Detector
	inferencer  *inference.Inferencer
	synthesizer *schema.Synthesizer
	segmenter   *segment.Segmenter
	enricher    *overlay.Enricher
	reporters   []Reporter
	logger      *logrus.Logger
}

// New creates a pipeline from a validated configuration. advisor may be nil, in which
// case the overlay stage is skipped.
func New(cfg *config.Config, advisor overlay.Advisor, logger *logrus.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		workers:     workers,
		parseOpts:   cfg.ParseOptions(),
		detector:    detect.NewDetector(cfg.DetectOptions(), logger),
		inferencer:  inference.NewInferencer(cfg.InferenceOptions()),
		synthesizer: schema.NewSynthesizer(cfg.SchemaOptions(), logger),
		segmenter:   segment.NewSegmenter(cfg.SegmentOptions(), logger),
		enricher:    overlay.NewEnricher(advisor, cfg.OverlayOptions(), logger),
		logger:      logger,
	}
}

// AddReporter registers a reporter for pipeline events
func (p *Pipeline) AddReporter(r Reporter) {
	p.reporters = append(p.reporters, r)
}

// Run processes a batch. Per-input failures are recorded on their outcome and do not
// stop the batch. The returned error is non-nil only when the batch as a whole could
// not finish, such as on cancellation; the partial report is still returned.
func (p *Pipeline) Run(ctx context.Context, inputs []*core.RawInput) (*Report, error) {
	stats := &Stats{Inputs: int64(len(inputs)), StartTime: time.Now()}
	outcomes := make([]*InputOutcome, len(inputs))

	pending := p.deduplicate(inputs, outcomes, stats)
	err := p.process(ctx, inputs, pending, outcomes, stats)

	report := &Report{Inputs: outcomes}
	if err != nil {
		report.Stats = stats.Snapshot()
		return report, err
	}

	report.Warnings = renameCollisions(outcomes)
	stats.AddWarnings(len(report.Warnings))

	var entities []*core.EntitySchema
	for _, o := range outcomes {
		if o.Entity != nil {
			entities = append(entities, o.Entity)
		}
	}

	linked, err := p.synthesizer.Link(entities)
	if err != nil {
		report.Stats = stats.Snapshot()
		return report, fmt.Errorf("failed to link entities: %w", err)
	}

	// enrichment runs alongside segmentation; the overlay never touches keys
	pendingOverlay := make([]<-chan overlay.Result, len(linked))
	if p.enricher.Enabled() {
		for i, e := range linked {
			pendingOverlay[i] = p.enricher.EnrichAsync(ctx, e)
		}
	}

	boundaries, err := p.segmenter.Segment(linked)
	if err != nil {
		report.Stats = stats.Snapshot()
		return report, fmt.Errorf("failed to segment entities: %w", err)
	}

	for i, ch := range pendingOverlay {
		if ch == nil {
			continue
		}
		res := <-ch
		linked[i] = res.Entity
		ws := res.Warnings.WithInput(res.Entity.Name)
		report.Warnings.Extend(ws)
		stats.AddWarnings(len(ws))
	}

	report.Entities = linked
	report.Boundaries = boundaries
	report.Stats = stats.Snapshot()

	for _, r := range p.reporters {
		r.OnBatchFinished(report)
	}
	return report, nil
}

// deduplicate fills outcomes for nil and duplicate inputs and returns the indexes left
// to process. The first input with given content wins.
func (p *Pipeline) deduplicate(inputs []*core.RawInput, outcomes []*InputOutcome, stats *Stats) []int {
	var pending []int
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		if in == nil {
			outcomes[i] = (&InputOutcome{}).fail(fmt.Errorf("%w: nil input at position %d", core.ErrInvalidInput, i))
			stats.IncrementFailed()
			p.notify(outcomes[i])
			continue
		}
		fp := in.Fingerprint()
		if first, ok := seen[fp]; ok {
			out := &InputOutcome{Input: in.Name, ID: in.ID, Fingerprint: fp, Skipped: true}
			out.Warnings.Add(core.WarnDuplicateInput, 0, "", "content identical to %s; skipped", first)
			out.Warnings = out.Warnings.WithInput(in.Name)
			outcomes[i] = out
			stats.IncrementSkipped()
			stats.AddWarnings(len(out.Warnings))
			p.notify(out)
			continue
		}
		seen[fp] = in.Name
		pending = append(pending, i)
	}
	return pending
}

// process runs pending inputs on the worker pool
func (p *Pipeline) process(ctx context.Context, inputs []*core.RawInput, pending []int, outcomes []*InputOutcome, stats *Stats) error {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out := p.ProcessInput(ctx, inputs[i])
				if out.Err != nil {
					stats.IncrementFailed()
				} else {
					stats.IncrementProcessed()
				}
				stats.AddWarnings(len(out.Warnings))
				outcomes[i] = out
				p.notify(out)
			}
		}()
	}

dispatch:
	for _, i := range pending {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for _, i := range pending {
			if outcomes[i] == nil {
				in := inputs[i]
				outcomes[i] = (&InputOutcome{Input: in.Name, ID: in.ID, Fingerprint: in.Fingerprint()}).fail(err)
			}
		}
		return fmt.Errorf("batch cancelled: %w", err)
	}
	return nil
}

func (p *Pipeline) notify(out *InputOutcome) {
	for _, r := range p.reporters {
		r.OnInputProcessed(out)
	}
}

// ProcessInput detects, parses, types and synthesizes one input. The entity it returns
// is not linked to other entities.
func (p *Pipeline) ProcessInput(ctx context.Context, in *core.RawInput) *InputOutcome {
	if in == nil {
		return (&InputOutcome{}).fail(fmt.Errorf("%w: nil input", core.ErrInvalidInput))
	}
	start := time.Now()
	out := &InputOutcome{Input: in.Name, ID: in.ID, Fingerprint: in.Fingerprint()}
	defer func() { out.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		return out.fail(err)
	}

	result, detection, warnings, err := p.parse(in)
	out.Detection = detection
	if err != nil {
		out.Warnings = warnings.WithInput(in.Name)
		return out.fail(err)
	}
	out.Format = result.Kind
	out.Variant = result.Variant
	out.Fields = len(result.Fields)
	out.Records = len(result.Records)
	warnings.Extend(result.Warnings)

	if err := ctx.Err(); err != nil {
		out.Warnings = warnings.WithInput(in.Name)
		return out.fail(err)
	}

	result.Fields = p.inferencer.InferAll(result.Fields, result.Records)
	out.Result = result

	entity, synthWarnings, err := p.synthesizer.Synthesize(EntityName(result.Entity, in.Name), result.Kind, result.Fields, result.Records)
	warnings.Extend(synthWarnings)
	out.Warnings = warnings.WithInput(in.Name)
	if err != nil {
		return out.fail(err)
	}
	out.Entity = entity
	out.EntityName = entity.Name
	return out
}

// parse honours the input hint first. A hint that fails to parse falls back to detection
// and the override is reported.
func (p *Pipeline) parse(in *core.RawInput) (*parsers.Result, *detect.Detection, core.Warnings, error) {
	var warnings core.Warnings
	var hintErr error
	if in.Hint != core.FormatUnknown {
		result, err := parsers.Parse(in, in.Hint, p.parseOpts)
		switch {
		case err != nil:
			hintErr = err
		case len(result.Fields) == 0:
			hintErr = fmt.Errorf("%w: %s parser found no fields in %s", core.ErrIncompleteDescriptor, in.Hint, in.Name)
		default:
			return result, nil, nil, nil
		}
	}

	detection, err := p.detector.Detect(in)
	if err != nil {
		if hintErr != nil {
			return nil, nil, nil, hintErr
		}
		return nil, nil, nil, err
	}
	if hintErr != nil {
		if detection.Kind == in.Hint {
			return nil, detection, nil, hintErr
		}
		warnings.Add(core.WarnHintOverridden, 0, "", "hint %s failed (%v); parsed as detected %s", in.Hint, rootCause(hintErr), detection.Kind)
	}

	result, err := parsers.Parse(in, detection.Kind, p.parseOpts)
	if err != nil {
		return nil, detection, warnings, err
	}
	return result, detection, warnings, nil
}

// rootCause returns the sentinel behind an input error for short messages
func rootCause(err error) error {
	var inputErr *core.InputError
	if errors.As(err, &inputErr) && inputErr.Kind != nil {
		return inputErr.Kind
	}
	return err
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]+`)

// EntityName returns the declared entity name, or one derived from the input name
// ("cust master.csv" becomes CUST_MASTER)
func EntityName(declared, input string) string {
	if strings.TrimSpace(declared) != "" {
		return strings.TrimSpace(declared)
	}
	base := strings.TrimSuffix(input, path.Ext(input))
	name := strings.Trim(nonAlphanumeric.ReplaceAllString(strings.ToUpper(base), "_"), "_")
	if name == "" {
		return "ENTITY"
	}
	return name
}

// renameCollisions gives entities with clashing names a numeric suffix, in input order.
// The warnings are batch-level since outcomes have already been reported.
func renameCollisions(outcomes []*InputOutcome) core.Warnings {
	var warnings core.Warnings
	used := make(map[string]bool)
	for _, o := range outcomes {
		if o == nil || o.Entity == nil {
			continue
		}
		name := o.Entity.Name
		if used[strings.ToUpper(name)] {
			n := 2
			for used[strings.ToUpper(fmt.Sprintf("%s_%d", name, n))] {
				n++
			}
			renamed := fmt.Sprintf("%s_%d", name, n)
			var ws core.Warnings
			ws.Add(core.WarnEntityRenamed, 0, "", "entity %s already defined by an earlier input; renamed to %s", name, renamed)
			warnings.Extend(ws.WithInput(o.Input))
			o.Entity.Name = renamed
			o.EntityName = renamed
			name = renamed
		}
		used[strings.ToUpper(name)] = true
	}
	return warnings
}
