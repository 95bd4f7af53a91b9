/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: enricher.go
Description: Optional asynchronous enrichment stage. An advisor runs under a strict
timeout and a shared rate limit; whatever happens, the caller gets back a usable entity,
annotated when the advisor answered in time and unchanged otherwise.
*/

package overlay

import (
	"context"
	"fmt"
	"time"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Advisor proposes annotations for one entity. Implementations receive a private copy.
type Advisor interface {
	Name() string
	Advise(ctx context.Context, entity *core.EntitySchema) (*AnnotationSet, error)
}

// Result is the outcome of one enrichment
type Result struct {
	Entity   *core.EntitySchema
	Warnings core.Warnings
}

// Enricher runs an advisor with a timeout and rate limit
type Enricher struct {
	advisor Advisor
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewEnricher creates an enricher. A nil advisor disables enrichment.
func NewEnricher(advisor Advisor, opts Options, logger *logrus.Logger) *Enricher {
	opts = opts.withDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Enricher{
		advisor: advisor,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		logger:  logger,
	}
}

// Enabled reports whether an advisor is configured
func (e *Enricher) Enabled() bool {
	return e != nil && e.advisor != nil
}

// Enrich asks the advisor about entity and merges the answer. On failure or timeout the
// entity comes back unchanged with an OVERLAY_UNAVAILABLE warning.
func (e *Enricher) Enrich(ctx context.Context, entity *core.EntitySchema) (*core.EntitySchema, core.Warnings) {
	if !e.Enabled() {
		return entity.Clone(), nil
	}

	set, err := e.advise(ctx, entity)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"entity":  entity.Name,
			"advisor": e.advisor.Name(),
			"error":   err,
		}).Warn("Overlay unavailable")
		var warnings core.Warnings
		warnings.Add(core.WarnOverlayUnavailable, 0, "", "%s: %v", entity.Name, err)
		return entity.Clone(), warnings
	}

	out, warnings := Apply(entity, set)
	e.logger.WithFields(logrus.Fields{
		"entity":      entity.Name,
		"advisor":     e.advisor.Name(),
		"annotations": len(out.Annotations),
		"warnings":    len(warnings),
	}).Debug("Overlay applied")
	return out, warnings
}

// EnrichAsync runs Enrich in the background. The channel yields exactly one result.
func (e *Enricher) EnrichAsync(ctx context.Context, entity *core.EntitySchema) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		out, warnings := e.Enrich(ctx, entity)
		ch <- Result{Entity: out, Warnings: warnings}
	}()
	return ch
}

// advise waits for the limiter and the advisor within the timeout. The advisor runs in
// its own goroutine so one that ignores cancellation cannot stall the caller.
func (e *Enricher) advise(ctx context.Context, entity *core.EntitySchema) (*AnnotationSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", core.ErrOverlayUnavailable, err)
	}

	type answer struct {
		set *AnnotationSet
		err error
	}
	done := make(chan answer, 1)
	input := entity.Clone()
	go func() {
		set, err := e.advisor.Advise(ctx, input)
		done <- answer{set, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", core.ErrOverlayUnavailable, ctx.Err())
	case a := <-done:
		if a.err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrOverlayUnavailable, a.err)
		}
		return a.set, nil
	}
}
