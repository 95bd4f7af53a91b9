/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter hooks notified as inputs finish and when a batch completes.
*/

package pipeline

import (
	"github.com/kleascm/as400-modernizer/pkg/logging"
	"github.com/sirupsen/logrus"
)

// Reporter receives pipeline events. OnInputProcessed may be called from several
// workers at once.
type Reporter interface {
	// OnInputProcessed is called once per input, including failed and skipped ones
	OnInputProcessed(outcome *InputOutcome)
	// OnBatchFinished is called after linking, enrichment and segmentation
	OnBatchFinished(report *Report)
}

// LoggerReporter logs pipeline events through the modernizer logger
type LoggerReporter struct {
	logger *logging.Logger
}

// NewLoggerReporter creates a new LoggerReporter
func NewLoggerReporter(logger *logging.Logger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnInputProcessed logs detection, parse results and every input warning
func (r *LoggerReporter) OnInputProcessed(outcome *InputOutcome) {
	if outcome.Detection != nil {
		r.logger.LogDetection(outcome.Input, outcome.Detection.Kind, outcome.Detection.Confidence, outcome.Detection.Signature)
	}
	switch {
	case outcome.Err != nil:
		r.logger.GetLogger().WithFields(logrus.Fields{
			"input": outcome.Input,
			"error": outcome.Err.Error(),
		}).Error("Input failed")
	case outcome.Skipped:
		r.logger.GetLogger().WithField("input", outcome.Input).Info("Input skipped")
	default:
		r.logger.LogParse(outcome.Input, outcome.Format, outcome.Fields, outcome.Records, outcome.Duration)
	}
	r.logger.LogWarnings(outcome.Warnings)
}

// OnBatchFinished logs batch-level warnings and the summary
func (r *LoggerReporter) OnBatchFinished(report *Report) {
	r.logger.LogWarnings(report.Warnings)
	r.logger.LogSummary(
		int(report.Stats.Inputs),
		len(report.Entities),
		len(report.Boundaries),
		int(report.Stats.Failed),
		int(report.Stats.Warnings),
	)
}
