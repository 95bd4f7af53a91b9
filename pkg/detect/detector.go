/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: detector.go
Description: Format detector. Scores a sample of the input against every parser signature
in fixed priority order and returns the best format with its confidence. Equal scores
resolve to the earlier signature, so detection is reproducible for identical input.
*/

package detect

import (
	"fmt"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/parsers"
	"github.com/sirupsen/logrus"
)

// Options controls detection
type Options struct {
	MinConfidence float64 // Scores below this are rejected
	SampleLines   int     // Non-blank lines scored
}

// DefaultOptions returns the documented detection defaults
func DefaultOptions() Options {
	return Options{
		MinConfidence: 0.5,
		SampleLines:   50,
	}
}

// Score is the confidence one signature assigned to an input
type Score struct {
	Signature  string          `json:"signature"`
	Kind       core.FormatKind `json:"kind"`
	Priority   int             `json:"priority"`
	Confidence float64         `json:"confidence"`
}

// Detection is the outcome of a successful detection
type Detection struct {
	Kind       core.FormatKind `json:"kind"`
	Confidence float64         `json:"confidence"`
	Signature  string          `json:"signature"`
	Scores     []Score         `json:"scores"`
}

// Detector classifies raw inputs
type Detector struct {
	opts       Options
	signatures []parsers.Signature
	logger     *logrus.Logger
}

// NewDetector creates a detector over the registered parser signatures
func NewDetector(opts Options, logger *logrus.Logger) *Detector {
	d := DefaultOptions()
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = d.MinConfidence
	}
	if opts.SampleLines <= 0 {
		opts.SampleLines = d.SampleLines
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Detector{
		opts:       opts,
		signatures: parsers.Signatures(),
		logger:     logger,
	}
}

// Detect returns the detected format or an UnrecognizedFormat input error
func (d *Detector) Detect(in *core.RawInput) (*Detection, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil input", core.ErrInvalidInput)
	}

	var sample []string
	firstLine := 0
	for i, l := range in.Lines() {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if firstLine == 0 {
			firstLine = i + 1
		}
		sample = append(sample, l)
		if len(sample) == d.opts.SampleLines {
			break
		}
	}
	if len(sample) == 0 {
		return nil, core.NewInputError(core.ErrUnrecognizedFormat, in, 0, "input is empty")
	}

	scoreOpts := parsers.DefaultOptions()
	scoreOpts.SampleSize = d.opts.SampleLines

	result := &Detection{}
	best := -1
	for _, sig := range d.signatures {
		confidence := clamp(sig.Score(sample, scoreOpts))
		result.Scores = append(result.Scores, Score{
			Signature:  sig.Name,
			Kind:       sig.Kind,
			Priority:   sig.Priority,
			Confidence: confidence,
		})
		// strictly greater keeps the earlier signature on ties
		if best < 0 || confidence > result.Scores[best].Confidence {
			best = len(result.Scores) - 1
		}
	}

	if best < 0 || result.Scores[best].Confidence < d.opts.MinConfidence {
		detail := "no parser signatures registered"
		if best >= 0 {
			detail = fmt.Sprintf("best signature %s scored %.2f, below %.2f",
				result.Scores[best].Signature, result.Scores[best].Confidence, d.opts.MinConfidence)
		}
		return nil, core.NewInputError(core.ErrUnrecognizedFormat, in, firstLine, detail)
	}

	winner := result.Scores[best]
	result.Kind = winner.Kind
	result.Confidence = winner.Confidence
	result.Signature = winner.Signature

	d.logger.WithFields(logrus.Fields{
		"input":      in.Name,
		"format":     result.Kind,
		"confidence": fmt.Sprintf("%.2f", result.Confidence),
		"signature":  result.Signature,
	}).Debug("Format detected")
	return result, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
