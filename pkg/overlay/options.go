/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: options.go
Description: Overlay providers and their construction from configuration.
*/

package overlay

import (
	"context"
	"fmt"
	"time"
)

// Providers
const (
	ProviderOpenAI = "openai"
	ProviderFile   = "file"
)

// Options configures the overlay
type Options struct {
	Provider    string        // "", ProviderOpenAI or ProviderFile
	Endpoint    string        // Chat completions URL
	Model       string        // Model name sent to the endpoint
	APIKey      string        // Bearer token
	File        string        // Annotation file URL or path
	Timeout     time.Duration // Bound on one enrichment
	RatePerSec  float64       // Sustained advisor requests per second
	Burst       int           // Requests allowed at once
	Temperature float64       // Sampling temperature
}

// DefaultOptions returns the documented overlay defaults with no provider
func DefaultOptions() Options {
	return Options{
		Endpoint:    DefaultEndpoint,
		Model:       DefaultModel,
		Timeout:     10 * time.Second,
		RatePerSec:  2,
		Burst:       1,
		Temperature: 0.1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Endpoint == "" {
		o.Endpoint = d.Endpoint
	}
	if o.Model == "" {
		o.Model = d.Model
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = d.RatePerSec
	}
	if o.Burst < 1 {
		o.Burst = d.Burst
	}
	return o
}

// NewAdvisor builds the configured advisor. An empty provider returns nil, which leaves
// the overlay disabled.
func NewAdvisor(ctx context.Context, opts Options) (Advisor, error) {
	opts = opts.withDefaults()
	switch opts.Provider {
	case "":
		return nil, nil
	case ProviderOpenAI:
		a, err := NewOpenAIAdvisor(opts)
		if err != nil {
			return nil, err
		}
		return a, nil
	case ProviderFile:
		a, err := LoadFileAdvisor(ctx, opts.File)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown overlay provider: %s", opts.Provider)
	}
}
