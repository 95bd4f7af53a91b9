/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Batch counters updated atomically by pipeline workers.
*/

package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats tracks batch progress. Counters are safe for concurrent use.
type Stats struct {
	Inputs    int64         `json:"inputs"`    // Inputs submitted
	Processed int64         `json:"processed"` // Inputs that produced an entity
	Failed    int64         `json:"failed"`    // Inputs rejected with a fatal error
	Skipped   int64         `json:"skipped"`   // Duplicate inputs skipped
	Warnings  int64         `json:"warnings"`  // Warnings from every stage
	StartTime time.Time     `json:"start_time"`
	Elapsed   time.Duration `json:"elapsed"`
}

// IncrementProcessed atomically increments the processed counter
func (s *Stats) IncrementProcessed() {
	atomic.AddInt64(&s.Processed, 1)
}

// IncrementFailed atomically increments the failure counter
func (s *Stats) IncrementFailed() {
	atomic.AddInt64(&s.Failed, 1)
}

// IncrementSkipped atomically increments the skipped counter
func (s *Stats) IncrementSkipped() {
	atomic.AddInt64(&s.Skipped, 1)
}

// AddWarnings atomically adds n warnings
func (s *Stats) AddWarnings(n int) {
	atomic.AddInt64(&s.Warnings, int64(n))
}

// Snapshot returns a consistent copy of the counters
func (s *Stats) Snapshot() Stats {
	return Stats{
		Inputs:    atomic.LoadInt64(&s.Inputs),
		Processed: atomic.LoadInt64(&s.Processed),
		Failed:    atomic.LoadInt64(&s.Failed),
		Skipped:   atomic.LoadInt64(&s.Skipped),
		Warnings:  atomic.LoadInt64(&s.Warnings),
		StartTime: s.StartTime,
		Elapsed:   time.Since(s.StartTime),
	}
}
