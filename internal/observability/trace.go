package observability

import (
	"time"

	"wallet-recon/internal/domain"
)

// TraceCollector records per-stage timings for one report request. It is
// request-scoped and not safe for concurrent use.
type TraceCollector struct {
	steps []domain.TraceStep
}

// NewTraceCollector creates an empty trace.
func NewTraceCollector() *TraceCollector {
	return &TraceCollector{}
}

// Step runs fn and records its duration and outcome. On failure the step
// detail carries the error text and the error is returned unchanged.
func (t *TraceCollector) Step(name, detail string, fn func() error) error {
	started := time.Now()
	err := fn()
	step := domain.TraceStep{
		Step:       name,
		DurationMS: time.Since(started).Milliseconds(),
		OK:         err == nil,
		Detail:     detail,
	}
	if err != nil {
		step.Detail = err.Error()
	}
	t.steps = append(t.steps, step)
	return err
}

// Steps returns the recorded steps in execution order.
func (t *TraceCollector) Steps() []domain.TraceStep {
	return t.steps
}
