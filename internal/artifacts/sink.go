// File: internal/artifacts/sink.go
package artifacts

import (
	"context"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/perception"
)

// StepRecord is everything a sink may persist about one completed step. The
// frame is the snapshot the step acted on, not the state it produced.
type StepRecord struct {
	Step    int                        `json:"step"`
	Frame   *perception.Frame          `json:"-"`
	Plan    *schemas.ActionPlan        `json:"plan,omitempty"`
	Result  *schemas.InteractionResult `json:"result,omitempty"`
	Summary string                     `json:"summary"`
	Success bool                       `json:"success"`
}

// Sink receives run lifecycle events. Implementations must tolerate a
// FinishRun with a nil final frame (the run may have died before perceiving)
// and must not assume RecordStep is called for every step.
type Sink interface {
	BeginRun(ctx context.Context, runID, goal string) error
	RecordStep(ctx context.Context, rec *StepRecord) error
	FinishRun(ctx context.Context, report *schemas.RunReport, final *perception.Frame) error
}

// MultiSink fans events out to several sinks, keeping going past individual
// failures and returning the first error encountered.
type MultiSink []Sink

var _ Sink = (MultiSink)(nil)

func (m MultiSink) BeginRun(ctx context.Context, runID, goal string) error {
	var first error
	for _, s := range m {
		if err := s.BeginRun(ctx, runID, goal); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) RecordStep(ctx context.Context, rec *StepRecord) error {
	var first error
	for _, s := range m {
		if err := s.RecordStep(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) FinishRun(ctx context.Context, report *schemas.RunReport, final *perception.Frame) error {
	var first error
	for _, s := range m {
		if err := s.FinishRun(ctx, report, final); err != nil && first == nil {
			first = err
		}
	}
	return first
}
