// File: internal/store/sink.go
package store

import (
	"context"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/artifacts"
	"github.com/sightline-ai/sightline/internal/perception"
)

// Sink adapts the archive to the artifacts sink contract. Per-step events
// are ignored; the whole run is written once at the end, when the full
// history is known.
type Sink struct {
	store *Store
}

var _ artifacts.Sink = (*Sink)(nil)

func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

func (s *Sink) BeginRun(ctx context.Context, runID, goal string) error {
	return nil
}

func (s *Sink) RecordStep(ctx context.Context, rec *artifacts.StepRecord) error {
	return nil
}

func (s *Sink) FinishRun(ctx context.Context, report *schemas.RunReport, final *perception.Frame) error {
	return s.store.SaveRun(ctx, report)
}
