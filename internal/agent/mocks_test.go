// File: internal/agent/mocks_test.go
package agent

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/artifacts"
	"github.com/sightline-ai/sightline/internal/perception"
)

type mockPerceiver struct {
	mock.Mock
}

var _ Perceiver = (*mockPerceiver)(nil)

func (m *mockPerceiver) Capture(ctx context.Context) (*perception.Frame, error) {
	args := m.Called(ctx)
	if f := args.Get(0); f != nil {
		return f.(*perception.Frame), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPlanner struct {
	mock.Mock
}

var _ Planner = (*mockPlanner)(nil)

func (m *mockPlanner) Plan(ctx context.Context, goal string, history schemas.History, state *schemas.ScreenState, platformHint string) (*schemas.ActionPlan, error) {
	args := m.Called(ctx, goal, history, state, platformHint)
	if p := args.Get(0); p != nil {
		return p.(*schemas.ActionPlan), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExecutor struct {
	mock.Mock
}

var _ Executor = (*mockExecutor)(nil)

func (m *mockExecutor) Execute(ctx context.Context, plan *schemas.ActionPlan, frame *perception.Frame) (*schemas.InteractionResult, error) {
	args := m.Called(ctx, plan, frame)
	if r := args.Get(0); r != nil {
		return r.(*schemas.InteractionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// recordingSink captures the event stream for assertions.
type recordingSink struct {
	mu        sync.Mutex
	beginIDs  []string
	steps     []*artifacts.StepRecord
	reports   []*schemas.RunReport
	beginErr  error
	stepErr   error
	finishErr error
}

var _ artifacts.Sink = (*recordingSink)(nil)

func (r *recordingSink) BeginRun(ctx context.Context, runID, goal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginIDs = append(r.beginIDs, runID)
	return r.beginErr
}

func (r *recordingSink) RecordStep(ctx context.Context, rec *artifacts.StepRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, rec)
	return r.stepErr
}

func (r *recordingSink) FinishRun(ctx context.Context, report *schemas.RunReport, final *perception.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.finishErr
}
