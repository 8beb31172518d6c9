// File: internal/agent/agent.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/artifacts"
	"github.com/sightline-ai/sightline/internal/executor"
	"github.com/sightline-ai/sightline/internal/perception"
	"github.com/sightline-ai/sightline/internal/planner"
)

// Agent drives one goal to completion. It owns no I/O itself; perception,
// planning, execution and artifact persistence are all injected.
type Agent struct {
	perceiver Perceiver
	planner   Planner
	executor  Executor
	sink      artifacts.Sink // may be nil
	opts      Options
	logger    *zap.Logger
}

// New assembles an agent. sink may be nil to disable artifact persistence.
func New(perceiver Perceiver, planner Planner, executor Executor, sink artifacts.Sink, opts Options, logger *zap.Logger) *Agent {
	return &Agent{
		perceiver: perceiver,
		planner:   planner,
		executor:  executor,
		sink:      sink,
		opts:      opts.withDefaults(),
		logger:    logger.Named("agent"),
	}
}

// Run executes the loop for the goal until it completes, fails, or the step
// budget runs out. The returned report is always non-nil and always states
// an outcome, even when err is non-nil.
func (a *Agent) Run(ctx context.Context, goal string) (*schemas.RunReport, error) {
	report := &schemas.RunReport{
		RunID:     uuid.NewString(),
		Goal:      goal,
		StartedAt: time.Now().UTC(),
	}
	a.logger.Info("Run starting",
		zap.String("run_id", report.RunID),
		zap.String("goal", goal),
		zap.Int("max_steps", a.opts.MaxSteps))

	if a.sink != nil {
		if err := a.sink.BeginRun(ctx, report.RunID, goal); err != nil {
			a.logger.Warn("Artifact sink failed to begin run, continuing without it", zap.Error(err))
			a.sink = nil
		}
	}

	err := a.loop(ctx, goal, report)

	report.Steps = len(report.History)
	report.FinishedAt = time.Now().UTC()

	// The post-run snapshot is best effort: it feeds the final artifacts but
	// never changes the outcome.
	var final *perception.Frame
	if frame, perr := a.perceiver.Capture(ctx); perr == nil {
		final = frame
	} else {
		a.logger.Debug("Final state capture failed", zap.Error(perr))
	}
	if a.sink != nil {
		if serr := a.sink.FinishRun(ctx, report, final); serr != nil {
			a.logger.Warn("Artifact sink failed to finish run", zap.Error(serr))
		}
	}

	a.logger.Info("Run finished",
		zap.String("run_id", report.RunID),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("steps", report.Steps))
	return report, err
}

// failureKind buckets step failures so the abort threshold only counts a
// streak of the SAME kind; a planner failure followed by an executor failure
// starts a fresh streak.
func failureKind(err error) string {
	switch {
	case errors.Is(err, planner.ErrPlanParse):
		return "plan_parse"
	case errors.Is(err, planner.ErrPlanTargetMissing):
		return "plan_target_missing"
	case errors.Is(err, executor.ErrExecution):
		return "execution"
	default:
		return "other"
	}
}

// loop is the step engine. It sets report.Outcome and report.LastError and
// returns a non-nil error only for the failed outcome.
func (a *Agent) loop(ctx context.Context, goal string, report *schemas.RunReport) error {
	consecutiveFailures := 0
	lastFailureKind := ""

	// registerFailure advances the same-kind streak and reports whether the
	// abort threshold was hit.
	registerFailure := func(err error) bool {
		kind := failureKind(err)
		if kind == lastFailureKind {
			consecutiveFailures++
		} else {
			lastFailureKind = kind
			consecutiveFailures = 1
		}
		return consecutiveFailures >= a.opts.MaxConsecutiveFailures
	}

	for step := 0; step < a.opts.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			report.Outcome = schemas.OutcomeFailed
			report.LastError = err.Error()
			return fmt.Errorf("run aborted: %w", err)
		}

		frame, err := a.perceive(ctx)
		if err != nil {
			report.Outcome = schemas.OutcomeFailed
			report.LastError = err.Error()
			return fmt.Errorf("perception exhausted its retries: %w", err)
		}

		plan, err := a.plan(ctx, goal, report.History, frame)
		if err != nil {
			a.recordStep(ctx, report, &artifacts.StepRecord{
				Step:    step,
				Frame:   frame,
				Summary: fmt.Sprintf("planning failed: %v", err),
				Success: false,
			})
			report.LastError = err.Error()
			if registerFailure(err) {
				report.Outcome = schemas.OutcomeFailed
				return fmt.Errorf("%d consecutive %s failures, last: %w", consecutiveFailures, lastFailureKind, err)
			}
			continue
		}

		if plan.IsGoalComplete {
			a.recordStep(ctx, report, &artifacts.StepRecord{
				Step:    step,
				Frame:   frame,
				Plan:    plan,
				Summary: plan.Describe(),
				Success: true,
			})
			report.Outcome = schemas.OutcomeGoalComplete
			return nil
		}

		result, err := a.executor.Execute(ctx, plan, frame)
		rec := &artifacts.StepRecord{
			Step:   step,
			Frame:  frame,
			Plan:   plan,
			Result: result,
		}
		if err != nil {
			rec.Summary = fmt.Sprintf("%s failed: %v", plan.Describe(), err)
			rec.Success = false
			a.recordStep(ctx, report, rec)
			report.LastError = err.Error()
			if registerFailure(err) {
				report.Outcome = schemas.OutcomeFailed
				return fmt.Errorf("%d consecutive %s failures, last: %w", consecutiveFailures, lastFailureKind, err)
			}
			continue
		}

		consecutiveFailures = 0
		lastFailureKind = ""
		rec.Summary = plan.Describe()
		rec.Success = true
		a.recordStep(ctx, report, rec)

		if err := sleep(ctx, a.opts.SettleDelay); err != nil {
			report.Outcome = schemas.OutcomeFailed
			report.LastError = err.Error()
			return fmt.Errorf("run aborted: %w", err)
		}
	}

	report.Outcome = schemas.OutcomeBudgetExhausted
	return nil
}

// perceive retries transient capture failures with exponential backoff, up
// to the configured attempt budget.
func (a *Agent) perceive(ctx context.Context) (*perception.Frame, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.opts.PerceptionRetries-1)), ctx)

	var frame *perception.Frame
	operation := func() error {
		captureCtx := ctx
		if a.opts.PerceptionTimeout > 0 {
			var cancel context.CancelFunc
			captureCtx, cancel = context.WithTimeout(ctx, a.opts.PerceptionTimeout)
			defer cancel()
		}
		f, err := a.perceiver.Capture(captureCtx)
		if err != nil {
			a.logger.Warn("Perception attempt failed", zap.Error(err))
			return err
		}
		frame = f
		return nil
	}
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return frame, nil
}

func (a *Agent) plan(ctx context.Context, goal string, history schemas.History, frame *perception.Frame) (*schemas.ActionPlan, error) {
	planCtx := ctx
	if a.opts.PlanningTimeout > 0 {
		var cancel context.CancelFunc
		planCtx, cancel = context.WithTimeout(ctx, a.opts.PlanningTimeout)
		defer cancel()
	}
	return a.planner.Plan(planCtx, goal, history, &frame.State, a.opts.PlatformHint)
}

// recordStep appends exactly one history entry for the step and forwards it
// to the artifact sink. Sink failures are logged, never propagated.
func (a *Agent) recordStep(ctx context.Context, report *schemas.RunReport, rec *artifacts.StepRecord) {
	report.History = append(report.History, schemas.HistoryEntry{
		Step:    rec.Step,
		Plan:    rec.Plan,
		Summary: rec.Summary,
		Success: rec.Success,
	})
	a.logger.Info("Step recorded",
		zap.Int("step", rec.Step),
		zap.Bool("success", rec.Success),
		zap.String("summary", rec.Summary))

	if a.sink == nil {
		return
	}
	if err := a.sink.RecordStep(ctx, rec); err != nil {
		a.logger.Warn("Artifact sink failed to record step", zap.Int("step", rec.Step), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
