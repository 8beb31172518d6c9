// File: internal/executor/executor.go

// Package executor turns validated action plans into input driver calls and
// verifies their effect. It never re-plans: a plan that cannot be executed
// fails loudly and the loop decides what to do next.
package executor

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/input"
	"github.com/sightline-ai/sightline/internal/perception"
)

// defaultScrollSteps is used when a scroll plan does not state a step count.
const defaultScrollSteps = 3

// preTypeSettle is the pause between the focusing click and the typing
// itself, giving the UI time to move focus.
const preTypeSettle = 200 * time.Millisecond

// Executor executes one plan at a time against an input driver. When a
// screenshot source is provided, execution results carry visual verification;
// otherwise only the dispatch outcome is reported.
type Executor struct {
	driver  input.Driver
	shot    schemas.Screenshotter
	scaling float64
	logger  *zap.Logger
}

// New builds an Executor. shot may be nil to disable visual verification.
// scaling is the display scaling factor; values <= 0 are treated as 1.
func New(driver input.Driver, shot schemas.Screenshotter, scaling float64, logger *zap.Logger) *Executor {
	if scaling <= 0 {
		scaling = 1
	}
	return &Executor{
		driver:  driver,
		shot:    shot,
		scaling: scaling,
		logger:  logger.Named("executor"),
	}
}

// Execute carries out the plan against the frame it was planned for. The
// returned result is always non-nil; the error is non-nil exactly when
// Success is false, and wraps ErrExecution.
func (e *Executor) Execute(ctx context.Context, plan *schemas.ActionPlan, frame *perception.Frame) (*schemas.InteractionResult, error) {
	if plan == nil {
		return failure(nil, "no plan to execute"), fmt.Errorf("%w: nil plan", ErrExecution)
	}
	if err := plan.Validate(); err != nil {
		return failure(nil, err.Error()), fmt.Errorf("%w: %v", ErrExecution, err)
	}

	target, err := e.resolveTarget(plan, &frame.State)
	if err != nil {
		return failure(nil, err.Error()), err
	}

	e.logger.Info("Executing action",
		zap.String("action", string(plan.Action)),
		zap.String("summary", plan.Describe()))

	switch plan.Action {
	case schemas.ActionClick:
		err = e.click(ctx, target, &frame.State)
	case schemas.ActionType:
		err = e.typeText(ctx, plan, target, &frame.State)
	case schemas.ActionScroll:
		err = e.scroll(ctx, plan)
	case schemas.ActionPressKey:
		err = e.pressKey(ctx, plan)
	}
	if err != nil {
		return failure(target, err.Error()), err
	}

	result := &schemas.InteractionResult{
		Success:      true,
		Element:      target,
		Verification: e.verify(ctx, target, frame),
	}
	return result, nil
}

// resolveTarget looks up the plan's element reference in the snapshot, if it
// has one.
func (e *Executor) resolveTarget(plan *schemas.ActionPlan, state *schemas.ScreenState) (*schemas.UIElement, error) {
	if plan.ElementID == nil {
		return nil, nil
	}
	el := state.Element(*plan.ElementID)
	if el == nil {
		return nil, fmt.Errorf("%w: element %d not present in current state", ErrExecution, *plan.ElementID)
	}
	return el, nil
}

// pointFor maps an element's center to the logical coordinates the driver
// expects: normalized center to absolute pixels, then divided by the display
// scaling factor.
func (e *Executor) pointFor(el *schemas.UIElement, state *schemas.ScreenState) (int, int, error) {
	px, py := el.Bounds.CenterPx(state.Width, state.Height)
	if px < 0 || py < 0 || px >= float64(state.Width) || py >= float64(state.Height) {
		return 0, 0, fmt.Errorf("%w: element %d center (%.0f, %.0f) outside %dx%d screen",
			ErrExecution, el.ID, px, py, state.Width, state.Height)
	}
	x := int(math.Round(px / e.scaling))
	y := int(math.Round(py / e.scaling))
	return x, y, nil
}

func (e *Executor) click(ctx context.Context, el *schemas.UIElement, state *schemas.ScreenState) error {
	x, y, err := e.pointFor(el, state)
	if err != nil {
		return err
	}
	e.logger.Debug("Clicking element",
		zap.Int("element_id", el.ID), zap.Int("x", x), zap.Int("y", y))
	if err := e.driver.MoveAndClick(ctx, x, y, input.ClickSingle); err != nil {
		return fmt.Errorf("%w: click on element %d: %v", ErrExecution, el.ID, err)
	}
	return nil
}

// typeText types the payload in one block. When the plan names a target, a
// focusing click is attempted first; its failure is logged but does not
// abort the typing, matching the "try anyway" contract.
func (e *Executor) typeText(ctx context.Context, plan *schemas.ActionPlan, el *schemas.UIElement, state *schemas.ScreenState) error {
	if el != nil {
		if err := e.click(ctx, el, state); err != nil {
			e.logger.Warn("Focus click failed, typing into current focus anyway",
				zap.Int("element_id", el.ID), zap.Error(err))
		} else if err := sleep(ctx, preTypeSettle); err != nil {
			return fmt.Errorf("%w: %v", ErrExecution, err)
		}
	}
	text := ""
	if plan.Text != nil {
		text = *plan.Text
	}
	if err := e.driver.TypeText(ctx, text); err != nil {
		return fmt.Errorf("%w: typing failed: %v", ErrExecution, err)
	}
	return nil
}

func (e *Executor) scroll(ctx context.Context, plan *schemas.ActionPlan) error {
	steps := plan.ScrollSteps
	if steps == 0 {
		steps = defaultScrollSteps
	}
	var dx, dy int
	switch plan.ScrollDirection {
	case schemas.ScrollUp:
		dy = steps
	case schemas.ScrollDown:
		dy = -steps
	case schemas.ScrollLeft:
		dx = -steps
	case schemas.ScrollRight:
		dx = steps
	}
	if err := e.driver.Scroll(ctx, dx, dy); err != nil {
		return fmt.Errorf("%w: scroll %s: %v", ErrExecution, plan.ScrollDirection, err)
	}
	return nil
}

func (e *Executor) pressKey(ctx context.Context, plan *schemas.ActionPlan) error {
	combo, err := input.ParseCombo(plan.Key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExecution, err)
	}
	if err := e.driver.PressCombo(ctx, combo); err != nil {
		return fmt.Errorf("%w: key combo %q: %v", ErrExecution, plan.Key, err)
	}
	return nil
}

func failure(el *schemas.UIElement, msg string) *schemas.InteractionResult {
	return &schemas.InteractionResult{
		Success: false,
		Element: el,
		Error:   msg,
		Verification: &schemas.Verification{
			Success:    false,
			Confidence: 0,
			Error:      msg,
		},
	}
}

// sleep is a context-aware pause.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
