// File: internal/agent/models.go

// Package agent runs the perceive, plan, act loop: snapshot the screen, ask
// the planner for exactly one next action, execute it, record the outcome,
// repeat until the goal is reported complete or a budget runs out.
package agent

import (
	"context"
	"time"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/perception"
)

// Perceiver produces a fresh screen snapshot. Every call costs a screenshot
// and a remote parse; the loop calls it once per step plus once for the
// final state.
type Perceiver interface {
	Capture(ctx context.Context) (*perception.Frame, error)
}

// Planner proposes the single next action for the current state.
type Planner interface {
	Plan(ctx context.Context, goal string, history schemas.History, state *schemas.ScreenState, platformHint string) (*schemas.ActionPlan, error)
}

// Executor carries out one validated plan against the frame it was planned
// for.
type Executor interface {
	Execute(ctx context.Context, plan *schemas.ActionPlan, frame *perception.Frame) (*schemas.InteractionResult, error)
}

// Options parameterize one run of the loop. Zero or negative values fall
// back to the defaults below.
type Options struct {
	MaxSteps               int
	MaxConsecutiveFailures int
	PerceptionRetries      int
	PerceptionTimeout      time.Duration
	PlanningTimeout        time.Duration
	// SettleDelay is the pause after a successful action before the next
	// perception, letting the UI finish reacting.
	SettleDelay  time.Duration
	PlatformHint string
}

const (
	defaultMaxSteps               = 10
	defaultMaxConsecutiveFailures = 3
	defaultPerceptionRetries      = 3
	defaultSettleDelay            = 1500 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = defaultMaxSteps
	}
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	if o.PerceptionRetries <= 0 {
		o.PerceptionRetries = defaultPerceptionRetries
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = defaultSettleDelay
	}
	return o
}
