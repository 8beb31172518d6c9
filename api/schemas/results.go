// File: api/schemas/results.go
package schemas

import "time"

// Verification is the post-execution assessment of whether the intended
// effect occurred. It is produced immediately after the input operation and
// never retroactively edited.
//
// Confidence distinguishes verification depth: dispatch-only verification
// (the input layer reported success, nothing else checked) uses
// BasicConfidence, while visually confirmed verification scales higher based
// on the observed screen change.
type Verification struct {
	Success        bool     `json:"success"`
	ChangedRegions []Bounds `json:"changed_regions,omitempty"`
	Confidence     float64  `json:"confidence"`
	Error          string   `json:"error,omitempty"`
}

// BasicConfidence is the verification confidence reported when only the
// input dispatch itself was confirmed, with no visual diff.
const BasicConfidence = 0.3

// InteractionResult is the outcome of executing one action plan.
type InteractionResult struct {
	Success      bool                   `json:"success"`
	Element      *UIElement             `json:"element,omitempty"` // the resolved target, if any
	Error        string                 `json:"error,omitempty"`
	Context      map[string]interface{} `json:"context,omitempty"`
	Verification *Verification          `json:"verification,omitempty"`
}

// HistoryEntry records one step's outcome. Entries are append-only and are
// never reordered; truncation for prompt context is a windowing operation
// over the full log, not a destructive edit.
type HistoryEntry struct {
	Step    int         `json:"step"` // zero-based step index
	Plan    *ActionPlan `json:"plan,omitempty"`
	Summary string      `json:"summary"` // short natural-language outcome
	Success bool        `json:"success"`
}

// History is the append-only sequence of per-step outcomes for one run.
type History []HistoryEntry

// Window returns the newest n entries without mutating the log. The full
// history remains available for the terminal report.
func (h History) Window(n int) History {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// Outcome classifies how a run terminated.
type Outcome string

const (
	// OutcomeGoalComplete means the planner reported the goal achieved.
	OutcomeGoalComplete Outcome = "goal_complete"
	// OutcomeBudgetExhausted means the step budget ran out before the goal
	// was reported complete.
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
	// OutcomeFailed means the consecutive-failure threshold was exceeded or
	// a phase exhausted its retries.
	OutcomeFailed Outcome = "failed"
)

// RunReport is the terminal report for one agent run. It always states which
// outcome applies and carries the full history for post-hoc inspection.
type RunReport struct {
	RunID      string    `json:"run_id"`
	Goal       string    `json:"goal"`
	Outcome    Outcome   `json:"outcome"`
	Steps      int       `json:"steps"` // actual steps recorded in history
	History    History   `json:"history"`
	LastError  string    `json:"last_error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
