// File: internal/planner/errors.go
package planner

import "errors"

var (
	// ErrPlanParse indicates the language-model reply was not a valid plan:
	// invalid JSON or structure, an action kind outside the closed set, or a
	// required field missing for the chosen kind.
	ErrPlanParse = errors.New("plan parse error")

	// ErrPlanTargetMissing indicates a structurally valid plan referenced an
	// element id that does not exist in the current screen state.
	ErrPlanTargetMissing = errors.New("plan target missing")
)
