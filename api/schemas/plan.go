// File: api/schemas/plan.go
package schemas

import "fmt"

// ActionKind enumerates the closed set of actions a planner may choose.
type ActionKind string

const (
	ActionClick    ActionKind = "click"     // Click a target element.
	ActionType     ActionKind = "type"      // Type a text payload, optionally into a target element.
	ActionScroll   ActionKind = "scroll"    // Scroll the view in a direction.
	ActionPressKey ActionKind = "press_key" // Press a key, possibly with modifiers.
)

// Known reports whether k is a member of the closed action set.
func (k ActionKind) Known() bool {
	switch k {
	case ActionClick, ActionType, ActionScroll, ActionPressKey:
		return true
	}
	return false
}

// ScrollDirection is the direction payload for scroll actions.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Known reports whether d is a supported scroll direction.
func (d ScrollDirection) Known() bool {
	switch d {
	case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		return true
	}
	return false
}

// ActionPlan is the planner's structured decision for one step. Exactly the
// fields relevant to the chosen action kind must be populated; Validate
// rejects anything else rather than coercing it.
//
// Pointer fields distinguish "absent" from zero values: a type action with
// an empty text payload is valid, one with no payload at all is not.
type ActionPlan struct {
	// Reasoning is the model's free-form thinking. It is logged for
	// debugging and never parsed for control flow.
	Reasoning string `json:"reasoning"`

	Action ActionKind `json:"action"`

	// IsGoalComplete true means the overall goal is already achieved by the
	// current state; the loop terminates without executing this plan, and
	// the per-kind field requirements below are relaxed.
	IsGoalComplete bool `json:"is_goal_complete"`

	// ElementID targets a UIElement by id. Required for click, optional for
	// type (typing into the focused element), forbidden otherwise.
	ElementID *int `json:"element_id,omitempty"`

	// Text is the payload for type actions. Empty string is allowed.
	Text *string `json:"text_to_type,omitempty"`

	// Key is the descriptor for press_key actions, e.g. "Enter" or
	// "Cmd+Shift+T".
	Key string `json:"key_info,omitempty"`

	// ScrollDirection and ScrollSteps parameterize scroll actions.
	// ScrollSteps defaults to a small fixed count when zero.
	ScrollDirection ScrollDirection `json:"scroll_direction,omitempty"`
	ScrollSteps     int             `json:"scroll_steps,omitempty"`
}

// Validate enforces the kind-conditional field invariant. It returns a
// descriptive error for the first violation found, or nil for a well-formed
// plan. Referenced element ids are checked against live state by the
// planner, not here.
func (p *ActionPlan) Validate() error {
	if !p.Action.Known() {
		return fmt.Errorf("action kind %q is not one of click, type, scroll, press_key", p.Action)
	}

	// A goal-complete plan is never executed, so its payload fields are not
	// held to the per-kind requirements.
	if p.IsGoalComplete {
		return nil
	}

	switch p.Action {
	case ActionClick:
		if p.ElementID == nil {
			return fmt.Errorf("element_id is required for action %q", p.Action)
		}
		if p.Text != nil {
			return fmt.Errorf("text_to_type must be absent for action %q", p.Action)
		}
		if p.Key != "" {
			return fmt.Errorf("key_info must be absent for action %q", p.Action)
		}
		if p.ScrollDirection != "" {
			return fmt.Errorf("scroll_direction must be absent for action %q", p.Action)
		}

	case ActionType:
		if p.Text == nil {
			return fmt.Errorf("text_to_type is required for action %q", p.Action)
		}
		if p.Key != "" {
			return fmt.Errorf("key_info must be absent for action %q", p.Action)
		}
		if p.ScrollDirection != "" {
			return fmt.Errorf("scroll_direction must be absent for action %q", p.Action)
		}

	case ActionPressKey:
		if p.Key == "" {
			return fmt.Errorf("key_info is required for action %q", p.Action)
		}
		if p.ElementID != nil {
			return fmt.Errorf("element_id must be absent for action %q", p.Action)
		}
		if p.Text != nil {
			return fmt.Errorf("text_to_type must be absent for action %q", p.Action)
		}
		if p.ScrollDirection != "" {
			return fmt.Errorf("scroll_direction must be absent for action %q", p.Action)
		}

	case ActionScroll:
		if !p.ScrollDirection.Known() {
			return fmt.Errorf("scroll_direction %q is not one of up, down, left, right", p.ScrollDirection)
		}
		if p.ScrollSteps < 0 {
			return fmt.Errorf("scroll_steps must not be negative")
		}
		if p.ElementID != nil {
			return fmt.Errorf("element_id must be absent for action %q", p.Action)
		}
		if p.Text != nil {
			return fmt.Errorf("text_to_type must be absent for action %q", p.Action)
		}
		if p.Key != "" {
			return fmt.Errorf("key_info must be absent for action %q", p.Action)
		}
	}
	return nil
}

// Describe summarizes the plan in one human-readable line for history
// entries and logs.
func (p *ActionPlan) Describe() string {
	switch {
	case p.IsGoalComplete:
		return "goal reported complete"
	case p.Action == ActionClick && p.ElementID != nil:
		return fmt.Sprintf("click element %d", *p.ElementID)
	case p.Action == ActionType && p.ElementID != nil:
		return fmt.Sprintf("type %q into element %d", preview(deref(p.Text)), *p.ElementID)
	case p.Action == ActionType:
		return fmt.Sprintf("type %q", preview(deref(p.Text)))
	case p.Action == ActionPressKey:
		return fmt.Sprintf("press %s", p.Key)
	case p.Action == ActionScroll:
		return fmt.Sprintf("scroll %s", p.ScrollDirection)
	}
	return string(p.Action)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func preview(s string) string {
	const max = 20
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
