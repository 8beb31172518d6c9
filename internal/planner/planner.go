// File: internal/planner/planner.go
package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
)

const systemPrompt = `You are an expert UI automation assistant. You decide the single next action to take on a user interface to progress toward a stated goal.
Respond ONLY with a valid JSON object matching this structure, with no text outside the JSON block:
{
  "reasoning": "Your step-by-step thinking process here...",
  "action": "click | type | scroll | press_key",
  "is_goal_complete": <true if the goal is already fully achieved by the current state>,
  "element_id": <target element id for click, optionally for type; null otherwise>,
  "text_to_type": "<text if action is type; null otherwise>",
  "key_info": "<key or shortcut if action is press_key, e.g. 'Enter' or 'Cmd+Space'; null otherwise>",
  "scroll_direction": "<up | down | left | right if action is scroll; null otherwise>",
  "scroll_steps": <wheel steps if action is scroll; omit for the default>
}
Populate exactly the fields relevant to the chosen action and set the rest to null.`

// Planner builds a bounded prompt context from the goal, history, and
// current screen state, invokes the language-model collaborator once, and
// converts its reply into a validated ActionPlan.
type Planner struct {
	client schemas.LLMClient
	logger *zap.Logger

	// historyWindow bounds how many trailing history entries are embedded
	// in the prompt; maxElements bounds the element list length.
	historyWindow int
	maxElements   int
}

// New constructs a Planner. historyWindow and maxElements must be positive.
func New(client schemas.LLMClient, historyWindow, maxElements int, logger *zap.Logger) *Planner {
	return &Planner{
		client:        client,
		logger:        logger.Named("planner"),
		historyWindow: historyWindow,
		maxElements:   maxElements,
	}
}

// Plan decides the next action toward the goal. Exactly one collaborator
// call is made per invocation; retry policy lives with the caller. The
// screen state is never mutated. Failure kinds: ErrPlanParse for any
// structural problem with the reply, ErrPlanTargetMissing when a referenced
// element id is absent from state.
func (p *Planner) Plan(ctx context.Context, goal string, history schemas.History, state *schemas.ScreenState, platformHint string) (*schemas.ActionPlan, error) {
	prompt := p.buildPrompt(goal, history, state, platformHint)

	reply, err := p.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}

	plan, err := parseReply(reply)
	if err != nil {
		p.logger.Warn("Rejected malformed plan", zap.Error(err), zap.String("raw_reply", preview(reply, 500)))
		return nil, err
	}

	if plan.ElementID != nil && state.Element(*plan.ElementID) == nil {
		return nil, fmt.Errorf("%w: element id %d not in current state (%d elements)",
			ErrPlanTargetMissing, *plan.ElementID, len(state.Elements))
	}

	p.logger.Info("Action planned",
		zap.String("action", string(plan.Action)),
		zap.Bool("goal_complete", plan.IsGoalComplete),
		zap.String("reasoning", preview(plan.Reasoning, 200)))
	return plan, nil
}

// buildPrompt renders the goal, a bounded tail of history, and a compact
// element list into the user prompt. History entries are dropped oldest
// first and never split mid-entry. The element list is truncated by count,
// but the target of the immediately preceding action is always retained for
// recency bias.
func (p *Planner) buildPrompt(goal string, history schemas.History, state *schemas.ScreenState, platformHint string) string {
	var sb strings.Builder

	sb.WriteString("User Goal: ")
	sb.WriteString(goal)
	sb.WriteString("\n\nTarget platform: ")
	sb.WriteString(platformHint)
	sb.WriteString("\n")

	tail := history.Window(p.historyWindow)
	if len(tail) > 0 {
		sb.WriteString("\nPrevious actions")
		if dropped := len(history) - len(tail); dropped > 0 {
			fmt.Fprintf(&sb, " (%d earlier steps omitted)", dropped)
		}
		sb.WriteString(":\n")
		for _, entry := range tail {
			fmt.Fprintf(&sb, "%d. %s", entry.Step+1, entry.Summary)
			if !entry.Success {
				sb.WriteString(" [FAILED]")
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nCurrent UI elements (id, type, content, bounds):\n")
	for _, el := range p.selectElements(history, state) {
		sb.WriteString(el.PromptLine())
		sb.WriteString("\n")
	}
	if len(state.Elements) > p.maxElements {
		fmt.Fprintf(&sb, "(list truncated to %d of %d elements)\n", p.maxElements, len(state.Elements))
	}

	sb.WriteString("\nDecide the single next action. Respond with one JSON object only.")
	return sb.String()
}

// selectElements applies the element-count bound. When truncating, the
// element matching the previous step's target id is swapped into the kept
// prefix if it would otherwise be cut.
func (p *Planner) selectElements(history schemas.History, state *schemas.ScreenState) []schemas.UIElement {
	if len(state.Elements) <= p.maxElements {
		return state.Elements
	}

	kept := make([]schemas.UIElement, p.maxElements)
	copy(kept, state.Elements[:p.maxElements])

	if lastID := lastTargetID(history); lastID != nil && *lastID >= p.maxElements {
		if el := state.Element(*lastID); el != nil {
			kept[len(kept)-1] = *el
		}
	}
	return kept
}

// lastTargetID returns the element id targeted by the most recent history
// entry that had one, looking only at the immediately preceding step.
func lastTargetID(history schemas.History) *int {
	if len(history) == 0 {
		return nil
	}
	last := history[len(history)-1]
	if last.Plan == nil {
		return nil
	}
	return last.Plan.ElementID
}

// jsonBlockRegex extracts a JSON object from a markdown code fence.
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseReply robustly extracts and validates the plan JSON from the model's
// reply, handling markdown fences and surrounding prose. Every failure mode
// wraps ErrPlanParse.
func parseReply(reply string) (*schemas.ActionPlan, error) {
	reply = strings.TrimSpace(reply)

	var payload string
	if matches := jsonBlockRegex.FindStringSubmatch(reply); len(matches) > 1 {
		payload = strings.TrimSpace(matches[1])
	} else if first, last := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); first != -1 && last > first {
		payload = reply[first : last+1]
	} else {
		payload = reply
	}

	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON found in reply", ErrPlanParse)
	}

	var plan schemas.ActionPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanParse, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanParse, err)
	}
	return &plan, nil
}

func preview(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
