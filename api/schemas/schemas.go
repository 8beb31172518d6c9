// File: api/schemas/schemas.go
package schemas

import (
	"fmt"
	"strings"
	"time"
)

// Bounds describes a rectangular screen region in normalized coordinates.
// All four values are fractions of the full screen in [0, 1], so the same
// bounds are valid regardless of the actual display resolution.
type Bounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// CenterPx maps the center of the bounds to absolute pixel coordinates for a
// screen of the given dimensions: ((x+w/2)*W, (y+h/2)*H).
func (b Bounds) CenterPx(screenW, screenH int) (float64, float64) {
	return (b.X + b.W/2) * float64(screenW), (b.Y + b.H/2) * float64(screenH)
}

// InRange reports whether every coordinate of the bounds lies in [0, 1].
func (b Bounds) InRange() bool {
	for _, v := range []float64{b.X, b.Y, b.W, b.H, b.X + b.W, b.Y + b.H} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// UIElement is one detected interactive or informational region of the
// screen. Elements are immutable once produced by perception; ids are dense
// and unique within a single ScreenState and carry no meaning across
// snapshots.
type UIElement struct {
	ID         int                    `json:"id"`
	Type       string                 `json:"type"`       // button, text, checkbox, link, ... (open set)
	Content    string                 `json:"content"`    // text content or accessibility label
	Bounds     Bounds                 `json:"bounds"`     // normalized coordinates
	Confidence float64                `json:"confidence"` // detection confidence in [0, 1]
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// maxPromptContent bounds the content preview length in prompt renderings.
const maxPromptContent = 30

// PromptLine renders a compact single-line representation of the element for
// LLM prompts. Long content is truncated and newlines are flattened so one
// element always occupies exactly one line.
func (e UIElement) PromptLine() string {
	content := e.Content
	if len(content) > maxPromptContent+3 {
		content = content[:maxPromptContent] + "..."
	}
	content = strings.ReplaceAll(content, "\n", " ")
	return fmt.Sprintf("ID: %d, Type: %s, Content: '%s', Bounds: (%.2f, %.2f, %.2f, %.2f)",
		e.ID, e.Type, content, e.Bounds.X, e.Bounds.Y, e.Bounds.W, e.Bounds.H)
}

// ScreenState is one perception snapshot: the ordered element list (detection
// order, not semantically meaningful), the actual pixel dimensions of the
// captured screen, and the capture timestamp. A ScreenState is never mutated;
// it is superseded wholesale by the next snapshot.
type ScreenState struct {
	Elements  []UIElement `json:"elements"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Timestamp time.Time   `json:"timestamp"`
}

// Element returns the element with the given id, or nil if the id is not
// present in this snapshot.
func (s *ScreenState) Element(id int) *UIElement {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return &s.Elements[i]
		}
	}
	return nil
}

// FindElement returns the element best matching a natural-language
// description using straightforward content matching: two points for each
// search term found in the content, one point for each term found in the
// type tag. Returns nil when no element scores above zero.
func (s *ScreenState) FindElement(description string) *UIElement {
	terms := strings.Fields(strings.ToLower(description))
	if len(terms) == 0 {
		return nil
	}

	var best *UIElement
	bestScore := 0
	for i := range s.Elements {
		content := strings.ToLower(s.Elements[i].Content)
		typ := strings.ToLower(s.Elements[i].Type)
		score := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				score += 2
			}
			if strings.Contains(typ, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = &s.Elements[i]
		}
	}
	return best
}
