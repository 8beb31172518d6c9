// File: api/schemas/interfaces.go
package schemas

import (
	"context"
	"image"
)

// LLMClient is the language-model collaborator. It produces unstructured
// reply text; the planner owns all parsing of the reply into a plan.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RawElement is one detection as returned by the vision-parsing
// collaborator, before mapping into the UIElement model. BBox is
// [xmin, ymin, xmax, ymax] in coordinates normalized to the screenshot.
type RawElement struct {
	Type       string                 `json:"type"`
	Content    string                 `json:"content"`
	BBox       []float64              `json:"bbox"`
	Confidence float64                `json:"confidence"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// ScreenParser is the vision-parsing collaborator: it turns a PNG screenshot
// into raw detections. Implementations must report unavailability distinctly
// from a structurally empty result.
type ScreenParser interface {
	Parse(ctx context.Context, screenshotPNG []byte) ([]RawElement, error)
}

// Screenshotter captures the current screen contents.
type Screenshotter interface {
	CaptureScreen(ctx context.Context) (image.Image, error)
}
