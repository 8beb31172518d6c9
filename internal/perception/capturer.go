// File: internal/perception/capturer.go
package perception

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
)

// boundsTolerance allows detections to spill marginally outside the screen
// before they are rejected; anything inside the tolerance is clamped.
const boundsTolerance = 0.001

// minElementPx filters out detections smaller than this in either dimension
// at actual screen size; they are too small to interact with.
const minElementPx = 3

// Frame pairs one perception snapshot with the screenshot it was produced
// from. The image is kept for artifact persistence and region verification.
type Frame struct {
	State schemas.ScreenState
	Image image.Image
}

// Capturer is the perception adapter: it owns taking the screenshot, calling
// the parsing collaborator, and mapping raw detections into the element
// model. It performs no caching; freshness is the loop's responsibility.
type Capturer struct {
	shot   schemas.Screenshotter
	parser schemas.ScreenParser
	logger *zap.Logger
}

// NewCapturer wires a screenshot source to a parsing collaborator.
func NewCapturer(shot schemas.Screenshotter, parser schemas.ScreenParser, logger *zap.Logger) *Capturer {
	return &Capturer{
		shot:   shot,
		parser: parser,
		logger: logger.Named("perception"),
	}
}

// Capture triggers exactly one screenshot and one remote parse call and
// returns a fresh Frame. Fails with ErrUnavailable when the collaborator
// cannot be reached and ErrMalformed when its reply cannot be mapped.
func (c *Capturer) Capture(ctx context.Context) (*Frame, error) {
	start := time.Now()

	img, err := c.shot.CaptureScreen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot failed: %v", ErrUnavailable, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}

	raws, err := c.parser.Parse(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}

	size := img.Bounds().Size()
	elements, err := mapElements(raws, size.X, size.Y, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Screen state captured",
		zap.Int("elements", len(elements)),
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
		zap.Duration("took", time.Since(start)))

	return &Frame{
		State: schemas.ScreenState{
			Elements:  elements,
			Width:     size.X,
			Height:    size.Y,
			Timestamp: time.Now().UTC(),
		},
		Image: img,
	}, nil
}

// mapElements converts raw detections into UIElements: bbox corners become
// x/y/w/h, bounds are range-checked with a small tolerance then clamped into
// [0,1], tiny or degenerate detections are skipped, ids are assigned densely
// in detection order starting at 0.
func mapElements(raws []schemas.RawElement, screenW, screenH int, logger *zap.Logger) ([]schemas.UIElement, error) {
	elements := make([]schemas.UIElement, 0, len(raws))

	for _, raw := range raws {
		if len(raw.BBox) != 4 {
			logger.Debug("Skipping detection with invalid bbox", zap.String("content", raw.Content))
			continue
		}
		if raw.Confidence < 0 || raw.Confidence > 1 {
			return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformed, raw.Confidence)
		}

		x := raw.BBox[0]
		y := raw.BBox[1]
		w := raw.BBox[2] - x
		h := raw.BBox[3] - y

		if !withinTolerance(x, y, w, h) {
			logger.Warn("Skipping detection with out-of-range bounds",
				zap.String("content", raw.Content),
				zap.Float64s("bbox", raw.BBox))
			continue
		}

		x = clamp01(x)
		y = clamp01(y)
		w = clampTo(w, 1-x)
		h = clampTo(h, 1-y)
		if w <= 0 || h <= 0 {
			continue
		}

		// Tiny element filter at actual screen size.
		if w*float64(screenW) < minElementPx || h*float64(screenH) < minElementPx {
			logger.Debug("Skipping tiny detection", zap.String("content", raw.Content))
			continue
		}

		elements = append(elements, schemas.UIElement{
			ID:         len(elements),
			Type:       normalizeType(raw.Type),
			Content:    strings.TrimSpace(raw.Content),
			Bounds:     schemas.Bounds{X: x, Y: y, W: w, H: h},
			Confidence: raw.Confidence,
			Attributes: raw.Attributes,
		})
	}
	return elements, nil
}

func withinTolerance(x, y, w, h float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	return x >= -boundsTolerance && x <= 1+boundsTolerance &&
		y >= -boundsTolerance && y <= 1+boundsTolerance &&
		x+w <= 1+boundsTolerance && y+h <= 1+boundsTolerance
}

func clamp01(v float64) float64 {
	return clampTo(v, 1)
}

func clampTo(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func normalizeType(t string) string {
	t = strings.TrimSpace(strings.ToLower(t))
	if t == "" {
		return "unknown"
	}
	return strings.ReplaceAll(t, " ", "_")
}
