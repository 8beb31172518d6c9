// File: internal/executor/verify.go
package executor

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/perception"
)

const (
	// verifiedConfidence is reported when a visual change was observed in the
	// target region after the action.
	verifiedConfidence = 0.8
	// regionPad expands the verified region beyond the element bounds so
	// effects just outside the box (focus rings, dropdowns) still count.
	regionPad = 10
	// changedPixelFraction is the minimum fraction of differing pixels for a
	// region to count as changed.
	changedPixelFraction = 0.01
	// pixelDelta is the per-channel difference below which two pixels are
	// considered identical, absorbing compression and anti-aliasing noise.
	pixelDelta = 12
)

// verify assesses the action's effect. Without a screenshot source it
// reports dispatch-only confidence; with one, it compares the target region
// before and after. An unchanged region is not a failure: some actions are
// legitimately invisible, so the confidence just stays basic.
func (e *Executor) verify(ctx context.Context, target *schemas.UIElement, frame *perception.Frame) *schemas.Verification {
	v := &schemas.Verification{Success: true, Confidence: schemas.BasicConfidence}
	if e.shot == nil || frame.Image == nil {
		return v
	}

	after, err := e.shot.CaptureScreen(ctx)
	if err != nil {
		e.logger.Debug("Verification screenshot failed, reporting dispatch-only confidence", zap.Error(err))
		return v
	}

	region := frame.Image.Bounds()
	var bounds schemas.Bounds
	if target != nil {
		region = pixelRect(target.Bounds, frame.State.Width, frame.State.Height)
		bounds = target.Bounds
	} else {
		bounds = schemas.Bounds{X: 0, Y: 0, W: 1, H: 1}
	}

	if regionChanged(frame.Image, after, region) {
		v.Confidence = verifiedConfidence
		v.ChangedRegions = []schemas.Bounds{bounds}
	}
	return v
}

// pixelRect converts normalized bounds to a padded pixel rectangle.
func pixelRect(b schemas.Bounds, screenW, screenH int) image.Rectangle {
	r := image.Rect(
		int(b.X*float64(screenW))-regionPad,
		int(b.Y*float64(screenH))-regionPad,
		int((b.X+b.W)*float64(screenW))+regionPad,
		int((b.Y+b.H)*float64(screenH))+regionPad,
	)
	return r.Intersect(image.Rect(0, 0, screenW, screenH))
}

// regionChanged crops the region from both images and reports whether a
// meaningful fraction of its pixels differ.
func regionChanged(before, after image.Image, region image.Rectangle) bool {
	if region.Empty() {
		return false
	}
	a := imaging.Crop(before, region)
	b := imaging.Crop(after, region)
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		// Resolution changed between shots; call that a change.
		return true
	}

	total := ab.Dx() * ab.Dy()
	if total == 0 {
		return false
	}
	changed := 0
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			if !samePixel(a.NRGBAAt(ab.Min.X+x, ab.Min.Y+y), b.NRGBAAt(bb.Min.X+x, bb.Min.Y+y)) {
				changed++
			}
		}
	}
	return float64(changed)/float64(total) >= changedPixelFraction
}

func samePixel(a, b color.NRGBA) bool {
	return absDiff(a.R, b.R) <= pixelDelta &&
		absDiff(a.G, b.G) <= pixelDelta &&
		absDiff(a.B, b.B) <= pixelDelta
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
