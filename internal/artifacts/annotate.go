// File: internal/artifacts/annotate.go

// Package artifacts persists per-run debug output: raw and annotated
// screenshots, a step-by-step JSONL log, and the final report. Sinks are
// best-effort; a sink failure never fails the run that produced it.
package artifacts

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/sightline-ai/sightline/api/schemas"
)

var (
	boxColor       = color.NRGBA{R: 220, G: 40, B: 40, A: 255}
	highlightColor = color.NRGBA{R: 40, G: 160, B: 40, A: 255}
)

// AnnotateElements returns a copy of the screenshot with every detected
// element outlined.
func AnnotateElements(img image.Image, elements []schemas.UIElement) *image.NRGBA {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	for _, el := range elements {
		drawRect(out, pixelBounds(el.Bounds, w, h), boxColor, 2)
	}
	return out
}

// HighlightTarget returns a copy of the screenshot with the acted-on element
// outlined prominently.
func HighlightTarget(img image.Image, target schemas.Bounds) *image.NRGBA {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	drawRect(out, pixelBounds(target, w, h), highlightColor, 4)
	return out
}

func pixelBounds(b schemas.Bounds, screenW, screenH int) image.Rectangle {
	r := image.Rect(
		int(b.X*float64(screenW)),
		int(b.Y*float64(screenH)),
		int((b.X+b.W)*float64(screenW)),
		int((b.Y+b.H)*float64(screenH)),
	)
	return r.Intersect(image.Rect(0, 0, screenW, screenH))
}

// drawRect outlines the rectangle with the given stroke width, clipped to the
// image.
func drawRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	if r.Empty() {
		return
	}
	clip := img.Bounds()
	for s := 0; s < stroke; s++ {
		top, bottom := r.Min.Y+s, r.Max.Y-1-s
		for x := r.Min.X; x < r.Max.X; x++ {
			setIfInside(img, clip, x, top, c)
			setIfInside(img, clip, x, bottom, c)
		}
		left, right := r.Min.X+s, r.Max.X-1-s
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setIfInside(img, clip, left, y, c)
			setIfInside(img, clip, right, y, c)
		}
	}
}

func setIfInside(img *image.NRGBA, clip image.Rectangle, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(clip) {
		img.SetNRGBA(x, y, c)
	}
}
