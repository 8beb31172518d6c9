// File: internal/input/cdp/driver.go

// Package cdp drives a Chromium target over the DevTools protocol. It is the
// default input backend: clicks, typing and key combos are dispatched as raw
// Input domain events, and screenshots come from the Page domain so the
// perception layer sees exactly what the browser renders.
package cdp

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"time"

	cdpinput "github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
	"github.com/sightline-ai/sightline/internal/config"
	"github.com/sightline-ai/sightline/internal/input"
)

const (
	// eventTimeout bounds a single Input domain dispatch.
	eventTimeout = 10 * time.Second
	// wheelStepPx is the pixel delta of one scroll step, matching the
	// typical mouse wheel notch.
	wheelStepPx = 120
)

// Driver owns a chromedp browser context and implements both the input
// backend and the screenshot source against it.
type Driver struct {
	browserCtx context.Context
	cancels    []context.CancelFunc
	logger     *zap.Logger

	mu            sync.Mutex
	lastX, lastY  float64
	pointerMoved bool
}

var (
	_ input.Driver          = (*Driver)(nil)
	_ schemas.Screenshotter = (*Driver)(nil)
)

// New launches (or attaches to) a Chromium instance per cfg and returns a
// ready Driver. Close must be called to release the browser.
func New(parent context.Context, cfg config.InputConfig, logger *zap.Logger) (*Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d := &Driver{
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{browserCancel, allocCancel},
		logger:     logger.Named("input.cdp"),
	}

	// Starting the browser eagerly surfaces launch failures here instead of
	// on the first event.
	startup := []chromedp.Action{}
	if cfg.TargetURL != "" {
		startup = append(startup, chromedp.Navigate(cfg.TargetURL))
	} else {
		startup = append(startup, chromedp.Navigate("about:blank"))
	}
	if err := chromedp.Run(browserCtx, startup...); err != nil {
		d.Close()
		return nil, fmt.Errorf("cdp: failed to start browser session: %w", err)
	}
	d.logger.Info("Browser session ready",
		zap.String("target_url", cfg.TargetURL),
		zap.Bool("headless", cfg.Headless))
	return d, nil
}

// Close tears down the browser context and the underlying process.
func (d *Driver) Close() {
	for _, cancel := range d.cancels {
		cancel()
	}
}

// run executes actions against the browser context, bounded by both the
// caller's context and the per-event timeout.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(d.browserCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-opCtx.Done():
		return fmt.Errorf("cdp: dispatch timed out after %v: %w", eventTimeout, opCtx.Err())
	}
}

// MoveAndClick moves the pointer to (x, y) and performs the requested click.
func (d *Driver) MoveAndClick(ctx context.Context, x, y int, kind input.ClickKind) error {
	fx, fy := float64(x), float64(y)

	button := cdpinput.Left
	clicks := int64(1)
	switch kind {
	case input.ClickDouble:
		clicks = 2
	case input.ClickRight:
		button = cdpinput.Right
	}

	actions := []chromedp.Action{
		cdpinput.DispatchMouseEvent(cdpinput.MouseMoved, fx, fy),
	}
	for i := int64(1); i <= clicks; i++ {
		actions = append(actions,
			cdpinput.DispatchMouseEvent(cdpinput.MousePressed, fx, fy).
				WithButton(button).
				WithClickCount(i),
			cdpinput.DispatchMouseEvent(cdpinput.MouseReleased, fx, fy).
				WithButton(button).
				WithClickCount(i),
		)
	}
	if err := d.run(ctx, actions...); err != nil {
		return fmt.Errorf("cdp: click at (%d, %d) failed: %w", x, y, err)
	}

	d.mu.Lock()
	d.lastX, d.lastY = fx, fy
	d.pointerMoved = true
	d.mu.Unlock()

	d.logger.Debug("Dispatched click",
		zap.Int("x", x), zap.Int("y", y), zap.String("kind", string(kind)))
	return nil
}

// TypeText inserts the text into the focused element. InsertText mirrors a
// paste, which keeps multi-byte input intact.
func (d *Driver) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := d.run(ctx, cdpinput.InsertText(text)); err != nil {
		return fmt.Errorf("cdp: typing %d chars failed: %w", len(text), err)
	}
	d.logger.Debug("Dispatched text", zap.Int("chars", len(text)))
	return nil
}

// PressCombo dispatches the key combination. A combo with a primary key
// sends one keyDown/keyUp pair carrying the modifier bitmask; a
// modifier-only combo taps each modifier key in turn.
func (d *Driver) PressCombo(ctx context.Context, combo input.KeyCombo) error {
	var actions []chromedp.Action
	if combo.Key != "" {
		mods := cdpModifiers(combo.Modifiers)
		key := cdpKeyName(combo.Key)
		actions = append(actions,
			cdpinput.DispatchKeyEvent(cdpinput.KeyDown).WithModifiers(mods).WithKey(key),
			cdpinput.DispatchKeyEvent(cdpinput.KeyUp).WithModifiers(mods).WithKey(key),
		)
	} else {
		for _, mod := range combo.Modifiers {
			key := cdpModifierKeyName(mod)
			actions = append(actions,
				cdpinput.DispatchKeyEvent(cdpinput.KeyDown).WithKey(key),
				cdpinput.DispatchKeyEvent(cdpinput.KeyUp).WithKey(key),
			)
		}
	}
	if len(actions) == 0 {
		return nil
	}
	if err := d.run(ctx, actions...); err != nil {
		return fmt.Errorf("cdp: key combo %q failed: %w", combo.String(), err)
	}
	d.logger.Debug("Dispatched key combo", zap.String("combo", combo.String()))
	return nil
}

// Scroll dispatches mouse wheel events at the last pointer position.
// Positive dy scrolls up, matching the Driver contract; the wheel delta sign
// is inverted because a positive CDP deltaY scrolls the content down.
func (d *Driver) Scroll(ctx context.Context, dx, dy int) error {
	d.mu.Lock()
	x, y := d.lastX, d.lastY
	moved := d.pointerMoved
	d.mu.Unlock()
	if !moved {
		// No click has positioned the pointer yet; aim at a spot that is
		// inside any reasonable viewport.
		x, y = 400, 300
	}

	ev := cdpinput.DispatchMouseEvent(cdpinput.MouseWheel, x, y).
		WithDeltaX(float64(dx) * wheelStepPx).
		WithDeltaY(float64(-dy) * wheelStepPx)
	if err := d.run(ctx, ev); err != nil {
		return fmt.Errorf("cdp: scroll (dx=%d, dy=%d) failed: %w", dx, dy, err)
	}
	d.logger.Debug("Dispatched scroll", zap.Int("dx", dx), zap.Int("dy", dy))
	return nil
}

// CaptureScreen grabs a full-viewport screenshot and decodes it.
func (d *Driver) CaptureScreen(ctx context.Context) (image.Image, error) {
	var raw []byte
	capture := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	})
	if err := d.run(ctx, capture); err != nil {
		return nil, fmt.Errorf("cdp: screenshot failed: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("cdp: failed to decode screenshot: %w", err)
	}
	return img, nil
}

// cdpModifiers converts canonical modifiers to the Input domain bitmask.
func cdpModifiers(mods []input.Modifier) cdpinput.Modifier {
	var out cdpinput.Modifier
	for _, m := range mods {
		switch m {
		case input.ModAlt:
			out |= cdpinput.ModifierAlt
		case input.ModCtrl:
			out |= cdpinput.ModifierCtrl
		case input.ModCmd:
			out |= cdpinput.ModifierMeta
		case input.ModShift:
			out |= cdpinput.ModifierShift
		}
	}
	return out
}

// cdpModifierKeyName is the DOM key name a modifier produces when tapped on
// its own.
func cdpModifierKeyName(m input.Modifier) string {
	switch m {
	case input.ModCmd:
		return "Meta"
	case input.ModCtrl:
		return "Control"
	case input.ModAlt:
		return "Alt"
	case input.ModShift:
		return "Shift"
	}
	return ""
}

// domKeyNames maps canonical key names to DOM key values for DispatchKeyEvent.
var domKeyNames = map[string]string{
	"enter":       "Enter",
	"esc":         "Escape",
	"space":       " ",
	"tab":         "Tab",
	"backspace":   "Backspace",
	"delete":      "Delete",
	"up":          "ArrowUp",
	"down":        "ArrowDown",
	"left":        "ArrowLeft",
	"right":       "ArrowRight",
	"pageup":      "PageUp",
	"pagedown":    "PageDown",
	"home":        "Home",
	"end":         "End",
	"insert":      "Insert",
	"menu":        "ContextMenu",
	"numlock":     "NumLock",
	"pause":       "Pause",
	"printscreen": "PrintScreen",
	"scrolllock":  "ScrollLock",
	"capslock":    "CapsLock",
}

// cdpKeyName translates a canonical key name to its DOM key value. Function
// keys and single characters pass through with the expected casing.
func cdpKeyName(key string) string {
	if dom, ok := domKeyNames[key]; ok {
		return dom
	}
	if len(key) >= 2 && key[0] == 'f' {
		return strings.ToUpper(key)
	}
	return key
}
