// File: internal/input/driver.go
package input

import "context"

// ClickKind selects the click behavior for MoveAndClick.
type ClickKind string

const (
	ClickSingle ClickKind = "single"
	ClickDouble ClickKind = "double"
	ClickRight  ClickKind = "right"
)

// Driver is the input-simulation collaborator: low-level move/click/type/
// press primitives, each reporting success or failure synchronously. All
// coordinates are logical points (physical pixels divided by the display
// scaling factor).
//
// Operations are not cancellable mid-dispatch; the context bounds setup
// only, a dispatched event is always allowed to complete.
type Driver interface {
	MoveAndClick(ctx context.Context, x, y int, kind ClickKind) error
	TypeText(ctx context.Context, text string) error
	PressCombo(ctx context.Context, combo KeyCombo) error
	// Scroll moves the wheel by dx/dy steps; positive dy scrolls up,
	// positive dx scrolls right.
	Scroll(ctx context.Context, dx, dy int) error
}
