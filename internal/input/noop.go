// File: internal/input/noop.go
package input

import (
	"context"

	"go.uber.org/zap"
)

// NoopDriver logs every requested input event without dispatching anything.
// It backs dry runs and is the safe default when no real backend is
// configured.
type NoopDriver struct {
	logger *zap.Logger
}

var _ Driver = (*NoopDriver)(nil)

func NewNoopDriver(logger *zap.Logger) *NoopDriver {
	return &NoopDriver{logger: logger.Named("input.noop")}
}

func (d *NoopDriver) MoveAndClick(ctx context.Context, x, y int, kind ClickKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("Dry-run click", zap.Int("x", x), zap.Int("y", y), zap.String("kind", string(kind)))
	return nil
}

func (d *NoopDriver) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("Dry-run type", zap.Int("chars", len(text)))
	return nil
}

func (d *NoopDriver) PressCombo(ctx context.Context, combo KeyCombo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("Dry-run key press", zap.String("combo", combo.String()))
	return nil
}

func (d *NoopDriver) Scroll(ctx context.Context, dx, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("Dry-run scroll", zap.Int("dx", dx), zap.Int("dy", dy))
	return nil
}
