// File: internal/executor/mocks_test.go
package executor

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/sightline-ai/sightline/internal/input"
)

// mockDriver is a testify mock of the input.Driver interface.
type mockDriver struct {
	mock.Mock
}

var _ input.Driver = (*mockDriver)(nil)

func (m *mockDriver) MoveAndClick(ctx context.Context, x, y int, kind input.ClickKind) error {
	args := m.Called(ctx, x, y, kind)
	return args.Error(0)
}

func (m *mockDriver) TypeText(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *mockDriver) PressCombo(ctx context.Context, combo input.KeyCombo) error {
	args := m.Called(ctx, combo)
	return args.Error(0)
}

func (m *mockDriver) Scroll(ctx context.Context, dx, dy int) error {
	args := m.Called(ctx, dx, dy)
	return args.Error(0)
}

// fakeShooter returns a fixed sequence of images, one per call.
type fakeShooter struct {
	images []image.Image
	calls  int
	err    error
}

func (f *fakeShooter) CaptureScreen(ctx context.Context) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	img := f.images[f.calls%len(f.images)]
	f.calls++
	return img, nil
}
