package capture

import (
	"context"
	"image"
	"time"

	"github.com/subsight/subsight/internal/syncx"
)

// MemoryCapturer serves frames from an in-memory composited source. Hosts
// that already hold the screen contents (or tests) push images into it and
// the pipeline consumes them like any other capture backend.
type MemoryCapturer struct {
	img *syncx.RWGuard[image.Image]
}

// NewMemory creates an in-memory capturer.
func NewMemory() *MemoryCapturer {
	return &MemoryCapturer{img: syncx.NewGuard[image.Image](nil)}
}

// Push replaces the frame returned by subsequent captures.
func (m *MemoryCapturer) Push(img image.Image) {
	m.img.Set(img)
}

// Capture returns the most recently pushed frame cropped to the region.
func (m *MemoryCapturer) Capture(_ context.Context, region Region) (*Frame, error) {
	img := m.img.Get()
	if img == nil {
		return nil, ErrNoBackend
	}
	return &Frame{Image: Crop(img, region), CapturedAt: time.Now()}, nil
}

// Close is a no-op for the in-memory source.
func (m *MemoryCapturer) Close() {}
