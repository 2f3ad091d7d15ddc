// Package capture provides screen frame acquisition with region cropping
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"strings"
	"time"
)

// Mode selects which part of the screen a region describes.
type Mode int

const (
	ModeFullscreen Mode = iota
	ModeRegion
	ModeSubtitleArea
)

func (m Mode) String() string {
	return [...]string{"fullscreen", "region", "subtitle_area"}[m]
}

// ParseMode maps a config string to a Mode, defaulting to fullscreen.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "region":
		return ModeRegion
	case "subtitle_area", "subtitle":
		return ModeSubtitleArea
	default:
		return ModeFullscreen
	}
}

// Region describes the screen rectangle to capture. It is immutable for the
// duration of a capture cycle; reconfiguration replaces it wholesale.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Mode   Mode
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Frame is a bitmap snapshot with a monotonic capture timestamp. It is owned
// exclusively by the cycle that produced it.
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
}

// Capturer produces raw frames of a configured screen region.
type Capturer interface {
	Capture(ctx context.Context, region Region) (*Frame, error)
	Close()
}

// ErrNoBackend indicates no screenshot tool is available on this platform.
var ErrNoBackend = errors.New("no screen capture backend available")

// backend implements platform-specific raw capture, returning encoded
// image bytes.
type backend interface {
	captureRaw(ctx context.Context) ([]byte, error)
	cleanup()
}

// baseCapturer decodes and crops frames produced by a platform backend.
type baseCapturer struct {
	backend
	tempDir string
}

func newBase(b backend, tempDir string) *baseCapturer {
	return &baseCapturer{backend: b, tempDir: tempDir}
}

func (c *baseCapturer) Capture(ctx context.Context, region Region) (*Frame, error) {
	data, err := c.captureRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("screen grab failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	return &Frame{Image: Crop(img, region), CapturedAt: time.Now()}, nil
}

func (c *baseCapturer) Close() {
	c.cleanup()
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}

// Crop extracts the configured region from a full-screen grab. Fullscreen
// regions and rectangles with no area pass the image through unchanged.
func Crop(img image.Image, region Region) image.Image {
	if region.Mode == ModeFullscreen || region.Width <= 0 || region.Height <= 0 {
		return img
	}

	rect := region.Rect().Intersect(img.Bounds())
	if rect.Empty() {
		return img
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}
