// Package ocr defines the text recognition capability boundary
package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
)

// Result is the outcome of one recognition pass. Empty text means no text
// was found, which is success, not failure.
type Result struct {
	Text       string
	Confidence float64 // negative when the engine reports no score
}

// Engine recognizes text in a processed frame. Errors indicate engine-level
// faults (engine unavailable, corrupt input); the cycle is skipped on error,
// never crashed.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (Result, error)
}

// ErrEngineUnavailable indicates the recognition engine cannot be reached.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
