package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
)

// Tesseract runs the tesseract CLI over stdin/stdout. No temp files: the
// processed frame is piped in as PNG and plain text comes back.
type Tesseract struct {
	Path  string // binary name or absolute path
	Langs string // tesseract -l value, e.g. "eng" or "eng+jpn"
}

// NewTesseract creates a CLI-backed engine.
func NewTesseract(path, langs string) *Tesseract {
	if path == "" {
		path = "tesseract"
	}
	if langs == "" {
		langs = "eng"
	}
	return &Tesseract{Path: path, Langs: langs}
}

// Recognize pipes the frame through tesseract and returns its text output.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if _, err := exec.LookPath(t.Path); err != nil {
		return Result{}, fmt.Errorf("%w: %s not found", ErrEngineUnavailable, t.Path)
	}

	data, err := encodePNG(img)
	if err != nil {
		return Result{}, fmt.Errorf("encode frame: %w", err)
	}

	// PSM 6: assume a uniform block of text, the usual shape of subtitles.
	cmd := exec.CommandContext(ctx, t.Path, "stdin", "stdout", "-l", t.Langs, "--psm", "6")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("tesseract: %w (%s)", err, stderr.String())
	}

	return Result{Text: stdout.String(), Confidence: -1}, nil
}
