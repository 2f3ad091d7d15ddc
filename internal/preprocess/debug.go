package preprocess

import (
	"image"
	"image/png"
	"log/slog"
	"os"
)

// WriteDebug persists a processed frame to the configured debug path so
// external preview tooling can inspect it. The write is best-effort: failures
// are logged and never propagate into the pipeline.
func WriteDebug(img image.Image, path string) {
	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		slog.Warn("debug image write failed", "path", path, "error", err)
		return
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		slog.Warn("debug image encode failed", "path", path, "error", err)
	}
}
