//go:build windows

package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

type windowsBackend struct{ tempDir string }

// copyScreenScript captures the virtual screen via System.Drawing.
const copyScreenScript = `Add-Type -AssemblyName System.Windows.Forms,System.Drawing;
$b = New-Object Drawing.Bitmap([Windows.Forms.SystemInformation]::VirtualScreen.Width, [Windows.Forms.SystemInformation]::VirtualScreen.Height);
$g = [Drawing.Graphics]::FromImage($b);
$g.CopyFromScreen([Windows.Forms.SystemInformation]::VirtualScreen.Location, [Drawing.Point]::Empty, $b.Size);
$b.Save($env:SUBSIGHT_FRAME, [Drawing.Imaging.ImageFormat]::Png);`

func (w *windowsBackend) captureRaw(ctx context.Context) ([]byte, error) {
	tmpFile := filepath.Join(w.tempDir, "frame.png")

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", copyScreenScript)
	cmd.Env = append(os.Environ(), "SUBSIGHT_FRAME="+tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("powershell capture: %w (%s)", err, stderr.String())
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	os.Remove(tmpFile)
	return data, nil
}

func (w *windowsBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New() Capturer {
	tmpDir, err := os.MkdirTemp("", "subsight-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&windowsBackend{tempDir: tmpDir}, tmpDir)
}
