package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/window"
)

// toolTimeout bounds one helper-tool invocation.
const toolTimeout = 10 * time.Second

// Tool captures by invoking an external screenshot utility that writes a PNG
// to a scoped temporary file. The file is removed on every exit path; a
// run that exceeds the timeout has its process killed and its file cleaned
// up all the same.
type Tool struct {
	name    string
	binary  string
	args    func(win window.Info, path string) []string
	prepare func(win window.Info)
	timeout time.Duration

	// tmpDir overrides the temp-file location; empty means the OS default.
	tmpDir string
}

var _ Strategy = (*Tool)(nil)

// NewImportTool captures a specific window id with ImageMagick's import.
func NewImportTool() *Tool {
	return &Tool{
		name:   "import",
		binary: "import",
		args: func(win window.Info, path string) []string {
			return []string{"-window", win.ID, path}
		},
		timeout: toolTimeout,
	}
}

// NewScrotTool captures the focused window with scrot, focusing the target
// first. focus is best-effort; capture proceeds even when it fails.
func NewScrotTool(focus func(window.Info) bool) *Tool {
	return &Tool{
		name:   "scrot",
		binary: "scrot",
		args: func(_ window.Info, path string) []string {
			return []string{"-u", "-o", path}
		},
		prepare: func(win window.Info) {
			if focus != nil {
				focus(win)
				// Let the window manager finish raising the window.
				time.Sleep(200 * time.Millisecond)
			}
		},
		timeout: toolTimeout,
	}
}

// NewScreencaptureTool captures a window id with the macOS screencapture
// utility.
func NewScreencaptureTool() *Tool {
	return &Tool{
		name:   "screencapture",
		binary: "screencapture",
		args: func(win window.Info, path string) []string {
			return []string{"-x", "-o", "-l", win.ID, path}
		},
		timeout: toolTimeout,
	}
}

// NewScreencaptureRegion grabs the screen region at the window's last-known
// bounds with screencapture, clamped to the main display.
func NewScreencaptureRegion(screenSize func() (int, int)) *Tool {
	return &Tool{
		name:   "screencapture-region",
		binary: "screencapture",
		args: func(win window.Info, path string) []string {
			sw, sh := screenSize()
			x, y, w, h, ok := ClampRegion(win.X, win.Y, win.Width, win.Height, sw, sh)
			if !ok {
				// An impossible region still produces a well-formed command;
				// screencapture fails and the chain records the failure.
				x, y, w, h = 0, 0, 0, 0
			}
			return []string{"-x", fmt.Sprintf("-R%d,%d,%d,%d", x, y, w, h), path}
		},
		timeout: toolTimeout,
	}
}

func (t *Tool) Name() string { return t.name }

func (t *Tool) Capture(ctx context.Context, win window.Info) (*image.RGBA, error) {
	if _, err := exec.LookPath(t.binary); err != nil {
		return nil, failf(ToolUnavailable, t.name, "%s not found in PATH", t.binary)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if t.prepare != nil {
		t.prepare(win)
	}

	f, err := os.CreateTemp(t.tmpDir, "oddseye-*.png")
	if err != nil {
		return nil, failf(NoWindow, t.name, "failed to create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			// Cleanup failure is logged and ignored; it must never stop the
			// scan loop.
			logger.WithComponent("capture-tool").Warn().
				Err(err).
				Str("path", path).
				Msg("failed to remove temp file")
		}
	}()

	cmd := exec.CommandContext(ctx, t.binary, t.args(win, path)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, failf(Timeout, t.name, "%s timed out after %s", t.binary, t.timeout)
		}
		return nil, failf(NoWindow, t.name, "%s failed: %w (%s)",
			t.binary, err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failf(NoWindow, t.name, "failed to read capture output: %w", err)
	}
	if len(data) == 0 {
		return nil, failf(EmptyRegion, t.name, "%s wrote an empty file", t.binary)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, failf(EmptyRegion, t.name, "failed to decode capture output: %w", err)
	}
	return toRGBA(img), nil
}

// toRGBA normalizes any decoded image to RGBA.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
