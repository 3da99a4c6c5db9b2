package window

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/oddseye/oddseye/internal/logger"
)

const osascriptTimeout = 10 * time.Second

// listWindowsScript dumps the on-screen window list as one JSON object per
// line via the CoreGraphics window server.
const listWindowsScript = `
ObjC.import('CoreGraphics');
var opts = $.kCGWindowListOptionOnScreenOnly | $.kCGWindowListExcludeDesktopElements;
var wins = ObjC.deepUnwrap($.CFBridgingRelease($.CGWindowListCopyWindowInfo(opts, $.kCGNullWindowID))) || [];
var lines = wins.map(function (w) {
	var b = w.kCGWindowBounds || {};
	return JSON.stringify({
		id: w.kCGWindowNumber,
		owner: w.kCGWindowOwnerName || '',
		name: w.kCGWindowName || '',
		x: b.X || 0, y: b.Y || 0,
		width: b.Width || 0, height: b.Height || 0
	});
});
console.log(lines.join('\n'));
`

const screenSizeScript = `
ObjC.import('CoreGraphics');
var id = $.CGMainDisplayID();
console.log($.CGDisplayPixelsWide(id) + ' ' + $.CGDisplayPixelsHigh(id));
`

// QuartzBackend enumerates windows on macOS through short-lived osascript
// invocations, so no cgo is needed.
type QuartzBackend struct{}

var _ Backend = (*QuartzBackend)(nil)

// NewQuartzBackend verifies that osascript is available.
func NewQuartzBackend() (*QuartzBackend, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, fmt.Errorf("osascript not found: %w", err)
	}
	return &QuartzBackend{}, nil
}

func (b *QuartzBackend) Name() string { return "quartz" }

func (b *QuartzBackend) Close() error { return nil }

type quartzWindow struct {
	ID     int64   `json:"id"`
	Owner  string  `json:"owner"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ListWindows returns the on-screen window list from the window server,
// unfiltered; callers decide what is selectable.
func (b *QuartzBackend) ListWindows() ([]Info, error) {
	out, err := runOsascript(listWindowsScript)
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}
	return parseQuartzWindows(out), nil
}

// parseQuartzWindows decodes the one-JSON-object-per-line window dump.
func parseQuartzWindows(out []byte) []Info {
	windows := make([]Info, 0)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var w quartzWindow
		if err := json.Unmarshal([]byte(line), &w); err != nil {
			continue
		}
		title := w.Owner
		if w.Name != "" {
			title = fmt.Sprintf("%s: %s", w.Owner, w.Name)
		}
		windows = append(windows, Info{
			ID:     fmt.Sprintf("%d", w.ID),
			Title:  title,
			X:      int(w.X),
			Y:      int(w.Y),
			Width:  int(w.Width),
			Height: int(w.Height),
		})
	}
	return windows
}

// Focus activates the owning application. The title carries the owner as its
// prefix ("Owner: Window").
func (b *QuartzBackend) Focus(info Info) bool {
	app := info.Title
	if idx := strings.Index(app, ":"); idx >= 0 {
		app = strings.TrimSpace(app[:idx])
	}
	if app == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), osascriptTimeout)
	defer cancel()

	script := fmt.Sprintf("tell application %q to activate", app)
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		logger.WithComponent("quartz-backend").Debug().
			Err(err).
			Str("app", app).
			Msg("activate failed")
		return false
	}
	// Give the window server a moment to raise the window.
	time.Sleep(300 * time.Millisecond)
	return true
}

// ScreenSize returns the main display size, or a sane default when the query
// fails.
func (b *QuartzBackend) ScreenSize() (int, int) {
	out, err := runOsascript(screenSizeScript)
	if err != nil {
		return 1920, 1080
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%d %d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 1920, 1080
	}
	return w, h
}

func runOsascript(script string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), osascriptTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "osascript", "-l", "JavaScript", "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("osascript timed out after %s", osascriptTimeout)
		}
		return nil, fmt.Errorf("osascript failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	// console.log writes to stderr in JXA; prefer stdout but accept either.
	if stdout.Len() > 0 {
		return stdout.Bytes(), nil
	}
	return stderr.Bytes(), nil
}
