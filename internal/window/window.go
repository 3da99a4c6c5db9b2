package window

import "fmt"

// Minimum size for a window to be considered capturable. Anything smaller is
// almost always a tooltip, dock or other UI fragment.
const (
	MinWidth  = 100
	MinHeight = 100
)

// Info describes a capturable top-level window. The ID is the identity; title
// and geometry are descriptive and may go stale after enumeration. Values are
// never mutated once constructed.
type Info struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%dx%d)", i.Title, i.Width, i.Height)
}

// Usable reports whether a window should be offered for capture: it must have
// a resolvable title and meet the minimum size.
func Usable(info Info) bool {
	if info.Title == "" {
		return false
	}
	if info.Width < MinWidth || info.Height < MinHeight {
		return false
	}
	return true
}

// Filter returns the usable subset of windows in enumeration order.
func Filter(infos []Info) []Info {
	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		if Usable(info) {
			out = append(out, info)
		}
	}
	return out
}

// Backend enumerates and focuses windows on one display system. Enumeration is
// fresh on every call; nothing is cached.
type Backend interface {
	// ListWindows returns every enumerable top-level window, unfiltered.
	// Callers apply Filter before offering windows for selection.
	ListWindows() ([]Info, error)

	// Focus raises the window. Best-effort: a false return never prevents
	// capture.
	Focus(Info) bool

	// ScreenSize returns the full screen dimensions in pixels.
	ScreenSize() (width, height int)

	// Close releases the display-server connection.
	Close() error

	// Name returns the backend name (e.g. "x11", "quartz").
	Name() string
}
