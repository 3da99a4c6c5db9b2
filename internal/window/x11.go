package window

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/oddseye/oddseye/internal/logger"
)

// X11Backend enumerates windows over an X11 (or XWayland) connection.
type X11Backend struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	screen *xproto.ScreenInfo
}

var _ Backend = (*X11Backend)(nil)

// NewX11Backend connects to the X server.
func NewX11Backend() (*X11Backend, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	return &X11Backend{
		xu:     xu,
		root:   xu.RootWin(),
		screen: xu.Screen(),
	}, nil
}

// Conn exposes the underlying connection for capture strategies that share it.
func (b *X11Backend) Conn() *xgb.Conn {
	return b.xu.Conn()
}

// Screen returns the default screen info.
func (b *X11Backend) Screen() *xproto.ScreenInfo {
	return b.screen
}

// Root returns the root window.
func (b *X11Backend) Root() xproto.Window {
	return b.root
}

func (b *X11Backend) Name() string {
	return "x11"
}

func (b *X11Backend) Close() error {
	b.xu.Conn().Close()
	return nil
}

// ScreenSize returns the root window dimensions.
func (b *X11Backend) ScreenSize() (int, int) {
	return int(b.screen.WidthInPixels), int(b.screen.HeightInPixels)
}

// ListWindows enumerates via EWMH _NET_CLIENT_LIST, falling back to a root
// QueryTree when the window manager does not maintain a client list.
func (b *X11Backend) ListWindows() ([]Info, error) {
	log := logger.WithComponent("x11-backend")

	ids, err := ewmh.ClientListGet(b.xu)
	if err == nil && len(ids) > 0 {
		log.Debug().Int("count", len(ids)).Msg("ListWindows: using EWMH _NET_CLIENT_LIST")
		return b.collect(ids), nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("ListWindows: EWMH failed, falling back to QueryTree")
	}

	tree, err := xproto.QueryTree(b.xu.Conn(), b.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}
	log.Debug().Int("count", len(tree.Children)).Msg("ListWindows: using QueryTree fallback")
	return b.collect(tree.Children), nil
}

func (b *X11Backend) collect(ids []xproto.Window) []Info {
	windows := make([]Info, 0, len(ids))
	for _, id := range ids {
		info, err := b.getInfo(id)
		if err != nil {
			continue
		}
		windows = append(windows, info)
	}
	return windows
}

// getInfo resolves title and root-relative geometry for a window.
func (b *X11Backend) getInfo(win xproto.Window) (Info, error) {
	info := Info{ID: fmt.Sprintf("0x%x", uint32(win))}

	title, err := ewmh.WmNameGet(b.xu, win)
	if err != nil || title == "" {
		// Older clients only set the ICCCM name.
		title, _ = icccm.WmNameGet(b.xu, win)
	}
	if title == "" {
		// Fall back to the class so app windows without a title remain
		// selectable.
		if class, err := icccm.WmClassGet(b.xu, win); err == nil && class != nil {
			title = class.Class
		}
	}
	info.Title = title

	geom, err := xproto.GetGeometry(b.xu.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return info, fmt.Errorf("failed to get geometry for %s: %w", info.ID, err)
	}
	info.Width = int(geom.Width)
	info.Height = int(geom.Height)
	info.X = int(geom.X)
	info.Y = int(geom.Y)

	// Geometry is parent-relative; translate to root coordinates so the
	// screen-region fallback grabs the right area.
	if trans, err := xproto.TranslateCoordinates(b.xu.Conn(), win, b.root, 0, 0).Reply(); err == nil {
		info.X = int(trans.DstX)
		info.Y = int(trans.DstY)
	}

	return info, nil
}

// Focus asks the window manager to activate the window. Best-effort: some
// window managers ignore the request, and capture proceeds regardless.
func (b *X11Backend) Focus(info Info) bool {
	win, err := parseWindowID(info.ID)
	if err != nil {
		return false
	}
	if err := ewmh.ActiveWindowReq(b.xu, win); err != nil {
		logger.WithComponent("x11-backend").Debug().
			Err(err).
			Str("id", info.ID).
			Msg("activate request failed")
		return false
	}
	return true
}

// parseWindowID converts the opaque handle back to an X11 window.
func parseWindowID(id string) (xproto.Window, error) {
	n, err := strconv.ParseUint(id, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid X11 window id %q: %w", id, err)
	}
	return xproto.Window(n), nil
}
