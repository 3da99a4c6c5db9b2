package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/window"
)

// nativeTimeout bounds the compositor round trip. An X server that stops
// answering would otherwise stall the whole scan loop.
const nativeTimeout = 5 * time.Second

// X11Native captures a window's own pixels through the X compositor, using
// the Composite extension when the server supports it. Fastest and most
// accurate, but fails for unmapped or compositor-bypassed windows.
type X11Native struct {
	conn             *xgb.Conn
	screen           *xproto.ScreenInfo
	compositeEnabled bool
}

var _ Strategy = (*X11Native)(nil)

// NewX11Native initializes the strategy over a shared X connection.
func NewX11Native(conn *xgb.Conn, screen *xproto.ScreenInfo) *X11Native {
	s := &X11Native{conn: conn, screen: screen}
	if err := composite.Init(conn); err != nil {
		logger.WithComponent("x11-native").Warn().
			Err(err).
			Msg("Composite extension not available, obscured windows may capture black")
	} else {
		s.compositeEnabled = true
	}
	return s
}

func (s *X11Native) Name() string { return "x11-native" }

func (s *X11Native) Capture(ctx context.Context, win window.Info) (*image.RGBA, error) {
	ctx, cancel := context.WithTimeout(ctx, nativeTimeout)
	defer cancel()

	id, err := parseDrawableID(win.ID)
	if err != nil {
		return nil, failf(NoWindow, s.Name(), "bad window id: %w", err)
	}

	return s.capture(ctx, id)
}

func (s *X11Native) capture(ctx context.Context, win xproto.Window) (*image.RGBA, error) {
	attrs, err := awaitReply(ctx, s.Name(), func() (*xproto.GetWindowAttributesReply, error) {
		return xproto.GetWindowAttributes(s.conn, win).Reply()
	})
	if err != nil {
		return nil, err
	}
	if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
		return nil, failf(NoWindow, s.Name(), "window %d is not viewable", win)
	}

	geom, err := awaitReply(ctx, s.Name(), func() (*xproto.GetGeometryReply, error) {
		return xproto.GetGeometry(s.conn, xproto.Drawable(win)).Reply()
	})
	if err != nil {
		return nil, err
	}
	if geom.Width == 0 || geom.Height == 0 {
		return nil, failf(EmptyRegion, s.Name(), "window %d has zero size", win)
	}

	drawable := xproto.Drawable(win)
	if s.compositeEnabled {
		// Redirect through a named pixmap so occluded content is still
		// backed by real pixels.
		if err := composite.RedirectWindowChecked(s.conn, win, composite.RedirectAutomatic).Check(); err == nil {
			defer composite.UnredirectWindow(s.conn, win, composite.RedirectAutomatic)

			if pixmap, err := xproto.NewPixmapId(s.conn); err == nil {
				if err := composite.NameWindowPixmapChecked(s.conn, win, pixmap).Check(); err == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(s.conn, pixmap)
				}
			}
		}
	}

	reply, err := awaitReply(ctx, s.Name(), func() (*xproto.GetImageReply, error) {
		return xproto.GetImage(
			s.conn,
			xproto.ImageFormatZPixmap,
			drawable,
			0, 0,
			geom.Width, geom.Height,
			0xffffffff,
		).Reply()
	})
	if err != nil {
		return nil, err
	}

	return bgraToRGBA(reply.Data, int(geom.Width), int(geom.Height)), nil
}

// X11Region grabs a rectangle of the root window at the target's last-known
// bounds. Last-resort fallback: it captures whatever is on top of that region.
type X11Region struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
}

var _ Strategy = (*X11Region)(nil)

func NewX11Region(conn *xgb.Conn, root xproto.Window, screen *xproto.ScreenInfo) *X11Region {
	return &X11Region{conn: conn, root: root, screen: screen}
}

func (s *X11Region) Name() string { return "x11-region" }

func (s *X11Region) Capture(ctx context.Context, win window.Info) (*image.RGBA, error) {
	ctx, cancel := context.WithTimeout(ctx, nativeTimeout)
	defer cancel()

	screenW := int(s.screen.WidthInPixels)
	screenH := int(s.screen.HeightInPixels)
	x, y, w, h, ok := ClampRegion(win.X, win.Y, win.Width, win.Height, screenW, screenH)
	if !ok {
		return nil, failf(EmptyRegion, s.Name(), "window bounds %dx%d at (%d,%d) fall outside the %dx%d screen",
			win.Width, win.Height, win.X, win.Y, screenW, screenH)
	}

	reply, err := awaitReply(ctx, s.Name(), func() (*xproto.GetImageReply, error) {
		return xproto.GetImage(
			s.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(s.root),
			int16(x), int16(y),
			uint16(w), uint16(h),
			0xffffffff,
		).Reply()
	})
	if err != nil {
		return nil, err
	}

	return bgraToRGBA(reply.Data, w, h), nil
}

// ClampRegion confines a window rectangle to the screen: offsets are never
// negative and the extent never exceeds the screen. ok is false when nothing
// of the rectangle remains visible.
func ClampRegion(x, y, w, h, screenW, screenH int) (cx, cy, cw, ch int, ok bool) {
	cx = max(0, x)
	cy = max(0, y)
	// A window hanging off the left/top edge keeps only its visible part.
	cw = w - (cx - x)
	ch = h - (cy - y)
	cw = min(cw, screenW-cx)
	ch = min(ch, screenH-cy)
	if cw <= 0 || ch <= 0 {
		return 0, 0, 0, 0, false
	}
	return cx, cy, cw, ch, true
}

// awaitReply runs a blocking X round trip under the context deadline. The xgb
// cookie API has no native timeout, so the reply is collected on a goroutine
// and abandoned if the deadline fires first.
func awaitReply[T any](ctx context.Context, strategy string, fn func() (T, error)) (T, error) {
	type result struct {
		reply T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		reply, err := fn()
		ch <- result{reply, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, failf(Timeout, strategy, "X server did not reply: %w", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			var zero T
			return zero, failf(NoWindow, strategy, "x11 request failed: %w", res.err)
		}
		return res.reply, nil
	}
}

// bgraToRGBA converts 32-bit ZPixmap data to an RGBA image.
func bgraToRGBA(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height * 4
	if len(data) < n {
		n = len(data) &^ 3
	}
	for i := 0; i < n; i += 4 {
		img.Pix[i] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = 0xff
	}
	return img
}

func parseDrawableID(id string) (xproto.Window, error) {
	var n uint32
	if _, err := fmt.Sscanf(id, "0x%x", &n); err != nil {
		if _, err := fmt.Sscanf(id, "%d", &n); err != nil {
			return 0, fmt.Errorf("unparseable id %q", id)
		}
	}
	return xproto.Window(n), nil
}
