package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/window"
)

// Portal D-Bus constants
const (
	portalService    = "org.freedesktop.portal.Desktop"
	portalPath       = "/org/freedesktop/portal/desktop"
	screenshotIface  = "org.freedesktop.portal.Screenshot"
	requestIface     = "org.freedesktop.portal.Request"
	portalCallWindow = 30 * time.Second
)

var portalToken atomic.Uint64

// Portal captures via the xdg-desktop-portal Screenshot interface. It is the
// only strategy that works for native Wayland surfaces, at the cost of
// grabbing the whole screen, which is then cropped to the window's bounds.
type Portal struct {
	screenSize func() (int, int)
}

var _ Strategy = (*Portal)(nil)

// NewPortal builds the portal strategy. screenSize supplies the crop clamp.
func NewPortal(screenSize func() (int, int)) *Portal {
	return &Portal{screenSize: screenSize}
}

func (p *Portal) Name() string { return "portal" }

func (p *Portal) Capture(ctx context.Context, win window.Info) (*image.RGBA, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, failf(ToolUnavailable, p.Name(), "failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	uri, err := p.requestScreenshot(ctx, conn)
	if err != nil {
		return nil, err
	}

	path, err := fileURIPath(uri)
	if err != nil {
		return nil, failf(NoWindow, p.Name(), "portal returned unusable uri %q: %w", uri, err)
	}
	// The portal leaves the file behind; it belongs to this attempt and is
	// removed no matter how decoding goes.
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failf(NoWindow, p.Name(), "failed to read portal screenshot: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, failf(EmptyRegion, p.Name(), "failed to decode portal screenshot: %w", err)
	}

	return p.crop(toRGBA(img), win)
}

// requestScreenshot performs the Screenshot call and waits for the Response
// signal carrying the file URI.
func (p *Portal) requestScreenshot(ctx context.Context, conn *dbus.Conn) (string, error) {
	log := logger.WithComponent("portal")
	obj := conn.Object(portalService, portalPath)

	token := fmt.Sprintf("oddseye%d_%d", os.Getpid(), portalToken.Add(1))
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"interactive":  dbus.MakeVariant(false),
	}

	// Subscribe to Response signals before calling, or the reply can race us.
	responseChan := make(chan *dbus.Signal, 10)
	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("failed to add match rule")
	}
	conn.Signal(responseChan)
	defer conn.RemoveSignal(responseChan)

	var requestPath dbus.ObjectPath
	if err := obj.Call(screenshotIface+".Screenshot", 0, "", options).Store(&requestPath); err != nil {
		return "", failf(ToolUnavailable, p.Name(), "Screenshot call failed: %w", err)
	}

	timeout := time.After(portalCallWindow)
	for {
		select {
		case <-ctx.Done():
			return "", failf(Timeout, p.Name(), "cancelled waiting for portal response: %w", ctx.Err())
		case <-timeout:
			return "", failf(Timeout, p.Name(), "no portal response within %s", portalCallWindow)
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			if len(sig.Body) < 2 {
				return "", failf(NoWindow, p.Name(), "malformed portal response")
			}
			code, _ := sig.Body[0].(uint32)
			if code != 0 {
				return "", failf(NoWindow, p.Name(), "portal request denied (code %d)", code)
			}
			results, _ := sig.Body[1].(map[string]dbus.Variant)
			if v, ok := results["uri"]; ok {
				if uri, ok := v.Value().(string); ok {
					return uri, nil
				}
			}
			return "", failf(NoWindow, p.Name(), "portal response carried no uri")
		}
	}
}

// crop cuts the full-screen shot down to the window's last-known bounds.
func (p *Portal) crop(screen *image.RGBA, win window.Info) (*image.RGBA, error) {
	sw, sh := p.screenSize()
	b := screen.Bounds()
	// The portal shot is authoritative about actual screen size.
	if b.Dx() > 0 && b.Dy() > 0 {
		sw, sh = b.Dx(), b.Dy()
	}

	x, y, w, h, ok := ClampRegion(win.X, win.Y, win.Width, win.Height, sw, sh)
	if !ok {
		return nil, failf(EmptyRegion, p.Name(), "window bounds outside the screen")
	}

	cropped := image.NewRGBA(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		srcOff := screen.PixOffset(x, y+row)
		dstOff := cropped.PixOffset(0, row)
		copy(cropped.Pix[dstOff:dstOff+w*4], screen.Pix[srcOff:srcOff+w*4])
	}
	return cropped, nil
}

func fileURIPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" || u.Path == "" {
		return "", fmt.Errorf("expected file:// uri")
	}
	return strings.TrimSpace(u.Path), nil
}
