// Package platform selects the window manager for the host system. Selection
// happens once at startup; the chosen manager is held as a single polymorphic
// value for the session.
package platform

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/oddseye/oddseye/internal/capture"
	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/window"
)

// Manager is the capability set a platform must provide: enumerate windows,
// best-effort focus, and capture through an ordered strategy chain.
type Manager interface {
	ListWindows() ([]window.Info, error)
	Focus(window.Info) bool
	Capture(ctx context.Context, win window.Info) (*image.RGBA, error)
	Strategies() []string
	Close() error
	Name() string
}

type manager struct {
	backend window.Backend
	chain   *capture.Chain
}

var _ Manager = (*manager)(nil)

// New builds the manager for the current platform. An error here means no
// capture mechanism exists on this host; callers must treat it as fatal and
// terminate rather than retry.
func New() (Manager, error) {
	log := logger.WithComponent("platform")

	var m *manager
	switch runtime.GOOS {
	case "darwin":
		backend, err := window.NewQuartzBackend()
		if err != nil {
			return nil, fmt.Errorf("no window capture mechanism available: %w", err)
		}
		m = &manager{
			backend: backend,
			chain: capture.NewChain(
				capture.NewScreencaptureTool(),
				capture.NewScreencaptureRegion(backend.ScreenSize),
			),
		}
	default:
		backend, err := window.NewX11Backend()
		if err != nil {
			return nil, fmt.Errorf("no window capture mechanism available: %w", err)
		}
		m = &manager{
			backend: backend,
			chain: capture.NewChain(
				capture.NewX11Native(backend.Conn(), backend.Screen()),
				capture.NewImportTool(),
				capture.NewScrotTool(backend.Focus),
				capture.NewPortal(backend.ScreenSize),
				capture.NewX11Region(backend.Conn(), backend.Root(), backend.Screen()),
			),
		}
	}

	log.Info().
		Str("backend", m.backend.Name()).
		Strs("strategies", m.chain.Strategies()).
		Msg("platform manager initialized")
	return m, nil
}

func (m *manager) ListWindows() ([]window.Info, error) {
	return m.backend.ListWindows()
}

func (m *manager) Focus(win window.Info) bool {
	return m.backend.Focus(win)
}

func (m *manager) Capture(ctx context.Context, win window.Info) (*image.RGBA, error) {
	return m.chain.Capture(ctx, win)
}

func (m *manager) Strategies() []string {
	return m.chain.Strategies()
}

func (m *manager) Close() error {
	return m.backend.Close()
}

func (m *manager) Name() string {
	return m.backend.Name()
}
