package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oddseye/oddseye/internal/analysis"
	"github.com/oddseye/oddseye/internal/config"
	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/platform"
	"github.com/oddseye/oddseye/internal/preview"
	"github.com/oddseye/oddseye/internal/scan"
	"github.com/oddseye/oddseye/internal/ui"
	"github.com/oddseye/oddseye/internal/window"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a scan session",
	Long: `Start a scan session: pick a poker table window, then capture and
analyze it once per interval until interrupted.

During the session the arrow keys (or k/j) adjust the opponent count and
q or Ctrl+C stops the session.`,
	Example: `  # Scan with defaults (1s interval)
  oddseye run

  # Scan every 2 seconds with 5 opponents
  oddseye run --interval 2s --opponents 5

  # Serve a capture preview at http://localhost:8990
  oddseye run --preview-port 8990`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("run")

	licenseKey, err := config.LicenseKey(cfg.LicenseFile)
	if err != nil {
		return err
	}

	// No working capture mechanism is fatal; everything after this point
	// degrades per tick instead.
	mgr, err := platform.New()
	if err != nil {
		return err
	}
	defer mgr.Close()

	windows, err := mgr.ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	win, err := ui.SelectWindow(window.Filter(windows))
	if err != nil {
		if err == ui.ErrSelectionCancelled {
			fmt.Println("No window selected.")
			return nil
		}
		return err
	}
	log.Info().Str("window", win.ID).Str("title", win.Title).Msg("window selected")
	mgr.Focus(win)

	client := analysis.NewClient(cfg.APIURL, cfg.QualityURL, licenseKey, cfg.JPEGQuality)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ask the service what upload quality it wants before the loop starts.
	client.SetQuality(client.IdealQuality(ctx))

	// The live display owns the terminal from here on, so logs move to a
	// file for the rest of the session.
	logPath := cfg.LogFile
	if logPath == "" {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		logPath = filepath.Join(dir, "session.log")
	}
	if err := logger.InitFile(cfg.LogLevel, logPath); err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	opponents := scan.NewOpponents(cfg.Opponents)

	var frames scan.FrameSink
	if cfg.PreviewPort > 0 {
		srv := preview.NewServer(cfg.PreviewPort)
		go func() {
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithComponent("preview").Error().Err(err).Msg("preview server failed")
			}
		}()
		frames = srv
	}

	listener := &scan.Listener{Opponents: opponents, OnQuit: stop}
	listenerDone := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(listenerDone)
	}()

	display := ui.NewDisplay()
	display.Start()

	loop := scan.NewLoop(mgr, client, display, frames,
		win, cfg.ScanInterval, opponents)
	loop.Run(ctx)

	// The listener restores the terminal on its way out; wait for it so a
	// signal-driven exit cannot leave the shell in raw mode.
	<-listenerDone

	display.Stop()
	fmt.Println("Scan session ended.")
	return nil
}
