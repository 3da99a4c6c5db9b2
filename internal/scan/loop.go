package scan

import (
	"context"
	"image"
	"time"

	"github.com/oddseye/oddseye/internal/analysis"
	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/window"
)

// State is the renderable snapshot of one scan tick. Only the loop goroutine
// writes it; the opponent count inside is a per-tick snapshot of the shared
// counter.
type State struct {
	Iteration int
	Opponents int
	Window    window.Info
	Result    analysis.Result
}

// Capturer produces one bitmap per tick. platform.Manager satisfies this.
type Capturer interface {
	Capture(ctx context.Context, win window.Info) (*image.RGBA, error)
}

// Analyzer turns a frame into a displayable result. analysis.Client
// satisfies this.
type Analyzer interface {
	Analyze(ctx context.Context, frame *image.RGBA, opponents int) analysis.Result
}

// Renderer receives the state after every tick. It must not block the next
// tick indefinitely.
type Renderer interface {
	Render(State)
}

// FrameSink receives successful captures, e.g. for the MJPEG preview.
// Implementations must not block.
type FrameSink interface {
	Publish(frame *image.RGBA)
}

// Loop drives capture → analyze → render cycles at a fixed target interval,
// compensating the sleep for however long the tick itself took.
type Loop struct {
	capturer  Capturer
	analyzer  Analyzer
	renderer  Renderer
	frames    FrameSink
	win       window.Info
	interval  time.Duration
	opponents *Opponents

	// Injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewLoop wires a loop for the selected window. frames may be nil.
func NewLoop(capturer Capturer, analyzer Analyzer, renderer Renderer, frames FrameSink,
	win window.Info, interval time.Duration, opponents *Opponents) *Loop {
	return &Loop{
		capturer:  capturer,
		analyzer:  analyzer,
		renderer:  renderer,
		frames:    frames,
		win:       win,
		interval:  interval,
		opponents: opponents,
		now:       time.Now,
		sleep:     sleepFor,
	}
}

// Run executes scan ticks until the context is cancelled. No tick-level
// failure is fatal: capture and service errors become displayable results and
// the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	log := logger.WithComponent("scan-loop")
	log.Info().
		Str("window", l.win.ID).
		Dur("interval", l.interval).
		Msg("scan loop started")

	state := State{
		Window:    l.win,
		Opponents: l.opponents.Load(),
		Result:    analysis.Errorf("Waiting for first scan..."),
	}
	l.renderer.Render(state)

	for {
		if err := ctx.Err(); err != nil {
			log.Info().Int("iterations", state.Iteration).Msg("scan loop stopped")
			return err
		}

		start := l.now()
		opponents := l.opponents.Load()
		state.Iteration++

		frame, err := l.capturer.Capture(ctx, l.win)
		if err != nil {
			state.Result = analysis.Errorf("Failed to capture window: %v", err)
		} else {
			if l.frames != nil {
				l.frames.Publish(frame)
			}
			state.Result = l.analyzer.Analyze(ctx, frame, opponents)
		}

		state.Opponents = opponents
		l.renderer.Render(state)

		elapsed := l.now().Sub(start)
		if !l.sleep(ctx, Residual(l.interval, elapsed)) {
			log.Info().Int("iterations", state.Iteration).Msg("scan loop stopped")
			return ctx.Err()
		}
	}
}

// Residual is how long to sleep after a tick that took elapsed: the remainder
// of the target interval, never negative. A tick that overran its interval
// gets no sleep at all, so cadence recovers instead of drifting.
func Residual(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// sleepFor waits for d or until cancellation. Returns false when cancelled.
func sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
