package scan

import (
	"context"
	"io"
	"os"

	"github.com/oddseye/oddseye/internal/logger"
	"golang.org/x/term"
)

// keyEvent is one decoded adjustment request.
type keyEvent int

const (
	keyNone keyEvent = iota
	keyUp
	keyDown
	keyQuit
)

// Listener reads raw key events concurrently with the scan loop. Arrow up
// (or k) raises the opponent count, arrow down (or j) lowers it; q and
// Ctrl+C request shutdown. All other keys are ignored.
type Listener struct {
	Opponents *Opponents

	// Input defaults to stdin. When it is a terminal it is switched to raw
	// mode for the listener's lifetime.
	Input io.Reader

	// OnQuit is invoked for quit keys. Raw mode swallows the usual SIGINT
	// from Ctrl+C, so the listener has to surface it.
	OnQuit func()
}

// Run blocks until the context is cancelled or the input source is
// exhausted. The blocking reads happen on their own goroutine so
// cancellation is observed within one key-read cycle.
func (l *Listener) Run(ctx context.Context) error {
	log := logger.WithComponent("input-listener")

	in := l.Input
	if in == nil {
		in = os.Stdin
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		oldState, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			log.Warn().Err(err).Msg("could not switch terminal to raw mode")
		} else {
			defer term.Restore(int(f.Fd()), oldState)
		}
	}

	chunks := make(chan []byte)
	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, 8)
			n, err := in.Read(buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			for _, ev := range decodeKeys(chunk) {
				switch ev {
				case keyUp:
					n := l.Opponents.Inc()
					log.Debug().Int("opponents", n).Msg("opponent count raised")
				case keyDown:
					n := l.Opponents.Dec()
					log.Debug().Int("opponents", n).Msg("opponent count lowered")
				case keyQuit:
					if l.OnQuit != nil {
						l.OnQuit()
					}
					return nil
				}
			}
		}
	}
}

// decodeKeys maps a raw input chunk to key events. Arrow keys arrive as
// three-byte CSI sequences (ESC [ A / ESC [ B).
func decodeKeys(chunk []byte) []keyEvent {
	events := make([]keyEvent, 0, 1)
	for i := 0; i < len(chunk); i++ {
		b := chunk[i]
		if b == 0x1b && i+2 < len(chunk) && chunk[i+1] == '[' {
			switch chunk[i+2] {
			case 'A':
				events = append(events, keyUp)
			case 'B':
				events = append(events, keyDown)
			}
			i += 2
			continue
		}
		switch b {
		case 'k', '+':
			events = append(events, keyUp)
		case 'j', '-':
			events = append(events, keyDown)
		case 'q', 0x03: // q or Ctrl+C
			events = append(events, keyQuit)
		}
	}
	return events
}
