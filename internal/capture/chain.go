package capture

import (
	"context"
	"errors"
	"image"

	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/window"
)

// Chain tries an ordered list of strategies until one produces a usable
// bitmap. The order is fixed at construction and never changes at runtime.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain over the given strategies, attempted in order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Strategies returns the declared attempt order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Capture walks the chain top to bottom and returns the first non-empty
// bitmap. Strategies after the winner are never invoked. When every strategy
// fails, the result is a *Error of kind NoWindow wrapping each strategy's
// reason; the chain itself never panics past the caller.
func (c *Chain) Capture(ctx context.Context, win window.Info) (*image.RGBA, error) {
	log := logger.WithComponent("capture-chain")

	var failures []error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			failures = append(failures, failf(Timeout, s.Name(), "not attempted: %w", err))
			break
		}

		img, err := s.Capture(ctx, win)
		if err == nil && emptyBitmap(img) {
			err = failf(EmptyRegion, s.Name(), "strategy returned an empty bitmap")
		}
		if err == nil {
			log.Debug().
				Str("strategy", s.Name()).
				Int("width", img.Bounds().Dx()).
				Int("height", img.Bounds().Dy()).
				Msg("capture succeeded")
			return img, nil
		}

		log.Debug().
			Err(err).
			Str("strategy", s.Name()).
			Str("window", win.ID).
			Msg("strategy failed, trying next")
		failures = append(failures, err)
	}

	return nil, &Error{
		Kind:     NoWindow,
		Strategy: "chain",
		Err:      errors.Join(failures...),
	}
}

func emptyBitmap(img *image.RGBA) bool {
	return img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0
}
