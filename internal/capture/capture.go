package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/oddseye/oddseye/internal/window"
)

// FailureKind classifies why a capture attempt produced no bitmap.
type FailureKind int

const (
	// NoWindow means the target window could not be captured by any means.
	NoWindow FailureKind = iota
	// ToolUnavailable means a required helper binary or service is missing.
	ToolUnavailable
	// Timeout means the attempt exceeded its deadline.
	Timeout
	// EmptyRegion means the attempt produced a zero-area or invalid bitmap.
	EmptyRegion
)

func (k FailureKind) String() string {
	switch k {
	case NoWindow:
		return "no window"
	case ToolUnavailable:
		return "tool unavailable"
	case Timeout:
		return "timeout"
	case EmptyRegion:
		return "empty region"
	default:
		return "unknown"
	}
}

// Error is a typed capture failure. Strategies return it instead of panicking
// or swallowing causes, so the chain driver can inspect and log every path.
type Error struct {
	Kind     FailureKind
	Strategy string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Strategy, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func failf(kind FailureKind, strategy, format string, args ...any) *Error {
	return &Error{Kind: kind, Strategy: strategy, Err: fmt.Errorf(format, args...)}
}

// Strategy is one concrete method of turning a window into pixel data.
// Capture returns exactly one of a bitmap or a *Error; it must release every
// process and file resource it acquires on all paths, including timeout.
type Strategy interface {
	Name() string
	Capture(ctx context.Context, win window.Info) (*image.RGBA, error)
}
