package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/oddseye/oddseye/internal/window"
)

// ErrSelectionCancelled is returned when the user backs out of the window
// picker instead of choosing a table.
var ErrSelectionCancelled = fmt.Errorf("window selection cancelled")

// SelectWindow presents the usable windows as a single-select list and
// returns the chosen one. Windows keep their enumeration order; a trailing
// Cancel entry lets the user abort cleanly.
func SelectWindow(windows []window.Info) (window.Info, error) {
	if len(windows) == 0 {
		return window.Info{}, fmt.Errorf("no selectable windows found")
	}

	const cancelID = ""
	opts := make([]huh.Option[string], 0, len(windows)+1)
	byID := make(map[string]window.Info, len(windows))
	for _, win := range windows {
		opts = append(opts, huh.NewOption(win.String(), win.ID))
		byID[win.ID] = win
	}
	opts = append(opts, huh.NewOption("Cancel", cancelID))

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select the poker table window").
				Description("Arrow keys to move, enter to confirm").
				Options(opts...).
				Value(&choice),
		),
	).WithShowHelp(true)

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return window.Info{}, ErrSelectionCancelled
		}
		return window.Info{}, fmt.Errorf("window selection failed: %w", err)
	}
	if choice == cancelID {
		return window.Info{}, ErrSelectionCancelled
	}
	return byID[choice], nil
}
