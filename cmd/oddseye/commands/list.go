package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oddseye/oddseye/internal/config"
	"github.com/oddseye/oddseye/internal/logger"
	"github.com/oddseye/oddseye/internal/platform"
	"github.com/oddseye/oddseye/internal/window"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List capturable windows",
	Long: `List the windows the current platform can see, in the order the
picker would offer them. Windows without a title or smaller than 100x100
pixels are filtered out unless --all is given.`,
	Example: `  # List selectable windows in table format (default)
  oddseye list

  # List every window, including unusable ones
  oddseye list --all

  # List windows in JSON format
  oddseye list --format json`,
	RunE: runList,
}

var (
	listFormat string
	listAll    bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include windows the picker would filter out")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.LogLevel, true)

	mgr, err := platform.New()
	if err != nil {
		return err
	}
	defer mgr.Close()

	windows, err := mgr.ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	if !listAll {
		windows = window.Filter(windows)
	}

	switch listFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(windows)
	case "table":
		return printWindowsTable(windows)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}
}

func printWindowsTable(windows []window.Info) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tTITLE\tGEOMETRY")
	fmt.Fprintln(w, "--\t-----\t--------")
	for _, win := range windows {
		fmt.Fprintf(w, "%s\t%s\t%dx%d at (%d, %d)\n",
			win.ID, win.Title, win.Width, win.Height, win.X, win.Y)
	}
	return nil
}
