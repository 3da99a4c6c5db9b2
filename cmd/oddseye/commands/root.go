package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "oddseye",
		Short: "Oddseye - Live poker odds from a table window",
		Long: `Oddseye watches a poker table window, captures it on a fixed cadence,
and shows live win/tie/lose odds and hand probabilities for the cards on
the table.

Features:
  • Enumerate capturable windows (X11 and macOS)
  • Ordered capture fallback chain per platform
  • Fixed-interval scanning with drift compensation
  • Adjust opponent count live with the arrow keys
  • Optional browser preview of the captured frames`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/oddseye/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("interval", 0, "scan interval (default 1s)")
	rootCmd.PersistentFlags().Int("opponents", 0, "initial opponent count, 1-9")
	rootCmd.PersistentFlags().Int("preview-port", 0, "serve an MJPEG capture preview on this port")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("scan_interval", rootCmd.PersistentFlags().Lookup("interval"))
	viper.BindPFlag("opponents", rootCmd.PersistentFlags().Lookup("opponents"))
	viper.BindPFlag("preview_port", rootCmd.PersistentFlags().Lookup("preview-port"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
