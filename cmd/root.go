// Package cmd implements the skydesk CLI using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "✈️"

var verbose bool

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "skydesk",
	Short: logo + " SkyDesk - ERWIQ Airlines customer support agent",
	Long:  logo + " SkyDesk - the ERWIQ Airlines conversational customer support agent",
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(channelsCmd)
}
