// Package cli defines the grunga command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "grunga",
	Short: "Grunga social fitness backend",
	Long: `Grunga is the social fitness-tracking backend: workouts, points,
streaks, friends, and head-to-head challenges. The daemon serves the
HTTP API and runs daily maintenance at business midnight.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: $GRUNGA_CONFIG or ~/.grunga/config.toml)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the grunga version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("grunga %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
