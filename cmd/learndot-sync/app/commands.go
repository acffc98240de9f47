// Package app provides the entry point for the learndot-sync application.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/open-craft/learndot-sync/internal/logger"
	"github.com/open-craft/learndot-sync/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "learndot-sync",
	DisableAutoGenTag: true,
	Short:             "Synchronize passing grades into Learndot enrolments",
	Long: `learndot-sync pushes course completion into Learndot: it resolves a learner's
Learndot contact, finds their current enrolment for each mapped component, and
marks it PASSED, keeping a local status log to avoid redundant API calls.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates the root command for learndot-sync.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		logger.Fatalf("Failed to bind debug flag: %v", err)
	}

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(passedCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			logger.Errorf("Error retrieving format flag: %v", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				logger.Errorf("Error formatting version info as JSON: %v", err)
				return
			}
			fmt.Println(string(output))
		} else {
			fmt.Printf(
				"learndot-sync %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform,
			)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
