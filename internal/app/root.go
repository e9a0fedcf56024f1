// Package app wires the caskctl command line interface.
package app

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	// RootCmd is the root command for caskctl
	RootCmd = &cobra.Command{
		Use:   "caskctl",
		Short: "Browse and manage Homebrew casks from an aggregated catalog",
		Long: `caskctl aggregates the Homebrew cask index, install analytics and the
state of your local Homebrew installation into one catalog, and drives
cask installs, uninstalls and upgrades with live progress.

The catalog is cached on disk; a network outage falls back to the last
successful payload so browsing keeps working offline.

Examples:
  # Browse the most popular casks per category
  caskctl list

  # Everything you have installed, with pending updates highlighted
  caskctl list --installed

  # Install, watching download and install progress
  caskctl install firefox

  # Update everything that is outdated
  caskctl upgrade --all

  # See what changed recently
  caskctl history`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/caskctl/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(outdatedCmd)
	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(uninstallCmd)
	RootCmd.AddCommand(upgradeCmd)
	RootCmd.AddCommand(reinstallCmd)
	RootCmd.AddCommand(refreshCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(doctorCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
