// Package cmd implements the teleterm CLI.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "teleterm",
	Short: "Telegram remote control for tmux agent sessions",
	Long: `teleterm bridges a Telegram chat (or forum topic) and a tmux session:
messages typed in the chat become keystrokes in the session, and agent
notifications come back as readable chat messages.

Configuration lives in ~/.teleterm/config.toml with per-session overrides
under ~/.teleterm/sessions/.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
