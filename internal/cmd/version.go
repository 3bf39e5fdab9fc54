package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/teleterm/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the teleterm version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "teleterm", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
