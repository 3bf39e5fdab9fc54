package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/groblegark/teleterm/internal/digest"
	"github.com/groblegark/teleterm/internal/format"
)

var extractCmd = &cobra.Command{
	Use:   "extract [TEXT] [MAX]",
	Short: "Extract the readable context from terminal output",
	Long: `Extract the readable context from terminal output.

Reads TEXT (or stdin when TEXT is omitted or "-"), strips terminal noise,
and prints the part a human would want to read: the final question or
summary plus any options, within a byte budget (default ` + fmt.Sprint(digest.DefaultMaxChars) + `).

Examples:
  teleterm extract "$(tmux capture-pane -p)"
  tmux capture-pane -p | teleterm extract
  teleterm extract - 200 < transcript.txt`,
	Args: cobra.MaximumNArgs(2),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	text := ""
	fromStdin := len(args) == 0 || args[0] == "-"
	if fromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	} else {
		text = args[0]
	}

	maxChars := digest.DefaultMaxChars
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid budget %q", args[1])
		}
		maxChars = n
	}

	result := digest.Extract(format.StripANSI(text), maxChars)
	if result != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result)
	}
	return nil
}
