package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/groblegark/teleterm/internal/config"
	"github.com/groblegark/teleterm/internal/format"
	"github.com/groblegark/teleterm/internal/tmux"
)

var sendSession string

var sendCmd = &cobra.Command{
	Use:   "send TEXT...",
	Short: "Type text into the session's tmux pane",
	Long: `Type text into the session's tmux pane.

The text is sanitized (terminal escapes and control characters removed)
and submitted with Enter, exactly as the listener does for chat messages.

Examples:
  teleterm send "continue"
  teleterm send --session crew "git push"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendSession, "session", "s", "", "session name (default from TELETERM_SESSION)")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(sessionName(sendSession))
	if err != nil {
		return err
	}
	text := format.SanitizeKeystrokes(strings.Join(args, " "))
	return tmux.NewTmux().Inject(cfg.TmuxSession, text)
}
