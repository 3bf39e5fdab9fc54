package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/teleterm/internal/config"
	"github.com/groblegark/teleterm/internal/relay"
	"github.com/groblegark/teleterm/internal/telegram"
	"github.com/groblegark/teleterm/internal/tmux"
)

var notifySession string

var notifyCmd = &cobra.Command{
	Use:   "notify [TEXT]",
	Short: "Send a notification to the session's chat",
	Long: `Send a notification to the session's chat.

TEXT (or stdin) is run through the context extractor before delivery, so
raw terminal captures arrive as a readable question or summary. Meant to
be called from agent hooks when the session needs attention.

Examples:
  teleterm notify "$(tmux capture-pane -p)" --session crew
  tmux capture-pane -p | teleterm notify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNotify,
}

func init() {
	notifyCmd.Flags().StringVarP(&notifySession, "session", "s", "", "session name (default from TELETERM_SESSION)")
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
	text := ""
	if len(args) == 1 && args[0] != "-" {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}

	cfg, err := config.Load(sessionName(notifySession))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	listener := relay.New(cfg, telegram.New(cfg.BotToken), tmux.NewTmux())
	return listener.Notify(context.Background(), text)
}
