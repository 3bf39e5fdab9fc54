package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/groblegark/teleterm/internal/config"
	"github.com/groblegark/teleterm/internal/lock"
	"github.com/groblegark/teleterm/internal/style"
	"github.com/groblegark/teleterm/internal/tmux"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List configured sessions and their state",
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	names, err := config.ListSessions()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = []string{"default"}
	}

	t := tmux.NewTmux()
	pidDir := filepath.Join(config.Home(), "pids")

	fmt.Fprintln(cmd.OutOrStdout(), style.Render(style.Title, "Sessions"))
	for _, name := range names {
		cfg, err := config.Load(name)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", name, style.Render(style.Error, err.Error()))
			continue
		}

		tmuxState := style.Render(style.Error, "down")
		if alive, _ := t.HasSession(cfg.TmuxSession); alive {
			tmuxState = style.Render(style.Success, "up")
		}

		listenerState := lock.New(pidDir, name).Status()
		switch listenerState {
		case "unlocked":
			listenerState = style.Render(style.Muted, "no listener")
		default:
			listenerState = style.Render(style.Success, listenerState)
		}

		topic := ""
		if cfg.TopicID != 0 {
			topic = fmt.Sprintf("  topic %d", cfg.TopicID)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  %s  tmux:%s (%s)  %s%s\n",
			style.Render(style.Label, name), cfg.TmuxSession, tmuxState, listenerState, topic)
	}
	return nil
}
