package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groblegark/teleterm/internal/config"
	"github.com/groblegark/teleterm/internal/lock"
	"github.com/groblegark/teleterm/internal/relay"
	"github.com/groblegark/teleterm/internal/telegram"
	"github.com/groblegark/teleterm/internal/tmux"
)

var (
	listenSession string
	listenAll     bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the Telegram listener for a session",
	Long: `Run the Telegram listener for a session.

The listener long-polls the Bot API, types incoming messages into the
session's tmux pane, and answers bot commands (/status, /preview, ...).
One listener per session; a lock file prevents duplicates.

With --all, a single poll loop serves every configured session of the
chat, routing each message to the session bound to its forum topic.

Examples:
  teleterm listen
  teleterm listen --session crew
  teleterm listen --all`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVarP(&listenSession, "session", "s", "", "session name (default from TELETERM_SESSION)")
	listenCmd.Flags().BoolVar(&listenAll, "all", false, "serve every configured session from one loop")
	rootCmd.AddCommand(listenCmd)
}

func sessionName(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("TELETERM_SESSION"); env != "" {
		return env
	}
	return "default"
}

func runListen(cmd *cobra.Command, args []string) error {
	if listenAll {
		return runListenAll()
	}

	cfg, err := config.Load(sessionName(listenSession))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	pidDir := filepath.Join(config.Home(), "pids")
	if cleaned, _ := lock.CleanStale(pidDir); cleaned > 0 {
		log.Printf("listen: cleaned %d stale lock(s)", cleaned)
	}
	lk := lock.New(pidDir, cfg.Session)
	if err := lk.Acquire(); err != nil {
		return fmt.Errorf("acquiring listener lock: %w", err)
	}
	defer lk.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := relay.New(cfg, telegram.New(cfg.BotToken), tmux.NewTmux())
	if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runListenAll() error {
	names, err := config.ListSessions()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no session configs found under %s", config.Home())
	}

	pidDir := filepath.Join(config.Home(), "pids")
	if cleaned, _ := lock.CleanStale(pidDir); cleaned > 0 {
		log.Printf("listen: cleaned %d stale lock(s)", cleaned)
	}

	var cfgs []*config.Config
	for _, name := range names {
		cfg, err := config.Load(name)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("session %q: %w", name, err)
		}
		lk := lock.New(pidDir, name)
		if err := lk.Acquire(); err != nil {
			return fmt.Errorf("acquiring lock for session %q: %w", name, err)
		}
		defer lk.Release()
		cfgs = append(cfgs, cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	multi, err := relay.NewMulti(cfgs, telegram.New(cfgs[0].BotToken), tmux.NewTmux())
	if err != nil {
		return err
	}
	if err := multi.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
