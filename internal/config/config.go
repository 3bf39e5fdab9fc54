// Package config loads relay configuration: a global config file with
// per-session overrides, plus environment variables on top.
//
// Layout under the teleterm home directory (default ~/.teleterm):
//
//	config.toml              global defaults
//	sessions/<name>.toml     per-session config (wins over global)
//	.env                     optional, loaded into the environment
//	pids/                    listener lock files
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/groblegark/teleterm/internal/util"
)

// Defaults.
const (
	DefaultPollTimeout = 30 // seconds, getUpdates long poll
	DefaultMediaDir    = "/tmp/teleterm"
)

// Config is the effective configuration for one session's listener.
type Config struct {
	// Session is the logical session name ("default" unless set).
	Session string `toml:"-"`

	// BotToken authenticates against the Bot API. Never logged unmasked.
	BotToken string `toml:"bot_token"`

	// ChatID is the authorized chat (group or private).
	ChatID int64 `toml:"chat_id"`

	// TopicID is the forum topic this session is bound to. Zero means no
	// topic filtering (single-session chats).
	TopicID int64 `toml:"topic_id"`

	// TmuxSession is the target tmux session; defaults to "agent-<name>".
	TmuxSession string `toml:"tmux_session"`

	// Notifications gates the Notify pipeline.
	Notifications bool `toml:"notifications"`

	// MediaDir is where incoming photos/documents are stored.
	MediaDir string `toml:"media_dir"`

	// PollTimeout is the getUpdates long-poll duration in seconds.
	PollTimeout int `toml:"poll_timeout"`
}

// Home returns the teleterm home directory: $TELETERM_HOME if set, else
// ~/.teleterm.
func Home() string {
	if h := os.Getenv("TELETERM_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".teleterm"
	}
	return filepath.Join(home, ".teleterm")
}

// SessionPath returns the per-session config file path.
func SessionPath(session string) string {
	return filepath.Join(Home(), "sessions", session+".toml")
}

// GlobalPath returns the global config file path.
func GlobalPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Load builds the effective config for a session: the per-session file if
// present, else the global file, then environment overrides. A missing
// config file is not an error; missing credentials are caught by Validate.
func Load(session string) (*Config, error) {
	if session == "" {
		session = "default"
	}

	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load(filepath.Join(Home(), ".env"))

	cfg := &Config{
		Session:       session,
		TmuxSession:   "agent-" + session,
		Notifications: true,
		MediaDir:      DefaultMediaDir,
		PollTimeout:   DefaultPollTimeout,
	}

	path := SessionPath(session)
	if _, err := os.Stat(path); err != nil {
		path = GlobalPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv layers TELETERM_* environment variables over file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TELETERM_BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("TELETERM_CHAT_ID"); v != "" {
		var id int64
		if _, err := fmt.Sscan(v, &id); err == nil {
			cfg.ChatID = id
		}
	}
	if v := os.Getenv("TELETERM_TOPIC_ID"); v != "" {
		var id int64
		if _, err := fmt.Sscan(v, &id); err == nil {
			cfg.TopicID = id
		}
	}
	if v := os.Getenv("TELETERM_TMUX_SESSION"); v != "" {
		cfg.TmuxSession = v
	}
}

// Validate checks that the config is usable for talking to Telegram.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot_token not configured (set it in %s or TELETERM_BOT_TOKEN)", GlobalPath())
	}
	if c.ChatID == 0 {
		return fmt.Errorf("chat_id not configured (set it in %s or TELETERM_CHAT_ID)", GlobalPath())
	}
	return nil
}

// SetNotifications flips the notifications flag and persists the session
// config atomically (write temp file, then rename).
func (c *Config) SetNotifications(on bool) error {
	c.Notifications = on

	path := SessionPath(c.Session)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating sessions dir: %w", err)
	}

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(buf.String()), 0o600)
}

// ListSessions returns the names of all per-session config files.
func ListSessions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(Home(), "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	return names, nil
}

// MaskSecret masks a sensitive value for logging: "abc…xy", or "***" when
// the value is too short to safely reveal edges, or "(not set)" when empty.
func MaskSecret(value string) string {
	const showStart, showEnd = 3, 2
	if value == "" {
		return "(not set)"
	}
	if len(value) <= showStart+showEnd+3 {
		return "***"
	}
	return value[:showStart] + "…" + value[len(value)-showEnd:]
}
