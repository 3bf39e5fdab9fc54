// Package relay runs the Telegram listener for one tmux session: it polls
// the Bot API for updates, injects incoming text as keystrokes, answers
// bot commands, and delivers notifications back to the chat.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/groblegark/teleterm/internal/config"
	"github.com/groblegark/teleterm/internal/digest"
	"github.com/groblegark/teleterm/internal/format"
	"github.com/groblegark/teleterm/internal/media"
	"github.com/groblegark/teleterm/internal/telegram"
	"github.com/groblegark/teleterm/internal/tmux"
)

const (
	statusLines    = 15
	previewDefault = 50
	previewMax     = 2000
	statusTailMax  = 800
)

// Term is the slice of the tmux wrapper the listener needs. Satisfied by
// *tmux.Tmux.
type Term interface {
	HasSession(name string) (bool, error)
	Inject(session, text string) error
	CapturePane(session string, lines int) (string, error)
}

// Listener relays messages between one Telegram chat (or forum topic) and
// one tmux session.
type Listener struct {
	cfg    *config.Config
	api    *telegram.Client
	term   Term
	media  *media.Handler
	settle *SettleDetector

	cancel context.CancelFunc
	killed bool
}

// New wires a listener for cfg.
func New(cfg *config.Config, api *telegram.Client, term Term) *Listener {
	return &Listener{
		cfg:  cfg,
		api:  api,
		term: term,
		media: &media.Handler{
			Client:  api,
			Dir:     cfg.MediaDir,
			Session: cfg.Session,
		},
		settle: NewSettleDetector(DefaultSettleWindow),
	}
}

// Run polls for updates until ctx is canceled or /notify kill is received.
// Poll errors back off exponentially up to 60 seconds.
func (l *Listener) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	defer cancel()

	log.Printf("listener: session %q starting (tmux: %s, chat: %d, token: %s)",
		l.cfg.Session, l.cfg.TmuxSession, l.cfg.ChatID, config.MaskSecret(l.cfg.BotToken))
	if l.cfg.TopicID != 0 {
		log.Printf("listener: filtering for topic %d only", l.cfg.TopicID)
	}
	if alive, _ := l.term.HasSession(l.cfg.TmuxSession); !alive {
		log.Printf("listener: tmux session %q not found, waiting for it", l.cfg.TmuxSession)
	}

	var offset int64
	backoff := time.Second
	const maxBackoff = 60 * time.Second

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		updates, err := l.api.GetUpdates(ctx, offset, l.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break loop
			}
			log.Printf("listener: poll error: %v, retrying in %v", err, backoff)
			select {
			case <-ctx.Done():
				break loop
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		for i := range updates {
			offset = updates[i].UpdateID + 1
			l.handle(ctx, updates[i].Message)
		}
	}

	if err := l.media.Cleanup(); err != nil {
		log.Printf("listener: media cleanup: %v", err)
	}
	log.Printf("listener: session %q stopped", l.cfg.Session)
	if l.killed {
		return nil
	}
	return ctx.Err()
}

// handle processes one incoming message, if it is addressed to us.
func (l *Listener) handle(ctx context.Context, msg *telegram.Message) {
	if msg == nil {
		return
	}
	if msg.Chat.ID != l.cfg.ChatID {
		return
	}
	if l.cfg.TopicID != 0 && msg.MessageThreadID != l.cfg.TopicID {
		return
	}

	if media.HasMedia(msg) {
		l.handleMedia(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	log.Printf("listener: received from @%s: %s", username(msg), truncate(text, 50))

	if strings.HasPrefix(text, "/") {
		if l.command(ctx, text) {
			return
		}
	}

	l.inject(ctx, msg.MessageID, text)
}

// inject sends text to the tmux session as keystrokes and acknowledges
// with a reaction: eyes on success, scream plus an error message on
// failure.
func (l *Listener) inject(ctx context.Context, messageID int64, text string) {
	err := l.term.Inject(l.cfg.TmuxSession, format.SanitizeKeystrokes(text))
	if err == nil {
		if rerr := l.api.React(ctx, l.cfg.ChatID, messageID, "\U0001F440"); rerr != nil {
			log.Printf("listener: reaction failed: %v", rerr)
		}
		return
	}

	log.Printf("listener: inject failed: %v", err)
	_ = l.api.React(ctx, l.cfg.ChatID, messageID, "\U0001F631")
	switch {
	case errors.Is(err, tmux.ErrSessionNotFound), errors.Is(err, tmux.ErrNoServer):
		l.send(ctx, fmt.Sprintf("❌ [%s] Failed (session not found)", l.cfg.Session))
	case errors.Is(err, tmux.ErrEmptyInput):
		l.send(ctx, fmt.Sprintf("❌ [%s] Message was empty after sanitization", l.cfg.Session))
	default:
		l.send(ctx, fmt.Sprintf("❌ [%s] Failed to deliver message", l.cfg.Session))
	}
}

func (l *Listener) handleMedia(ctx context.Context, msg *telegram.Message) {
	log.Printf("listener: received media from @%s", username(msg))
	text, err := l.media.Handle(ctx, msg)
	if err != nil {
		_ = l.api.React(ctx, l.cfg.ChatID, msg.MessageID, "\U0001F631")
		l.send(ctx, fmt.Sprintf("❌ [%s] %s", l.cfg.Session, userFacing(err)))
		return
	}
	l.inject(ctx, msg.MessageID, text)
}

// userFacing strips the sentinel suffix from media errors so the chat sees
// just the explanation.
func userFacing(err error) string {
	s := err.Error()
	if i := strings.LastIndex(s, ": "+media.ErrUnsupported.Error()); i >= 0 {
		return s[:i]
	}
	return s
}

// command dispatches a slash command. Returns false for commands we do not
// recognize; those are injected into the session verbatim (agents have
// their own slash commands).
func (l *Listener) command(ctx context.Context, text string) bool {
	parts := strings.Fields(text)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/status":
		l.cmdStatus(ctx)
	case "/ping":
		l.send(ctx, fmt.Sprintf("\U0001F3D3 [%s] Pong! Listener active.", l.cfg.Session))
	case "/help":
		l.cmdHelp(ctx)
	case "/clear":
		l.cmdPassthrough(ctx, "/clear", "\U0001F9F9 Clearing context...")
	case "/compact":
		l.cmdPassthrough(ctx, "/compact", "\U0001F4E6 Compacting context...")
	case "/preview", "/output":
		l.cmdPreview(ctx, args)
	case "/notify":
		l.cmdNotify(ctx, args)
	default:
		return false
	}
	return true
}

func (l *Listener) cmdStatus(ctx context.Context) {
	alive, _ := l.term.HasSession(l.cfg.TmuxSession)
	status := "❌ Not running"
	if alive {
		status = "✅ Running"
	}

	snapshot := "Session not running"
	if alive {
		captured, err := l.term.CapturePane(l.cfg.TmuxSession, statusLines)
		if err != nil {
			snapshot = "Could not capture"
		} else {
			snapshot = strings.TrimSpace(format.StripANSI(captured))
			if snapshot == "" {
				snapshot = "(empty)"
			}
			l.settle.Observe(snapshot)
			if l.settle.Busy() {
				status += " ⏳ (output still streaming)"
			}
		}
	}

	topicInfo := "(No topic filtering)"
	if l.cfg.TopicID != 0 {
		topicInfo = fmt.Sprintf("Topic ID: %d", l.cfg.TopicID)
	}

	l.send(ctx, fmt.Sprintf(
		"\U0001F4CA [%s] Status\n\nSession: %s\nStatus: %s\n%s\n\nRecent output:\n%s",
		l.cfg.Session, l.cfg.TmuxSession, status, topicInfo, tail(snapshot, statusTailMax)))
}

func (l *Listener) cmdHelp(ctx context.Context) {
	l.send(ctx, fmt.Sprintf(
		"\U0001F916 [%s] Commands\n\n"+
			"/status - Session status + recent output\n"+
			"/ping - Test listener connectivity\n"+
			"/help - Show this help\n\n"+
			"/clear - Clear agent context\n"+
			"/compact - Compact agent context\n\n"+
			"/preview - Send last %d lines\n"+
			"/preview N - Send last N lines\n"+
			"/output - Alias for /preview\n\n"+
			"/notify on|off - Toggle notifications\n"+
			"/notify status - Notification state\n"+
			"/notify kill - Stop this listener\n\n"+
			"\U0001F4F7 Photos and \U0001F4C4 documents are downloaded and handed to the agent.\n"+
			"Any other text is typed into the session.",
		l.cfg.Session, previewDefault))
}

// cmdPassthrough forwards an agent slash command into the session.
func (l *Listener) cmdPassthrough(ctx context.Context, agentCmd, announce string) {
	if alive, _ := l.term.HasSession(l.cfg.TmuxSession); !alive {
		l.send(ctx, fmt.Sprintf("❌ [%s] tmux session not found", l.cfg.Session))
		return
	}
	l.send(ctx, fmt.Sprintf("%s [%s]", announce, l.cfg.Session))
	if err := l.term.Inject(l.cfg.TmuxSession, agentCmd); err != nil {
		l.send(ctx, fmt.Sprintf("❌ [%s] Failed to send %s", l.cfg.Session, agentCmd))
	}
}

func (l *Listener) cmdPreview(ctx context.Context, args []string) {
	lines := previewDefault
	if len(args) > 0 {
		if strings.EqualFold(args[0], "help") {
			l.send(ctx, fmt.Sprintf(
				"\U0001F4FA [%s] Preview\n\n/preview - last %d lines\n/preview N - last N lines (max %d)",
				l.cfg.Session, previewDefault, previewMax))
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			l.send(ctx, fmt.Sprintf("❌ [%s] Usage: /preview [N]", l.cfg.Session))
			return
		}
		lines = n
		if lines > previewMax {
			lines = previewMax
		}
	}

	captured, err := l.term.CapturePane(l.cfg.TmuxSession, lines)
	if err != nil {
		l.send(ctx, fmt.Sprintf("⚠️ [%s] Preview failed: %v", l.cfg.Session, err))
		return
	}
	body := strings.TrimRight(format.StripANSI(captured), "\n")
	if strings.TrimSpace(body) == "" {
		body = "(empty)"
	}

	// Captures too big for one message go out as a file instead of a
	// chunked wall of text.
	if len(body) > telegram.MaxMessageLen {
		l.sendPreviewFile(ctx, body)
		return
	}
	l.sendHTML(ctx, format.Pre(body))
}

func (l *Listener) sendPreviewFile(ctx context.Context, body string) {
	path := filepath.Join(l.cfg.MediaDir, l.cfg.Session+"-preview.txt")
	if err := os.MkdirAll(l.cfg.MediaDir, 0o755); err == nil {
		err = os.WriteFile(path, []byte(body), 0o600)
		if err == nil {
			caption := fmt.Sprintf("\U0001F4FA [%s] Terminal output", l.cfg.Session)
			if err := l.api.SendDocument(ctx, l.cfg.ChatID, l.cfg.TopicID, path, caption); err == nil {
				return
			}
			log.Printf("listener: preview upload failed, falling back to text")
		}
	}
	l.sendHTML(ctx, format.Pre(body))
}

func (l *Listener) cmdNotify(ctx context.Context, args []string) {
	sub := "status"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "on":
		if err := l.cfg.SetNotifications(true); err != nil {
			l.send(ctx, fmt.Sprintf("❌ [%s] Failed to enable notifications: %v", l.cfg.Session, err))
			return
		}
		l.send(ctx, fmt.Sprintf("\U0001F514 [%s] Notifications enabled", l.cfg.Session))
	case "off":
		if err := l.cfg.SetNotifications(false); err != nil {
			l.send(ctx, fmt.Sprintf("❌ [%s] Failed to disable notifications: %v", l.cfg.Session, err))
			return
		}
		l.send(ctx, fmt.Sprintf("\U0001F515 [%s] Notifications disabled", l.cfg.Session))
	case "status":
		state := "off"
		if l.cfg.Notifications {
			state = "on"
		}
		l.send(ctx, fmt.Sprintf("\U0001F514 [%s] Notifications: %s", l.cfg.Session, state))
	case "kill":
		log.Printf("listener: kill command received, shutting down")
		l.send(ctx, fmt.Sprintf("\U0001F6D1 [%s] Listener shutting down", l.cfg.Session))
		l.killed = true
		if l.cancel != nil {
			l.cancel()
		}
	default:
		l.send(ctx, fmt.Sprintf(
			"❌ [%s] Unknown subcommand: %s\n\nValid: on, off, status, kill", l.cfg.Session, sub))
	}
}

// Notify runs the notification pipeline: strip terminal escapes, extract
// the part worth reading, and deliver it as HTML. A no-op when
// notifications are disabled.
func (l *Listener) Notify(ctx context.Context, text string) error {
	if !l.cfg.Notifications {
		log.Printf("listener: notifications disabled, skipping")
		return nil
	}
	summary := digest.Extract(format.StripANSI(text), digest.DefaultMaxChars)
	if summary == "" {
		return nil
	}
	body := fmt.Sprintf("\U0001F4AC [%s]\n\n%s", l.cfg.Session, format.EscapeHTML(summary))
	return l.api.SendMessageHTML(ctx, l.cfg.ChatID, l.cfg.TopicID, body)
}

func (l *Listener) send(ctx context.Context, text string) {
	if err := l.api.SendMessage(ctx, l.cfg.ChatID, l.cfg.TopicID, text); err != nil {
		log.Printf("listener: send failed: %v", err)
	}
}

func (l *Listener) sendHTML(ctx context.Context, html string) {
	if err := l.api.SendMessageHTML(ctx, l.cfg.ChatID, l.cfg.TopicID, html); err != nil {
		log.Printf("listener: send failed: %v", err)
	}
}

func username(msg *telegram.Message) string {
	if msg.From == nil || msg.From.Username == "" {
		return "unknown"
	}
	return msg.From.Username
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// tail returns the last max bytes of s, cut at a line boundary when one is
// near enough.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	if i := strings.IndexByte(cut, '\n'); i >= 0 && i < max/4 {
		cut = cut[i+1:]
	}
	return cut
}
