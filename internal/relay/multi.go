package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/groblegark/teleterm/internal/config"
	"github.com/groblegark/teleterm/internal/telegram"
)

// Multi drives every configured session of one chat off a single
// getUpdates loop, dispatching each update to the session bound to its
// forum topic via a Router. All sessions must share the bot token and
// chat; only their topics and tmux targets differ.
type Multi struct {
	api       *telegram.Client
	router    *Router
	listeners map[string]*Listener
	cfg       *config.Config // polling identity: token, chat, timeout
}

// NewMulti wires one listener per session config behind a shared poll
// loop.
func NewMulti(cfgs []*config.Config, api *telegram.Client, term Term) (*Multi, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no sessions configured")
	}
	m := &Multi{
		api:       api,
		router:    NewRouter(cfgs),
		listeners: make(map[string]*Listener),
		cfg:       cfgs[0],
	}
	for _, cfg := range cfgs {
		if cfg.ChatID != m.cfg.ChatID {
			return nil, fmt.Errorf("session %q uses chat %d, session %q uses chat %d: one listener serves one chat",
				m.cfg.Session, m.cfg.ChatID, cfg.Session, cfg.ChatID)
		}
		m.listeners[cfg.Session] = New(cfg, api, term)
	}
	return m, nil
}

// Run polls until ctx is canceled or any session receives /notify kill.
func (m *Multi) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, l := range m.listeners {
		l.cancel = cancel
	}

	log.Printf("listener: serving %d session(s) on chat %d: %v",
		len(m.listeners), m.cfg.ChatID, m.router.Sessions())

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

		updates, err := m.api.GetUpdates(ctx, offset, m.cfg.PollTimeout)
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
			m.dispatch(ctx, updates[i].Message)
		}
	}

	killed := false
	for _, l := range m.listeners {
		if err := l.media.Cleanup(); err != nil {
			log.Printf("listener: media cleanup: %v", err)
		}
		if l.killed {
			killed = true
		}
	}
	log.Printf("listener: stopped")
	if killed {
		return nil
	}
	return ctx.Err()
}

// dispatch routes one update to the session owning its topic.
func (m *Multi) dispatch(ctx context.Context, msg *telegram.Message) {
	if msg == nil || msg.Chat.ID != m.cfg.ChatID {
		return
	}
	name, ok := m.router.Route(msg.MessageThreadID)
	if !ok {
		log.Printf("listener: no session for topic %d, dropping", msg.MessageThreadID)
		return
	}
	m.listeners[name].handle(ctx, msg)
}
