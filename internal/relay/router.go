package relay

import (
	"sort"

	"github.com/groblegark/teleterm/internal/config"
)

// Router maps a forum topic ID to the session configured for it. One chat
// can host several sessions, each bound to its own topic; at most one
// session may be topic-less and acts as the fallback for untopiced
// messages.
type Router struct {
	byTopic  map[int64]string
	fallback string
}

// NewRouter builds a Router from session configs. When several configs
// claim the same topic the first one wins; likewise for the fallback.
func NewRouter(cfgs []*config.Config) *Router {
	r := &Router{byTopic: make(map[int64]string)}
	for _, cfg := range cfgs {
		if cfg.TopicID != 0 {
			if _, taken := r.byTopic[cfg.TopicID]; !taken {
				r.byTopic[cfg.TopicID] = cfg.Session
			}
			continue
		}
		if r.fallback == "" {
			r.fallback = cfg.Session
		}
	}
	return r
}

// Route resolves a message's thread ID to a session name. Exact topic
// matches win; thread 0 (or an unknown topic) falls back to the topic-less
// session when one exists.
func (r *Router) Route(topicID int64) (string, bool) {
	if name, ok := r.byTopic[topicID]; ok {
		return name, true
	}
	if r.fallback != "" {
		return r.fallback, true
	}
	return "", false
}

// Sessions returns all routed session names, sorted.
func (r *Router) Sessions() []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range r.byTopic {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if r.fallback != "" && !seen[r.fallback] {
		names = append(names, r.fallback)
	}
	sort.Strings(names)
	return names
}
