package relay

import (
	"reflect"
	"testing"

	"github.com/groblegark/teleterm/internal/config"
)

func TestRouterExactTopicWins(t *testing.T) {
	r := NewRouter([]*config.Config{
		{Session: "main"},
		{Session: "crew", TopicID: 5},
		{Session: "web", TopicID: 9},
	})

	if name, ok := r.Route(5); !ok || name != "crew" {
		t.Errorf("Route(5) = %q, %v", name, ok)
	}
	if name, ok := r.Route(9); !ok || name != "web" {
		t.Errorf("Route(9) = %q, %v", name, ok)
	}
}

func TestRouterFallback(t *testing.T) {
	r := NewRouter([]*config.Config{
		{Session: "main"},
		{Session: "crew", TopicID: 5},
	})

	if name, ok := r.Route(0); !ok || name != "main" {
		t.Errorf("Route(0) = %q, %v, want fallback", name, ok)
	}
	// Unknown topics also land on the fallback session.
	if name, ok := r.Route(777); !ok || name != "main" {
		t.Errorf("Route(777) = %q, %v, want fallback", name, ok)
	}
}

func TestRouterNoFallback(t *testing.T) {
	r := NewRouter([]*config.Config{
		{Session: "crew", TopicID: 5},
	})

	if _, ok := r.Route(0); ok {
		t.Error("Route(0) matched without a topic-less session")
	}
}

func TestRouterFirstClaimWins(t *testing.T) {
	r := NewRouter([]*config.Config{
		{Session: "first", TopicID: 5},
		{Session: "second", TopicID: 5},
	})

	if name, _ := r.Route(5); name != "first" {
		t.Errorf("Route(5) = %q, want first", name)
	}
}

func TestRouterSessions(t *testing.T) {
	r := NewRouter([]*config.Config{
		{Session: "main"},
		{Session: "web", TopicID: 9},
		{Session: "crew", TopicID: 5},
	})

	want := []string{"crew", "main", "web"}
	if got := r.Sessions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sessions() = %v, want %v", got, want)
	}
}
