// Package tmux wraps the tmux operations the relay needs: session
// lifecycle, literal keystroke injection, and pane capture.
package tmux

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNoServer           = errors.New("no tmux server running")
	ErrSessionExists      = errors.New("session already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionName = errors.New("invalid session name")
	ErrEmptyInput         = errors.New("input empty after sanitization")
)

// validSessionNameRe validates session names to prevent shell injection.
var validSessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// injectDebounce is the pause between sending the text and the Enter key,
// giving the agent's input handler time to consume the paste.
const injectDebounce = 100 * time.Millisecond

// validateSessionName checks that a session name contains only safe
// characters. Dots and colons make tmux silently misparse targets.
func validateSessionName(name string) error {
	if name == "" || !validSessionNameRe.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidSessionName, name, validSessionNameRe.String())
	}
	return nil
}

// Tmux wraps tmux operations.
type Tmux struct{}

// NewTmux creates a new Tmux wrapper.
func NewTmux() *Tmux {
	return &Tmux{}
}

// run executes a tmux command and returns stdout. All commands include the
// -u flag for UTF-8 support regardless of locale settings.
func (t *Tmux) run(args ...string) (string, error) {
	allArgs := append([]string{"-u"}, args...)
	cmd := exec.Command("tmux", allArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", t.wrapError(err, stderr.String(), args)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// wrapError maps tmux stderr to the sentinel errors above.
func (t *Tmux) wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	if strings.Contains(stderr, "no server running") ||
		strings.Contains(stderr, "error connecting to") ||
		strings.Contains(stderr, "no current target") ||
		strings.Contains(stderr, "server exited unexpectedly") {
		return ErrNoServer
	}
	if strings.Contains(stderr, "duplicate session") {
		return ErrSessionExists
	}
	if strings.Contains(stderr, "session not found") ||
		strings.Contains(stderr, "can't find session") {
		return ErrSessionNotFound
	}

	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: %w", args[0], err)
}

// IsAvailable reports whether the tmux binary is on PATH.
func (t *Tmux) IsAvailable() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

// HasSession reports whether a session with the given name exists.
func (t *Tmux) HasSession(name string) (bool, error) {
	if err := validateSessionName(name); err != nil {
		return false, err
	}
	if _, err := t.run("has-session", "-t", "="+name); err != nil {
		// has-session signals absence through its exit status; every
		// failure here reads as "not running".
		return false, nil
	}
	return true, nil
}

// ListSessions returns the names of all running sessions.
func (t *Tmux) ListSessions() ([]string, error) {
	out, err := t.run("list-sessions", "-F", "#{session_name}")
	if err != nil {
		if errors.Is(err, ErrNoServer) {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// NewSession creates a new detached session.
func (t *Tmux) NewSession(name, workDir string) error {
	if err := validateSessionName(name); err != nil {
		return err
	}
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	_, err := t.run(args...)
	return err
}

// KillSession terminates a session.
func (t *Tmux) KillSession(name string) error {
	if err := validateSessionName(name); err != nil {
		return err
	}
	_, err := t.run("kill-session", "-t", "="+name)
	return err
}

// Inject sends text into a session as literal keystrokes, then submits it
// with Enter. The text goes in with -l so multi-line content and special
// characters arrive verbatim; "--" stops a leading dash from being parsed
// as an option. Enter goes separately after a short debounce, which is
// more reliable than appending it to the paste.
func (t *Tmux) Inject(session, text string) error {
	if err := validateSessionName(session); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if _, err := t.run("send-keys", "-t", session, "-l", "--", text); err != nil {
		return err
	}
	time.Sleep(injectDebounce)
	_, err := t.run("send-keys", "-t", session, "Enter")
	return err
}

// CapturePane returns the last lines of the session's visible pane plus
// scrollback.
func (t *Tmux) CapturePane(session string, lines int) (string, error) {
	if err := validateSessionName(session); err != nil {
		return "", err
	}
	return t.run("capture-pane", "-p", "-t", session, "-S", fmt.Sprintf("-%d", lines))
}

// SessionActivity returns the time of the session's last activity.
func (t *Tmux) SessionActivity(session string) (time.Time, error) {
	if err := validateSessionName(session); err != nil {
		return time.Time{}, err
	}
	out, err := t.run("display-message", "-p", "-t", session, "#{session_activity}")
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing session activity %q: %w", out, err)
	}
	return time.Unix(secs, 0), nil
}
