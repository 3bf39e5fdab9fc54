// Package lock prevents two listeners from serving the same session.
//
// Each listener holds <home>/pids/listener-<session>.lock containing:
// - PID of the owning process
// - Timestamp when the lock was acquired
// - Hostname
//
// An OS-level flock guards the read-check-write sequence; stale locks
// (where the PID is dead) are cleaned up automatically.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"github.com/groblegark/teleterm/internal/util"
)

// Common errors
var (
	ErrLocked      = errors.New("session is served by another listener")
	ErrNotLocked   = errors.New("session is not locked")
	ErrInvalidLock = errors.New("invalid lock file")
)

// Info describes who holds a listener lock.
type Info struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
	Session    string    `json:"session,omitempty"`
	Hostname   string    `json:"hostname,omitempty"`
}

// IsStale reports whether the owning process is dead.
func (i *Info) IsStale() bool {
	return !processExists(i.PID)
}

// processExists checks a PID with signal 0.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	// EPERM means the process exists but belongs to someone else.
	return err == nil || errors.Is(err, unix.EPERM)
}

// Lock is a per-session listener lock.
type Lock struct {
	session  string
	infoPath string
	fl       *flock.Flock
}

// New creates a Lock for session under dir (normally <home>/pids).
func New(dir, session string) *Lock {
	base := filepath.Join(dir, "listener-"+session)
	return &Lock{
		session:  session,
		infoPath: base + ".lock",
		fl:       flock.New(base + ".flock"),
	}
}

// Acquire takes the lock for this process. Returns ErrLocked when another
// live process holds it; stale locks are removed and re-acquired.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.infoPath), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	locked, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("flock: %w", err)
	}
	if !locked {
		info, _ := l.Read()
		if info != nil {
			return fmt.Errorf("%w: PID %d (acquired: %s)",
				ErrLocked, info.PID, info.AcquiredAt.Format(time.RFC3339))
		}
		return ErrLocked
	}

	// We hold the flock; any info file left behind is stale by definition.
	info, err := l.Read()
	if err == nil && !info.IsStale() && info.PID != os.Getpid() {
		_ = l.fl.Unlock()
		return fmt.Errorf("%w: PID %d (acquired: %s)",
			ErrLocked, info.PID, info.AcquiredAt.Format(time.RFC3339))
	}

	return l.write()
}

// Release drops the lock if we hold it.
func (l *Lock) Release() error {
	if err := os.Remove(l.infoPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return l.fl.Unlock()
}

// Read returns the current lock info without modifying it.
func (l *Lock) Read() (*Info, error) {
	data, err := os.ReadFile(l.infoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLocked
		}
		return nil, fmt.Errorf("reading lock file: %w", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLock, err)
	}
	return &info, nil
}

// Check reports whether another live listener holds the lock. Returns nil
// when unlocked, stale, or held by this process; stale files are removed.
func (l *Lock) Check() error {
	info, err := l.Read()
	if err != nil {
		if errors.Is(err, ErrNotLocked) {
			return nil
		}
		return err
	}
	if info.IsStale() {
		_ = os.Remove(l.infoPath)
		return nil
	}
	if info.PID == os.Getpid() {
		return nil
	}
	return fmt.Errorf("%w: PID %d", ErrLocked, info.PID)
}

// Status returns a human-readable description of the lock.
func (l *Lock) Status() string {
	info, err := l.Read()
	if err != nil {
		if errors.Is(err, ErrNotLocked) {
			return "unlocked"
		}
		return fmt.Sprintf("error: %v", err)
	}
	if info.IsStale() {
		return fmt.Sprintf("stale (dead PID %d)", info.PID)
	}
	if info.PID == os.Getpid() {
		return "locked (by us)"
	}
	return fmt.Sprintf("locked by PID %d on %s", info.PID, info.Hostname)
}

func (l *Lock) write() error {
	hostname, _ := os.Hostname()
	info := Info{
		PID:        os.Getpid(),
		AcquiredAt: time.Now(),
		Session:    l.session,
		Hostname:   hostname,
	}

	if err := util.AtomicWriteJSON(l.infoPath, info); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}

// CleanStale removes stale lock files under dir and returns how many were
// cleaned.
func CleanStale(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "listener-*.lock"))
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var info Info
		if err := json.Unmarshal(data, &info); err != nil {
			// Unreadable lock files are treated as stale.
			if os.Remove(path) == nil {
				cleaned++
			}
			continue
		}
		if info.IsStale() {
			if os.Remove(path) == nil {
				cleaned++
			}
		}
	}
	return cleaned, nil
}
