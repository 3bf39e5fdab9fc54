package relay

import (
	"hash/fnv"
	"time"
)

// DefaultSettleWindow is how long the captured output must stay unchanged
// before the session counts as settled.
const DefaultSettleWindow = 10 * time.Second

// SettleDetector decides whether a session is still streaming output by
// hashing pane captures across observations.
type SettleDetector struct {
	window     time.Duration
	lastHash   uint64
	lastChange time.Time
	now        func() time.Time
}

// NewSettleDetector creates a detector with the given settle window.
func NewSettleDetector(window time.Duration) *SettleDetector {
	if window <= 0 {
		window = DefaultSettleWindow
	}
	return &SettleDetector{window: window, now: time.Now}
}

// Observe records a pane capture. A changed capture restarts the settle
// window.
func (d *SettleDetector) Observe(capture string) {
	h := fnv.New64a()
	h.Write([]byte(capture))
	sum := h.Sum64()
	if sum != d.lastHash {
		d.lastHash = sum
		d.lastChange = d.now()
	}
}

// Busy reports whether output changed within the settle window. A detector
// that has never observed anything is not busy.
func (d *SettleDetector) Busy() bool {
	if d.lastChange.IsZero() {
		return false
	}
	return d.now().Sub(d.lastChange) < d.window
}
