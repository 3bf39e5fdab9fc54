package relay

import (
	"testing"
	"time"
)

func TestSettleDetector(t *testing.T) {
	now := time.Unix(1000, 0)
	d := NewSettleDetector(10 * time.Second)
	d.now = func() time.Time { return now }

	if d.Busy() {
		t.Error("fresh detector should not be busy")
	}

	d.Observe("output v1")
	if !d.Busy() {
		t.Error("just-changed output should be busy")
	}

	// Same output observed again inside the window: still counts as the
	// original change.
	now = now.Add(5 * time.Second)
	d.Observe("output v1")
	if !d.Busy() {
		t.Error("still inside settle window")
	}

	// Window elapses with no change.
	now = now.Add(6 * time.Second)
	d.Observe("output v1")
	if d.Busy() {
		t.Error("unchanged output past window should be settled")
	}

	// New output restarts the window.
	d.Observe("output v2")
	if !d.Busy() {
		t.Error("changed output should be busy again")
	}
}

func TestSettleDetectorDefaultWindow(t *testing.T) {
	d := NewSettleDetector(0)
	if d.window != DefaultSettleWindow {
		t.Errorf("window = %v, want default", d.window)
	}
}
