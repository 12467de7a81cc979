package game

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerStepOnlyWhenActive(t *testing.T) {
	var fired atomic.Int32
	tm := NewTimer(2, time.Hour, func() { fired.Add(1) })

	tm.step()
	if got := tm.RemainingSeconds(); got != 2 {
		t.Fatalf("inactive timer ticked: %d", got)
	}

	tm.Resume()
	tm.step()
	if got := tm.RemainingSeconds(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	tm.step()
	if got := tm.RemainingSeconds(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if tm.Active() {
		t.Fatalf("timer should deactivate at zero")
	}
	tm.SetActive(true)
	tm.step()
	if fired.Load() != 1 {
		t.Fatalf("expected one expiry, got %d", fired.Load())
	}
}

func TestTimerSetSeconds(t *testing.T) {
	tm := NewTimer(10, time.Hour, nil)
	if err := tm.SetSeconds(-1); !errors.Is(err, ErrNegativeTime) {
		t.Fatalf("expected ErrNegativeTime, got %v", err)
	}
	if err := tm.SetSeconds(42); err != nil {
		t.Fatalf("SetSeconds: %v", err)
	}
	if tm.RemainingSeconds() != 42 {
		t.Fatalf("expected 42, got %d", tm.RemainingSeconds())
	}
}

func TestTimerActiveAtZeroExpires(t *testing.T) {
	var fired atomic.Int32
	tm := NewTimer(30, time.Hour, func() { fired.Add(1) })
	tm.Resume()
	if err := tm.SetSeconds(0); err != nil {
		t.Fatalf("SetSeconds: %v", err)
	}
	tm.step()
	if fired.Load() != 1 || tm.Active() {
		t.Fatalf("expected expiry and pause, fired=%d active=%v", fired.Load(), tm.Active())
	}
	tm.SetActive(true)
	tm.step()
	if fired.Load() != 1 {
		t.Fatalf("expiry fired again: %d", fired.Load())
	}

	if err := tm.SetSeconds(5); err != nil {
		t.Fatalf("SetSeconds: %v", err)
	}
	if err := tm.SetSeconds(0); err != nil {
		t.Fatalf("SetSeconds: %v", err)
	}
	tm.step()
	if fired.Load() != 2 {
		t.Fatalf("refilled timer should expire again, got %d", fired.Load())
	}
}

func TestTimerTicksInBackground(t *testing.T) {
	expired := make(chan struct{})
	tm := NewTimer(3, 2*time.Millisecond, func() { close(expired) })
	defer tm.Stop()
	tm.Start()
	tm.Resume()

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not expire, remaining %d", tm.RemainingSeconds())
	}
	if tm.RemainingSeconds() != 0 {
		t.Fatalf("expected 0 remaining, got %d", tm.RemainingSeconds())
	}
}

func TestTimerPauseHolds(t *testing.T) {
	tm := NewTimer(5, time.Millisecond, nil)
	defer tm.Stop()
	tm.Start()
	tm.Pause()
	time.Sleep(20 * time.Millisecond)
	if tm.RemainingSeconds() != 5 {
		t.Fatalf("paused timer changed to %d", tm.RemainingSeconds())
	}
}

func TestTimerStopIsIdempotent(t *testing.T) {
	tm := NewTimer(5, time.Millisecond, nil)
	tm.Start()
	tm.Resume()
	tm.Stop()
	tm.Stop()
	if tm.Active() {
		t.Fatalf("stopped timer still active")
	}
}
