package game

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a per-player countdown. Remaining time is read and written
// atomically, so display reads never race the ticker.
type Timer struct {
	remaining atomic.Int64
	active    atomic.Bool
	expired   atomic.Bool

	tick     time.Duration
	onExpire func()

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
}

// NewTimer returns a paused timer holding seconds. onExpire runs once, on the
// ticker goroutine, when the timer reaches zero while active.
func NewTimer(seconds int, tick time.Duration, onExpire func()) *Timer {
	if tick <= 0 {
		tick = time.Second
	}
	t := &Timer{tick: tick, onExpire: onExpire, stop: make(chan struct{})}
	if seconds > 0 {
		t.remaining.Store(int64(seconds))
	}
	return t
}

// Start launches the ticker. Only the first call has an effect.
func (t *Timer) Start() {
	t.startOnce.Do(func() {
		go t.run()
	})
}

func (t *Timer) run() {
	tk := time.NewTicker(t.tick)
	defer tk.Stop()
	for {
		select {
		case <-tk.C:
			t.step()
		case <-t.stop:
			return
		}
	}
}

// step removes one second when active. An active timer already at zero
// expires on its next step.
func (t *Timer) step() {
	if !t.active.Load() {
		return
	}
	for {
		cur := t.remaining.Load()
		if cur <= 0 {
			t.expire()
			return
		}
		if !t.remaining.CompareAndSwap(cur, cur-1) {
			continue
		}
		if cur-1 == 0 {
			t.expire()
		}
		return
	}
}

func (t *Timer) expire() {
	t.active.Store(false)
	if t.expired.CompareAndSwap(false, true) && t.onExpire != nil {
		t.onExpire()
	}
}

func (t *Timer) Pause()  { t.SetActive(false) }
func (t *Timer) Resume() { t.SetActive(true) }

func (t *Timer) SetActive(on bool) { t.active.Store(on) }

func (t *Timer) Active() bool { return t.active.Load() }

func (t *Timer) RemainingSeconds() int { return int(t.remaining.Load()) }

// SetSeconds replaces the remaining time. A timer given fresh time may expire again.
func (t *Timer) SetSeconds(seconds int) error {
	if seconds < 0 {
		return ErrNegativeTime
	}
	t.remaining.Store(int64(seconds))
	if seconds > 0 {
		t.expired.Store(false)
	}
	return nil
}

// Stop deactivates the timer and ends its ticker. It never blocks.
func (t *Timer) Stop() {
	t.active.Store(false)
	t.stopOnce.Do(func() { close(t.stop) })
}
