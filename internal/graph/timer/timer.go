// Package timer implements a pausable, resumable one-shot timer used to
// track how long a verifying source's claim about a node or edge stays
// valid before it is considered stale.
package timer

import (
	"sync"
	"time"
)

// Never is the duration that marks a timer as never firing. A node or edge
// verified with Never never times out on its own.
const Never time.Duration = -1

// Timer is a one-shot timer that can be paused and resumed. Pausing
// preserves the remaining duration so resuming picks up where it left off,
// the way a frozen environment's verification timers hold their place while
// a setup is applied.
type Timer struct {
	mu sync.Mutex

	duration  time.Duration
	startTime time.Time
	pausedAt  time.Time
	paused    bool
	over      bool
	cancelled bool

	t *time.Timer

	fn func()
}

// New creates a timer that calls fn after duration elapses. A duration of
// Never makes every operation on the timer a no-op; fn is never called.
func New(duration time.Duration, fn func()) *Timer {
	return &Timer{duration: duration, fn: fn}
}

// Start arms the timer for its current duration (the remaining duration,
// once a Resume has run). After Cancel it has no effect.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked()
}

func (t *Timer) startLocked() {
	if t.duration == Never || t.cancelled {
		return
	}
	t.startTime = time.Now()
	t.paused = false
	t.t = time.AfterFunc(t.duration, t.fire)
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.over = true
	fn := t.fn
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Pause stops the underlying timer without discarding the elapsed time, so
// a later Resume continues counting down from where it stood.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.duration == Never || t.cancelled || t.paused || t.over {
		return
	}
	if t.t != nil {
		t.t.Stop()
	}
	t.pausedAt = time.Now()
	t.paused = true
}

// Resume re-arms the timer with the duration remaining when it was paused.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.duration == Never || t.cancelled || !t.paused || t.over {
		return
	}
	elapsed := t.pausedAt.Sub(t.startTime)
	t.duration -= elapsed
	if t.duration < 0 {
		t.duration = 0
	}
	t.startLocked()
}

// Cancel stops the timer permanently; fn will not be invoked even if it was
// already pending.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if t.t != nil {
		t.t.Stop()
	}
}

// Over reports whether the timer has already fired.
func (t *Timer) Over() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.over
}
