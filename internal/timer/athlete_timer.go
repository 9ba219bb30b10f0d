// Package timer keeps the time bookkeeping of the athlete clock and the break
// countdown and tells displays about it.
//
// Timers never block: remaining time is derived from the start instant and the
// injected clock. Expiry, when wanted, is delivered through a callback on a
// separate goroutine.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// Publisher receives the UI events emitted by timers.
type Publisher interface {
	Post(uievent.UIEvent)
}

// AthleteTimer is the clock of the athlete currently called.
type AthleteTimer struct {
	clock clockwork.Clock
	pub   Publisher

	mu        sync.Mutex
	remaining time.Duration
	startedAt time.Time
	running   bool
	expiry    clockwork.Timer
	gen       uint64
	onExpire  func()
}

// NewAthleteTimer creates a stopped timer with no time.
func NewAthleteTimer(clock clockwork.Clock, pub Publisher) *AthleteTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AthleteTimer{clock: clock, pub: pub}
}

// SetExpiryHandler installs a callback run when a running clock reaches zero.
// Without a handler expiry is left to the displays (clientTimeOver).
func (t *AthleteTimer) SetExpiryHandler(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = f
}

// Start runs the clock from the current remaining time.
func (t *AthleteTimer) Start(origin eventbus.Origin) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.startedAt = t.clock.Now()
	t.armLocked()
	remaining := t.remaining
	t.mu.Unlock()

	t.post(uievent.StartTime{Envelope: eventbus.From(origin), TimeRemaining: remaining})
}

// Stop freezes the clock and returns the remaining time. Stopping a stopped
// clock returns the frozen value and posts nothing.
func (t *AthleteTimer) Stop(origin eventbus.Origin) time.Duration {
	t.mu.Lock()
	if !t.running {
		remaining := t.remaining
		t.mu.Unlock()
		return remaining
	}
	t.remaining = t.remainingLocked()
	t.running = false
	t.disarmLocked()
	remaining := t.remaining
	t.mu.Unlock()

	t.post(uievent.StopTime{Envelope: eventbus.From(origin), TimeRemaining: remaining})
	return remaining
}

// SetTimeRemaining replaces the remaining time. A running clock keeps running
// from the new value.
func (t *AthleteTimer) SetTimeRemaining(origin eventbus.Origin, d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	t.remaining = d
	if t.running {
		t.startedAt = t.clock.Now()
		t.armLocked()
	}
	t.mu.Unlock()

	t.post(uievent.SetTime{Envelope: eventbus.From(origin), TimeRemaining: d})
}

// TimeOut stops the clock at zero.
func (t *AthleteTimer) TimeOut(origin eventbus.Origin) {
	t.mu.Lock()
	wasRunning := t.running
	t.running = false
	t.remaining = 0
	t.disarmLocked()
	t.mu.Unlock()

	if wasRunning {
		t.post(uievent.StopTime{Envelope: eventbus.From(origin), TimeRemaining: 0})
	}
}

// TimeRemaining returns the time left, never negative.
func (t *AthleteTimer) TimeRemaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// IsRunning reports whether the clock is counting down.
func (t *AthleteTimer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *AthleteTimer) remainingLocked() time.Duration {
	if !t.running {
		return t.remaining
	}
	left := t.remaining - t.clock.Since(t.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (t *AthleteTimer) armLocked() {
	t.disarmLocked()
	if t.onExpire == nil {
		return
	}
	gen := t.gen
	t.expiry = t.clock.AfterFunc(t.remaining, func() { t.expired(gen) })
}

func (t *AthleteTimer) disarmLocked() {
	t.gen++
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
}

// expired ignores callbacks from a clock that has since been stopped or reset.
func (t *AthleteTimer) expired(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running || t.onExpire == nil {
		t.mu.Unlock()
		return
	}
	f := t.onExpire
	t.mu.Unlock()
	f()
}

func (t *AthleteTimer) post(e uievent.UIEvent) {
	if t.pub != nil {
		t.pub.Post(e)
	}
}
