package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// BreakTimer is the countdown shown during breaks. Indefinite breaks have no
// countdown until one is set.
type BreakTimer struct {
	clock clockwork.Clock
	pub   Publisher

	mu         sync.Mutex
	breakType  models.BreakType
	countdown  models.CountdownType
	remaining  time.Duration
	target     *time.Time
	startedAt  time.Time
	running    bool
	indefinite bool
}

// NewBreakTimer creates an idle break timer.
func NewBreakTimer(clock clockwork.Clock, pub Publisher) *BreakTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BreakTimer{clock: clock, pub: pub}
}

// Start begins a break. A target end time wins over a duration.
func (t *BreakTimer) Start(origin eventbus.Origin, bt models.BreakType, ct models.CountdownType, d time.Duration, target *time.Time) {
	t.mu.Lock()
	now := t.clock.Now()
	t.breakType, t.countdown = bt, ct
	t.indefinite = models.IsIndefiniteBreak(bt, ct)
	t.target = nil
	switch {
	case target != nil:
		tt := *target
		t.target = &tt
		t.remaining = clampZero(tt.Sub(now))
	case t.indefinite:
		t.remaining = 0
	default:
		t.remaining = clampZero(d)
	}
	t.running = !t.indefinite
	t.startedAt = now
	ev := uievent.BreakStarted{
		Envelope:      eventbus.From(origin),
		Type:          bt,
		Countdown:     ct,
		TimeRemaining: t.remaining,
		Target:        t.target,
		Indefinite:    t.indefinite,
	}
	t.mu.Unlock()

	t.post(ev)
}

// Pause freezes the countdown.
func (t *BreakTimer) Pause(origin eventbus.Origin) {
	t.mu.Lock()
	t.remaining = t.remainingLocked()
	t.running = false
	remaining := t.remaining
	t.mu.Unlock()

	t.post(uievent.BreakPaused{Envelope: eventbus.From(origin), TimeRemaining: remaining})
}

// SetTimeRemaining restarts the countdown from d.
func (t *BreakTimer) SetTimeRemaining(origin eventbus.Origin, d time.Duration) {
	t.mu.Lock()
	t.remaining = clampZero(d)
	t.target = nil
	t.indefinite = false
	t.running = true
	t.startedAt = t.clock.Now()
	remaining := t.remaining
	t.mu.Unlock()

	t.post(uievent.BreakSetTime{Envelope: eventbus.From(origin), TimeRemaining: remaining})
}

// SetTarget restarts the countdown towards an end time.
func (t *BreakTimer) SetTarget(origin eventbus.Origin, target time.Time) {
	t.mu.Lock()
	now := t.clock.Now()
	t.target = &target
	t.remaining = clampZero(target.Sub(now))
	t.indefinite = false
	t.running = true
	t.startedAt = now
	ev := uievent.BreakSetTime{Envelope: eventbus.From(origin), TimeRemaining: t.remaining, Target: t.target}
	t.mu.Unlock()

	t.post(ev)
}

// Stop ends the break.
func (t *BreakTimer) Stop(origin eventbus.Origin) {
	t.mu.Lock()
	t.remaining = t.remainingLocked()
	t.running = false
	t.breakType = 0
	t.mu.Unlock()

	t.post(uievent.BreakDone{Envelope: eventbus.From(origin)})
}

// TimeRemaining returns the countdown value, zero for indefinite breaks.
func (t *BreakTimer) TimeRemaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// IsRunning reports whether the countdown is moving.
func (t *BreakTimer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// IsIndefinite reports whether the current break has no countdown.
func (t *BreakTimer) IsIndefinite() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indefinite
}

// BreakType returns the current break type, zero when no break is active.
func (t *BreakTimer) BreakType() models.BreakType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.breakType
}

func (t *BreakTimer) remainingLocked() time.Duration {
	if !t.running {
		return t.remaining
	}
	return clampZero(t.remaining - t.clock.Since(t.startedAt))
}

func (t *BreakTimer) post(e uievent.UIEvent) {
	if t.pub != nil {
		t.pub.Post(e)
	}
}

func clampZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
