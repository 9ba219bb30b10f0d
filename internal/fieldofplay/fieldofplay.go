// Package fieldofplay implements the state machine of one lifting platform.
//
// A FieldOfPlay owns the athletes of the group on its platform, its two event
// buses and its timers. Commands arrive as fopevent values on the FOP bus and
// are applied one at a time; the UI events an event produces are delivered
// to every subscriber before the next command is applied.
package fieldofplay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/fopevent"
	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/metrics"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/timer"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// AthleteSource loads the athletes of a group.
type AthleteSource interface {
	FindAllByGroupAndWeighIn(ctx context.Context, group *models.Group, weighedInOnly bool) ([]*models.Athlete, error)
}

// Config holds the dependencies of a field of play.
type Config struct {
	Name        string
	Competition *models.Competition
	Athletes    AthleteSource
	Clock       clockwork.Clock
	Sequence    *models.LiftSequence
	Logger      *logrus.Logger
	// ServerSideTimeout makes the server post TimeOver when the athlete clock
	// reaches zero instead of waiting for a display to report it.
	ServerSideTimeout bool
	InboxSize         int
	LoadTimeout       time.Duration
}

// FieldOfPlay is the state machine of one platform.
type FieldOfPlay struct {
	name        string
	competition *models.Competition
	settings    models.RankingSettings
	source      AthleteSource
	clock       clockwork.Clock
	seq         *models.LiftSequence
	log         *logger.PlatformLogger
	audit       *logger.AuditLogger
	loadTimeout time.Duration

	origin eventbus.Origin
	fopBus *eventbus.Bus[fopevent.FOPEvent]
	uiBus  *eventbus.Bus[uievent.UIEvent]
	inbox  chan fopevent.FOPEvent

	athleteTimer *timer.AthleteTimer
	breakTimer   *timer.BreakTimer

	view atomic.Pointer[Snapshot]

	// guarded by mu; only touched while applying an event
	mu             sync.Mutex
	pending        []uievent.UIEvent
	state          State
	group          *models.Group
	athletes       []*models.Athlete
	displayOrder   []*models.Athlete
	current        *models.Athlete
	next           *models.Athlete
	previous       *models.Athlete
	timeAllowed    time.Duration
	clockOwner     *models.Athlete
	ownerRemaining time.Duration
	referees       [3]*bool
	downSignaled   bool
	breakType      models.BreakType
	countdown      models.CountdownType
	groupDone      bool
}

// pendingPublisher buffers timer events until the current event is applied.
type pendingPublisher struct{ f *FieldOfPlay }

func (p pendingPublisher) Post(e uievent.UIEvent) { p.f.pending = append(p.f.pending, e) }

// New creates a field of play in the INACTIVE state.
func New(cfg Config) *FieldOfPlay {
	base := logger.OrDiscard(cfg.Logger)
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	seq := cfg.Sequence
	if seq == nil {
		seq = &models.LiftSequence{}
	}
	inboxSize := cfg.InboxSize
	if inboxSize <= 0 {
		inboxSize = 64
	}
	loadTimeout := cfg.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 5 * time.Second
	}

	f := &FieldOfPlay{
		name:        cfg.Name,
		competition: cfg.Competition,
		settings:    cfg.Competition.RankingSettings(),
		source:      cfg.Athletes,
		clock:       clock,
		seq:         seq,
		log:         logger.NewPlatformLogger(base, cfg.Name),
		audit:       logger.NewAuditLogger(base),
		loadTimeout: loadTimeout,
		origin:      eventbus.NewOrigin("fop-" + cfg.Name),
		fopBus:      eventbus.New[fopevent.FOPEvent]("fop-"+cfg.Name, base),
		uiBus:       eventbus.New[uievent.UIEvent]("ui-"+cfg.Name, base),
		inbox:       make(chan fopevent.FOPEvent, inboxSize),
	}
	f.athleteTimer = timer.NewAthleteTimer(clock, pendingPublisher{f})
	f.breakTimer = timer.NewBreakTimer(clock, pendingPublisher{f})
	if cfg.ServerSideTimeout {
		timeoutOrigin := eventbus.NewOrigin("server-timer")
		f.athleteTimer.SetExpiryHandler(func() {
			f.Post(fopevent.TimeOver{Envelope: eventbus.From(timeoutOrigin)})
		})
	}
	f.fopBus.SubscribeAll(f.handle)
	f.publishView()
	return f
}

// Name returns the platform name.
func (f *FieldOfPlay) Name() string { return f.name }

// Origin identifies events produced by the field of play itself.
func (f *FieldOfPlay) Origin() eventbus.Origin { return f.origin }

// FOPBus returns the command bus.
func (f *FieldOfPlay) FOPBus() *eventbus.Bus[fopevent.FOPEvent] { return f.fopBus }

// UIBus returns the notification bus displays subscribe to.
func (f *FieldOfPlay) UIBus() *eventbus.Bus[uievent.UIEvent] { return f.uiBus }

// Settings returns the ranking settings derived from the competition.
func (f *FieldOfPlay) Settings() models.RankingSettings { return f.settings }

// Post applies an event synchronously. It returns after the event was applied
// and its UI events were delivered. It must not be called from a FOP or UI
// bus subscriber of this platform; use Submit there.
func (f *FieldOfPlay) Post(e fopevent.FOPEvent) {
	f.fopBus.Post(e)
}

// Submit queues an event for Run. It blocks while the inbox is full.
func (f *FieldOfPlay) Submit(ctx context.Context, e fopevent.FOPEvent) error {
	select {
	case f.inbox <- e:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to submit %s: %w", fopevent.Name(e), ctx.Err())
	}
}

// Run applies queued events in arrival order until ctx is done.
func (f *FieldOfPlay) Run(ctx context.Context) error {
	f.log.Info("Field of play started")
	for {
		select {
		case <-ctx.Done():
			f.athleteTimer.SetExpiryHandler(nil)
			f.log.Info("Field of play stopped")
			return ctx.Err()
		case e := <-f.inbox:
			f.Post(e)
		}
	}
}

// Close tears down both buses.
func (f *FieldOfPlay) Close() {
	f.athleteTimer.SetExpiryHandler(nil)
	f.fopBus.Close()
	f.uiBus.Close()
}

// Snapshot returns the state after the last applied event. It never blocks
// on event handling and may be called from subscribers.
func (f *FieldOfPlay) Snapshot() *Snapshot {
	return f.view.Load()
}

// State returns the current state.
func (f *FieldOfPlay) State() State { return f.Snapshot().State }

// TimeAllowed returns the allowance of the current athlete.
func (f *FieldOfPlay) TimeAllowed() time.Duration { return f.Snapshot().TimeAllowed }

// CurrentAthlete returns a snapshot of the athlete called, or nil.
func (f *FieldOfPlay) CurrentAthlete() *models.Athlete { return f.Snapshot().Current }

// PreviousAthlete returns a snapshot of the athlete who lifted last, or nil.
func (f *FieldOfPlay) PreviousAthlete() *models.Athlete { return f.Snapshot().Previous }

// TimeRemaining reads the athlete clock.
func (f *FieldOfPlay) TimeRemaining() time.Duration { return f.athleteTimer.TimeRemaining() }

// BreakTimeRemaining reads the break countdown.
func (f *FieldOfPlay) BreakTimeRemaining() time.Duration { return f.breakTimer.TimeRemaining() }

// Notify posts a notification on the UI bus, e.g. for an action refused
// outside the state machine.
func (f *FieldOfPlay) Notify(origin eventbus.Origin, message string) {
	metrics.RecordNotification(f.name)
	f.uiBus.Post(uievent.Notification{Envelope: eventbus.From(origin), Message: message})
}

// handle is the single FOP bus subscriber.
func (f *FieldOfPlay) handle(e fopevent.FOPEvent) error {
	start := time.Now()
	name := fopevent.Name(e)

	f.mu.Lock()
	from := f.state
	err := f.apply(e)
	if f.current == nil && (f.state == CurrentAthleteDisplayed || f.state == TimeRunning) {
		f.state = Inactive
	}
	f.log.LogTransition(name, from.String(), f.state.String())
	f.publishView()
	pending := f.pending
	f.pending = nil
	state := f.state
	f.mu.Unlock()

	metrics.RecordFOPEvent(f.name, name, time.Since(start).Seconds())
	metrics.UpdateFOPState(f.name, int(state))

	for _, ev := range pending {
		f.uiBus.Post(ev)
	}
	return err
}

func (f *FieldOfPlay) emit(e uievent.UIEvent) {
	f.pending = append(f.pending, e)
}

func (f *FieldOfPlay) ignore(e fopevent.FOPEvent, reason string) error {
	f.log.LogIgnoredEvent(fopevent.Name(e), f.state.String(), reason)
	metrics.RecordIgnoredEvent(f.name, fopevent.Name(e))
	return nil
}

func (f *FieldOfPlay) reject(e fopevent.FOPEvent, err error) error {
	f.log.LogRejected(fopevent.Name(e), err)
	metrics.RecordNotification(f.name)
	f.emit(uievent.Notification{Envelope: eventbus.From(e.Origin()), Message: err.Error()})
	return nil
}

func (f *FieldOfPlay) publishView() {
	s := &Snapshot{
		Platform:     f.name,
		State:        f.state,
		Group:        f.group,
		Current:      f.current.Clone(),
		Next:         f.next.Clone(),
		Previous:     f.previous.Clone(),
		LiftingOrder: cloneAll(f.athletes),
		DisplayOrder: cloneAll(f.displayOrder),
		TimeAllowed:  f.timeAllowed,
		BreakType:    f.breakType,
		Countdown:    f.countdown,
		GroupDone:    f.groupDone,
		Referees:     f.referees,
	}
	f.view.Store(s)
}

func cloneAll(list []*models.Athlete) []*models.Athlete {
	out := make([]*models.Athlete, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}
