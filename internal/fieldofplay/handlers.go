package fieldofplay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/fopevent"
	"github.com/yourusername/fop-engine/internal/metrics"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/sorter"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// apply runs one transition. Events that do not fit the current state are
// logged and ignored; rejected operator actions produce a Notification.
func (f *FieldOfPlay) apply(e fopevent.FOPEvent) error {
	switch e := e.(type) {
	case fopevent.SwitchGroup:
		return f.switchGroup(e)
	case fopevent.StartLifting:
		return f.startLifting(e)
	case fopevent.TimeStarted:
		return f.timeStarted(e)
	case fopevent.TimeStopped:
		return f.timeStopped(e)
	case fopevent.ClientTimerStopped:
		return f.clientTimerStopped(e)
	case fopevent.ForceTime:
		return f.forceTime(e)
	case fopevent.WeightChange:
		return f.weightChange(e)
	case fopevent.TimeOver:
		return f.timeOver(e)
	case fopevent.DownSignal:
		return f.downSignal(e)
	case fopevent.ExplicitDecision:
		if !f.decisionPossible() {
			return f.ignore(e, "no athlete to decide on")
		}
		return f.decide(e, e.Success, e.Referees)
	case fopevent.DecisionUpdate:
		return f.decisionUpdate(e)
	case fopevent.DecisionFullUpdate:
		return f.decisionFullUpdate(e)
	case fopevent.DecisionReset:
		return f.decisionReset(e)
	case fopevent.JuryDecision:
		return f.juryDecision(e)
	case fopevent.BreakStarted:
		return f.breakStarted(e)
	case fopevent.BreakPaused:
		if f.state != Break {
			return f.ignore(e, "not in a break")
		}
		f.breakTimer.Pause(e.Origin())
		return nil
	case fopevent.BreakSetTime:
		if f.state != Break {
			return f.ignore(e, "not in a break")
		}
		if e.Target != nil {
			f.breakTimer.SetTarget(e.Origin(), *e.Target)
		} else {
			f.breakTimer.SetTimeRemaining(e.Origin(), e.Remaining)
		}
		return nil
	case fopevent.BreakDone:
		return f.breakDone(e)
	case fopevent.BarbellOrPlatesChanged:
		f.emit(uievent.BarbellOrPlatesChanged{Envelope: eventbus.From(e.Origin()), Athlete: f.current.Clone()})
		return nil
	default:
		return fmt.Errorf("unhandled event %T", e)
	}
}

func (f *FieldOfPlay) switchGroup(e fopevent.SwitchGroup) error {
	origin := e.Origin()
	f.stopClock(origin)
	if f.state == Break {
		f.breakTimer.Stop(origin)
	}
	f.resetDecision()
	f.previous, f.clockOwner, f.ownerRemaining = nil, nil, 0
	f.breakType, f.countdown, f.groupDone = 0, 0, false

	if e.Group == nil {
		f.group, f.athletes, f.displayOrder = nil, nil, nil
		f.current, f.next, f.timeAllowed = nil, nil, 0
		f.state = Inactive
		f.emit(uievent.SwitchGroup{Envelope: eventbus.From(origin), State: f.state.String()})
		return nil
	}

	athletes, err := f.load(e.Group)
	if err != nil {
		f.group, f.athletes, f.displayOrder = nil, nil, nil
		f.current, f.next = nil, nil
		f.state = Inactive
		return err
	}
	f.group = e.Group
	f.athletes = athletes
	f.recompute()
	f.state = CurrentAthleteDisplayed
	if f.current == nil {
		f.state = Inactive
	}
	f.prepareClock(origin)
	f.log.WithField("group", e.Group.Name).WithField("athletes", len(athletes)).Info("Group loaded")

	f.emit(uievent.SwitchGroup{Envelope: eventbus.From(origin), Group: f.group, State: f.state.String()})
	f.emitOrder(origin, nil, true)
	return nil
}

func (f *FieldOfPlay) load(group *models.Group) ([]*models.Athlete, error) {
	if f.source == nil {
		return nil, fmt.Errorf("no athlete source for platform %s", f.name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.loadTimeout)
	defer cancel()
	athletes, err := f.source.FindAllByGroupAndWeighIn(ctx, group, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", group.Name, err)
	}
	if err := sorter.ValidateGenders(athletes); err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", group.Name, err)
	}
	for _, a := range athletes {
		f.seq.AdvanceTo(a.PreviousLiftSequence())
	}
	return athletes, nil
}

func (f *FieldOfPlay) startLifting(e fopevent.StartLifting) error {
	if f.group == nil {
		return f.ignore(e, "no group selected")
	}
	origin := e.Origin()
	f.stopClock(origin)
	if f.state == Break {
		f.breakTimer.Stop(origin)
		f.breakType, f.countdown = 0, 0
	}
	f.recompute()
	f.resetDecision()
	f.state = CurrentAthleteDisplayed
	if f.current == nil {
		f.state = Inactive
	}
	f.prepareClock(origin)
	f.emit(uievent.StartLifting{Envelope: eventbus.From(origin), Group: f.group})
	f.emitOrder(origin, nil, true)
	return nil
}

func (f *FieldOfPlay) timeStarted(e fopevent.TimeStarted) error {
	switch {
	case f.current == nil:
		return f.ignore(e, "no current athlete")
	case f.state == TimeRunning:
		return f.ignore(e, "clock already running")
	case f.state == Inactive || f.state == Break:
		return f.ignore(e, "not lifting")
	}
	origin := e.Origin()
	if f.state == DecisionVisible {
		f.clearDecision(origin)
	}
	f.athleteTimer.Start(origin)
	f.clockOwner, f.ownerRemaining = f.current, 0
	f.state = TimeRunning
	return nil
}

func (f *FieldOfPlay) timeStopped(e fopevent.TimeStopped) error {
	if f.state != TimeRunning {
		return f.ignore(e, "clock not running")
	}
	f.stopClock(e.Origin())
	f.state = CurrentAthleteDisplayed
	return nil
}

func (f *FieldOfPlay) clientTimerStopped(e fopevent.ClientTimerStopped) error {
	if f.state != TimeRunning {
		return f.ignore(e, "clock not running")
	}
	origin := e.Origin()
	f.athleteTimer.Stop(origin)
	f.athleteTimer.SetTimeRemaining(origin, e.Remaining)
	f.ownerRemaining = f.athleteTimer.TimeRemaining()
	f.state = CurrentAthleteDisplayed
	return nil
}

func (f *FieldOfPlay) forceTime(e fopevent.ForceTime) error {
	if f.current == nil {
		return f.ignore(e, "no current athlete")
	}
	f.athleteTimer.SetTimeRemaining(e.Origin(), e.TimeAllowed)
	f.timeAllowed = f.athleteTimer.TimeRemaining()
	f.clockOwner, f.ownerRemaining = f.current, f.timeAllowed
	return nil
}

func (f *FieldOfPlay) weightChange(e fopevent.WeightChange) error {
	a := f.find(e.Athlete)
	if a == nil {
		return f.reject(e, fmt.Errorf("%w: %s", models.ErrUnknownAthlete, e.Athlete))
	}
	attempt := e.Attempt
	if attempt == 0 {
		attempt = a.NextAttemptNumber()
	}
	if attempt < 1 || attempt > models.TotalAttempts {
		return f.reject(e, fmt.Errorf("%s: %w", a.FullName(), models.ErrAttemptAlreadyDone))
	}

	before := a.Attempts[attempt-1]
	if err := a.SetRequest(attempt, e.Change, e.Weight); err != nil {
		return f.reject(e, err)
	}
	if f.competition != nil && f.competition.Enforce20kgRule {
		if err := a.Check20kgRule(); err != nil {
			a.Attempts[attempt-1] = before
			return f.reject(e, fmt.Errorf("%s: %w", a.FullName(), err))
		}
	}

	f.log.LogWeightChange(a.LotNumber, a.FullName(), attempt, e.Change.String(), e.Weight, models.SameAthlete(a, f.current))
	f.reorder(e.Origin(), a)
	return nil
}

// reorder recomputes the lifting order after an athlete record changed. When
// somebody else becomes current a running clock is stopped and the new
// athlete's allowance computed; the stopped athlete keeps the time left.
func (f *FieldOfPlay) reorder(origin eventbus.Origin, changing *models.Athlete) {
	oldCurrent := f.current
	f.recompute()
	currentChanged := !models.SameAthlete(oldCurrent, f.current)

	switch {
	case currentChanged && f.state == TimeRunning:
		f.stopClock(origin)
		f.state = CurrentAthleteDisplayed
		f.prepareClock(origin)
	case currentChanged, f.state != TimeRunning:
		f.prepareClock(origin)
	}

	affected := currentChanged || models.SameAthlete(changing, f.current)
	f.emitOrder(origin, changing, affected)
}

func (f *FieldOfPlay) timeOver(e fopevent.TimeOver) error {
	if f.current == nil {
		return f.ignore(e, "no current athlete")
	}
	if !f.clockExpired() {
		return f.ignore(e, "duplicate time over")
	}
	origin := e.Origin()
	f.athleteTimer.TimeOut(origin)
	a := f.current
	if _, err := f.record(a, false); err != nil {
		return f.reject(e, err)
	}
	f.resetDecision()
	f.recompute()
	f.state = CurrentAthleteDisplayed
	f.prepareClock(origin)
	f.emitOrder(origin, a, true)
	if f.current == nil {
		f.enterGroupDone(origin)
	}
	return nil
}

// clockExpired reports whether a time over applies to the current athlete:
// the clock is running, or it was stopped for this athlete with no time left.
// Every display reports its own expiry, so later reports find neither.
func (f *FieldOfPlay) clockExpired() bool {
	switch f.state {
	case TimeRunning:
		return true
	case CurrentAthleteDisplayed:
		return models.SameAthlete(f.clockOwner, f.current) && f.athleteTimer.TimeRemaining() == 0
	}
	return false
}

func (f *FieldOfPlay) downSignal(e fopevent.DownSignal) error {
	if !f.decisionPossible() {
		return f.ignore(e, "no lift in progress")
	}
	if f.downSignaled {
		return f.ignore(e, "duplicate down signal")
	}
	f.downSignaled = true
	f.emit(uievent.DownSignal{Envelope: eventbus.From(e.Origin())})
	return nil
}

func (f *FieldOfPlay) decisionPossible() bool {
	return f.current != nil && (f.state == TimeRunning || f.state == CurrentAthleteDisplayed)
}

func (f *FieldOfPlay) decisionUpdate(e fopevent.DecisionUpdate) error {
	if !f.decisionPossible() {
		return f.ignore(e, "no athlete to decide on")
	}
	if e.Referee < 0 || e.Referee >= len(f.referees) {
		return f.ignore(e, fmt.Sprintf("referee index %d out of range", e.Referee))
	}
	f.referees[e.Referee] = uievent.Bool(e.Good)
	return f.lightsChanged(e)
}

func (f *FieldOfPlay) decisionFullUpdate(e fopevent.DecisionFullUpdate) error {
	if !f.decisionPossible() {
		return f.ignore(e, "no athlete to decide on")
	}
	for i, r := range e.Referees {
		if r != nil {
			f.referees[i] = uievent.Bool(*r)
		} else {
			f.referees[i] = nil
		}
	}
	return f.lightsChanged(e)
}

// lightsChanged signals down as soon as two referees agree and decides by
// majority once all three lights are in.
func (f *FieldOfPlay) lightsChanged(e fopevent.FOPEvent) error {
	origin := e.Origin()
	f.emit(uievent.RefereeUpdate{Envelope: eventbus.From(origin), Referees: f.referees})

	good, bad, given := 0, 0, 0
	for _, r := range f.referees {
		if r == nil {
			continue
		}
		given++
		if *r {
			good++
		} else {
			bad++
		}
	}
	if (good >= 2 || bad >= 2) && !f.downSignaled {
		f.downSignaled = true
		f.emit(uievent.DownSignal{Envelope: eventbus.From(origin)})
	}
	if given == len(f.referees) {
		return f.decide(e, good >= 2, f.referees)
	}
	return nil
}

func (f *FieldOfPlay) decide(e fopevent.FOPEvent, good bool, referees [3]*bool) error {
	origin := e.Origin()
	a := f.current
	attempt := a.NextAttemptNumber()
	f.athleteTimer.Stop(origin)
	if _, err := f.record(a, good); err != nil {
		return f.reject(e, err)
	}
	f.referees = referees
	f.recompute()
	f.prepareClock(origin)
	f.state = DecisionVisible

	f.emit(uievent.Decision{
		Envelope: eventbus.From(origin),
		Athlete:  a.Clone(),
		Attempt:  attempt,
		Success:  good,
		Referees: referees,
	})
	f.emitOrder(origin, a, true)
	return nil
}

// record stores the pending attempt of a at its requested weight.
func (f *FieldOfPlay) record(a *models.Athlete, good bool) (int, error) {
	attempt := a.NextAttemptNumber()
	result, err := a.RecordDecision(good, f.seq.Next())
	if err != nil {
		return 0, err
	}
	f.log.LogDecision(a.LotNumber, a.FullName(), attempt, result)
	metrics.RecordDecision(f.name, good)
	f.previous = a
	f.clockOwner, f.ownerRemaining = nil, 0
	return result, nil
}

func (f *FieldOfPlay) decisionReset(e fopevent.DecisionReset) error {
	if f.state != DecisionVisible {
		return f.ignore(e, "no decision shown")
	}
	origin := e.Origin()
	f.clearDecision(origin)
	f.state = CurrentAthleteDisplayed
	if f.current == nil {
		f.enterGroupDone(origin)
	}
	return nil
}

func (f *FieldOfPlay) juryDecision(e fopevent.JuryDecision) error {
	a := f.find(e.Athlete)
	if a == nil {
		return f.reject(e, fmt.Errorf("%w: %s", models.ErrUnknownAthlete, e.Athlete))
	}
	if err := a.ReverseLift(e.Attempt, e.Success); err != nil {
		return f.reject(e, err)
	}
	f.audit.LogJuryReversal(f.name, a.LotNumber, a.FullName(), e.Attempt, e.Success)
	origin := e.Origin()
	f.emit(uievent.Decision{
		Envelope: eventbus.From(origin),
		Athlete:  a.Clone(),
		Attempt:  e.Attempt,
		Success:  e.Success,
		Jury:     true,
	})
	f.reorder(origin, a)
	return nil
}

func (f *FieldOfPlay) breakStarted(e fopevent.BreakStarted) error {
	origin := e.Origin()
	f.stopClock(origin)
	if f.state == DecisionVisible {
		f.clearDecision(origin)
	}
	f.state = Break
	f.breakType, f.countdown = e.Type, e.Countdown
	f.groupDone = e.Type == models.BreakGroupDone
	f.breakTimer.Start(origin, e.Type, e.Countdown, e.Duration, e.Target)
	return nil
}

func (f *FieldOfPlay) breakDone(e fopevent.BreakDone) error {
	if f.state != Break {
		return f.ignore(e, "not in a break")
	}
	origin := e.Origin()
	f.breakTimer.Stop(origin)
	f.breakType, f.countdown = 0, 0
	f.recompute()
	f.state = CurrentAthleteDisplayed
	if f.current == nil {
		f.state = Inactive
	}
	f.groupDone = false
	f.prepareClock(origin)
	f.emitOrder(origin, nil, true)
	return nil
}

func (f *FieldOfPlay) enterGroupDone(origin eventbus.Origin) {
	f.state = Break
	f.breakType, f.countdown = models.BreakGroupDone, models.CountdownIndefinite
	f.groupDone = true
	f.breakTimer.Start(origin, models.BreakGroupDone, models.CountdownIndefinite, 0, nil)
	f.emit(uievent.GroupDone{Envelope: eventbus.From(origin), Group: f.group})
	f.log.WithField("group", f.group.Name).Info("Group done")
}

// stopClock freezes a running clock. The time left stays with the athlete
// the clock was started for, even if the order has already moved on.
func (f *FieldOfPlay) stopClock(origin eventbus.Origin) {
	if !f.athleteTimer.IsRunning() {
		return
	}
	f.ownerRemaining = f.athleteTimer.Stop(origin)
}

// prepareClock sets the allowance of the current athlete: the time left if
// the athlete's clock was stopped mid-countdown, the two-minute rule otherwise.
func (f *FieldOfPlay) prepareClock(origin eventbus.Origin) {
	if f.current == nil {
		f.timeAllowed = 0
		return
	}
	if f.clockOwner != nil && models.SameAthlete(f.clockOwner, f.current) && f.ownerRemaining > 0 {
		f.timeAllowed = f.ownerRemaining
	} else {
		f.timeAllowed = ComputeTimeAllowed(f.previous, f.current)
	}
	f.athleteTimer.SetTimeRemaining(origin, f.timeAllowed)
	f.log.LogCurrentAthlete(f.current.LotNumber, f.current.FullName(), f.current.NextAttemptRequestedWeight(), int(f.timeAllowed.Milliseconds()))
}

func (f *FieldOfPlay) recompute() {
	sorter.LiftingOrder(f.athletes)
	f.displayOrder = sorter.DisplayOrderCopy(f.athletes, f.settings)
	f.current, f.next = nil, nil
	if len(f.athletes) > 0 && !f.athletes[0].IsFinished() {
		f.current = f.athletes[0]
	}
	if len(f.athletes) > 1 && !f.athletes[1].IsFinished() {
		f.next = f.athletes[1]
	}
}

func (f *FieldOfPlay) resetDecision() {
	f.referees = [3]*bool{}
	f.downSignaled = false
}

func (f *FieldOfPlay) clearDecision(origin eventbus.Origin) {
	f.resetDecision()
	f.emit(uievent.DecisionReset{Envelope: eventbus.From(origin), Athlete: f.previous.Clone()})
}

func (f *FieldOfPlay) emitOrder(origin eventbus.Origin, changing *models.Athlete, affected bool) {
	f.emit(uievent.LiftingOrderUpdated{
		Envelope:               eventbus.From(origin),
		Current:                f.current.Clone(),
		Next:                   f.next.Clone(),
		Previous:               f.previous.Clone(),
		Changing:               changing.Clone(),
		LiftingOrder:           cloneAll(f.athletes),
		DisplayOrder:           cloneAll(f.displayOrder),
		TimeAllowed:            f.timeAllowed,
		CurrentDisplayAffected: affected,
		InBreak:                f.state == Break,
	})
}

func (f *FieldOfPlay) find(id uuid.UUID) *models.Athlete {
	for _, a := range f.athletes {
		if a.ID == id {
			return a
		}
	}
	return nil
}
