// Package fopevent defines the commands a field of play accepts.
//
// FOPEvent is a closed set: only types in this package implement it, and the
// state machine dispatches on them with a type switch.
package fopevent

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/models"
)

// FOPEvent is a command posted to a field of play.
type FOPEvent interface {
	eventbus.Event
	fopEvent()
}

// StartLifting activates the current group.
type StartLifting struct{ eventbus.Envelope }

// TimeStarted starts the athlete clock.
type TimeStarted struct{ eventbus.Envelope }

// TimeStopped stops the athlete clock.
type TimeStopped struct{ eventbus.Envelope }

// ForceTime overrides the remaining athlete time.
type ForceTime struct {
	eventbus.Envelope
	TimeAllowed time.Duration
}

// WeightChange is a declaration or change for an attempt not yet done.
// Attempt 0 means the athlete's next attempt.
type WeightChange struct {
	eventbus.Envelope
	Athlete uuid.UUID
	Attempt int
	Change  models.ChangeKind
	Weight  int
}

// TimeOver reports that the athlete clock reached zero.
type TimeOver struct{ eventbus.Envelope }

// ClientTimerStopped reports the remaining time shown by a display when it
// stopped its clock.
type ClientTimerStopped struct {
	eventbus.Envelope
	Remaining time.Duration
}

// DownSignal tells the athlete to put the bar down.
type DownSignal struct{ eventbus.Envelope }

// ExplicitDecision records a decision entered directly (no lights).
// Referees is optional.
type ExplicitDecision struct {
	eventbus.Envelope
	Success  bool
	Referees [3]*bool
}

// DecisionUpdate sets the light of one referee (index 0..2).
type DecisionUpdate struct {
	eventbus.Envelope
	Referee int
	Good    bool
}

// DecisionFullUpdate sets all referee lights at once; nil means not given.
type DecisionFullUpdate struct {
	eventbus.Envelope
	Referees [3]*bool
}

// DecisionReset clears the decision lights.
type DecisionReset struct{ eventbus.Envelope }

// JuryDecision reverses the outcome of a recorded attempt.
type JuryDecision struct {
	eventbus.Envelope
	Athlete uuid.UUID
	Attempt int
	Success bool
}

// BreakStarted interrupts lifting. Target, when set, wins over Duration.
type BreakStarted struct {
	eventbus.Envelope
	Type      models.BreakType
	Countdown models.CountdownType
	Duration  time.Duration
	Target    *time.Time
}

// BreakPaused freezes the break countdown.
type BreakPaused struct{ eventbus.Envelope }

// BreakSetTime adjusts the break countdown.
type BreakSetTime struct {
	eventbus.Envelope
	Remaining time.Duration
	Target    *time.Time
}

// BreakDone resumes lifting.
type BreakDone struct{ eventbus.Envelope }

// SwitchGroup loads another group on the platform. A nil group empties it.
type SwitchGroup struct {
	eventbus.Envelope
	Group *models.Group
}

// BarbellOrPlatesChanged tells loaders and plate displays to refresh.
type BarbellOrPlatesChanged struct{ eventbus.Envelope }

func (StartLifting) fopEvent()           {}
func (TimeStarted) fopEvent()            {}
func (TimeStopped) fopEvent()            {}
func (ForceTime) fopEvent()              {}
func (WeightChange) fopEvent()           {}
func (TimeOver) fopEvent()               {}
func (ClientTimerStopped) fopEvent()     {}
func (DownSignal) fopEvent()             {}
func (ExplicitDecision) fopEvent()       {}
func (DecisionUpdate) fopEvent()         {}
func (DecisionFullUpdate) fopEvent()     {}
func (DecisionReset) fopEvent()          {}
func (JuryDecision) fopEvent()           {}
func (BreakStarted) fopEvent()           {}
func (BreakPaused) fopEvent()            {}
func (BreakSetTime) fopEvent()           {}
func (BreakDone) fopEvent()              {}
func (SwitchGroup) fopEvent()            {}
func (BarbellOrPlatesChanged) fopEvent() {}

// Name returns a stable name for logs and metric labels.
func Name(e FOPEvent) string {
	switch e.(type) {
	case StartLifting:
		return "StartLifting"
	case TimeStarted:
		return "TimeStarted"
	case TimeStopped:
		return "TimeStopped"
	case ForceTime:
		return "ForceTime"
	case WeightChange:
		return "WeightChange"
	case TimeOver:
		return "TimeOver"
	case ClientTimerStopped:
		return "ClientTimerStopped"
	case DownSignal:
		return "DownSignal"
	case ExplicitDecision:
		return "ExplicitDecision"
	case DecisionUpdate:
		return "DecisionUpdate"
	case DecisionFullUpdate:
		return "DecisionFullUpdate"
	case DecisionReset:
		return "DecisionReset"
	case JuryDecision:
		return "JuryDecision"
	case BreakStarted:
		return "BreakStarted"
	case BreakPaused:
		return "BreakPaused"
	case BreakSetTime:
		return "BreakSetTime"
	case BreakDone:
		return "BreakDone"
	case SwitchGroup:
		return "SwitchGroup"
	case BarbellOrPlatesChanged:
		return "BarbellOrPlatesChanged"
	default:
		return "Unknown"
	}
}
