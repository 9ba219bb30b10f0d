// Package uievent defines what a field of play tells its displays.
//
// Athletes carried by UI events are snapshots: displays may keep them but
// changing them has no effect on the field of play.
package uievent

import (
	"time"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/models"
)

// UIEvent is a notification posted by a field of play.
type UIEvent interface {
	eventbus.Event
	uiEvent()
}

// StartLifting announces that the group is lifting.
type StartLifting struct {
	eventbus.Envelope
	Group *models.Group
}

// StartTime starts display clocks.
type StartTime struct {
	eventbus.Envelope
	TimeRemaining time.Duration
}

// StopTime stops display clocks.
type StopTime struct {
	eventbus.Envelope
	TimeRemaining time.Duration
}

// SetTime sets display clocks without starting them.
type SetTime struct {
	eventbus.Envelope
	TimeRemaining time.Duration
}

// LiftingOrderUpdated carries the recomputed order. Changing is the athlete
// whose record changed, if any. CurrentDisplayAffected tells attempt boards
// to refresh.
type LiftingOrderUpdated struct {
	eventbus.Envelope
	Current                *models.Athlete
	Next                   *models.Athlete
	Previous               *models.Athlete
	Changing               *models.Athlete
	LiftingOrder           []*models.Athlete
	DisplayOrder           []*models.Athlete
	TimeAllowed            time.Duration
	CurrentDisplayAffected bool
	InBreak                bool
}

// DownSignal shows the down light.
type DownSignal struct{ eventbus.Envelope }

// Decision shows a recorded lift. Jury is set when the jury reversed it.
type Decision struct {
	eventbus.Envelope
	Athlete  *models.Athlete
	Attempt  int
	Success  bool
	Referees [3]*bool
	Jury     bool
}

// RefereeUpdate shows the individual referee lights.
type RefereeUpdate struct {
	eventbus.Envelope
	Referees [3]*bool
}

// DecisionReset clears the decision lights.
type DecisionReset struct {
	eventbus.Envelope
	Athlete *models.Athlete
}

// BreakStarted shows a break countdown.
type BreakStarted struct {
	eventbus.Envelope
	Type          models.BreakType
	Countdown     models.CountdownType
	TimeRemaining time.Duration
	Target        *time.Time
	Indefinite    bool
}

// BreakPaused freezes the break countdown.
type BreakPaused struct {
	eventbus.Envelope
	TimeRemaining time.Duration
}

// BreakSetTime adjusts the break countdown.
type BreakSetTime struct {
	eventbus.Envelope
	TimeRemaining time.Duration
	Target        *time.Time
}

// BreakDone hides the break countdown.
type BreakDone struct{ eventbus.Envelope }

// SwitchGroup announces a new group on the platform; Group is nil when the
// platform was emptied.
type SwitchGroup struct {
	eventbus.Envelope
	Group *models.Group
	State string
}

// GroupDone announces that every athlete of the group has finished.
type GroupDone struct {
	eventbus.Envelope
	Group *models.Group
}

// BarbellOrPlatesChanged refreshes plate-loading displays.
type BarbellOrPlatesChanged struct {
	eventbus.Envelope
	Athlete *models.Athlete
}

// GlobalRankingUpdated tells result displays to reload the rankings.
type GlobalRankingUpdated struct{ eventbus.Envelope }

// Notification reports a rejected operator action.
type Notification struct {
	eventbus.Envelope
	Message string
}

func (StartLifting) uiEvent()           {}
func (StartTime) uiEvent()              {}
func (StopTime) uiEvent()               {}
func (SetTime) uiEvent()                {}
func (LiftingOrderUpdated) uiEvent()    {}
func (DownSignal) uiEvent()             {}
func (Decision) uiEvent()               {}
func (RefereeUpdate) uiEvent()          {}
func (DecisionReset) uiEvent()          {}
func (BreakStarted) uiEvent()           {}
func (BreakPaused) uiEvent()            {}
func (BreakSetTime) uiEvent()           {}
func (BreakDone) uiEvent()              {}
func (SwitchGroup) uiEvent()            {}
func (GroupDone) uiEvent()              {}
func (BarbellOrPlatesChanged) uiEvent() {}
func (GlobalRankingUpdated) uiEvent()   {}
func (Notification) uiEvent()           {}

// Name returns a stable name used as the message type on the display wire.
func Name(e UIEvent) string {
	switch e.(type) {
	case StartLifting:
		return "startLifting"
	case StartTime:
		return "startTime"
	case StopTime:
		return "stopTime"
	case SetTime:
		return "setTime"
	case LiftingOrderUpdated:
		return "liftingOrderUpdated"
	case DownSignal:
		return "downSignal"
	case Decision:
		return "decision"
	case RefereeUpdate:
		return "refereeUpdate"
	case DecisionReset:
		return "decisionReset"
	case BreakStarted:
		return "breakStarted"
	case BreakPaused:
		return "breakPaused"
	case BreakSetTime:
		return "breakSetTime"
	case BreakDone:
		return "breakDone"
	case SwitchGroup:
		return "switchGroup"
	case GroupDone:
		return "groupDone"
	case BarbellOrPlatesChanged:
		return "barbellOrPlatesChanged"
	case GlobalRankingUpdated:
		return "globalRankingUpdated"
	case Notification:
		return "notification"
	default:
		return "unknown"
	}
}

// Bool returns a pointer to v, for referee lights.
func Bool(v bool) *bool {
	return &v
}
