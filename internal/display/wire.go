// Package display relays a platform's UI events to WebSocket displays and
// turns display commands into field-of-play events.
package display

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/fop-engine/internal/fieldofplay"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// Message is what displays receive. Type is the UI event name, or "snapshot"
// for the state sent on connect.
type Message struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
	Origin   string `json:"origin,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// AthleteView is the display form of an athlete.
type AthleteView struct {
	ID              uuid.UUID `json:"id"`
	Lot             int       `json:"lot"`
	StartNumber     int       `json:"start_number"`
	Name            string    `json:"name"`
	Team            string    `json:"team,omitempty"`
	Category        string    `json:"category,omitempty"`
	Attempt         int       `json:"attempt"`
	RequestedWeight int       `json:"requested_weight"`
	Results         [6]int    `json:"results"`
	BestSnatch      int       `json:"best_snatch"`
	BestCleanJerk   int       `json:"best_clean_jerk"`
	Total           int       `json:"total"`
}

func athleteView(a *models.Athlete, useRegistration bool) *AthleteView {
	if a == nil {
		return nil
	}
	v := &AthleteView{
		ID:              a.ID,
		Lot:             a.LotNumber,
		StartNumber:     a.StartNumber,
		Name:            a.FullName(),
		Team:            a.Team,
		Category:        a.EffectiveCategory(useRegistration).String(),
		Attempt:         a.NextAttemptNumber(),
		RequestedWeight: a.NextAttemptRequestedWeight(),
		BestSnatch:      a.BestSnatch(),
		BestCleanJerk:   a.BestCleanJerk(),
		Total:           a.Total(),
	}
	for i, at := range a.Attempts {
		if at.Lifted {
			v.Results[i] = at.Result
		}
	}
	return v
}

func athleteViews(list []*models.Athlete, useRegistration bool) []*AthleteView {
	out := make([]*AthleteView, len(list))
	for i, a := range list {
		out[i] = athleteView(a, useRegistration)
	}
	return out
}

type clockPayload struct {
	TimeRemainingMs int64 `json:"time_remaining_ms"`
}

type orderPayload struct {
	Current                *AthleteView   `json:"current,omitempty"`
	Next                   *AthleteView   `json:"next,omitempty"`
	Previous               *AthleteView   `json:"previous,omitempty"`
	Changing               *AthleteView   `json:"changing,omitempty"`
	LiftingOrder           []*AthleteView `json:"lifting_order"`
	DisplayOrder           []*AthleteView `json:"display_order"`
	TimeAllowedMs          int64          `json:"time_allowed_ms"`
	CurrentDisplayAffected bool           `json:"current_display_affected"`
	InBreak                bool           `json:"in_break"`
}

type decisionPayload struct {
	Athlete  *AthleteView `json:"athlete,omitempty"`
	Attempt  int          `json:"attempt"`
	Success  bool         `json:"success"`
	Referees [3]*bool     `json:"referees"`
	Jury     bool         `json:"jury,omitempty"`
}

type breakPayload struct {
	BreakType       string     `json:"break_type,omitempty"`
	Countdown       string     `json:"countdown,omitempty"`
	TimeRemainingMs int64      `json:"time_remaining_ms"`
	Target          *time.Time `json:"target,omitempty"`
	Indefinite      bool       `json:"indefinite,omitempty"`
}

type groupPayload struct {
	Group string `json:"group,omitempty"`
	State string `json:"state,omitempty"`
}

type snapshotPayload struct {
	State         string         `json:"state"`
	Group         string         `json:"group,omitempty"`
	Current       *AthleteView   `json:"current,omitempty"`
	Next          *AthleteView   `json:"next,omitempty"`
	LiftingOrder  []*AthleteView `json:"lifting_order"`
	TimeAllowedMs int64          `json:"time_allowed_ms"`
	BreakType     string         `json:"break_type,omitempty"`
	Referees      [3]*bool       `json:"referees"`
}

func millis(d time.Duration) int64 { return d.Milliseconds() }

func groupName(g *models.Group) string {
	if g == nil {
		return ""
	}
	return g.Name
}

// Encode renders a UI event for displays.
func Encode(platform string, e uievent.UIEvent, useRegistration bool) ([]byte, error) {
	msg := Message{Type: uievent.Name(e), Platform: platform, Origin: string(e.Origin())}

	switch ev := e.(type) {
	case uievent.StartTime:
		msg.Payload = clockPayload{millis(ev.TimeRemaining)}
	case uievent.StopTime:
		msg.Payload = clockPayload{millis(ev.TimeRemaining)}
	case uievent.SetTime:
		msg.Payload = clockPayload{millis(ev.TimeRemaining)}
	case uievent.BreakPaused:
		msg.Payload = clockPayload{millis(ev.TimeRemaining)}
	case uievent.LiftingOrderUpdated:
		msg.Payload = orderPayload{
			Current:                athleteView(ev.Current, useRegistration),
			Next:                   athleteView(ev.Next, useRegistration),
			Previous:               athleteView(ev.Previous, useRegistration),
			Changing:               athleteView(ev.Changing, useRegistration),
			LiftingOrder:           athleteViews(ev.LiftingOrder, useRegistration),
			DisplayOrder:           athleteViews(ev.DisplayOrder, useRegistration),
			TimeAllowedMs:          millis(ev.TimeAllowed),
			CurrentDisplayAffected: ev.CurrentDisplayAffected,
			InBreak:                ev.InBreak,
		}
	case uievent.Decision:
		msg.Payload = decisionPayload{
			Athlete:  athleteView(ev.Athlete, useRegistration),
			Attempt:  ev.Attempt,
			Success:  ev.Success,
			Referees: ev.Referees,
			Jury:     ev.Jury,
		}
	case uievent.RefereeUpdate:
		msg.Payload = decisionPayload{Referees: ev.Referees}
	case uievent.DecisionReset:
		msg.Payload = decisionPayload{Athlete: athleteView(ev.Athlete, useRegistration)}
	case uievent.BreakStarted:
		msg.Payload = breakPayload{
			BreakType:       ev.Type.String(),
			Countdown:       ev.Countdown.String(),
			TimeRemainingMs: millis(ev.TimeRemaining),
			Target:          ev.Target,
			Indefinite:      ev.Indefinite,
		}
	case uievent.BreakSetTime:
		msg.Payload = breakPayload{TimeRemainingMs: millis(ev.TimeRemaining), Target: ev.Target}
	case uievent.StartLifting:
		msg.Payload = groupPayload{Group: groupName(ev.Group)}
	case uievent.SwitchGroup:
		msg.Payload = groupPayload{Group: groupName(ev.Group), State: ev.State}
	case uievent.GroupDone:
		msg.Payload = groupPayload{Group: groupName(ev.Group)}
	case uievent.BarbellOrPlatesChanged:
		msg.Payload = athleteView(ev.Athlete, useRegistration)
	case uievent.Notification:
		msg.Payload = map[string]string{"message": ev.Message}
	}

	return jsonMessage(msg)
}

func jsonMessage(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Type, err)
	}
	return data, nil
}

// EncodeSnapshot renders the platform state sent to a display when it connects.
func EncodeSnapshot(s *fieldofplay.Snapshot, useRegistration bool) ([]byte, error) {
	p := snapshotPayload{
		State:         s.State.String(),
		Group:         groupName(s.Group),
		Current:       athleteView(s.Current, useRegistration),
		Next:          athleteView(s.Next, useRegistration),
		LiftingOrder:  athleteViews(s.LiftingOrder, useRegistration),
		TimeAllowedMs: millis(s.TimeAllowed),
		Referees:      s.Referees,
	}
	if s.State == fieldofplay.Break {
		p.BreakType = s.BreakType.String()
	}
	return jsonMessage(Message{Type: "snapshot", Platform: s.Platform, Payload: p})
}
