package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/fopevent"
	"github.com/yourusername/fop-engine/internal/models"
)

// ErrUnknownCommand is returned for command types displays may not send.
var ErrUnknownCommand = errors.New("unknown display command")

// Command is what displays send. Referee is 1 to 3 as printed on the
// referee boxes.
type Command struct {
	Type        string    `json:"type"`
	Referee     int       `json:"referee,omitempty"`
	Good        *bool     `json:"good,omitempty"`
	Referees    [3]*bool  `json:"referees,omitempty"`
	RemainingMs int64     `json:"remaining_ms,omitempty"`
	Athlete     uuid.UUID `json:"athlete,omitempty"`
	Attempt     int       `json:"attempt,omitempty"`
	Change      string    `json:"change,omitempty"`
	Weight      int       `json:"weight,omitempty"`
}

// ParseCommand decodes a display command into a field-of-play event tagged
// with the display's origin.
func ParseCommand(data []byte, origin eventbus.Origin) (fopevent.FOPEvent, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("failed to decode command: %w", err)
	}
	env := eventbus.From(origin)

	switch cmd.Type {
	case "clientTimeOver":
		return fopevent.TimeOver{Envelope: env}, nil
	case "clientTimerStopped":
		if cmd.RemainingMs < 0 {
			return nil, fmt.Errorf("negative remaining time %d", cmd.RemainingMs)
		}
		return fopevent.ClientTimerStopped{Envelope: env, Remaining: time.Duration(cmd.RemainingMs) * time.Millisecond}, nil
	case "timeStarted":
		return fopevent.TimeStarted{Envelope: env}, nil
	case "timeStopped":
		return fopevent.TimeStopped{Envelope: env}, nil
	case "downSignal":
		return fopevent.DownSignal{Envelope: env}, nil
	case "decisionUpdate":
		if cmd.Referee < 1 || cmd.Referee > 3 {
			return nil, fmt.Errorf("referee must be 1, 2 or 3, got %d", cmd.Referee)
		}
		if cmd.Good == nil {
			return nil, fmt.Errorf("decisionUpdate without a decision")
		}
		return fopevent.DecisionUpdate{Envelope: env, Referee: cmd.Referee - 1, Good: *cmd.Good}, nil
	case "decisionFullUpdate":
		return fopevent.DecisionFullUpdate{Envelope: env, Referees: cmd.Referees}, nil
	case "decisionReset":
		return fopevent.DecisionReset{Envelope: env}, nil
	case "barbellOrPlatesChanged":
		return fopevent.BarbellOrPlatesChanged{Envelope: env}, nil
	case "weightChange":
		kind, err := parseChangeKind(cmd.Change)
		if err != nil {
			return nil, err
		}
		if cmd.Athlete == uuid.Nil {
			return nil, fmt.Errorf("weightChange without athlete")
		}
		return fopevent.WeightChange{Envelope: env, Athlete: cmd.Athlete, Attempt: cmd.Attempt, Change: kind, Weight: cmd.Weight}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Type)
	}
}

func parseChangeKind(s string) (models.ChangeKind, error) {
	for _, k := range []models.ChangeKind{models.Declaration, models.Change1, models.Change2} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown weight change kind %q", s)
}
