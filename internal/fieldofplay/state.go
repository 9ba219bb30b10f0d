package fieldofplay

import (
	"time"

	"github.com/yourusername/fop-engine/internal/models"
)

// State of a field of play.
type State int

const (
	Inactive State = iota
	CurrentAthleteDisplayed
	TimeRunning
	DecisionVisible
	Break
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "INACTIVE"
	case CurrentAthleteDisplayed:
		return "CURRENT_ATHLETE_DISPLAYED"
	case TimeRunning:
		return "TIME_RUNNING"
	case DecisionVisible:
		return "DECISION_VISIBLE"
	case Break:
		return "BREAK"
	default:
		return "UNKNOWN"
	}
}

// Time allowances for a called athlete.
const (
	DefaultTimeAllowed  = 60 * time.Second
	ExtendedTimeAllowed = 120 * time.Second
)

// ComputeTimeAllowed applies the two-minute rule: the extended allowance when
// the athlete called is not the one who lifted last, the default otherwise
// and when nobody has lifted yet. Athletes are compared by lot number.
func ComputeTimeAllowed(previous, current *models.Athlete) time.Duration {
	if previous == nil || current == nil {
		return DefaultTimeAllowed
	}
	if models.SameAthlete(previous, current) {
		return DefaultTimeAllowed
	}
	return ExtendedTimeAllowed
}

// Snapshot is a consistent copy of a field of play taken after an event was
// applied. Athletes are clones.
type Snapshot struct {
	Platform     string               `json:"platform"`
	State        State                `json:"state"`
	Group        *models.Group        `json:"group,omitempty"`
	Current      *models.Athlete      `json:"current,omitempty"`
	Next         *models.Athlete      `json:"next,omitempty"`
	Previous     *models.Athlete      `json:"previous,omitempty"`
	LiftingOrder []*models.Athlete    `json:"lifting_order"`
	DisplayOrder []*models.Athlete    `json:"display_order"`
	TimeAllowed  time.Duration        `json:"time_allowed"`
	BreakType    models.BreakType     `json:"break_type,omitempty"`
	Countdown    models.CountdownType `json:"countdown,omitempty"`
	GroupDone    bool                 `json:"group_done"`
	Referees     [3]*bool             `json:"referees"`
}

// IsLifting reports whether a group is actively competing on the platform.
func (s *Snapshot) IsLifting() bool {
	return s.Group != nil && s.State != Inactive && !s.GroupDone
}

// HasAthlete reports whether the athlete belongs to the loaded group.
func (s *Snapshot) HasAthlete(a *models.Athlete) bool {
	for _, x := range s.LiftingOrder {
		if x.ID == a.ID {
			return true
		}
	}
	return false
}
