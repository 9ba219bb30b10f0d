package fopevent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/fop-engine/internal/eventbus"
)

func TestNameCoversEveryEvent(t *testing.T) {
	events := []FOPEvent{
		StartLifting{}, TimeStarted{}, TimeStopped{}, ForceTime{}, WeightChange{},
		TimeOver{}, ClientTimerStopped{}, DownSignal{}, ExplicitDecision{},
		DecisionUpdate{}, DecisionFullUpdate{}, DecisionReset{}, JuryDecision{},
		BreakStarted{}, BreakPaused{}, BreakSetTime{}, BreakDone{}, SwitchGroup{},
		BarbellOrPlatesChanged{},
	}
	seen := map[string]bool{}
	for _, e := range events {
		name := Name(e)
		assert.NotEqual(t, "Unknown", name, "%T", e)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestEventsCarryOrigin(t *testing.T) {
	o := eventbus.NewOrigin("announcer")
	var e FOPEvent = TimeStarted{Envelope: eventbus.From(o)}
	assert.Equal(t, o, e.Origin())
}
