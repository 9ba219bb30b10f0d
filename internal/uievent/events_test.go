package uievent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameCoversEveryEvent(t *testing.T) {
	events := []UIEvent{
		StartLifting{}, StartTime{}, StopTime{}, SetTime{}, LiftingOrderUpdated{},
		DownSignal{}, Decision{}, RefereeUpdate{}, DecisionReset{}, BreakStarted{},
		BreakPaused{}, BreakSetTime{}, BreakDone{}, SwitchGroup{}, GroupDone{},
		BarbellOrPlatesChanged{}, GlobalRankingUpdated{}, Notification{},
	}
	seen := map[string]bool{}
	for _, e := range events {
		name := Name(e)
		assert.NotEqual(t, "unknown", name, "%T", e)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestBool(t *testing.T) {
	a, b := Bool(true), Bool(true)
	assert.True(t, *a)
	assert.NotSame(t, a, b)
}
