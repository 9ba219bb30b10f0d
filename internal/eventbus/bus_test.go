package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Envelope
	N int
}

func TestOriginsAreUnique(t *testing.T) {
	a, b := NewOrigin("display"), NewOrigin("display")
	assert.NotEqual(t, a, b)
	assert.Contains(t, string(a), "display-")
}

func TestEchoSuppression(t *testing.T) {
	bus := New[testEvent]("ui", nil)
	self := NewOrigin("scoreboard")

	var own, others []int
	bus.Subscribe(self, func(e testEvent) error {
		own = append(own, e.N)
		return nil
	})
	bus.SubscribeAll(func(e testEvent) error {
		others = append(others, e.N)
		return nil
	})

	bus.Post(testEvent{Envelope: From(self), N: 1})
	bus.Post(testEvent{Envelope: From(NewOrigin("announcer")), N: 2})
	bus.Post(testEvent{N: 3})

	assert.Equal(t, []int{2, 3}, own, "own echo is skipped")
	assert.Equal(t, []int{1, 2, 3}, others, "other subscribers still get it")
}

func TestFailingSubscribersAreIsolated(t *testing.T) {
	bus := New[testEvent]("fop", nil)

	var reached int
	bus.SubscribeAll(func(testEvent) error { return errors.New("boom") })
	bus.SubscribeAll(func(testEvent) error { panic("bad display") })
	bus.SubscribeAll(func(testEvent) error {
		reached++
		return nil
	})

	assert.NotPanics(t, func() { bus.Post(testEvent{N: 1}) })
	assert.Equal(t, 1, reached)
}

func TestUnsubscribe(t *testing.T) {
	bus := New[testEvent]("ui", nil)
	var calls int
	unsubscribe := bus.SubscribeAll(func(testEvent) error {
		calls++
		return nil
	})
	require.Equal(t, 1, bus.Len())

	bus.Post(testEvent{})
	unsubscribe()
	bus.Post(testEvent{})

	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.Len())
}

func TestClose(t *testing.T) {
	bus := New[testEvent]("ui", nil)
	var calls int
	bus.SubscribeAll(func(testEvent) error {
		calls++
		return nil
	})
	bus.Close()
	bus.Post(testEvent{})
	bus.SubscribeAll(func(testEvent) error {
		calls++
		return nil
	})
	bus.Post(testEvent{})

	assert.Zero(t, calls)
}

func TestFanOutIsSerialized(t *testing.T) {
	bus := New[testEvent]("fop", nil)

	var inFlight, overlaps atomic.Int32
	var total atomic.Int32
	handler := func(testEvent) error {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		total.Add(1)
		inFlight.Add(-1)
		return nil
	}
	bus.SubscribeAll(handler)
	bus.SubscribeAll(handler)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Post(testEvent{N: n})
		}(i)
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
	assert.Equal(t, int32(100), total.Load())
}
