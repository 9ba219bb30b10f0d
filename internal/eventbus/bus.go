// Package eventbus implements the typed publish/subscribe channel used by a
// field of play. Each platform owns one bus per event family; buses are never
// shared between platforms.
//
// Every event carries the Origin of whoever caused it. A subscriber registered
// with an owner origin does not receive events carrying that same origin, so a
// display does not re-apply the echo of its own command while every other
// subscriber still sees it.
package eventbus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Origin identifies the component that caused an event.
type Origin string

// NewOrigin returns a unique origin for a component of the given kind.
func NewOrigin(kind string) Origin {
	return Origin(kind + "-" + uuid.NewString())
}

// Envelope holds the origin of an event. Event structs embed it.
type Envelope struct {
	Source Origin `json:"origin,omitempty"`
}

// Origin returns the event origin.
func (e Envelope) Origin() Origin {
	return e.Source
}

// From builds an envelope for the given origin.
func From(o Origin) Envelope {
	return Envelope{Source: o}
}

// Event is anything that can travel on a bus.
type Event interface {
	Origin() Origin
}

// Handler processes one event. Returned errors are logged by the bus.
type Handler[E Event] func(E) error

type subscription[E Event] struct {
	id      uint64
	owner   Origin
	handler Handler[E]
}

// Bus fans events out to subscribers, one event at a time, in arrival order.
// A handler must not post to the bus it is subscribed to.
type Bus[E Event] struct {
	name string
	log  *logrus.Entry

	// dispatch serializes fan-out so the subscribers of one event are all
	// called before the next event is delivered.
	dispatch sync.Mutex

	mu     sync.RWMutex
	subs   []subscription[E]
	nextID uint64
	closed bool
}

// New creates a bus. A nil logger discards bus diagnostics.
func New[E Event](name string, log *logrus.Logger) *Bus[E] {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Bus[E]{
		name: name,
		log:  log.WithFields(logrus.Fields{"component": "eventbus", "bus": name}),
	}
}

// Name returns the bus name.
func (b *Bus[E]) Name() string {
	return b.name
}

// Subscribe registers h for every event not originated by owner. An empty
// owner receives everything. The returned function unsubscribes.
func (b *Bus[E]) Subscribe(owner Origin, h Handler[E]) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[E]{id: id, owner: owner, handler: h})
	return func() { b.unsubscribe(id) }
}

// SubscribeAll registers h for every event, its own echoes included.
func (b *Bus[E]) SubscribeAll(h Handler[E]) func() {
	return b.Subscribe("", h)
}

func (b *Bus[E]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Post delivers e to every interested subscriber and returns once all of them
// have run. Subscriber errors and panics are logged and never reach the
// poster or the other subscribers.
func (b *Bus[E]) Post(e E) {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]subscription[E], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	origin := e.Origin()
	for _, s := range subs {
		if s.owner != "" && s.owner == origin {
			continue
		}
		if err := b.deliver(s, e); err != nil {
			b.log.WithFields(logrus.Fields{
				"event":      fmt.Sprintf("%T", e),
				"subscriber": s.owner,
			}).WithError(err).Warn("Subscriber failed to handle event")
		}
	}
}

func (b *Bus[E]) deliver(s subscription[E], e E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return s.handler(e)
}

// Close drops all subscribers; later posts are ignored.
func (b *Bus[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}
