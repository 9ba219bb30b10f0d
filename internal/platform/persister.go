package platform

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/repository"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// Persister saves athletes whose record changed on a field of play. Saves
// happen on its own goroutine; bus subscribers only queue the athlete, and a
// later change of the same athlete replaces a queued one.
type Persister struct {
	athletes repository.AthleteRepository
	log      *logrus.Entry
	saved    func(*models.Athlete)

	mu       sync.Mutex
	pending  map[uuid.UUID]*models.Athlete
	order    []uuid.UUID
	inflight int
	wake     chan struct{}
}

// NewPersister creates a persister. saved, if not nil, is called after each
// successful save.
func NewPersister(athletes repository.AthleteRepository, saved func(*models.Athlete), log *logrus.Entry) *Persister {
	return &Persister{
		athletes: athletes,
		log:      log,
		saved:    saved,
		pending:  make(map[uuid.UUID]*models.Athlete),
		wake:     make(chan struct{}, 1),
	}
}

// Attach subscribes to a platform's UI bus. The returned function detaches it.
func (p *Persister) Attach(bus *eventbus.Bus[uievent.UIEvent]) func() {
	return bus.SubscribeAll(func(e uievent.UIEvent) error {
		switch ev := e.(type) {
		case uievent.Decision:
			p.Enqueue(ev.Athlete)
		case uievent.LiftingOrderUpdated:
			if ev.Changing != nil {
				p.Enqueue(ev.Changing)
			}
		}
		return nil
	})
}

// Enqueue queues a copy of the athlete for saving.
func (p *Persister) Enqueue(a *models.Athlete) {
	if a == nil {
		return
	}
	p.mu.Lock()
	if _, ok := p.pending[a.ID]; !ok {
		p.order = append(p.order, a.ID)
	}
	p.pending[a.ID] = a.Clone()
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of athletes queued or being saved.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) + p.inflight
}

func (p *Persister) take() *models.Athlete {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return nil
	}
	id := p.order[0]
	p.order = p.order[1:]
	a := p.pending[id]
	delete(p.pending, id)
	p.inflight++
	return a
}

func (p *Persister) done() {
	p.mu.Lock()
	p.inflight--
	p.mu.Unlock()
}

// Run saves queued athletes until ctx is done, then flushes what is left.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.Flush(context.Background())
			return
		case <-p.wake:
			p.Flush(ctx)
		}
	}
}

// Flush saves every queued athlete.
func (p *Persister) Flush(ctx context.Context) {
	for a := p.take(); a != nil; a = p.take() {
		p.save(ctx, a)
		p.done()
	}
}

func (p *Persister) save(ctx context.Context, a *models.Athlete) {
	if err := p.athletes.Save(ctx, a); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"lot":     a.LotNumber,
			"athlete": a.FullName(),
		}).Error("Failed to save athlete")
		return
	}
	if p.saved != nil {
		p.saved(a)
	}
}
