// Package platform wires one field of play and one display hub per configured
// platform, saves the athletes they change and guards result edits.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/config"
	"github.com/yourusername/fop-engine/internal/display"
	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/fieldofplay"
	"github.com/yourusername/fop-engine/internal/fopevent"
	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/repository"
	"github.com/yourusername/fop-engine/internal/results"
	"github.com/yourusername/fop-engine/internal/uievent"
)

// Config holds the dependencies of an orchestrator.
type Config struct {
	Competition    *models.Competition
	Platforms      []config.PlatformConfig
	Repositories   *repository.Repositories
	Aggregator     *results.Aggregator
	Clock          clockwork.Clock
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// Platform is one field of play with its display hub.
type Platform struct {
	Config config.PlatformConfig
	FOP    *fieldofplay.FieldOfPlay
	Hub    *display.Hub
}

// Status represents the state of one platform.
type Status struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	State    string `json:"state"`
	Group    string `json:"group,omitempty"`
	Current  string `json:"current,omitempty"`
	Clients  int    `json:"clients"`
	Lifting  bool   `json:"lifting"`
	Attempts int    `json:"attempts"`
}

// Orchestrator runs every platform of the competition.
type Orchestrator struct {
	repos      *repository.Repositories
	aggregator *results.Aggregator
	seq        *models.LiftSequence
	platforms  []*Platform
	persister  *Persister
	origin     eventbus.Origin
	logger     *logrus.Logger
	audit      *logger.AuditLogger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	detaches []func()
}

// New creates the platforms. Nothing runs until Start.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Competition == nil {
		return nil, fmt.Errorf("competition is required")
	}
	if cfg.Repositories == nil || cfg.Repositories.Athletes == nil {
		return nil, fmt.Errorf("athlete repository is required")
	}
	if len(cfg.Platforms) == 0 {
		return nil, fmt.Errorf("at least one platform is required")
	}
	log := logger.OrDiscard(cfg.Logger)

	o := &Orchestrator{
		repos:      cfg.Repositories,
		aggregator: cfg.Aggregator,
		seq:        &models.LiftSequence{},
		origin:     eventbus.NewOrigin("orchestrator"),
		logger:     log,
		audit:      logger.NewAuditLogger(log),
	}
	o.persister = NewPersister(cfg.Repositories.Athletes, o.saved, log.WithField("component", "persister"))

	seen := make(map[string]bool, len(cfg.Platforms))
	for _, pc := range cfg.Platforms {
		if seen[pc.Slug()] {
			return nil, fmt.Errorf("duplicate platform %q", pc.Name)
		}
		seen[pc.Slug()] = true

		fop := fieldofplay.New(fieldofplay.Config{
			Name:              pc.Name,
			Competition:       cfg.Competition,
			Athletes:          cfg.Repositories.Athletes,
			Clock:             cfg.Clock,
			Sequence:          o.seq,
			Logger:            log,
			ServerSideTimeout: pc.ServerSideTimeout,
			InboxSize:         pc.InboxSize,
		})
		o.platforms = append(o.platforms, &Platform{
			Config: pc,
			FOP:    fop,
			Hub:    display.NewHub(fop, pc.Slug(), cfg.AllowedOrigins, log),
		})
	}

	if o.aggregator != nil {
		o.aggregator.AddListener(o.rankingsUpdated)
	}

	return o, nil
}

// Platforms returns the platforms in configuration order.
func (o *Orchestrator) Platforms() []*Platform {
	return o.platforms
}

// Platform returns the platform with the given name or slug.
func (o *Orchestrator) Platform(name string) (*Platform, bool) {
	for _, p := range o.platforms {
		if p.Config.Name == name || p.Hub.Slug() == name {
			return p, true
		}
	}
	return nil, false
}

// Hubs returns the display hubs to register on the display server.
func (o *Orchestrator) Hubs() []*display.Hub {
	hubs := make([]*display.Hub, len(o.platforms))
	for i, p := range o.platforms {
		hubs[i] = p.Hub
	}
	return hubs
}

// Persister returns the athlete persister.
func (o *Orchestrator) Persister() *Persister {
	return o.persister
}

// Start loads the initial groups and runs every platform until Stop or until
// ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return fmt.Errorf("orchestrator is already running")
	}

	if err := o.advanceSequence(ctx); err != nil {
		return err
	}

	for _, p := range o.platforms {
		o.detaches = append(o.detaches, o.persister.Attach(p.FOP.UIBus()))
		if p.Config.InitialGroup == "" {
			continue
		}
		if err := o.switchGroup(ctx, p, p.Config.InitialGroup); err != nil {
			o.detachLocked()
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.persister.Run(runCtx)
	}()
	for _, p := range o.platforms {
		o.wg.Add(1)
		go func(p *Platform) {
			defer o.wg.Done()
			if err := p.FOP.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.WithError(err).WithField("platform", p.Config.Name).Error("Field of play stopped")
			}
		}(p)
	}

	o.logger.WithField("platforms", len(o.platforms)).Info("Platforms started")
	return nil
}

// Stop stops every platform, saves pending athletes and closes the buses.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	cancel := o.cancel
	o.mu.Unlock()

	o.logger.Info("Stopping platforms")
	cancel()
	o.wg.Wait()

	o.mu.Lock()
	o.detachLocked()
	o.mu.Unlock()

	for _, p := range o.platforms {
		p.Hub.Close()
		p.FOP.Close()
	}
	o.logger.Info("Platforms stopped")
	return nil
}

// IsRunning reports whether the platforms are running.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) detachLocked() {
	for _, d := range o.detaches {
		d()
	}
	o.detaches = nil
}

// advanceSequence keeps new lift stamps after the persisted ones.
func (o *Orchestrator) advanceSequence(ctx context.Context) error {
	athletes, err := o.repos.Athletes.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load athletes: %w", err)
	}
	for _, a := range athletes {
		for _, at := range a.Attempts {
			o.seq.AdvanceTo(at.Sequence)
		}
	}
	return nil
}

func (o *Orchestrator) switchGroup(ctx context.Context, p *Platform, name string) error {
	if o.repos.Groups == nil {
		return fmt.Errorf("group repository is required to load group %q", name)
	}
	g, err := o.repos.Groups.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to find group %q for platform %s: %w", name, p.Config.Name, err)
	}
	// Run has not started: the event is applied synchronously.
	p.FOP.Post(fopevent.SwitchGroup{Envelope: eventbus.From(o.origin), Group: g})
	if snap := p.FOP.Snapshot(); !models.SameGroup(snap.Group, g) {
		return fmt.Errorf("failed to load group %q on platform %s", name, p.Config.Name)
	}
	return nil
}

// SwitchGroup loads a group on a running platform.
func (o *Orchestrator) SwitchGroup(ctx context.Context, platform, group string) error {
	p, ok := o.Platform(platform)
	if !ok {
		return fmt.Errorf("platform %q: %w", platform, models.ErrNotFound)
	}
	var g *models.Group
	if group != "" {
		if o.repos.Groups == nil {
			return fmt.Errorf("group repository is required to load group %q", group)
		}
		var err error
		if g, err = o.repos.Groups.FindByName(ctx, group); err != nil {
			return fmt.Errorf("failed to find group %q: %w", group, err)
		}
	}
	return p.FOP.Submit(ctx, fopevent.SwitchGroup{Envelope: eventbus.From(o.origin), Group: g})
}

// EditResult changes a recorded attempt outside the lifting flow, e.g. a
// correction by the competition secretary. It is refused while the
// athlete's group is loaded on a platform, even once the group is done,
// because that platform persists its own copy of the athlete. The
// platform is notified.
func (o *Orchestrator) EditResult(ctx context.Context, athleteID uuid.UUID, attempt, result int, changedBy string) error {
	a, err := o.repos.Athletes.FindByID(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("failed to find athlete %s: %w", athleteID, err)
	}

	if p := o.loadedPlatform(a.Group); p != nil {
		reason := fmt.Sprintf("group %s is loaded on platform %s", a.Group.Name, p.Config.Name)
		o.audit.LogRejectedEdit(a.LotNumber, a.FullName(), attempt, reason)
		p.FOP.Notify(o.origin, fmt.Sprintf("Result of %s cannot be edited while %s", a.FullName(), reason))
		return fmt.Errorf("%s attempt %d: %w", a.FullName(), attempt, models.ErrGroupLifting)
	}

	old, err := a.SetResult(attempt, result)
	if err != nil {
		o.audit.LogRejectedEdit(a.LotNumber, a.FullName(), attempt, err.Error())
		return err
	}
	if err := o.repos.Athletes.Save(ctx, a); err != nil {
		return fmt.Errorf("failed to save athlete %s: %w", a.FullName(), err)
	}
	o.audit.LogResultEdit(a.LotNumber, a.FullName(), attempt, old, result, changedBy)
	o.saved(a)
	return nil
}

// loadedPlatform returns the platform holding g, whatever its state.
func (o *Orchestrator) loadedPlatform(g *models.Group) *Platform {
	if g == nil {
		return nil
	}
	for _, p := range o.platforms {
		snap := p.FOP.Snapshot()
		if snap.Group != nil && models.SameGroup(snap.Group, g) {
			return p
		}
	}
	return nil
}

// saved invalidates the global rankings after an athlete reached storage.
func (o *Orchestrator) saved(*models.Athlete) {
	if o.aggregator != nil {
		o.aggregator.Invalidate()
	}
}

// rankingsUpdated tells the result displays of every platform to reload.
func (o *Orchestrator) rankingsUpdated(results.ResultSet) {
	for _, p := range o.platforms {
		p.FOP.UIBus().Post(uievent.GlobalRankingUpdated{Envelope: eventbus.From(o.origin)})
	}
}

// Statuses returns the status of every platform sorted by name.
func (o *Orchestrator) Statuses() []Status {
	out := make([]Status, 0, len(o.platforms))
	for _, p := range o.platforms {
		snap := p.FOP.Snapshot()
		st := Status{
			Name:    p.Config.Name,
			Slug:    p.Hub.Slug(),
			State:   snap.State.String(),
			Clients: p.Hub.Clients(),
			Lifting: snap.IsLifting(),
		}
		if snap.Group != nil {
			st.Group = snap.Group.Name
		}
		if snap.Current != nil {
			st.Current = snap.Current.FullName()
		}
		for _, a := range snap.LiftingOrder {
			st.Attempts += a.AttemptsDone()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PlatformStates maps platform names to their state, for readiness checks.
func (o *Orchestrator) PlatformStates() map[string]string {
	states := make(map[string]string, len(o.platforms))
	for _, p := range o.platforms {
		states[p.Config.Name] = p.FOP.State().String()
	}
	return states
}

// WaitIdle waits until no athlete is waiting to be saved.
func (o *Orchestrator) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for o.persister.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
