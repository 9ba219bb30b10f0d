package repository

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/sorter"
)

// MemoryOptions controls how fixtures are prepared when loaded.
type MemoryOptions struct {
	// LotSeed draws lots for athletes without one; zero leaves lots alone.
	LotSeed  uint64
	Settings models.RankingSettings
	Logger   *logrus.Logger
}

// MemoryStore keeps categories, groups and athletes in memory. Callers always
// receive copies, so the field of play never shares athletes with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string]*models.Category
	groups     map[string]*models.Group
	athletes   map[uuid.UUID]*models.Athlete
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[string]*models.Category),
		groups:     make(map[string]*models.Group),
		athletes:   make(map[uuid.UUID]*models.Athlete),
	}
}

// LoadMemoryStore reads a fixtures file into a new store.
func LoadMemoryStore(path string, opts MemoryOptions) (*MemoryStore, error) {
	fx, err := ReadFixtures(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryStoreFromFixtures(fx, opts)
}

// NewMemoryStoreFromFixtures builds a store and, when a seed is given, draws
// the missing lot and start numbers before anything can read the athletes.
func NewMemoryStoreFromFixtures(fx *Fixtures, opts MemoryOptions) (*MemoryStore, error) {
	s := NewMemoryStore()

	for _, cf := range fx.Categories {
		c, err := cf.model()
		if err != nil {
			return nil, err
		}
		if _, dup := s.categories[c.Code]; dup {
			return nil, fmt.Errorf("duplicate category %s", c.Code)
		}
		s.categories[c.Code] = c
	}
	for _, gf := range fx.Groups {
		g, err := gf.model()
		if err != nil {
			return nil, err
		}
		if _, dup := s.groups[g.Name]; dup {
			return nil, fmt.Errorf("duplicate group %s", g.Name)
		}
		s.groups[g.Name] = g
	}

	athletes := make([]*models.Athlete, 0, len(fx.Athletes))
	for _, af := range fx.Athletes {
		a, err := af.model(s.categories, s.groups)
		if err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}

	if opts.LotSeed != 0 && slices.ContainsFunc(athletes, func(a *models.Athlete) bool { return a.LotNumber == 0 }) {
		sorter.AssignLotNumbers(athletes, rand.New(rand.NewPCG(opts.LotSeed, opts.LotSeed)))
		sorter.AssignStartNumbers(athletes, opts.Settings)
		logger.NewAuditLogger(logger.OrDiscard(opts.Logger)).LogLotDraw(len(athletes), opts.LotSeed)
	}

	for _, a := range athletes {
		s.athletes[a.ID] = a
	}
	return s, nil
}

// Fixtures exports the current content, athletes in lot order.
func (s *MemoryStore) Fixtures() *Fixtures {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fx := &Fixtures{}
	for _, c := range sortedValues(s.categories, models.CompareCategories) {
		fx.Categories = append(fx.Categories, categoryFixture(c))
	}
	for _, g := range sortedValues(s.groups, func(a, b *models.Group) int { return cmp.Compare(a.Name, b.Name) }) {
		fx.Groups = append(fx.Groups, groupFixture(g))
	}
	for _, a := range s.sortedAthletes(nil, false) {
		fx.Athletes = append(fx.Athletes, athleteFixture(a))
	}
	return fx
}

// Dump writes the current content as a fixtures document.
func (s *MemoryStore) Dump(w io.Writer) error {
	return WriteFixtures(w, s.Fixtures())
}

// Athletes returns the athlete repository view of the store.
func (s *MemoryStore) Athletes() AthleteRepository { return memoryAthletes{s} }

// Groups returns the group repository view of the store.
func (s *MemoryStore) Groups() GroupRepository { return memoryGroups{s} }

// Categories returns the category repository view of the store.
func (s *MemoryStore) Categories() CategoryRepository { return memoryCategories{s} }

// sortedAthletes returns clones in lot order; caller holds the read lock.
func (s *MemoryStore) sortedAthletes(group *models.Group, weighedInOnly bool) []*models.Athlete {
	out := make([]*models.Athlete, 0, len(s.athletes))
	for _, a := range s.athletes {
		if group != nil && !models.SameGroup(a.Group, group) {
			continue
		}
		if weighedInOnly && !a.IsWeighedIn() {
			continue
		}
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Athlete) int {
		if c := cmp.Compare(a.LotNumber, b.LotNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.LastName, b.LastName)
	})
	return out
}

func sortedValues[K comparable, V any](m map[K]*V, less func(a, b *V) int) []*V {
	out := make([]*V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, less)
	return out
}

type memoryAthletes struct{ s *MemoryStore }

func (r memoryAthletes) FindAll(ctx context.Context) ([]*models.Athlete, error) {
	return r.FindAllByGroupAndWeighIn(ctx, nil, false)
}

func (r memoryAthletes) FindAllByGroupAndWeighIn(ctx context.Context, group *models.Group, weighedInOnly bool) ([]*models.Athlete, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sortedAthletes(group, weighedInOnly), nil
}

func (r memoryAthletes) FindByID(ctx context.Context, id uuid.UUID) (*models.Athlete, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.athletes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return a.Clone(), nil
}

// Save stores a copy of the athlete, assigning an id to new athletes. Category
// and group references must already be known to the store.
func (r memoryAthletes) Save(ctx context.Context, a *models.Athlete) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !a.Gender.Valid() {
		return fmt.Errorf("failed to save athlete %s: %w", a.FullName(), models.ErrInvalidGender)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range []*models.Category{a.Category, a.RegistrationCategory} {
		if c != nil && r.s.categories[c.Code] == nil {
			return fmt.Errorf("failed to save athlete %s: unknown category %q: %w", a.FullName(), c.Code, models.ErrNotFound)
		}
	}
	if a.Group != nil && r.s.groups[a.Group.Name] == nil {
		return fmt.Errorf("failed to save athlete %s: unknown group %q: %w", a.FullName(), a.Group.Name, models.ErrNotFound)
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.s.athletes[a.ID] = a.Clone()
	return nil
}

type memoryGroups struct{ s *MemoryStore }

func (r memoryGroups) FindAll(ctx context.Context) ([]*models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	groups := sortedValues(r.s.groups, func(a, b *models.Group) int {
		if c := models.CompareSessionTime(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	for i, g := range groups {
		c := *g
		groups[i] = &c
	}
	return groups, nil
}

func (r memoryGroups) FindByName(ctx context.Context, name string) (*models.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.groups[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (r memoryGroups) Save(ctx context.Context, g *models.Group) error {
	if g.Name == "" {
		return fmt.Errorf("failed to save group: name is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	c := *g
	r.s.groups[g.Name] = &c
	return nil
}

type memoryCategories struct{ s *MemoryStore }

func (r memoryCategories) FindAll(ctx context.Context) ([]*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cats := sortedValues(r.s.categories, models.CompareCategories)
	for i, c := range cats {
		cp := *c
		cats[i] = &cp
	}
	return cats, nil
}

func (r memoryCategories) FindByCode(ctx context.Context, code string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memoryCategories) Save(ctx context.Context, c *models.Category) error {
	if c.Code == "" {
		return fmt.Errorf("failed to save category: code is required")
	}
	if !c.Gender.Valid() {
		return fmt.Errorf("failed to save category %s: %w", c.Code, models.ErrInvalidGender)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.s.categories[c.Code] = &cp
	return nil
}
