package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/config"
	"github.com/yourusername/fop-engine/internal/database"
)

// Store is an opened athlete store. DB is set for the postgres driver and
// Memory for the memory driver.
type Store struct {
	*Repositories
	DB     *database.DB
	Memory *MemoryStore
}

// Open opens the store selected by the database driver.
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Store, error) {
	if cfg.UsesPostgres() {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repos, err := NewRepositories(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &Store{Repositories: repos, DB: db}, nil
	}

	comp, err := cfg.CompetitionModel()
	if err != nil {
		return nil, err
	}
	opts := MemoryOptions{
		LotSeed:  cfg.Competition.LotSeed,
		Settings: comp.RankingSettings(),
		Logger:   log,
	}
	mem := NewMemoryStore()
	if cfg.Database.FixturesPath != "" {
		if mem, err = LoadMemoryStore(cfg.Database.FixturesPath, opts); err != nil {
			return nil, err
		}
	}
	repos, err := NewMemoryRepositories(mem)
	if err != nil {
		return nil, err
	}
	return &Store{Repositories: repos, Memory: mem}, nil
}

// Close releases the database pool, if any.
func (s *Store) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

// Import copies every category, group and athlete of src into dst, in
// that order so references resolve.
func Import(ctx context.Context, src, dst *Repositories) (int, error) {
	categories, err := src.Categories.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range categories {
		if err := dst.Categories.Save(ctx, c); err != nil {
			return 0, fmt.Errorf("failed to import category %s: %w", c.Code, err)
		}
	}

	groups, err := src.Groups.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, g := range groups {
		if err := dst.Groups.Save(ctx, g); err != nil {
			return 0, fmt.Errorf("failed to import group %s: %w", g.Name, err)
		}
	}

	athletes, err := src.Athletes.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, a := range athletes {
		if err := dst.Athletes.Save(ctx, a); err != nil {
			return 0, fmt.Errorf("failed to import athlete %s: %w", a.FullName(), err)
		}
	}
	return len(athletes), nil
}
