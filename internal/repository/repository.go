// Package repository is the persistence boundary of the engine. Athletes are
// mutated in memory by the field of play and saved here by an external caller.
package repository

import (
	"fmt"

	"github.com/yourusername/fop-engine/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Athletes   AthleteRepository
	Groups     GroupRepository
	Categories CategoryRepository
}

// NewRepositories creates the PostgreSQL repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Athletes:   NewPostgresAthleteRepository(db),
		Groups:     NewPostgresGroupRepository(db),
		Categories: NewPostgresCategoryRepository(db),
	}, nil
}

// NewMemoryRepositories exposes a memory store through the repository interfaces.
func NewMemoryRepositories(store *MemoryStore) (*Repositories, error) {
	if store == nil {
		return nil, fmt.Errorf("memory store is required")
	}

	return &Repositories{
		Athletes:   store.Athletes(),
		Groups:     store.Groups(),
		Categories: store.Categories(),
	}, nil
}
