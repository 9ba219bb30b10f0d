package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/fop-engine/internal/models"
)

// AthleteRepository defines the interface for athlete data access. Returned
// athletes are fully populated, category and group included.
type AthleteRepository interface {
	FindAll(ctx context.Context) ([]*models.Athlete, error)
	// FindAllByGroupAndWeighIn returns the athletes of a group; a nil group
	// matches every athlete.
	FindAllByGroupAndWeighIn(ctx context.Context, group *models.Group, weighedInOnly bool) ([]*models.Athlete, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Athlete, error)
	Save(ctx context.Context, athlete *models.Athlete) error
}

// GroupRepository defines the interface for group data access
type GroupRepository interface {
	FindAll(ctx context.Context) ([]*models.Group, error)
	FindByName(ctx context.Context, name string) (*models.Group, error)
	Save(ctx context.Context, group *models.Group) error
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	FindAll(ctx context.Context) ([]*models.Category, error)
	FindByCode(ctx context.Context, code string) (*models.Category, error)
	Save(ctx context.Context, category *models.Category) error
}
