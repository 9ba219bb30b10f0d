package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fop-engine/internal/database"
	"github.com/yourusername/fop-engine/internal/models"
)

// PostgresGroupRepository implements GroupRepository for PostgreSQL
type PostgresGroupRepository struct {
	db *database.DB
}

// NewPostgresGroupRepository creates a new group repository
func NewPostgresGroupRepository(db *database.DB) GroupRepository {
	return &PostgresGroupRepository{db: db}
}

const groupColumns = `id, name, description, platform, competition_time`

func scanGroup(row pgx.Row) (*models.Group, error) {
	g := &models.Group{}
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Platform, &g.CompetitionTime); err != nil {
		return nil, err
	}
	return g, nil
}

// FindAll retrieves every group in session order
func (r *PostgresGroupRepository) FindAll(ctx context.Context) ([]*models.Group, error) {
	rows, err := r.db.Query(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY competition_time NULLS FIRST, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return groups, nil
}

// FindByName retrieves a group by name
func (r *PostgresGroupRepository) FindByName(ctx context.Context, name string) (*models.Group, error) {
	g, err := scanGroup(r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// Save inserts or updates a group by name
func (r *PostgresGroupRepository) Save(ctx context.Context, g *models.Group) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}

	query := `
		INSERT INTO groups (` + groupColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			platform = EXCLUDED.platform,
			competition_time = EXCLUDED.competition_time
		RETURNING id
	`
	if err := r.db.QueryRow(ctx, query, g.ID, g.Name, g.Description, g.Platform, g.CompetitionTime).Scan(&g.ID); err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	return nil
}
