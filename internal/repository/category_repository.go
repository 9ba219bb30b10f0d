package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fop-engine/internal/database"
	"github.com/yourusername/fop-engine/internal/models"
)

// PostgresCategoryRepository implements CategoryRepository for PostgreSQL
type PostgresCategoryRepository struct {
	db *database.DB
}

// NewPostgresCategoryRepository creates a new category repository
func NewPostgresCategoryRepository(db *database.DB) CategoryRepository {
	return &PostgresCategoryRepository{db: db}
}

const categoryColumns = `id, code, name, gender, age_division, minimum_weight, maximum_weight, world_record, active`

func scanCategory(row pgx.Row) (*models.Category, error) {
	c := &models.Category{}
	var gender, division string
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &gender, &division,
		&c.MinimumWeight, &c.MaximumWeight, &c.WorldRecord, &c.Active); err != nil {
		return nil, err
	}
	c.Gender = models.Gender(gender)
	div, err := models.ParseAgeDivision(division)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", c.Code, err)
	}
	c.AgeDivision = div
	return c, nil
}

// FindAll retrieves every category
func (r *PostgresCategoryRepository) FindAll(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slices.SortFunc(categories, models.CompareCategories)
	return categories, nil
}

// FindByCode retrieves a category by code
func (r *PostgresCategoryRepository) FindByCode(ctx context.Context, code string) (*models.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// Save inserts or updates a category by code
func (r *PostgresCategoryRepository) Save(ctx context.Context, c *models.Category) error {
	if !c.Gender.Valid() {
		return fmt.Errorf("failed to save category %s: %w", c.Code, models.ErrInvalidGender)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			age_division = EXCLUDED.age_division,
			minimum_weight = EXCLUDED.minimum_weight,
			maximum_weight = EXCLUDED.maximum_weight,
			world_record = EXCLUDED.world_record,
			active = EXCLUDED.active
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		c.ID, c.Code, c.Name, string(c.Gender), c.AgeDivision.String(),
		c.MinimumWeight, c.MaximumWeight, c.WorldRecord, c.Active,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}
