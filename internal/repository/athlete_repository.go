package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fop-engine/internal/database"
	"github.com/yourusername/fop-engine/internal/models"
)

// PostgresAthleteRepository implements AthleteRepository for PostgreSQL.
// Attempts are stored as a JSONB array; categories and groups are resolved by
// code and name.
type PostgresAthleteRepository struct {
	db         *database.DB
	categories CategoryRepository
	groups     GroupRepository
}

// NewPostgresAthleteRepository creates a new athlete repository
func NewPostgresAthleteRepository(db *database.DB) AthleteRepository {
	return &PostgresAthleteRepository{
		db:         db,
		categories: NewPostgresCategoryRepository(db),
		groups:     NewPostgresGroupRepository(db),
	}
}

const athleteColumns = `
	id, lot_number, start_number, first_name, last_name, gender, body_weight,
	year_of_birth, team, exclude_from_team, entry_total, custom_score,
	category_code, registration_category_code, group_name, attempts`

// references holds the categories and groups athlete rows point to.
type references struct {
	categories map[string]*models.Category
	groups     map[string]*models.Group
}

func (r *PostgresAthleteRepository) loadReferences(ctx context.Context) (*references, error) {
	cats, err := r.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := r.groups.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	refs := &references{
		categories: make(map[string]*models.Category, len(cats)),
		groups:     make(map[string]*models.Group, len(groups)),
	}
	for _, c := range cats {
		refs.categories[c.Code] = c
	}
	for _, g := range groups {
		refs.groups[g.Name] = g
	}
	return refs, nil
}

func (refs *references) scanAthlete(row pgx.Row) (*models.Athlete, error) {
	a := &models.Athlete{}
	var gender string
	var categoryCode, registrationCode, groupName *string
	var attempts []byte

	err := row.Scan(
		&a.ID, &a.LotNumber, &a.StartNumber, &a.FirstName, &a.LastName, &gender, &a.BodyWeight,
		&a.YearOfBirth, &a.Team, &a.ExcludeFromTeam, &a.EntryTotal, &a.CustomScore,
		&categoryCode, &registrationCode, &groupName, &attempts,
	)
	if err != nil {
		return nil, err
	}

	a.Gender = models.Gender(gender)
	if err := unmarshalAttempts(attempts, a); err != nil {
		return nil, err
	}
	if categoryCode != nil {
		a.Category = refs.categories[*categoryCode]
	}
	if registrationCode != nil {
		a.RegistrationCategory = refs.categories[*registrationCode]
	}
	if groupName != nil {
		a.Group = refs.groups[*groupName]
	}
	return a, nil
}

func (r *PostgresAthleteRepository) query(ctx context.Context, query string, args ...any) ([]*models.Athlete, error) {
	refs, err := r.loadReferences(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query athletes: %w", err)
	}
	defer rows.Close()

	var athletes []*models.Athlete
	for rows.Next() {
		a, err := refs.scanAthlete(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan athlete: %w", err)
		}
		athletes = append(athletes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating athletes: %w", err)
	}
	return athletes, nil
}

// FindAll retrieves every athlete in lot order
func (r *PostgresAthleteRepository) FindAll(ctx context.Context) ([]*models.Athlete, error) {
	return r.query(ctx, `SELECT `+athleteColumns+` FROM athletes ORDER BY lot_number, last_name`)
}

// FindAllByGroupAndWeighIn retrieves the athletes of a group in lot order
func (r *PostgresAthleteRepository) FindAllByGroupAndWeighIn(ctx context.Context, group *models.Group, weighedInOnly bool) ([]*models.Athlete, error) {
	var groupName *string
	if group != nil {
		groupName = &group.Name
	}
	query := `
		SELECT ` + athleteColumns + `
		FROM athletes
		WHERE ($1::text IS NULL OR group_name = $1)
		  AND (NOT $2 OR body_weight > 0)
		ORDER BY lot_number, last_name
	`
	return r.query(ctx, query, groupName, weighedInOnly)
}

// FindByID retrieves an athlete by ID
func (r *PostgresAthleteRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Athlete, error) {
	refs, err := r.loadReferences(ctx)
	if err != nil {
		return nil, err
	}
	a, err := refs.scanAthlete(r.db.QueryRow(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}
	return a, nil
}

// Save inserts or updates an athlete
func (r *PostgresAthleteRepository) Save(ctx context.Context, a *models.Athlete) error {
	if !a.Gender.Valid() {
		return fmt.Errorf("failed to save athlete %s: %w", a.FullName(), models.ErrInvalidGender)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	attempts, err := json.Marshal(a.Attempts)
	if err != nil {
		return fmt.Errorf("failed to encode attempts: %w", err)
	}

	query := `
		INSERT INTO athletes (` + athleteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			lot_number = EXCLUDED.lot_number,
			start_number = EXCLUDED.start_number,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			gender = EXCLUDED.gender,
			body_weight = EXCLUDED.body_weight,
			year_of_birth = EXCLUDED.year_of_birth,
			team = EXCLUDED.team,
			exclude_from_team = EXCLUDED.exclude_from_team,
			entry_total = EXCLUDED.entry_total,
			custom_score = EXCLUDED.custom_score,
			category_code = EXCLUDED.category_code,
			registration_category_code = EXCLUDED.registration_category_code,
			group_name = EXCLUDED.group_name,
			attempts = EXCLUDED.attempts,
			updated_at = now()
	`
	_, err = r.db.Exec(ctx, query,
		a.ID, a.LotNumber, a.StartNumber, a.FirstName, a.LastName, string(a.Gender), a.BodyWeight,
		a.YearOfBirth, a.Team, a.ExcludeFromTeam, a.EntryTotal, a.CustomScore,
		categoryCode(a.Category), categoryCode(a.RegistrationCategory), groupName(a.Group), string(attempts),
	)
	if err != nil {
		return fmt.Errorf("failed to save athlete: %w", err)
	}
	return nil
}

func unmarshalAttempts(data []byte, a *models.Athlete) error {
	if len(data) == 0 {
		return nil
	}
	var attempts []models.Attempt
	if err := json.Unmarshal(data, &attempts); err != nil {
		return fmt.Errorf("failed to decode attempts of %s: %w", a.FullName(), err)
	}
	if len(attempts) > models.TotalAttempts {
		return fmt.Errorf("athlete %s has %d attempts stored", a.FullName(), len(attempts))
	}
	copy(a.Attempts[:], attempts)
	return nil
}

func categoryCode(c *models.Category) *string {
	if c == nil {
		return nil
	}
	return &c.Code
}

func groupName(g *models.Group) *string {
	if g == nil {
		return nil
	}
	return &g.Name
}
