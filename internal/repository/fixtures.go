package repository

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/fop-engine/internal/models"
)

// Fixtures is the YAML document the memory store is loaded from.
type Fixtures struct {
	Categories []CategoryFixture `yaml:"categories"`
	Groups     []GroupFixture    `yaml:"groups"`
	Athletes   []AthleteFixture  `yaml:"athletes"`
}

type CategoryFixture struct {
	Code          string  `yaml:"code"`
	Name          string  `yaml:"name,omitempty"`
	Gender        string  `yaml:"gender"`
	AgeDivision   string  `yaml:"age_division,omitempty"`
	MinimumWeight float64 `yaml:"minimum_weight"`
	MaximumWeight float64 `yaml:"maximum_weight"`
	WorldRecord   int     `yaml:"world_record,omitempty"`
	Inactive      bool    `yaml:"inactive,omitempty"`
}

type GroupFixture struct {
	Name            string     `yaml:"name"`
	Description     string     `yaml:"description,omitempty"`
	Platform        string     `yaml:"platform,omitempty"`
	CompetitionTime *time.Time `yaml:"competition_time,omitempty"`
}

type AthleteFixture struct {
	Lot                  int              `yaml:"lot,omitempty"`
	StartNumber          int              `yaml:"start_number,omitempty"`
	FirstName            string           `yaml:"first_name,omitempty"`
	LastName             string           `yaml:"last_name"`
	Gender               string           `yaml:"gender"`
	BodyWeight           float64          `yaml:"body_weight,omitempty"`
	YearOfBirth          int              `yaml:"year_of_birth,omitempty"`
	Team                 string           `yaml:"team,omitempty"`
	ExcludeFromTeam      bool             `yaml:"exclude_from_team,omitempty"`
	EntryTotal           int              `yaml:"entry_total,omitempty"`
	CustomScore          float64          `yaml:"custom_score,omitempty"`
	Category             string           `yaml:"category,omitempty"`
	RegistrationCategory string           `yaml:"registration_category,omitempty"`
	Group                string           `yaml:"group,omitempty"`
	Attempts             []models.Attempt `yaml:"attempts,omitempty"`
}

// ReadFixtures decodes a fixtures file.
func ReadFixtures(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()

	var fx Fixtures
	if err := yaml.NewDecoder(f).Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return &fx, nil
}

// WriteFixtures encodes fixtures with two-space indentation.
func WriteFixtures(w io.Writer, fx *Fixtures) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fx); err != nil {
		return fmt.Errorf("failed to encode fixtures: %w", err)
	}
	return enc.Close()
}

func (cf CategoryFixture) model() (*models.Category, error) {
	g, err := models.ParseGender(cf.Gender)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cf.Code, err)
	}
	div, err := models.ParseAgeDivision(cf.AgeDivision)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cf.Code, err)
	}
	if cf.Code == "" {
		return nil, fmt.Errorf("category without code")
	}
	if cf.MaximumWeight <= cf.MinimumWeight {
		return nil, fmt.Errorf("category %s: maximum weight must exceed minimum weight", cf.Code)
	}
	return &models.Category{
		ID:            uuid.New(),
		Code:          cf.Code,
		Name:          cf.Name,
		Gender:        g,
		AgeDivision:   div,
		MinimumWeight: cf.MinimumWeight,
		MaximumWeight: cf.MaximumWeight,
		WorldRecord:   cf.WorldRecord,
		Active:        !cf.Inactive,
	}, nil
}

func categoryFixture(c *models.Category) CategoryFixture {
	cf := CategoryFixture{
		Code:          c.Code,
		Name:          c.Name,
		Gender:        c.Gender.String(),
		MinimumWeight: c.MinimumWeight,
		MaximumWeight: c.MaximumWeight,
		WorldRecord:   c.WorldRecord,
		Inactive:      !c.Active,
	}
	if c.AgeDivision != models.AgeDivisionDefault {
		cf.AgeDivision = c.AgeDivision.String()
	}
	return cf
}

func (gf GroupFixture) model() (*models.Group, error) {
	if gf.Name == "" {
		return nil, fmt.Errorf("group without name")
	}
	return &models.Group{
		ID:              uuid.New(),
		Name:            gf.Name,
		Description:     gf.Description,
		Platform:        gf.Platform,
		CompetitionTime: gf.CompetitionTime,
	}, nil
}

func groupFixture(g *models.Group) GroupFixture {
	return GroupFixture{
		Name:            g.Name,
		Description:     g.Description,
		Platform:        g.Platform,
		CompetitionTime: g.CompetitionTime,
	}
}

// model resolves category and group references. Unknown references and bad
// genders are configuration errors.
func (af AthleteFixture) model(categories map[string]*models.Category, groups map[string]*models.Group) (*models.Athlete, error) {
	g, err := models.ParseGender(af.Gender)
	if err != nil {
		return nil, fmt.Errorf("athlete %s: %w", af.LastName, err)
	}
	if len(af.Attempts) > models.TotalAttempts {
		return nil, fmt.Errorf("athlete %s: %d attempts, at most %d allowed", af.LastName, len(af.Attempts), models.TotalAttempts)
	}

	a := &models.Athlete{
		ID:              uuid.New(),
		LotNumber:       af.Lot,
		StartNumber:     af.StartNumber,
		FirstName:       af.FirstName,
		LastName:        af.LastName,
		Gender:          g,
		BodyWeight:      af.BodyWeight,
		YearOfBirth:     af.YearOfBirth,
		Team:            af.Team,
		ExcludeFromTeam: af.ExcludeFromTeam,
		EntryTotal:      af.EntryTotal,
		CustomScore:     af.CustomScore,
	}
	copy(a.Attempts[:], af.Attempts)

	if a.Category, err = lookup(categories, af.Category, "category"); err != nil {
		return nil, fmt.Errorf("athlete %s: %w", af.LastName, err)
	}
	if a.RegistrationCategory, err = lookup(categories, af.RegistrationCategory, "category"); err != nil {
		return nil, fmt.Errorf("athlete %s: %w", af.LastName, err)
	}
	if a.Group, err = lookup(groups, af.Group, "group"); err != nil {
		return nil, fmt.Errorf("athlete %s: %w", af.LastName, err)
	}
	return a, nil
}

func athleteFixture(a *models.Athlete) AthleteFixture {
	af := AthleteFixture{
		Lot:             a.LotNumber,
		StartNumber:     a.StartNumber,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Gender:          a.Gender.String(),
		BodyWeight:      a.BodyWeight,
		YearOfBirth:     a.YearOfBirth,
		Team:            a.Team,
		ExcludeFromTeam: a.ExcludeFromTeam,
		EntryTotal:      a.EntryTotal,
		CustomScore:     a.CustomScore,
	}
	if a.Category != nil {
		af.Category = a.Category.Code
	}
	if a.RegistrationCategory != nil {
		af.RegistrationCategory = a.RegistrationCategory.Code
	}
	if a.Group != nil {
		af.Group = a.Group.Name
	}
	last := 0
	for i, at := range a.Attempts {
		if at != (models.Attempt{}) {
			last = i + 1
		}
	}
	if last > 0 {
		af.Attempts = append([]models.Attempt(nil), a.Attempts[:last]...)
	}
	return af
}

func lookup[T any](m map[string]*T, key, kind string) (*T, error) {
	if key == "" {
		return nil, nil
	}
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("unknown %s %q: %w", kind, key, models.ErrNotFound)
	}
	return v, nil
}
