package models

import (
	"time"

	"github.com/google/uuid"
)

// Competition holds the process-wide settings loaded once at startup.
type Competition struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	Name                     string    `db:"name" json:"name" validate:"required"`
	Date                     time.Time `db:"competition_date" json:"date"`
	Masters                  bool      `db:"masters" json:"masters"`
	UseRegistrationCategory  bool      `db:"use_registration_category" json:"use_registration_category"`
	UseOldBodyWeightTieBreak bool      `db:"use_old_body_weight_tie_break" json:"use_old_body_weight_tie_break"`
	UseCategorySinclair      bool      `db:"use_category_sinclair" json:"use_category_sinclair"`
	Enforce20kgRule          bool      `db:"enforce_20kg_rule" json:"enforce_20kg_rule"`
	Locale                   string    `db:"locale" json:"locale"`
	ProtocolTemplate         string    `db:"protocol_template" json:"protocol_template"`
	FinalPackageTemplate     string    `db:"final_package_template" json:"final_package_template"`
}

// RankingSettings are the competition flags every comparator depends on.
// They are passed explicitly, never read from a global.
type RankingSettings struct {
	Masters                  bool
	UseRegistrationCategory  bool
	UseOldBodyWeightTieBreak bool
	UseCategorySinclair      bool
	// ReferenceYear is used to compute ages for masters age groups and SMM.
	ReferenceYear int
}

// RankingSettings derives the comparator settings from the competition.
func (c *Competition) RankingSettings() RankingSettings {
	if c == nil {
		return RankingSettings{ReferenceYear: time.Now().Year()}
	}
	year := c.Date.Year()
	if c.Date.IsZero() {
		year = time.Now().Year()
	}
	return RankingSettings{
		Masters:                  c.Masters,
		UseRegistrationCategory:  c.UseRegistrationCategory,
		UseOldBodyWeightTieBreak: c.UseOldBodyWeightTieBreak,
		UseCategorySinclair:      c.UseCategorySinclair,
		ReferenceYear:            year,
	}
}
