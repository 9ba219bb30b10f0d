package models

import (
	"cmp"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// RobiB is the Robi exponent, log(10)/log(2).
const RobiB = 3.321928095

// openEndedWeight marks "+" categories with no upper body-weight limit.
const openEndedWeight = 998

// AgeDivision groups categories by age bracket. The ordinal order is the sort order.
type AgeDivision int

const (
	AgeDivisionDefault AgeDivision = iota
	AgeDivisionSenior
	AgeDivisionJunior
	AgeDivisionYouth
	AgeDivisionMasters
)

func (d AgeDivision) String() string {
	switch d {
	case AgeDivisionSenior:
		return "SENIOR"
	case AgeDivisionJunior:
		return "JUNIOR"
	case AgeDivisionYouth:
		return "YOUTH"
	case AgeDivisionMasters:
		return "MASTERS"
	default:
		return "DEFAULT"
	}
}

// ParseAgeDivision maps a stored division name back to its value.
func ParseAgeDivision(s string) (AgeDivision, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DEFAULT":
		return AgeDivisionDefault, nil
	case "SENIOR":
		return AgeDivisionSenior, nil
	case "JUNIOR":
		return AgeDivisionJunior, nil
	case "YOUTH":
		return AgeDivisionYouth, nil
	case "MASTERS":
		return AgeDivisionMasters, nil
	default:
		return AgeDivisionDefault, fmt.Errorf("unknown age division %q", s)
	}
}

// Category is a gender x age division x body-weight bracket. Immutable once loaded.
type Category struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	Code          string      `db:"code" json:"code" validate:"required"`
	Name          string      `db:"name" json:"name"`
	Gender        Gender      `db:"gender" json:"gender" validate:"required,oneof=M F"`
	AgeDivision   AgeDivision `db:"age_division" json:"age_division"`
	MinimumWeight float64     `db:"minimum_weight" json:"minimum_weight" validate:"gte=0"`
	MaximumWeight float64     `db:"maximum_weight" json:"maximum_weight" validate:"gtfield=MinimumWeight"`
	WorldRecord   int         `db:"world_record" json:"world_record" validate:"gte=0"`
	Active        bool        `db:"active" json:"active"`
}

// RobiA returns 1000 / WR^b, or 0 when the category has no world record.
func (c *Category) RobiA() float64 {
	if c == nil || c.WorldRecord <= 0 {
		return 0
	}
	return 1000 / math.Pow(float64(c.WorldRecord), RobiB)
}

// IsOpenEnded reports whether the category has no upper weight limit.
func (c *Category) IsOpenEnded() bool {
	return c != nil && c.MaximumWeight >= openEndedWeight
}

// Contains reports whether bodyWeight falls in (MinimumWeight, MaximumWeight].
func (c *Category) Contains(bodyWeight float64) bool {
	if c == nil {
		return false
	}
	return bodyWeight > c.MinimumWeight && (c.IsOpenEnded() || bodyWeight <= c.MaximumWeight)
}

func (c *Category) String() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Code
}

// SameCategory compares categories by code; two nil categories are the same.
func SameCategory(a, b *Category) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Code == b.Code
}

// CompareCategories orders by age division, gender, then maximum weight.
// A nil category sorts first.
func CompareCategories(a, b *Category) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := cmp.Compare(a.AgeDivision, b.AgeDivision); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Gender), string(b.Gender)); c != 0 {
		return c
	}
	return cmp.Compare(a.MaximumWeight, b.MaximumWeight)
}
