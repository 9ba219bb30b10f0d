package models

import (
	"fmt"
	"strings"
)

// Gender of an athlete or a category.
type Gender string

const (
	GenderFemale Gender = "F"
	GenderMale   Gender = "M"
)

// ParseGender accepts M/F in any case. Anything else is a configuration error.
func ParseGender(s string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return GenderMale, nil
	case "F":
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
	}
}

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

func (g Gender) String() string {
	return string(g)
}

// Prefix is the one-letter prefix used in result-set keys ("m", "w").
func (g Gender) Prefix() string {
	if g == GenderFemale {
		return "w"
	}
	return "m"
}
