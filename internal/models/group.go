package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a session: athletes lifting together at a scheduled time on one platform.
type Group struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            string     `db:"name" json:"name" validate:"required"`
	Description     string     `db:"description" json:"description"`
	Platform        string     `db:"platform" json:"platform"`
	CompetitionTime *time.Time `db:"competition_time" json:"competition_time"`
}

// SameGroup compares groups by name; two nil groups are the same.
func SameGroup(a, b *Group) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name
}

// CompareSessionTime orders groups chronologically. A nil group or a nil
// competition time is the earliest.
func CompareSessionTime(a, b *Group) int {
	var ta, tb *time.Time
	if a != nil {
		ta = a.CompetitionTime
	}
	if b != nil {
		tb = b.CompetitionTime
	}
	switch {
	case ta == nil && tb == nil:
		return 0
	case ta == nil:
		return -1
	case tb == nil:
		return 1
	}
	return ta.Compare(*tb)
}
