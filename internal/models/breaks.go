package models

// BreakType tells displays why lifting is interrupted.
type BreakType int

const (
	BreakBeforeIntroduction BreakType = iota + 1
	BreakFirstSnatch
	BreakFirstCleanJerk
	BreakTechnical
	BreakJury
	BreakGroupDone
)

func (b BreakType) String() string {
	switch b {
	case BreakBeforeIntroduction:
		return "BEFORE_INTRODUCTION"
	case BreakFirstSnatch:
		return "FIRST_SNATCH"
	case BreakFirstCleanJerk:
		return "FIRST_CJ"
	case BreakTechnical:
		return "TECHNICAL"
	case BreakJury:
		return "JURY"
	case BreakGroupDone:
		return "GROUP_DONE"
	default:
		return "NONE"
	}
}

// CountdownType selects how a break ends.
type CountdownType int

const (
	CountdownDuration CountdownType = iota + 1
	CountdownTargetTime
	CountdownIndefinite
)

func (c CountdownType) String() string {
	switch c {
	case CountdownDuration:
		return "DURATION"
	case CountdownTargetTime:
		return "TARGET"
	case CountdownIndefinite:
		return "INDEFINITE"
	default:
		return "NONE"
	}
}

// IsIndefiniteBreak is true for jury, technical and group-done breaks and for
// any break whose countdown is indefinite.
func IsIndefiniteBreak(b BreakType, c CountdownType) bool {
	switch b {
	case BreakJury, BreakTechnical, BreakGroupDone:
		return true
	}
	return c == CountdownIndefinite
}
