package models

// Ranking identifies a results ordering.
type Ranking int

const (
	RankingSnatch Ranking = iota + 1
	RankingCleanJerk
	RankingTotal
	RankingCustom
	RankingSinclair
	RankingCategorySinclair
	RankingSMM
	RankingRobi
	// RankingCombined is only meaningful for teams: snatch + clean&jerk + total points.
	RankingCombined
)

func (r Ranking) String() string {
	switch r {
	case RankingSnatch:
		return "SNATCH"
	case RankingCleanJerk:
		return "CLEANJERK"
	case RankingTotal:
		return "TOTAL"
	case RankingCustom:
		return "CUSTOM"
	case RankingSinclair:
		return "SINCLAIR"
	case RankingCategorySinclair:
		return "CAT_SINCLAIR"
	case RankingSMM:
		return "SMM"
	case RankingRobi:
		return "ROBI"
	case RankingCombined:
		return "COMBINED"
	default:
		return "UNKNOWN"
	}
}

// IsCrossCategory reports whether the ranking is body-weight normalized and
// therefore ranked by gender only.
func (r Ranking) IsCrossCategory() bool {
	switch r {
	case RankingSinclair, RankingCategorySinclair, RankingSMM, RankingRobi:
		return true
	default:
		return false
	}
}
