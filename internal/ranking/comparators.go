// Package ranking provides the athlete comparison rules used for lifting
// order, display order and results.
//
// Every comparator is a chain of rules evaluated in precedence order; the
// first non-zero rule wins. Missing values sort first. Competition flags are
// passed explicitly through models.RankingSettings.
package ranking

import (
	"cmp"
	"math"
	"strings"

	"github.com/yourusername/fop-engine/internal/models"
)

// Comparator orders two athletes: negative if a comes first.
type Comparator func(a, b *models.Athlete) int

type rule = Comparator

func chain(rules ...rule) Comparator {
	return func(a, b *models.Athlete) int {
		for _, r := range rules {
			if c := r(a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}

// ForRanking returns the results comparator for a ranking.
func ForRanking(r models.Ranking, s models.RankingSettings) Comparator {
	return chain(rulesFor(r, s)...)
}

// Compare applies the results comparator for a ranking.
func Compare(r models.Ranking, s models.RankingSettings, a, b *models.Athlete) int {
	return ForRanking(r, s)(a, b)
}

// Tied reports whether two athletes cannot be separated by anything but the
// lot number. Tied athletes share a rank.
func Tied(r models.Ranking, s models.RankingSettings, a, b *models.Athlete) bool {
	rules := rulesFor(r, s)
	return chain(rules[:len(rules)-1]...)(a, b) == 0
}

// rulesFor builds the precedence chain; the lot number is always last.
func rulesFor(r models.Ranking, s models.RankingSettings) []rule {
	var rules []rule
	switch r {
	case models.RankingSnatch:
		rules = append(rules, byCategory(s.UseRegistrationCategory), byBestSnatchDesc, bySessionTime)
		if s.UseOldBodyWeightTieBreak {
			rules = append(rules, byBodyWeight)
		}
		rules = append(rules, byBestSnatchAttemptNumber, byPreviousAttempts(false), byLotNumber)
	case models.RankingCleanJerk:
		rules = append(rules, byCategory(s.UseRegistrationCategory), byBestCleanJerkDesc)
		rules = append(rules, tieBreak(s.UseOldBodyWeightTieBreak)...)
	case models.RankingCustom:
		if s.Masters {
			rules = append(rules, byGender, byAgeGroupDesc(s.ReferenceYear))
		}
		rules = append(rules, byCategory(true), byScoreDesc(r, s), byTotalDesc)
		rules = append(rules, tieBreak(s.UseOldBodyWeightTieBreak)...)
	case models.RankingSinclair, models.RankingCategorySinclair, models.RankingSMM, models.RankingRobi:
		rules = append(rules, byScoreDesc(r, s))
		rules = append(rules, tieBreak(true)...)
	default:
		// TOTAL, and COMBINED which has no individual ordering of its own.
		if s.Masters {
			rules = append(rules, byGender, byAgeGroupDesc(s.ReferenceYear))
		}
		rules = append(rules, byCategory(s.UseRegistrationCategory), byTotalDesc)
		rules = append(rules, tieBreak(s.UseOldBodyWeightTieBreak)...)
	}
	return rules
}

// tieBreak is shared by every ranking except SNATCH.
func tieBreak(bodyWeight bool) []rule {
	rules := []rule{bySessionTime}
	if bodyWeight {
		rules = append(rules, byBodyWeight)
	}
	return append(rules, byBestCleanJerkAsc, byBestCleanJerkAttemptNumber, byPreviousAttempts(true), byLotNumber)
}

// Score returns the numeric value a ranking is decided on.
func Score(r models.Ranking, s models.RankingSettings, a *models.Athlete) float64 {
	switch r {
	case models.RankingSnatch:
		return float64(a.BestSnatch())
	case models.RankingCleanJerk:
		return float64(a.BestCleanJerk())
	case models.RankingCustom:
		return a.CustomScoreOrTotal()
	case models.RankingSinclair:
		switch {
		case s.Masters:
			return a.SMM(s.ReferenceYear)
		case s.UseCategorySinclair:
			return a.CategorySinclair(s.UseRegistrationCategory)
		default:
			return a.Sinclair()
		}
	case models.RankingCategorySinclair:
		return a.CategorySinclair(s.UseRegistrationCategory)
	case models.RankingSMM:
		return a.SMM(s.ReferenceYear)
	case models.RankingRobi:
		return a.Robi(s.UseRegistrationCategory)
	default:
		return float64(a.Total())
	}
}

// RankingCategory is the category used to group a ranking; CUSTOM always
// uses the registration category.
func RankingCategory(r models.Ranking, s models.RankingSettings, a *models.Athlete) *models.Category {
	if r == models.RankingCustom {
		return a.EffectiveCategory(true)
	}
	return a.EffectiveCategory(s.UseRegistrationCategory)
}

func byGender(a, b *models.Athlete) int {
	return strings.Compare(string(a.Gender), string(b.Gender))
}

func byAgeGroupDesc(year int) rule {
	return func(a, b *models.Athlete) int {
		return -cmp.Compare(a.AgeGroup(year), b.AgeGroup(year))
	}
}

func byCategory(useRegistration bool) rule {
	return func(a, b *models.Athlete) int {
		return models.CompareCategories(a.EffectiveCategory(useRegistration), b.EffectiveCategory(useRegistration))
	}
}

func byBestSnatchDesc(a, b *models.Athlete) int {
	return -cmp.Compare(a.BestSnatch(), b.BestSnatch())
}

func byBestCleanJerkDesc(a, b *models.Athlete) int {
	return -cmp.Compare(a.BestCleanJerk(), b.BestCleanJerk())
}

// byBestCleanJerkAsc: at equal totals the smaller clean&jerk was reached first.
func byBestCleanJerkAsc(a, b *models.Athlete) int {
	return cmp.Compare(a.BestCleanJerk(), b.BestCleanJerk())
}

func byTotalDesc(a, b *models.Athlete) int {
	return -cmp.Compare(a.Total(), b.Total())
}

func byScoreDesc(r models.Ranking, s models.RankingSettings) rule {
	return func(a, b *models.Athlete) int {
		return -cmp.Compare(Score(r, s, a), Score(r, s, b))
	}
}

func bySessionTime(a, b *models.Athlete) int {
	return models.CompareSessionTime(a.Group, b.Group)
}

func byBodyWeight(a, b *models.Athlete) int {
	return cmp.Compare(a.BodyWeight, b.BodyWeight)
}

func byBestSnatchAttemptNumber(a, b *models.Athlete) int {
	return cmp.Compare(a.BestSnatchAttemptNumber(), b.BestSnatchAttemptNumber())
}

func byBestCleanJerkAttemptNumber(a, b *models.Athlete) int {
	return cmp.Compare(a.BestCleanJerkAttemptNumber(), b.BestCleanJerkAttemptNumber())
}

// byPreviousAttempts compares attempted weights from the best attempt back
// to the first; the athlete who attempted less earlier comes first.
func byPreviousAttempts(cleanJerk bool) rule {
	return func(a, b *models.Athlete) int {
		first, from := 1, a.BestSnatchAttemptNumber()
		if cleanJerk {
			first, from = models.SnatchAttempts+1, a.BestCleanJerkAttemptNumber()
		}
		for n := from; n >= 1; n-- {
			attempt := first + n - 1
			if c := cmp.Compare(a.AttemptWeight(attempt), b.AttemptWeight(attempt)); c != 0 {
				return c
			}
		}
		return 0
	}
}

func byLotNumber(a, b *models.Athlete) int {
	return cmp.Compare(a.LotNumber, b.LotNumber)
}

func byName(a, b *models.Athlete) int {
	if c := strings.Compare(a.LastName, b.LastName); c != 0 {
		return c
	}
	return strings.Compare(a.FirstName, b.FirstName)
}

// LiftingOrder decides who lifts next: athletes still lifting before finished
// ones, snatch before clean&jerk, lighter request first, fewer attempts
// first, earlier previous lift first, then lot number. Previous lift time is
// ignored on the first attempt of each lift.
func LiftingOrder(a, b *models.Athlete) int {
	aDone, bDone := a.IsFinished(), b.IsFinished()
	if aDone != bDone {
		if aDone {
			return 1
		}
		return -1
	}
	if aDone {
		return byLotNumber(a, b)
	}

	aCJ := a.AttemptsDone() >= models.SnatchAttempts
	bCJ := b.AttemptsDone() >= models.SnatchAttempts
	if aCJ != bCJ {
		if aCJ {
			return 1
		}
		return -1
	}

	if c := cmp.Compare(requestedOrLast(a), requestedOrLast(b)); c != 0 {
		return c
	}

	done := a.AttemptsDone()
	if c := cmp.Compare(done, b.AttemptsDone()); c != 0 {
		return c
	}

	if done != 0 && done != models.SnatchAttempts {
		if c := cmp.Compare(a.PreviousLiftSequence(), b.PreviousLiftSequence()); c != 0 {
			return c
		}
	}
	return byLotNumber(a, b)
}

// requestedOrLast sends athletes without a requested weight to the end.
func requestedOrLast(a *models.Athlete) int {
	if w := a.NextAttemptRequestedWeight(); w > 0 {
		return w
	}
	return math.MaxInt
}

// DisplayOrder is the stable printed order: [masters age group] category,
// lot number, last name, first name.
func DisplayOrder(s models.RankingSettings) Comparator {
	var rules []rule
	if s.Masters {
		rules = append(rules, byAgeGroupDesc(s.ReferenceYear))
	}
	return chain(append(rules, byCategory(s.UseRegistrationCategory), byLotNumber, byName)...)
}

// StartOrder numbers athletes by category then lot.
func StartOrder(s models.RankingSettings) Comparator {
	return chain(byCategory(s.UseRegistrationCategory), byLotNumber)
}
