package ranking

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fop-engine/internal/models"
)

var (
	m81 = &models.Category{Code: "M81", Gender: models.GenderMale, AgeDivision: models.AgeDivisionSenior, MinimumWeight: 73, MaximumWeight: 81, WorldRecord: 378}
	m89 = &models.Category{Code: "M89", Gender: models.GenderMale, AgeDivision: models.AgeDivisionSenior, MinimumWeight: 81, MaximumWeight: 89, WorldRecord: 396}

	morning   = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	afternoon = time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	groupA    = &models.Group{Name: "A", CompetitionTime: &morning}
	groupB    = &models.Group{Name: "B", CompetitionTime: &afternoon}

	defaults = models.RankingSettings{ReferenceYear: 2024}
)

func athlete(t *testing.T, lot int, bw float64, cat *models.Category, group *models.Group, results ...int) *models.Athlete {
	t.Helper()
	a := &models.Athlete{
		LotNumber:  lot,
		LastName:   "Lot",
		FirstName:  string(rune('A' + lot)),
		Gender:     models.GenderMale,
		BodyWeight: bw,
		Category:   cat,
		Group:      group,
	}
	for i, r := range results {
		require.NoError(t, a.RecordLift(i+1, r, uint64(lot*10+i)))
	}
	return a
}

func sortedLots(list []*models.Athlete, c Comparator) []int {
	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, c)
	lots := make([]int, len(sorted))
	for i, a := range sorted {
		lots[i] = a.LotNumber
	}
	return lots
}

func TestEarlierSessionWinsTotalTie(t *testing.T) {
	early := athlete(t, 5, 80, m81, groupA, 100, 0, 0, 120, 0, 0)
	late := athlete(t, 2, 80, m81, groupB, 100, 0, 0, 120, 0, 0)

	assert.Negative(t, Compare(models.RankingTotal, defaults, early, late),
		"earlier session ranks first even with a larger lot number")
}

func TestSmallerCleanJerkWinsTotalTie(t *testing.T) {
	a := athlete(t, 1, 80, m81, groupA, 105, 0, 0, 115, 0, 0)
	b := athlete(t, 2, 80, m81, groupA, 100, 0, 0, 120, 0, 0)

	assert.Positive(t, Compare(models.RankingTotal, defaults, b, a),
		"the athlete with the smaller clean&jerk reached the total first")
}

func TestBodyWeightTieBreakOnlyWhenEnabled(t *testing.T) {
	heavy := athlete(t, 1, 80.5, m81, groupA, 100, 0, 0, 120, 0, 0)
	light := athlete(t, 2, 76.0, m81, groupA, 100, 0, 0, 120, 0, 0)

	assert.Negative(t, Compare(models.RankingTotal, defaults, heavy, light), "lot decides without the legacy rule")

	legacy := defaults
	legacy.UseOldBodyWeightTieBreak = true
	assert.Positive(t, Compare(models.RankingTotal, legacy, heavy, light), "lighter wins with the legacy rule")
}

func TestSnatchChain(t *testing.T) {
	// same best snatch, reached on attempt 2 vs attempt 3
	second := athlete(t, 3, 80, m81, groupA, 95, 100, -105)
	third := athlete(t, 1, 80, m81, groupA, 95, -100, 100)
	assert.Negative(t, Compare(models.RankingSnatch, defaults, second, third))

	// same attempt number, smaller previous attempt first
	lower := athlete(t, 4, 80, m81, groupA, 92, 100)
	higher := athlete(t, 2, 80, m81, groupA, 95, 100)
	assert.Negative(t, Compare(models.RankingSnatch, defaults, lower, higher))

	// heavier category sorts after
	other := athlete(t, 0, 85, m89, groupA, 120)
	assert.Positive(t, Compare(models.RankingSnatch, defaults, other, lower))
}

func TestCleanJerkDescending(t *testing.T) {
	a := athlete(t, 1, 80, m81, groupA, 100, 0, 0, 120)
	b := athlete(t, 2, 80, m81, groupA, 100, 0, 0, 125)
	assert.Equal(t, []int{2, 1}, sortedLots([]*models.Athlete{a, b}, ForRanking(models.RankingCleanJerk, defaults)))
}

func TestRegistrationCategoryFlag(t *testing.T) {
	a := athlete(t, 1, 80, m81, groupA, 100, 0, 0, 120, 0, 0)
	b := athlete(t, 2, 88, m89, groupA, 110, 0, 0, 130, 0, 0)
	b.RegistrationCategory = m81

	assert.Negative(t, Compare(models.RankingTotal, defaults, a, b), "computed categories differ, lighter first")

	reg := defaults
	reg.UseRegistrationCategory = true
	assert.Positive(t, Compare(models.RankingTotal, reg, a, b), "same registration category, larger total first")
	assert.True(t, models.SameCategory(RankingCategory(models.RankingTotal, reg, b), m81))
}

func TestCategorySinclairFlag(t *testing.T) {
	heavy := athlete(t, 1, 80.5, m81, groupA, 100, 0, 0, 120, 0, 0)
	light := athlete(t, 2, 76.0, m81, groupA, 100, 0, 0, 120, 0, 0)

	s := defaults
	s.UseCategorySinclair = true
	require.Equal(t, Score(models.RankingSinclair, s, heavy), Score(models.RankingSinclair, s, light))

	assert.Positive(t, Compare(models.RankingSinclair, s, heavy, light), "lighter wins the Sinclair tie")
	assert.Positive(t, Compare(models.RankingRobi, s, heavy, light), "lighter wins the Robi tie")
	assert.Negative(t, Compare(models.RankingTotal, s, heavy, light), "TOTAL ignores body weight")
}

func TestSinclairVariantFollowsSettings(t *testing.T) {
	a := athlete(t, 1, 80, m81, groupA, 100, 0, 0, 120, 0, 0)
	a.YearOfBirth = 1970

	assert.Equal(t, a.Sinclair(), Score(models.RankingSinclair, defaults, a))
	masters := defaults
	masters.Masters = true
	assert.Equal(t, a.SMM(2024), Score(models.RankingSinclair, masters, a))
	assert.Equal(t, a.CategorySinclair(false), Score(models.RankingCategorySinclair, defaults, a))
}

func TestMastersTotalGroupsByAge(t *testing.T) {
	older := athlete(t, 1, 80, m81, groupA, 80, 0, 0, 100, 0, 0)
	older.YearOfBirth = 1970
	younger := athlete(t, 2, 80, m81, groupA, 100, 0, 0, 120, 0, 0)
	younger.YearOfBirth = 1985

	masters := defaults
	masters.Masters = true
	assert.Negative(t, Compare(models.RankingTotal, masters, older, younger), "older age group first")
	assert.Positive(t, Compare(models.RankingTotal, defaults, older, younger))
}

func TestCustomRanking(t *testing.T) {
	a := athlete(t, 1, 80, m81, groupA, 100, 0, 0, 120, 0, 0)
	b := athlete(t, 2, 80, m81, groupA, 90, 0, 0, 110, 0, 0)
	b.CustomScore = 500
	a.RegistrationCategory, b.RegistrationCategory = m81, m81

	assert.Positive(t, Compare(models.RankingCustom, defaults, a, b))
}

func TestTied(t *testing.T) {
	a := athlete(t, 1, 80, m81, groupA, 100, 0, 0, 120, 0, 0)
	b := athlete(t, 2, 80, m81, groupA, 100, 0, 0, 120, 0, 0)
	c := athlete(t, 3, 80, m81, groupA, 100, 0, 0, 121, 0, 0)

	assert.True(t, Tied(models.RankingTotal, defaults, a, b))
	assert.NotZero(t, Compare(models.RankingTotal, defaults, a, b))
	assert.False(t, Tied(models.RankingTotal, defaults, a, c))
}

func TestLiftingOrder(t *testing.T) {
	t.Run("lighter request first", func(t *testing.T) {
		a := athlete(t, 1, 80, m81, groupA)
		b := athlete(t, 2, 80, m81, groupA)
		require.NoError(t, a.SetDeclaration(1, 70))
		require.NoError(t, b.SetDeclaration(1, 65))
		assert.Positive(t, LiftingOrder(a, b))
	})

	t.Run("snatch before clean&jerk", func(t *testing.T) {
		a := athlete(t, 1, 80, m81, groupA, 60, 61, 62)
		require.NoError(t, a.SetDeclaration(4, 70))
		b := athlete(t, 2, 80, m81, groupA, 90, 91)
		assert.Positive(t, LiftingOrder(a, b))
	})

	t.Run("fewer attempts first at same weight", func(t *testing.T) {
		a := athlete(t, 1, 80, m81, groupA, -60)
		b := athlete(t, 2, 80, m81, groupA)
		require.NoError(t, b.SetDeclaration(1, 60))
		assert.Positive(t, LiftingOrder(a, b))
	})

	t.Run("earlier lifter first at same weight and attempt", func(t *testing.T) {
		a := athlete(t, 1, 80, m81, groupA)
		b := athlete(t, 2, 80, m81, groupA)
		require.NoError(t, a.RecordLift(1, -60, 20))
		require.NoError(t, b.RecordLift(1, -60, 10))
		assert.Positive(t, LiftingOrder(a, b))
	})

	t.Run("first clean&jerk ignores previous lift time", func(t *testing.T) {
		a := athlete(t, 1, 80, m81, groupA)
		b := athlete(t, 2, 80, m81, groupA)
		for i := 1; i <= 3; i++ {
			require.NoError(t, a.RecordLift(i, 50+i, uint64(100+i)))
			require.NoError(t, b.RecordLift(i, 50+i, uint64(i)))
		}
		require.NoError(t, a.SetDeclaration(4, 70))
		require.NoError(t, b.SetDeclaration(4, 70))
		assert.Negative(t, LiftingOrder(a, b), "lot number decides")
	})

	t.Run("no request and finished go last", func(t *testing.T) {
		finished := athlete(t, 1, 80, m81, groupA, 60, 61, 62, 70, 71, 72)
		undeclared := athlete(t, 2, 80, m81, groupA)
		declared := athlete(t, 3, 80, m81, groupA)
		require.NoError(t, declared.SetDeclaration(1, 100))
		assert.Equal(t, []int{3, 2, 1}, sortedLots([]*models.Athlete{finished, undeclared, declared}, LiftingOrder))
	})
}

func TestFailedLiftKeepsWeightButMovesBack(t *testing.T) {
	a := athlete(t, 1, 80, m81, groupA)
	b := athlete(t, 2, 80, m81, groupA)
	c := athlete(t, 3, 80, m81, groupA)
	require.NoError(t, a.SetDeclaration(1, 60))
	require.NoError(t, b.SetDeclaration(1, 61))
	require.NoError(t, c.SetDeclaration(1, 60))
	list := []*models.Athlete{a, b, c}
	assert.Equal(t, []int{1, 3, 2}, sortedLots(list, LiftingOrder))

	_, err := a.RecordDecision(false, 1)
	require.NoError(t, err)
	assert.Equal(t, 60, a.NextAttemptRequestedWeight())
	assert.Equal(t, []int{3, 1, 2}, sortedLots(list, LiftingOrder))
}

func TestDisplayOrder(t *testing.T) {
	a := athlete(t, 3, 80, m81, groupA)
	b := athlete(t, 1, 88, m89, groupA)
	c := athlete(t, 2, 79, m81, groupA)
	assert.Equal(t, []int{2, 3, 1}, sortedLots([]*models.Athlete{a, b, c}, DisplayOrder(defaults)))
	assert.Equal(t, []int{2, 3, 1}, sortedLots([]*models.Athlete{a, b, c}, StartOrder(defaults)))
}
