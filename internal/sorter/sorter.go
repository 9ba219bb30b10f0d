// Package sorter produces ordered views of athletes and computes ranks.
//
// Sorting functions reorder the slice they are given; the *Copy variants
// leave the input untouched. Rank computations are pure: they return
// Placements keyed by athlete id and never modify athletes.
package sorter

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/ranking"
)

// Placement is a computed rank and the score it was decided on. Rank 0
// means unranked (no positive score).
type Placement struct {
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Points int     `json:"points"`
}

// Placements maps athlete ids to their placement for one ranking.
type Placements map[uuid.UUID]Placement

// Rank returns the rank of an athlete, 0 if unknown or unranked.
func (p Placements) Rank(a *models.Athlete) int {
	return p[a.ID].Rank
}

// iwfTeamPoints are awarded by category rank 1..25.
var iwfTeamPoints = []int{28, 25, 23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}

// TeamPoints returns the team points for a category rank.
func TeamPoints(rank int) int {
	if rank < 1 || rank > len(iwfTeamPoints) {
		return 0
	}
	return iwfTeamPoints[rank-1]
}

// ValidateGenders fails on the first athlete without a usable gender.
func ValidateGenders(athletes []*models.Athlete) error {
	for _, a := range athletes {
		if !a.Gender.Valid() {
			return fmt.Errorf("athlete %s (lot %d): %w", a.FullName(), a.LotNumber, models.ErrInvalidGender)
		}
	}
	return nil
}

// AssignLotNumbers draws lots 1..N in random order. It must complete before
// any sorted view is published.
func AssignLotNumbers(athletes []*models.Athlete, rng *rand.Rand) {
	perm := rng.Perm(len(athletes))
	for i, a := range athletes {
		a.LotNumber = perm[i] + 1
	}
}

// AssignStartNumbers numbers athletes 1..N by category then lot.
func AssignStartNumbers(athletes []*models.Athlete, s models.RankingSettings) {
	for i, a := range sortedCopy(athletes, ranking.StartOrder(s)) {
		a.StartNumber = i + 1
	}
}

// LiftingOrder sorts athletes in the order they will be called.
func LiftingOrder(athletes []*models.Athlete) {
	slices.SortStableFunc(athletes, ranking.LiftingOrder)
}

// LiftingOrderCopy returns the lifting order without touching the input.
func LiftingOrderCopy(athletes []*models.Athlete) []*models.Athlete {
	return sortedCopy(athletes, ranking.LiftingOrder)
}

// ResultsOrder sorts athletes for a ranking.
func ResultsOrder(athletes []*models.Athlete, r models.Ranking, s models.RankingSettings) error {
	if err := ValidateGenders(athletes); err != nil {
		return err
	}
	slices.SortStableFunc(athletes, ranking.ForRanking(r, s))
	return nil
}

// ResultsOrderCopy returns a sorted copy for a ranking.
func ResultsOrderCopy(athletes []*models.Athlete, r models.Ranking, s models.RankingSettings) ([]*models.Athlete, error) {
	if err := ValidateGenders(athletes); err != nil {
		return nil, err
	}
	return sortedCopy(athletes, ranking.ForRanking(r, s)), nil
}

func teamComparator(r models.Ranking, s models.RankingSettings) ranking.Comparator {
	byRanking := ranking.ForRanking(r, s)
	return func(a, b *models.Athlete) int {
		if c := strings.Compare(a.Team, b.Team); c != 0 {
			return c
		}
		if c := strings.Compare(string(a.Gender), string(b.Gender)); c != 0 {
			return c
		}
		return byRanking(a, b)
	}
}

// TeamRankingOrder groups athletes by team and gender, ordered by ranking within.
func TeamRankingOrder(athletes []*models.Athlete, r models.Ranking, s models.RankingSettings) error {
	if err := ValidateGenders(athletes); err != nil {
		return err
	}
	slices.SortStableFunc(athletes, teamComparator(r, s))
	return nil
}

// TeamRankingOrderCopy returns a team-grouped sorted copy.
func TeamRankingOrderCopy(athletes []*models.Athlete, r models.Ranking, s models.RankingSettings) ([]*models.Athlete, error) {
	if err := ValidateGenders(athletes); err != nil {
		return nil, err
	}
	return sortedCopy(athletes, teamComparator(r, s)), nil
}

// DisplayOrderCopy returns the competition-long printed order.
func DisplayOrderCopy(athletes []*models.Athlete, s models.RankingSettings) []*models.Athlete {
	return sortedCopy(athletes, ranking.DisplayOrder(s))
}

// AssignCategoryRanks walks a results-ordered list and ranks athletes within
// each category. The counter restarts when the category changes; tied
// athletes share a rank and the next athlete skips the tie size. Athletes
// without a positive score are left unranked.
func AssignCategoryRanks(sorted []*models.Athlete, r models.Ranking, s models.RankingSettings) (Placements, error) {
	if err := ValidateGenders(sorted); err != nil {
		return nil, err
	}
	out := make(Placements, len(sorted))
	var (
		category *models.Category
		st       rankState
		started  bool
	)
	for _, a := range sorted {
		c := ranking.RankingCategory(r, s, a)
		if !started || !models.SameCategory(category, c) {
			category, st, started = c, rankState{}, true
		}
		out[a.ID] = st.place(r, s, a)
	}
	return out, nil
}

// AssignSinclairRanksAndPoints ranks a results-ordered list by gender only.
func AssignSinclairRanksAndPoints(sorted []*models.Athlete, r models.Ranking, s models.RankingSettings) (Placements, error) {
	if err := ValidateGenders(sorted); err != nil {
		return nil, err
	}
	out := make(Placements, len(sorted))
	states := make(map[models.Gender]*rankState, 2)
	for _, a := range sorted {
		st, ok := states[a.Gender]
		if !ok {
			st = &rankState{}
			states[a.Gender] = st
		}
		out[a.ID] = st.place(r, s, a)
	}
	return out, nil
}

type rankState struct {
	last     *models.Athlete
	position int
	rank     int
}

func (st *rankState) place(r models.Ranking, s models.RankingSettings, a *models.Athlete) Placement {
	score := ranking.Score(r, s, a)
	if score <= 0 {
		return Placement{Score: score}
	}
	st.position++
	if st.last == nil || !ranking.Tied(r, s, st.last, a) {
		st.rank = st.position
	}
	st.last = a
	return Placement{Rank: st.rank, Score: score, Points: TeamPoints(st.rank)}
}

func sortedCopy(athletes []*models.Athlete, c ranking.Comparator) []*models.Athlete {
	out := slices.Clone(athletes)
	slices.SortStableFunc(out, c)
	return out
}
