package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/sorter"
)

var (
	m81 = &models.Category{Code: "M81", Gender: models.GenderMale, AgeDivision: models.AgeDivisionSenior, MinimumWeight: 73, MaximumWeight: 81, WorldRecord: 378}
	w59 = &models.Category{Code: "W59", Gender: models.GenderFemale, AgeDivision: models.AgeDivisionSenior, MinimumWeight: 55, MaximumWeight: 59, WorldRecord: 247}
)

type staticSource struct {
	athletes []*models.Athlete
	err      error
	calls    int
}

func (s *staticSource) FindAll(context.Context) ([]*models.Athlete, error) {
	s.calls++
	return s.athletes, s.err
}

// lifter records the given results in order; zero entries are left pending.
func lifter(t *testing.T, lot int, name string, cat *models.Category, team string, lifts ...int) *models.Athlete {
	t.Helper()
	a := &models.Athlete{
		ID:         uuid.New(),
		LotNumber:  lot,
		LastName:   name,
		Gender:     cat.Gender,
		BodyWeight: cat.MaximumWeight - 1,
		Category:   cat,
		Team:       team,
	}
	for i, r := range lifts {
		require.NoError(t, a.RecordLift(i+1, r, uint64(lot*10+i)))
	}
	return a
}

func competitionAthletes(t *testing.T) []*models.Athlete {
	return []*models.Athlete{
		lifter(t, 1, "Allison", m81, "North", 100, 105, -110, 130, 135, 140),
		lifter(t, 2, "Brown", m81, "South", 110, -115, -115, 130, -135, -135),
		lifter(t, 3, "Chan", m81, "South"),
		lifter(t, 4, "Diaz", w59, "North", 80, 85, 88, 100, 105, -110),
		lifter(t, 5, "Evans", w59, "", 75, 78, -80, 95, 98, 101),
	}
}

func names(list []RankedAthlete) []string {
	out := make([]string, len(list))
	for i, ra := range list {
		out[i] = ra.Athlete.LastName
	}
	return out
}

func TestComputeResultSet(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{ReferenceYear: 2026}, nil, nil, 0, nil)

	rs, err := ag.Compute(competitionAthletes(t))
	require.NoError(t, err)

	assert.Equal(t, 3, rs.Count("nbMen"))
	assert.Equal(t, 2, rs.Count("nbWomen"))
	assert.Equal(t, 5, rs.Count("nbAthletes"))
	assert.Equal(t, []string{"North", "South"}, rs.Clubs("clubs"))
	assert.Equal(t, 2, rs.Count("nbClubs"))
	assert.Equal(t, []string{"North"}, rs.Clubs("wClubs"))

	tests := []struct {
		key   string
		order []string
		ranks []int
	}{
		{"mSn", []string{"Brown", "Allison", "Chan"}, []int{1, 2, 0}},
		{"mCJ", []string{"Allison", "Brown", "Chan"}, []int{1, 2, 0}},
		{"mTot", []string{"Allison", "Brown", "Chan"}, []int{1, 2, 0}},
		{"wTot", []string{"Diaz", "Evans"}, []int{1, 2}},
		{"wSn", []string{"Diaz", "Evans"}, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			list := rs.Athletes(tt.key)
			require.Len(t, list, len(tt.order))
			assert.Equal(t, tt.order, names(list))
			for i, ra := range list {
				assert.Equal(t, tt.ranks[i], ra.Rank, ra.Athlete.LastName)
			}
		})
	}

	tot := rs.Athletes("mTot")
	assert.Equal(t, 245.0, tot[0].Score)
	assert.Equal(t, 28, tot[0].Points)
	assert.Equal(t, 25, tot[1].Points)
}

func TestTopViewsExcludeUnranked(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{ReferenceYear: 2026}, nil, nil, 0, nil)

	rs, err := ag.Compute(competitionAthletes(t))
	require.NoError(t, err)

	assert.Len(t, rs.Athletes("mSinclair"), 3, "full view keeps every athlete")
	top := rs.Athletes("mTopSinclair")
	assert.Equal(t, []string{"Allison", "Brown"}, names(top))
	assert.NotContains(t, names(rs.Athletes("mTopRobi")), "Chan")
	assert.Len(t, rs.Athletes("wTopRobi"), 2)
}

func TestTop(t *testing.T) {
	list := []RankedAthlete{
		{Rank: 1, Score: 300},
		{Rank: 2, Score: 250},
		{Rank: 0, Score: 0},
		{Rank: 3, Score: 200},
	}

	assert.Len(t, Top(list, 2), 2)
	assert.Len(t, Top(list, 10), 3)
	assert.Empty(t, Top(nil, 5))
}

func TestTeamResults(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{ReferenceYear: 2026}, nil, nil, 0, nil)

	rs, err := ag.Compute(competitionAthletes(t))
	require.NoError(t, err)

	men := rs.Teams("mTeam")
	require.Len(t, men, 2)
	assert.Equal(t, sorter.TeamScore{Team: "North", Gender: models.GenderMale, Points: 28, Size: 1}, men[0])
	assert.Equal(t, "South", men[1].Team)
	assert.Equal(t, 2, men[1].Size, "unranked members still count as team members")

	mixed := rs.Teams("mwTeam")
	require.Len(t, mixed, 2)
	assert.Equal(t, "North", mixed[0].Team)
	assert.Equal(t, 56, mixed[0].Points)
	assert.Empty(t, mixed[0].Gender)

	combined := rs.Teams("mCombined")
	require.Len(t, combined, 2)
	assert.Equal(t, 25+28+28, combined[0].Points, "North: second in snatch, first in clean&jerk and total")
}

func TestComputeIsIdempotent(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{ReferenceYear: 2026}, nil, nil, 0, nil)
	athletes := competitionAthletes(t)

	first, err := ag.Compute(athletes)
	require.NoError(t, err)
	second, err := ag.Compute(athletes)
	require.NoError(t, err)

	for _, key := range []string{"mSn", "mTot", "wSinclair", "mTopRobi"} {
		a, b := first.Athletes(key), second.Athletes(key)
		require.Len(t, b, len(a))
		for i := range a {
			assert.Equal(t, a[i].Athlete.ID, b[i].Athlete.ID)
			assert.Equal(t, a[i].Rank, b[i].Rank)
		}
	}
}

func TestComputeLeavesAthletesUntouched(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{ReferenceYear: 2026}, nil, nil, 0, nil)
	athletes := competitionAthletes(t)
	ids := make([]uuid.UUID, len(athletes))
	for i, a := range athletes {
		ids[i] = a.ID
	}

	_, err := ag.Compute(athletes)
	require.NoError(t, err)

	for i, a := range athletes {
		assert.Equal(t, ids[i], a.ID)
	}
}

func TestComputeEmpty(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{}, nil, nil, 0, nil)

	for _, in := range [][]*models.Athlete{nil, {}} {
		rs, err := ag.Compute(in)
		require.NoError(t, err)
		assert.Zero(t, rs.Count("nbAthletes"))
		assert.Empty(t, rs.Athletes("mTot"))
		assert.Empty(t, rs.Teams("mwTeam"))
		assert.Empty(t, rs.Clubs("clubs"))
	}
}

func TestComputeSkipsAthletesNotWeighedIn(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{}, nil, nil, 0, nil)
	athletes := competitionAthletes(t)
	athletes[2].BodyWeight = 0

	rs, err := ag.Compute(athletes)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Count("nbMen"))
}

func TestComputeRejectsMissingGender(t *testing.T) {
	ag := NewAggregator(models.RankingSettings{}, nil, nil, 0, nil)
	athletes := competitionAthletes(t)
	athletes[0].Gender = "X"

	_, err := ag.Compute(athletes)
	assert.ErrorIs(t, err, models.ErrInvalidGender)
}

func TestResultsUsesCache(t *testing.T) {
	src := &staticSource{athletes: competitionAthletes(t)}
	rc := NewRankingCache(time.Hour)
	ag := NewAggregator(models.RankingSettings{}, src, rc, 3, nil)
	ctx := context.Background()

	var notified []ResultSet
	ag.AddListener(func(rs ResultSet) { notified = append(notified, rs) })

	first, err := ag.Results(ctx)
	require.NoError(t, err)
	second, err := ag.Results(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Len(t, notified, 1)
	assert.Equal(t, first.Count("nbAthletes"), second.Count("nbAthletes"))
	hits, misses, ratio := rc.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 0.5, ratio, 1e-9)

	ag.Invalidate()
	_, err = ag.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Len(t, notified, 2)
}

func TestRefreshErrors(t *testing.T) {
	_, err := NewAggregator(models.RankingSettings{}, nil, nil, 0, nil).Refresh(context.Background())
	assert.Error(t, err)

	src := &staticSource{err: errors.New("connection refused")}
	_, err = NewAggregator(models.RankingSettings{}, src, NewRankingCache(0), 0, nil).Refresh(context.Background())
	assert.ErrorContains(t, err, "failed to load athletes")
}

func TestRankingCache(t *testing.T) {
	rc := NewRankingCache(0)

	_, ok := rc.Get(GlobalScope)
	assert.False(t, ok)

	rc.Set(GlobalScope, ResultSet{"nbMen": 3})
	rc.Set("A", ResultSet{"nbMen": 1})
	assert.Equal(t, 2, rc.ItemCount())

	rs, ok := rc.Get(GlobalScope)
	require.True(t, ok)
	assert.Equal(t, 3, rs.Count("nbMen"))

	rc.Invalidate("A")
	assert.Equal(t, 1, rc.ItemCount())

	rc.Clear()
	assert.Zero(t, rc.ItemCount())
	hits, misses, _ := rc.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
