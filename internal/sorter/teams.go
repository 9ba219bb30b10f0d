package sorter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/fop-engine/internal/models"
)

// TeamScore is the sum of team points earned by a team's members.
// Gender is empty for mixed teams.
type TeamScore struct {
	Team   string        `json:"team"`
	Gender models.Gender `json:"gender,omitempty"`
	Points int           `json:"points"`
	Size   int           `json:"size"`
}

// AthleteTeamPoints computes team points per athlete. COMBINED adds the
// snatch, clean&jerk and total points.
func AthleteTeamPoints(athletes []*models.Athlete, r models.Ranking, s models.RankingSettings) (map[uuid.UUID]int, error) {
	rankings := []models.Ranking{r}
	if r == models.RankingCombined {
		rankings = []models.Ranking{models.RankingSnatch, models.RankingCleanJerk, models.RankingTotal}
	}
	out := make(map[uuid.UUID]int, len(athletes))
	for _, rk := range rankings {
		ordered, err := ResultsOrderCopy(athletes, rk, s)
		if err != nil {
			return nil, err
		}
		placements, err := AssignCategoryRanks(ordered, rk, s)
		if err != nil {
			return nil, err
		}
		for id, p := range placements {
			out[id] += p.Points
		}
	}
	return out, nil
}

// TeamScores totals team points per team, best team first. Athletes without
// a team or excluded from team scoring do not count.
func TeamScores(athletes []*models.Athlete, r models.Ranking, s models.RankingSettings) ([]TeamScore, error) {
	points, err := AthleteTeamPoints(athletes, r, s)
	if err != nil {
		return nil, err
	}
	gender := commonGender(athletes)
	byTeam := make(map[string]*TeamScore)
	for _, a := range athletes {
		if a.Team == "" || a.ExcludeFromTeam {
			continue
		}
		ts, ok := byTeam[a.Team]
		if !ok {
			ts = &TeamScore{Team: a.Team, Gender: gender}
			byTeam[a.Team] = ts
		}
		ts.Points += points[a.ID]
		ts.Size++
	}

	out := make([]TeamScore, 0, len(byTeam))
	for _, ts := range byTeam {
		out = append(out, *ts)
	}
	slices.SortFunc(out, func(a, b TeamScore) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return strings.Compare(a.Team, b.Team)
	})
	return out, nil
}

func commonGender(athletes []*models.Athlete) models.Gender {
	var g models.Gender
	for i, a := range athletes {
		if i == 0 {
			g = a.Gender
		} else if a.Gender != g {
			return ""
		}
	}
	return g
}
