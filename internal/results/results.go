// Package results computes the competition-wide rankings that reports and
// scoreboards consume.
//
// A ResultSet is a named map: gender-prefixed ranked lists ("mSn", "wTot",
// "mSinclair" ...), team totals ("mTeam", "mwCombined" ...), club lists and
// athlete counts. Computing it never modifies athletes.
package results

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/metrics"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/sorter"
)

// DefaultTopN is the length of the top Sinclair and Robi views.
const DefaultTopN = 10

// RankedAthlete is an athlete snapshot with its placement in one ranking.
type RankedAthlete struct {
	Athlete *models.Athlete `json:"athlete"`
	Rank    int             `json:"rank"`
	Score   float64         `json:"score"`
	Points  int             `json:"points"`
}

// ResultSet maps report keys to ranked lists, team totals, club names or
// counts.
type ResultSet map[string]any

// Athletes returns a ranked list, nil if the key is missing.
func (rs ResultSet) Athletes(key string) []RankedAthlete {
	v, _ := rs[key].([]RankedAthlete)
	return v
}

// Teams returns team totals, nil if the key is missing.
func (rs ResultSet) Teams(key string) []sorter.TeamScore {
	v, _ := rs[key].([]sorter.TeamScore)
	return v
}

// Clubs returns a sorted club list.
func (rs ResultSet) Clubs(key string) []string {
	v, _ := rs[key].([]string)
	return v
}

// Count returns a counter such as "nbMen".
func (rs ResultSet) Count(key string) int {
	v, _ := rs[key].(int)
	return v
}

// Top returns the first n ranked athletes whose score is positive.
func Top(list []RankedAthlete, n int) []RankedAthlete {
	out := make([]RankedAthlete, 0, min(n, len(list)))
	for _, ra := range list {
		if len(out) >= n {
			break
		}
		if ra.Score <= 0 || ra.Rank == 0 {
			continue
		}
		out = append(out, ra)
	}
	return out
}

// AthleteSource lists every athlete of the competition.
type AthleteSource interface {
	FindAll(ctx context.Context) ([]*models.Athlete, error)
}

// Listener is told about every refreshed global result set.
type Listener func(ResultSet)

// Aggregator computes result sets and keeps the latest global one cached.
type Aggregator struct {
	settings models.RankingSettings
	source   AthleteSource
	cache    *RankingCache
	topN     int
	log      *logrus.Entry

	refreshMu sync.Mutex
	mu        sync.RWMutex
	listeners []Listener
}

// NewAggregator creates an aggregator. A nil cache disables caching.
func NewAggregator(settings models.RankingSettings, source AthleteSource, rc *RankingCache, topN int, log *logrus.Logger) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Aggregator{
		settings: settings,
		source:   source,
		cache:    rc,
		topN:     topN,
		log:      logger.OrDiscard(log).WithField("component", "rankings"),
	}
}

// AddListener registers a listener for refreshed global rankings.
func (ag *Aggregator) AddListener(l Listener) {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	ag.listeners = append(ag.listeners, l)
}

// Invalidate drops the cached global rankings, e.g. after a decision.
func (ag *Aggregator) Invalidate() {
	if ag.cache != nil {
		ag.cache.Invalidate(GlobalScope)
	}
}

// Results returns the cached global result set, computing it on a miss.
func (ag *Aggregator) Results(ctx context.Context) (ResultSet, error) {
	if ag.cache != nil {
		if rs, ok := ag.cache.Get(GlobalScope); ok {
			return rs, nil
		}
	}
	return ag.Refresh(ctx)
}

// Refresh recomputes the global result set from the athlete source, caches
// it and notifies listeners.
func (ag *Aggregator) Refresh(ctx context.Context) (ResultSet, error) {
	ag.refreshMu.Lock()
	defer ag.refreshMu.Unlock()

	if ag.source == nil {
		return nil, fmt.Errorf("no athlete source configured")
	}
	athletes, err := ag.source.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load athletes: %w", err)
	}

	start := time.Now()
	rs, err := ag.Compute(athletes)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.RecordRankingRefresh(rs.Count("nbAthletes"), elapsed.Seconds())
	ag.log.WithFields(logrus.Fields{
		"athletes":    rs.Count("nbAthletes"),
		"duration_ms": elapsed.Milliseconds(),
	}).Debug("Global rankings refreshed")

	if ag.cache != nil {
		ag.cache.Set(GlobalScope, rs)
	}

	ag.mu.RLock()
	listeners := slices.Clone(ag.listeners)
	ag.mu.RUnlock()
	for _, l := range listeners {
		l(rs)
	}
	return rs, nil
}

// Compute builds a result set for the weighed-in athletes of the list. An
// empty list yields empty rankings. A missing gender is an error.
func (ag *Aggregator) Compute(athletes []*models.Athlete) (ResultSet, error) {
	weighed := make([]*models.Athlete, 0, len(athletes))
	for _, a := range athletes {
		if a.IsWeighedIn() {
			weighed = append(weighed, a.Clone())
		}
	}
	if err := sorter.ValidateGenders(weighed); err != nil {
		return nil, fmt.Errorf("failed to compute rankings: %w", err)
	}

	rs := ResultSet{}
	byGender := map[models.Gender][]*models.Athlete{}
	for _, a := range weighed {
		byGender[a.Gender] = append(byGender[a.Gender], a)
	}

	for _, g := range []models.Gender{models.GenderMale, models.GenderFemale} {
		if err := ag.computeGender(rs, g.Prefix(), byGender[g]); err != nil {
			return nil, err
		}
	}

	var err error
	if rs["mwTeam"], err = sorter.TeamScores(weighed, models.RankingTotal, ag.settings); err != nil {
		return nil, err
	}
	if rs["mwCombined"], err = sorter.TeamScores(weighed, models.RankingCombined, ag.settings); err != nil {
		return nil, err
	}

	clubs := clubNames(weighed)
	rs["clubs"] = clubs
	rs["nbClubs"] = len(clubs)
	rs["nbMen"] = len(byGender[models.GenderMale])
	rs["nbWomen"] = len(byGender[models.GenderFemale])
	rs["nbAthletes"] = len(weighed)
	return rs, nil
}

func (ag *Aggregator) computeGender(rs ResultSet, p string, athletes []*models.Athlete) error {
	categoryRanked := []struct {
		key string
		r   models.Ranking
	}{
		{"Sn", models.RankingSnatch},
		{"CJ", models.RankingCleanJerk},
		{"Tot", models.RankingTotal},
		{"Cus", models.RankingCustom},
	}
	for _, c := range categoryRanked {
		list, err := ag.rank(athletes, c.r, sorter.AssignCategoryRanks)
		if err != nil {
			return err
		}
		rs[p+c.key] = list
	}

	genderRanked := []struct {
		key string
		r   models.Ranking
	}{
		{"Sinclair", models.RankingSinclair},
		{"Robi", models.RankingRobi},
	}
	for _, c := range genderRanked {
		list, err := ag.rank(athletes, c.r, sorter.AssignSinclairRanksAndPoints)
		if err != nil {
			return err
		}
		rs[p+c.key] = list
		rs[p+"Top"+c.key] = Top(list, ag.topN)
	}

	teams := []struct {
		key string
		r   models.Ranking
	}{
		{"Team", models.RankingTotal},
		{"Custom", models.RankingCustom},
		{"Combined", models.RankingCombined},
	}
	for _, c := range teams {
		scores, err := sorter.TeamScores(athletes, c.r, ag.settings)
		if err != nil {
			return err
		}
		rs[p+c.key] = scores
	}

	rs[p+"Clubs"] = clubNames(athletes)
	return nil
}

type placer func([]*models.Athlete, models.Ranking, models.RankingSettings) (sorter.Placements, error)

func (ag *Aggregator) rank(athletes []*models.Athlete, r models.Ranking, place placer) ([]RankedAthlete, error) {
	sorted, err := sorter.ResultsOrderCopy(athletes, r, ag.settings)
	if err != nil {
		return nil, err
	}
	placements, err := place(sorted, r, ag.settings)
	if err != nil {
		return nil, err
	}
	out := make([]RankedAthlete, len(sorted))
	for i, a := range sorted {
		p := placements[a.ID]
		out[i] = RankedAthlete{Athlete: a, Rank: p.Rank, Score: p.Score, Points: p.Points}
	}
	return out, nil
}

func clubNames(athletes []*models.Athlete) []string {
	out := make([]string, 0)
	for _, a := range athletes {
		if a.Team != "" && !slices.Contains(out, a.Team) {
			out = append(out, a.Team)
		}
	}
	slices.Sort(out)
	return out
}
