package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAthlete(lot int, last string) *Athlete {
	return &Athlete{
		LotNumber:  lot,
		LastName:   last,
		FirstName:  "Test",
		Gender:     GenderMale,
		BodyWeight: 80,
	}
}

func TestAutomaticProgression(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	require.NoError(t, a.SetDeclaration(1, 60))
	assert.Equal(t, 60, a.NextAttemptRequestedWeight())

	result, err := a.RecordDecision(true, 1)
	require.NoError(t, err)
	assert.Equal(t, 60, result)
	assert.Equal(t, 61, a.NextAttemptRequestedWeight(), "good lift adds one kilogram")

	result, err = a.RecordDecision(false, 2)
	require.NoError(t, err)
	assert.Equal(t, -61, result)
	assert.Equal(t, 61, a.NextAttemptRequestedWeight(), "failed lift keeps the weight")

	_, err = a.RecordDecision(true, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, a.AttemptsDone())
	assert.Equal(t, 0, a.NextAttemptRequestedWeight(), "first clean&jerk has no progression")

	require.NoError(t, a.SetDeclaration(4, 80))
	assert.Equal(t, 80, a.NextAttemptRequestedWeight())
}

func TestRequestPrecedence(t *testing.T) {
	a := newTestAthlete(1, "Flanders")
	require.NoError(t, a.SetDeclaration(1, 60))
	require.NoError(t, a.SetChange1(1, 62))
	assert.Equal(t, 62, a.RequestedWeight(1))
	require.NoError(t, a.SetChange2(1, 64))
	assert.Equal(t, 64, a.RequestedWeight(1))

	// Clearing change2 falls back to change1.
	require.NoError(t, a.SetChange2(1, 0))
	assert.Equal(t, 62, a.RequestedWeight(1))
}

func TestChangeAfterAttemptDoneIsRejected(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	require.NoError(t, a.SetDeclaration(1, 60))
	_, err := a.RecordDecision(true, 1)
	require.NoError(t, err)

	err = a.SetChange1(1, 70)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAttemptAlreadyDone))
	assert.Equal(t, 0, a.Attempts[0].Change1)
	assert.Equal(t, 60, a.RequestedWeight(1))
}

func TestRecordLiftOrder(t *testing.T) {
	a := newTestAthlete(1, "Simpson")

	err := a.RecordLift(2, 60, 1)
	assert.ErrorIs(t, err, ErrAttemptOutOfOrder)

	err = a.RecordLift(7, 60, 1)
	assert.ErrorIs(t, err, ErrInvalidAttempt)

	require.NoError(t, a.RecordLift(1, 60, 1))
	assert.ErrorIs(t, a.RecordLift(1, 60, 2), ErrAttemptAlreadyDone)
}

func TestRecordDecisionWithoutRequest(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	_, err := a.RecordDecision(true, 1)
	assert.ErrorIs(t, err, ErrInvalidWeight)
	assert.Equal(t, 0, a.AttemptsDone())
}

func TestBestLiftsAndTotal(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	results := []int{60, -62, 62, -80, 80, 85}
	for i, r := range results {
		require.NoError(t, a.RecordLift(i+1, r, uint64(i+1)))
	}

	assert.Equal(t, 62, a.BestSnatch())
	assert.Equal(t, 3, a.BestSnatchAttemptNumber())
	assert.Equal(t, 85, a.BestCleanJerk())
	assert.Equal(t, 3, a.BestCleanJerkAttemptNumber())
	assert.Equal(t, 147, a.Total())
	assert.True(t, a.IsFinished())
	assert.Equal(t, uint64(6), a.PreviousLiftSequence())
	assert.Equal(t, 62, a.AttemptWeight(2))
}

func TestTotalIsZeroWithoutCleanJerk(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	for i, r := range []int{60, 61, 62, -80, -80, -80} {
		require.NoError(t, a.RecordLift(i+1, r, uint64(i+1)))
	}
	assert.Equal(t, 62, a.BestSnatch())
	assert.Equal(t, 0, a.Total())
	assert.Equal(t, 0.0, a.Sinclair())
}

func TestPassedAttemptCountsAsDone(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	require.NoError(t, a.SetDeclaration(1, 60))
	require.NoError(t, a.RecordLift(1, 0, 1))
	assert.Equal(t, 1, a.AttemptsDone())
	assert.Equal(t, 60, a.NextAttemptRequestedWeight())
}

func TestReverseLift(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	require.NoError(t, a.RecordLift(1, 60, 1))

	require.NoError(t, a.ReverseLift(1, false))
	assert.Equal(t, -60, a.Attempts[0].Result)
	assert.Equal(t, 0, a.BestSnatch())

	require.NoError(t, a.ReverseLift(1, true))
	assert.Equal(t, 60, a.BestSnatch())

	assert.ErrorIs(t, a.ReverseLift(2, true), ErrNoLiftToReverse)
}

func TestSetResult(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	require.NoError(t, a.RecordLift(1, -60, 1))

	old, err := a.SetResult(1, 61)
	require.NoError(t, err)
	assert.Equal(t, -60, old)
	assert.Equal(t, 61, a.BestSnatch())

	_, err = a.SetResult(2, 62)
	assert.ErrorIs(t, err, ErrNoLiftToReverse)
	_, err = a.SetResult(7, 62)
	assert.ErrorIs(t, err, ErrInvalidAttempt)
}

func TestCheck20kgRule(t *testing.T) {
	tests := []struct {
		name       string
		entryTotal int
		snatch     int
		cleanJerk  int
		wantErr    bool
	}{
		{name: "no entry total", entryTotal: 0, snatch: 50, cleanJerk: 60},
		{name: "exactly twenty below", entryTotal: 200, snatch: 80, cleanJerk: 100},
		{name: "too low", entryTotal: 200, snatch: 80, cleanJerk: 95, wantErr: true},
		{name: "clean&jerk not declared", entryTotal: 200, snatch: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAthlete(1, "Simpson")
			a.EntryTotal = tt.entryTotal
			require.NoError(t, a.SetDeclaration(1, tt.snatch))
			require.NoError(t, a.SetDeclaration(4, tt.cleanJerk))
			err := a.Check20kgRule()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTwentyKiloRule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShortDump(t *testing.T) {
	a := &Athlete{LotNumber: 3, LastName: "Simpson", FirstName: "Homer", Gender: GenderMale}
	require.NoError(t, a.SetDeclaration(1, 60))
	_, err := a.RecordDecision(true, 1)
	require.NoError(t, err)

	assert.Equal(t, "3 SIMPSON, Homer 61 1 60/_/_ _/_/_", a.ShortDump())
}

func TestCloneIsIndependent(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	require.NoError(t, a.SetDeclaration(1, 60))
	c := a.Clone()
	require.NoError(t, c.SetDeclaration(1, 70))

	assert.Equal(t, 60, a.RequestedWeight(1))
	assert.Equal(t, 70, c.RequestedWeight(1))
}

func TestSameAthlete(t *testing.T) {
	a := newTestAthlete(4, "Simpson")
	b := newTestAthlete(4, "Simpson")
	assert.True(t, SameAthlete(a, b), "value equality on lot number")
	assert.False(t, SameAthlete(a, newTestAthlete(5, "Simpson")))
	assert.False(t, SameAthlete(a, nil))
	assert.True(t, SameAthlete(nil, nil))
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender(" m ")
	require.NoError(t, err)
	assert.Equal(t, GenderMale, g)

	g, err = ParseGender("F")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)

	_, err = ParseGender("X")
	assert.ErrorIs(t, err, ErrInvalidGender)
	_, err = ParseGender("")
	assert.ErrorIs(t, err, ErrInvalidGender)
}

func TestAgeGroup(t *testing.T) {
	a := newTestAthlete(1, "Simpson")
	a.YearOfBirth = 1982
	assert.Equal(t, 42, a.Age(2024))
	assert.Equal(t, 40, a.AgeGroup(2024))

	a.YearOfBirth = 0
	assert.Equal(t, 0, a.AgeGroup(2024))
}

func TestCompareCategories(t *testing.T) {
	m73 := &Category{Code: "M73", Gender: GenderMale, AgeDivision: AgeDivisionSenior, MaximumWeight: 73}
	m81 := &Category{Code: "M81", Gender: GenderMale, AgeDivision: AgeDivisionSenior, MaximumWeight: 81}
	f59 := &Category{Code: "F59", Gender: GenderFemale, AgeDivision: AgeDivisionSenior, MaximumWeight: 59}
	jm73 := &Category{Code: "JM73", Gender: GenderMale, AgeDivision: AgeDivisionJunior, MaximumWeight: 73}

	assert.Negative(t, CompareCategories(m73, m81))
	assert.Negative(t, CompareCategories(f59, m73))
	assert.Negative(t, CompareCategories(m81, jm73))
	assert.Negative(t, CompareCategories(nil, f59))
	assert.Zero(t, CompareCategories(m73, m73))
	assert.True(t, SameCategory(nil, nil))
	assert.False(t, SameCategory(m73, nil))
}

func TestCompareSessionTime(t *testing.T) {
	early := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	late := early.Add(2 * time.Hour)
	a := &Group{Name: "A", CompetitionTime: &early}
	b := &Group{Name: "B", CompetitionTime: &late}
	noTime := &Group{Name: "C"}

	assert.Negative(t, CompareSessionTime(a, b))
	assert.Positive(t, CompareSessionTime(b, a))
	assert.Negative(t, CompareSessionTime(nil, a))
	assert.Negative(t, CompareSessionTime(noTime, a))
	assert.Zero(t, CompareSessionTime(nil, noTime))
}

func TestLiftSequence(t *testing.T) {
	var s LiftSequence
	assert.Equal(t, uint64(1), s.Next())
	assert.Equal(t, uint64(2), s.Next())

	s.AdvanceTo(10)
	assert.Equal(t, uint64(11), s.Next())

	s.AdvanceTo(5)
	assert.Equal(t, uint64(11), s.Current())
}

func TestIsIndefiniteBreak(t *testing.T) {
	assert.True(t, IsIndefiniteBreak(BreakJury, CountdownDuration))
	assert.True(t, IsIndefiniteBreak(BreakTechnical, CountdownDuration))
	assert.True(t, IsIndefiniteBreak(BreakGroupDone, CountdownTargetTime))
	assert.True(t, IsIndefiniteBreak(BreakFirstSnatch, CountdownIndefinite))
	assert.False(t, IsIndefiniteBreak(BreakFirstSnatch, CountdownDuration))
}
