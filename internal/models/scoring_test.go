package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liftAll(t *testing.T, a *Athlete, results ...int) {
	t.Helper()
	for i, r := range results {
		require.NoError(t, a.RecordLift(i+1, r, uint64(i+1)))
	}
}

func TestSinclairFactor(t *testing.T) {
	assert.Equal(t, 1.0, SinclairFactor(GenderMale, 200))
	assert.Equal(t, 0.0, SinclairFactor(GenderMale, 0))
	assert.Equal(t, 0.0, SinclairFactor(Gender("X"), 80))

	light := SinclairFactor(GenderMale, 61)
	heavy := SinclairFactor(GenderMale, 109)
	assert.Greater(t, light, heavy, "lighter athletes get a larger factor")
	assert.Greater(t, heavy, 1.0)
}

func TestSinclairAboveCoefficientB(t *testing.T) {
	a := &Athlete{Gender: GenderMale, BodyWeight: 200}
	liftAll(t, a, 150, 0, 0, 200, 0, 0)
	assert.Equal(t, 350.0, a.Sinclair())
}

func TestCategorySinclairUsesCategoryLimit(t *testing.T) {
	cat := &Category{Code: "M81", Gender: GenderMale, MaximumWeight: 81, MinimumWeight: 73}
	light := &Athlete{Gender: GenderMale, BodyWeight: 74, Category: cat}
	heavy := &Athlete{Gender: GenderMale, BodyWeight: 80.9, Category: cat}
	liftAll(t, light, 100, 0, 0, 130, 0, 0)
	liftAll(t, heavy, 100, 0, 0, 130, 0, 0)

	assert.Equal(t, light.CategorySinclair(false), heavy.CategorySinclair(false))
	assert.Greater(t, light.Sinclair(), heavy.Sinclair())
}

func TestRobiAtWorldRecord(t *testing.T) {
	cat := &Category{Code: "M73", Gender: GenderMale, MaximumWeight: 73, WorldRecord: 364}
	a := &Athlete{Gender: GenderMale, BodyWeight: 73, Category: cat}
	liftAll(t, a, 164, 0, 0, 200, 0, 0)

	assert.InDelta(t, 1000.0, a.Robi(false), 0.01)
}

func TestRobiWithoutWorldRecord(t *testing.T) {
	a := &Athlete{Gender: GenderMale, BodyWeight: 73, Category: &Category{Code: "M73"}}
	liftAll(t, a, 100, 0, 0, 120, 0, 0)
	assert.Equal(t, 0.0, a.Robi(false))

	var nilCategory *Category
	assert.Equal(t, 0.0, nilCategory.RobiA())
}

func TestSMM(t *testing.T) {
	a := &Athlete{Gender: GenderMale, BodyWeight: 200, YearOfBirth: 1974}
	liftAll(t, a, 100, 0, 0, 100, 0, 0)

	assert.Equal(t, 200.0, a.Sinclair())
	assert.InDelta(t, 200*MastersAgeFactor(50), a.SMM(2024), 0.001)
	assert.Equal(t, 1.0, MastersAgeFactor(25))
	assert.Equal(t, MastersAgeFactor(80), MastersAgeFactor(95))
}

func TestRoundPoints(t *testing.T) {
	assert.Equal(t, 123.457, RoundPoints(123.4567))
	assert.Equal(t, 0.0, RoundPoints(0))
}

func TestCustomScoreOrTotal(t *testing.T) {
	a := &Athlete{Gender: GenderMale}
	liftAll(t, a, 100, 0, 0, 120, 0, 0)
	assert.Equal(t, 220.0, a.CustomScoreOrTotal())
	a.CustomScore = 12.5
	assert.Equal(t, 12.5, a.CustomScoreOrTotal())
}
