package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// sinclairCoefficients are the A and b values of the current Sinclair cycle.
type sinclairCoefficients struct {
	a float64
	b float64
}

var sinclairByGender = map[Gender]sinclairCoefficients{
	GenderMale:   {a: 0.722762521, b: 193.609},
	GenderFemale: {a: 0.787004341, b: 153.757},
}

// mastersAgeFactors are the age coefficients applied on top of Sinclair,
// starting at age 30. Older ages use the last value.
var mastersAgeFactors = []float64{
	1.000, 1.016, 1.031, 1.046, 1.059, 1.072, 1.083, 1.096, 1.109, 1.122, // 30-39
	1.135, 1.149, 1.162, 1.176, 1.189, 1.203, 1.218, 1.233, 1.248, 1.263, // 40-49
	1.279, 1.297, 1.316, 1.338, 1.361, 1.385, 1.411, 1.437, 1.462, 1.488, // 50-59
	1.514, 1.541, 1.568, 1.598, 1.629, 1.663, 1.699, 1.738, 1.779, 1.823, // 60-69
	1.867, 1.910, 1.953, 2.004, 2.060, 2.117, 2.181, 2.255, 2.336, 2.419, // 70-79
	2.504,
}

const mastersFirstAge = 30

// SinclairFactor returns 10^(A * log10(bw/b)^2) below b and 1 at or above it.
func SinclairFactor(g Gender, bodyWeight float64) float64 {
	c, ok := sinclairByGender[g]
	if !ok || bodyWeight <= 0 {
		return 0
	}
	if bodyWeight >= c.b {
		return 1
	}
	x := math.Log10(bodyWeight / c.b)
	return math.Pow(10, c.a*x*x)
}

// MastersAgeFactor returns the SMM age multiplier; 1 below 30.
func MastersAgeFactor(age int) float64 {
	if age < mastersFirstAge {
		return 1
	}
	i := age - mastersFirstAge
	if i >= len(mastersAgeFactors) {
		i = len(mastersAgeFactors) - 1
	}
	return mastersAgeFactors[i]
}

// RoundPoints rounds a score to three decimals, as printed on protocols.
func RoundPoints(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}

func (a *Athlete) rawSinclair() float64 {
	return float64(a.Total()) * SinclairFactor(a.Gender, a.BodyWeight)
}

// Sinclair is the total scaled by the athlete's own body weight.
func (a *Athlete) Sinclair() float64 {
	return RoundPoints(a.rawSinclair())
}

// CategorySinclair is the total scaled at the category upper limit, or at the
// body weight for open-ended categories.
func (a *Athlete) CategorySinclair(useRegistration bool) float64 {
	w := a.BodyWeight
	if cat := a.EffectiveCategory(useRegistration); cat != nil && !cat.IsOpenEnded() && cat.MaximumWeight > 0 {
		w = cat.MaximumWeight
	}
	return RoundPoints(float64(a.Total()) * SinclairFactor(a.Gender, w))
}

// SMM is the Sinclair score with the masters age factor applied.
func (a *Athlete) SMM(referenceYear int) float64 {
	return RoundPoints(a.rawSinclair() * MastersAgeFactor(a.Age(referenceYear)))
}

// Robi is robiA * total^b for the athlete's category.
func (a *Athlete) Robi(useRegistration bool) float64 {
	robiA := a.EffectiveCategory(useRegistration).RobiA()
	total := a.Total()
	if robiA == 0 || total == 0 {
		return 0
	}
	return RoundPoints(robiA * math.Pow(float64(total), RobiB))
}

// CustomScoreOrTotal returns the custom score, or the total when none is set.
func (a *Athlete) CustomScoreOrTotal() float64 {
	if a.CustomScore > 0 {
		return a.CustomScore
	}
	return float64(a.Total())
}
