// internal/nutrition/target.go

// Package nutrition derives energy expenditure and the daily calorie budget
// from a profile.
package nutrition

import (
	"math"

	"calorie-bot/internal/models"
)

const (
	// DefaultTargetKcal is the budget used while the user has no profile.
	DefaultTargetKcal = 2000
	// DeficitFactor is the share of TDEE kept as the daily budget.
	DeficitFactor = 0.8
)

// BMR estimates the basal metabolic rate with Mifflin-St Jeor.
func BMR(p models.Profile) float64 {
	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.Age)
	if p.Sex == models.SexFemale {
		return bmr - 161
	}
	return bmr + 5
}

// TDEE scales the BMR by the activity multiplier.
func TDEE(p models.Profile) float64 {
	return BMR(p) * p.Activity.Factor()
}

// Target returns the daily calorie budget for p, or DefaultTargetKcal when p
// is nil.
func Target(p *models.Profile) int {
	if p == nil {
		return DefaultTargetKcal
	}
	return int(math.Round(TDEE(*p) * DeficitFactor))
}

// Breakdown bundles the derived values shown to the user after a profile
// update.
type Breakdown struct {
	BMR    float64
	TDEE   float64
	Target int
}

func Explain(p models.Profile) Breakdown {
	return Breakdown{
		BMR:    BMR(p),
		TDEE:   TDEE(p),
		Target: Target(&p),
	}
}
