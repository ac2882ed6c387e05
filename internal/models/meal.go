// internal/models/meal.go
package models

import (
	"time"
)

type Macros struct {
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

type MealItem struct {
	Name string  `json:"name"`
	Kcal float64 `json:"kcal"`
}

// EstimateSource records which estimation stage priced a meal.
type EstimateSource string

const (
	SourceDirect   EstimateSource = "direct"
	SourceWeight   EstimateSource = "weight"
	SourceAnalysis EstimateSource = "analysis"
)

// MealRecord is immutable once inserted.
type MealRecord struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Day         string         `json:"day"`
	Seq         int            `json:"seq"`
	Description string         `json:"description"`
	Kcal        float64        `json:"kcal"`
	Macros      *Macros        `json:"macros,omitempty"`
	Items       []MealItem     `json:"items,omitempty"`
	Source      EstimateSource `json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Totals struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// Add returns the totals with one more meal counted.
func (t Totals) Add(kcal float64, macros *Macros) Totals {
	t.Kcal += kcal
	if macros != nil {
		t.ProteinG += macros.ProteinG
		t.FatG += macros.FatG
		t.CarbsG += macros.CarbsG
	}
	return t
}

// DailyLedger is the per-user, per-day row. Meals with Seq <= ResetAfterSeq
// were recorded before the last reset and are not part of Totals.
type DailyLedger struct {
	UserID         string       `json:"user_id"`
	Day            string       `json:"day"`
	Totals         Totals       `json:"totals"`
	ResetAfterSeq  int          `json:"reset_after_seq"`
	ModelEstimates int          `json:"model_estimates"`
	Meals          []MealRecord `json:"meals,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ActiveMeals returns the meals counted in the current totals.
func (l *DailyLedger) ActiveMeals() []MealRecord {
	var active []MealRecord
	for _, m := range l.Meals {
		if m.Seq > l.ResetAfterSeq {
			active = append(active, m)
		}
	}
	return active
}
