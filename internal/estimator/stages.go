package estimator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"calorie-bot/internal/models"
)

var errModelDisabled = errors.New("remote model disabled for this request")

// direct sums explicit calorie mentions such as "300 ккал". They win over any
// weights in the same message.
func (e *Estimator) direct(_ context.Context, r *request) (*Estimate, error) {
	if len(r.signals.kcal) == 0 {
		return nil, errSkip
	}
	var total float64
	for _, q := range r.signals.kcal {
		total += q.value
	}
	return &Estimate{RawKcal: roundKcal(total)}, nil
}

// byWeight scales a per-100 g value by the single weight in the message. The
// per-100 g value comes from a density mention or from the model.
func (e *Estimator) byWeight(ctx context.Context, r *request) (*Estimate, error) {
	s := r.signals
	switch {
	case len(s.weights) == 0 && s.bareFraction:
		return nil, errors.New("fraction without a weight unit")
	case len(s.weights) != 1:
		return nil, errSkip
	}

	w := s.weights[0]
	drop := []span{w.span}
	if s.density != nil {
		drop = append(drop, s.density.span)
	}
	name := foodName(r.lower, drop...)

	var base per100
	usedModel := false
	switch {
	case s.density != nil:
		base.Kcal = flexNumber(s.density.value)
	case r.offline:
		return nil, errModelDisabled
	case name == "":
		return nil, errors.New("no food name next to the weight")
	default:
		p := promptsFor(r.locale)
		out, err := e.complete(ctx, p.per100System, fmt.Sprintf(p.per100User, name), true)
		if err != nil {
			return nil, err
		}
		var ok bool
		if base, ok = parsePer100(out); !ok {
			return nil, fmt.Errorf("unparseable per-100g answer %q", truncate(out, 80))
		}
		usedModel = true
	}
	if base.Kcal <= 0 {
		return nil, fmt.Errorf("non-positive per-100g estimate %.0f", float64(base.Kcal))
	}

	factor := w.value / 100
	kcal := float64(base.Kcal) * factor
	if name == "" {
		name = promptsFor(r.locale).fallbackItem
	}

	est := &Estimate{
		RawKcal:   roundKcal(kcal),
		Items:     []models.MealItem{{Name: name, Kcal: kcal}},
		UsedModel: usedModel,
	}
	if base.Protein > 0 || base.Fat > 0 || base.Carbs > 0 {
		est.Macros = &models.Macros{
			ProteinG: float64(base.Protein) * factor,
			FatG:     float64(base.Fat) * factor,
			CarbsG:   float64(base.Carbs) * factor,
		}
	}
	return est, nil
}

// analyze asks the model for an itemised estimate of the whole message.
func (e *Estimator) analyze(ctx context.Context, r *request) (*Estimate, error) {
	if r.offline {
		return nil, errModelDisabled
	}

	p := promptsFor(r.locale)
	system, user := p.analysisPrompts(e.opts.Format, r.text)
	out, err := e.complete(ctx, system, user, e.opts.Format == FormatJSON)
	if err != nil {
		return nil, err
	}

	a, ok := parseAnalysis(out)
	if !ok {
		return nil, fmt.Errorf("unparseable analysis %q", truncate(out, 80))
	}

	var items []models.MealItem
	var sum float64
	for _, it := range a.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" || it.Kcal < 0 {
			continue
		}
		items = append(items, models.MealItem{Name: name, Kcal: float64(it.Kcal)})
		sum += float64(it.Kcal)
	}

	total := float64(a.TotalKcal)
	if total <= 0 {
		total = sum
	}
	if err := e.checkBounds(total); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items = []models.MealItem{{Name: truncate(r.text, 60), Kcal: total}}
	}

	est := &Estimate{
		RawKcal:   roundKcal(total),
		Items:     items,
		Comment:   strings.TrimSpace(a.Comment),
		UsedModel: true,
	}
	if a.ProteinG > 0 || a.FatG > 0 || a.CarbsG > 0 {
		est.Macros = &models.Macros{
			ProteinG: float64(a.ProteinG),
			FatG:     float64(a.FatG),
			CarbsG:   float64(a.CarbsG),
		}
	}
	return est, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
