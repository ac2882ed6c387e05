package estimator

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	kcalRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(ккал|калори\p{L}*|kcal|kkal|kalorij\p{L}*|calories|calorie|cals|cal|кк)`)

	// densityTailRe follows a calorie mention that is given per 100 g/ml.
	densityTailRe = regexp.MustCompile(`^\s*(?:/|на|по|в|per|in|na|za)?\s*100\s*(?:грамм\p{L}*|гр|г|мл|grams?|gr|g|ml)`)

	weightRe = regexp.MustCompile(`(\d+/\d+|\d+(?:[.,]\d+)?)\s*(килограмм\p{L}*|kilograms?|грамм\p{L}*|grams?|кг|kg|гр|gr|г|g|миллилитр\p{L}*|мл|ml|литр\p{L}*|liters?|litres?|л|l)`)

	fractionRe = regexp.MustCompile(`\d+/\d+`)
)

// unitScale converts a weight/volume unit to grams. Volumes count as
// gram-equivalents.
var unitScale = map[string]float64{
	"кг": 1000, "kg": 1000, "kilogram": 1000, "kilograms": 1000,
	"л": 1000, "l": 1000, "liter": 1000, "liters": 1000, "litre": 1000, "litres": 1000,
}

func scaleFor(unit string) float64 {
	if s, ok := unitScale[unit]; ok {
		return s
	}
	switch {
	case strings.HasPrefix(unit, "килограмм"), strings.HasPrefix(unit, "литр"):
		return 1000
	}
	return 1
}

type span struct{ start, end int }

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

type quantity struct {
	value float64
	span  span
}

// signals are the deterministic facts found in a lower-cased meal text.
type signals struct {
	kcal         []quantity
	density      *quantity
	weights      []quantity
	bareFraction bool
}

func scan(lower string) signals {
	var s signals

	for _, m := range kcalRe.FindAllStringSubmatchIndex(lower, -1) {
		if !wordEnds(lower, m[5]) {
			continue
		}
		v, ok := parseAmount(lower[m[2]:m[3]])
		if !ok {
			continue
		}
		if tail := densityTailRe.FindStringIndex(lower[m[5]:]); tail != nil && wordEnds(lower, m[5]+tail[1]) {
			if s.density == nil {
				s.density = &quantity{value: v, span: span{m[0], m[5] + tail[1]}}
			}
			continue
		}
		s.kcal = append(s.kcal, quantity{value: v, span: span{m[0], m[1]}})
	}

	var unitSpans []span
	for _, m := range weightRe.FindAllStringSubmatchIndex(lower, -1) {
		if !wordEnds(lower, m[5]) {
			continue
		}
		q := quantity{span: span{m[0], m[5]}}
		unitSpans = append(unitSpans, q.span)
		if s.density != nil && q.span.overlaps(s.density.span) {
			continue
		}
		v, ok := parseAmount(lower[m[2]:m[3]])
		if !ok || v <= 0 {
			continue
		}
		q.value = v * scaleFor(lower[m[4]:m[5]])
		s.weights = append(s.weights, q)
	}

	for _, m := range fractionRe.FindAllStringIndex(lower, -1) {
		covered := false
		for _, u := range unitSpans {
			if u.overlaps(span{m[0], m[1]}) {
				covered = true
				break
			}
		}
		if !covered {
			s.bareFraction = true
		}
	}
	return s
}

// wordEnds reports whether the unit ending at i is not followed by a letter.
func wordEnds(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r)
}

func parseAmount(s string) (float64, bool) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// foodName strips quantities and punctuation from the text, leaving the name
// of the food.
func foodName(lower string, drop ...span) string {
	b := []byte(lower)
	for _, d := range drop {
		for i := d.start; i < d.end && i < len(b); i++ {
			b[i] = ' '
		}
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) || r == '-' {
			return r
		}
		return ' '
	}, string(b))
	return strings.Join(strings.Fields(cleaned), " ")
}
