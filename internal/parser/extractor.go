// Package parser turns loosely structured chat text into profiles and message
// classifications.
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"calorie-bot/internal/models"
)

// number matches integers and decimals with either separator. It takes the
// whole digit run so fieldBounds sees the real value.
const number = `(\d+(?:[.,]\d+)?)`

// gap allows separators and one short word (a unit or a filler such as "вес")
// between a keyword and its number.
const gap = `[\s:=\-–—()]*(?:\p{L}{1,6}\.?[\s:=\-–—()]*)?`

var (
	numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	activityLabels = []string{"активность", "activity", "aktivnost"}
)

// ProfileExtractor finds profile fields in free text. It is safe for
// concurrent use.
type ProfileExtractor struct {
	patterns map[profileField]*regexp.Regexp
}

func NewProfileExtractor() *ProfileExtractor {
	e := &ProfileExtractor{patterns: make(map[profileField]*regexp.Regexp, len(fieldKeywords))}
	for field, keywords := range fieldKeywords {
		e.patterns[field] = keywordPattern(keywords)
	}
	return e
}

func keywordPattern(keywords []string) *regexp.Regexp {
	sorted := append([]string(nil), keywords...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	quoted := make([]string, len(sorted))
	for i, kw := range sorted {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?:^|[^\p{L}])(?:` + strings.Join(quoted, "|") + `)\p{L}*` + gap + number)
}

// Extract returns a complete profile or an error wrapping
// models.ErrIncompleteProfile that names the missing fields.
func (e *ProfileExtractor) Extract(text string) (models.Profile, error) {
	work := strings.ToLower(text)

	values := make(map[profileField]float64, len(fieldOrder))
	var missing []string
	for _, field := range fieldOrder {
		v, rest, ok := e.take(field, work)
		if !ok {
			missing = append(missing, string(field))
			continue
		}
		values[field] = v
		work = rest
	}
	if len(missing) > 0 {
		return models.Profile{}, fmt.Errorf("%w: missing %s", models.ErrIncompleteProfile, strings.Join(missing, ", "))
	}

	lower := strings.ToLower(text)
	return models.Profile{
		Age:          int(values[fieldAge] + 0.5),
		HeightCM:     values[fieldHeight],
		WeightKG:     values[fieldWeight],
		GoalWeightKG: values[fieldGoal],
		Sex:          detectSex(lower),
		Activity:     detectActivity(lower),
	}, nil
}

// take finds the first plausible value for field and blanks out the matched
// span so later fields cannot reuse it.
func (e *ProfileExtractor) take(field profileField, text string) (float64, string, bool) {
	re := e.patterns[field]
	b := fieldBounds[field]

	offset := 0
	for offset < len(text) {
		loc := re.FindStringSubmatchIndex(text[offset:])
		if loc == nil {
			return 0, text, false
		}
		start, end := offset+loc[0], offset+loc[1]
		v, err := parseNumber(text[offset+loc[2] : offset+loc[3]])
		if err == nil && v >= b.min && v <= b.max {
			return v, blank(text, start, end), true
		}
		offset = end
	}
	return 0, text, false
}

// ExtractWeight reads the first plausible body weight from text, used by the
// weight-only update path.
func (e *ProfileExtractor) ExtractWeight(text string) (float64, error) {
	b := fieldBounds[fieldWeight]
	for _, m := range numberRe.FindAllString(text, -1) {
		v, err := parseNumber(m)
		if err == nil && v >= b.min && v <= b.max {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: missing weight", models.ErrIncompleteProfile)
}

func detectSex(lower string) models.Sex {
	tokens := words(lower)
	for _, t := range femaleTokens {
		if _, ok := tokens[t]; ok {
			return models.SexFemale
		}
	}
	return models.SexMale
}

// detectActivity prefers a level named on the activity line and otherwise
// takes the earliest level keyword anywhere in the text.
func detectActivity(lower string) models.ActivityLevel {
	for _, label := range activityLabels {
		if i := strings.Index(lower, label); i >= 0 {
			line := lower[i+len(label):]
			if nl := strings.IndexByte(line, '\n'); nl >= 0 {
				line = line[:nl]
			}
			if level, ok := earliestActivity(line); ok {
				return level
			}
		}
	}
	if level, ok := earliestActivity(lower); ok {
		return level
	}
	return models.ActivityMedium
}

func earliestActivity(s string) (models.ActivityLevel, bool) {
	best, bestIdx := models.ActivityMedium, -1
	for _, level := range []models.ActivityLevel{models.ActivityLow, models.ActivityMedium, models.ActivityHigh} {
		for _, kw := range activityKeywords[level] {
			if i := strings.Index(s, kw); i >= 0 && (bestIdx < 0 || i < bestIdx) {
				best, bestIdx = level, i
			}
		}
	}
	return best, bestIdx >= 0
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func blank(s string, start, end int) string {
	return s[:start] + strings.Repeat(" ", end-start) + s[end:]
}

// words splits lower-cased text into a set of letter runs.
func words(lower string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) }) {
		set[w] = struct{}{}
	}
	return set
}
