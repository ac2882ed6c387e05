package estimator

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// payloadStrategy pulls a JSON candidate out of a model response.
type payloadStrategy func(text string) (string, bool)

// payloadStrategies are tried in order; the first candidate that decodes wins.
var payloadStrategies = []payloadStrategy{
	plainPayload,
	fencedPayload,
	balancedPayload,
}

func decodeFirst(text string, v any) bool {
	for _, strategy := range payloadStrategies {
		payload, ok := strategy(text)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(payload), v); err == nil {
			return true
		}
	}
	return false
}

func plainPayload(text string) (string, bool) {
	t := strings.TrimSpace(text)
	return t, strings.HasPrefix(t, "{")
}

func fencedPayload(text string) (string, bool) {
	for _, fence := range []string{"```json", "```JSON", "```"} {
		idx := strings.Index(text, fence)
		if idx == -1 {
			continue
		}
		rest := text[idx+len(fence):]
		end := strings.Index(rest, "```")
		if end == -1 {
			continue
		}
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}

// balancedPayload returns the first balanced {...} block, honouring strings
// and escapes.
func balancedPayload(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// flexNumber accepts numbers that models sometimes emit as strings, e.g.
// "450" or "450 kcal".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		m := leadingNumberRe.FindString(s)
		if m == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
		if err != nil {
			return err
		}
		*n = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

var leadingNumberRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// firstNumber is the last-resort reading of a free-text answer.
func firstNumber(text string) (float64, bool) {
	m := leadingNumberRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	return v, err == nil
}

type analysisItem struct {
	Name string     `json:"name"`
	Kcal flexNumber `json:"kcal"`
}

type analysis struct {
	Items     []analysisItem `json:"items"`
	TotalKcal flexNumber     `json:"total_kcal"`
	Comment   string         `json:"comment"`
	ProteinG  flexNumber     `json:"protein_g"`
	FatG      flexNumber     `json:"fat_g"`
	CarbsG    flexNumber     `json:"carbs_g"`
}

// analysisParser reads a full-analysis response in one output contract.
type analysisParser func(text string) (*analysis, bool)

var analysisParsers = []analysisParser{
	jsonAnalysis,
	sentinelAnalysis,
}

func parseAnalysis(text string) (*analysis, bool) {
	for _, parse := range analysisParsers {
		if a, ok := parse(text); ok {
			return a, true
		}
	}
	return nil, false
}

func jsonAnalysis(text string) (*analysis, bool) {
	var a analysis
	if !decodeFirst(text, &a) {
		return nil, false
	}
	if a.TotalKcal == 0 && len(a.Items) == 0 {
		return nil, false
	}
	return &a, true
}

var (
	sentinelRe = regexp.MustCompile(`(?mi)^\s*\**\s*TOTAL_KCAL\s*\**\s*:\s*\**\s*(-?\d+(?:[.,]\d+)?)`)
	itemLineRe = regexp.MustCompile(`(?m)^\s*(?:[-•*]|\d+[.)])\s*(.+?)\s*[—–:=-]+\s*~?\s*(\d+(?:[.,]\d+)?)\s*(?:ккал|kcal|cal|кал)?\.?\s*$`)
)

func sentinelAnalysis(text string) (*analysis, bool) {
	var a analysis
	found := false
	if m := sentinelRe.FindStringSubmatch(text); m != nil {
		if v, ok := firstNumber(m[1]); ok {
			a.TotalKcal = flexNumber(v)
			found = true
		}
	}
	for _, m := range itemLineRe.FindAllStringSubmatch(text, -1) {
		if strings.Contains(strings.ToUpper(m[1]), "TOTAL_KCAL") {
			continue
		}
		v, ok := firstNumber(m[2])
		if !ok {
			continue
		}
		a.Items = append(a.Items, analysisItem{Name: strings.TrimSpace(m[1]), Kcal: flexNumber(v)})
		found = true
	}
	return &a, found
}

type per100 struct {
	Kcal    flexNumber `json:"kcal_per_100g"`
	Protein flexNumber `json:"protein_per_100g"`
	Fat     flexNumber `json:"fat_per_100g"`
	Carbs   flexNumber `json:"carbs_per_100g"`
}

func parsePer100(text string) (per100, bool) {
	var p per100
	if decodeFirst(text, &p) {
		return p, true
	}
	if v, ok := per100FromProse(text); ok {
		return per100{Kcal: flexNumber(v)}, true
	}
	return per100{}, false
}

// per100FromProse takes the number tied to a calorie unit, so the "100 g"
// reference in the answer is never read as the value. A reply that is only a
// number is accepted as is.
func per100FromProse(text string) (float64, bool) {
	lower := strings.ToLower(text)
	for _, m := range kcalRe.FindAllStringSubmatchIndex(lower, -1) {
		if !wordEnds(lower, m[5]) {
			continue
		}
		if v, ok := parseAmount(lower[m[2]:m[3]]); ok {
			return v, true
		}
	}

	bare := strings.TrimRight(strings.TrimSpace(text), ".")
	v, err := strconv.ParseFloat(strings.Replace(bare, ",", ".", 1), 64)
	return v, err == nil
}
