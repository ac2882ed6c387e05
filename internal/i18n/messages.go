// internal/i18n/messages.go

// Package i18n holds the reply templates for every supported locale.
package i18n

import (
	"fmt"
	"reflect"
	"strings"

	"calorie-bot/internal/models"
)

// LanguageMenu is shown before a locale is known, so it is multilingual.
const LanguageMenu = "Выберите язык / Choose your language / Izaberite jezik:\n" +
	"1 - Русский\n" +
	"2 - English\n" +
	"3 - Srpski"

// LanguageButtons are the selector replies offered with LanguageMenu.
var LanguageButtons = []string{"1", "2", "3"}

// Messages are fmt templates. The verbs of a field must match across locales.
type Messages struct {
	ProfileTemplate    string
	ProfileIncomplete  string
	ProfileSaved       string // bmr, tdee, target
	ProfileReactivated string // target
	NeedProfile        string

	MealLogged    string // seq, description, kcal
	MealClamped   string // raw kcal, cap
	MealItem      string // name, kcal
	MealMacros    string // protein, fat, carbs
	MealComment   string // comment
	Remaining     string // remaining, target
	OverTarget    string // over, target
	Redescribe    string
	OutOfBounds   string
	QuotaExceeded string

	Guidance      string
	Help          string
	Status        string // day total, target, meals
	StatusMacros  string // protein, fat, carbs
	ResetDone     string
	WeightUpdated string // weight, target
	WeightUsage   string
	LanguageSet   string

	PremiumLink        string // url
	PremiumActive      string
	PremiumUnavailable string
	PremiumActivated   string

	InternalError string
}

var catalog = map[models.Locale]*Messages{
	models.LocaleRU: &ru,
	models.LocaleEN: &en,
	models.LocaleSR: &sr,
}

// For returns the templates of locale, falling back to Russian for an
// unknown or empty locale.
func For(locale models.Locale) *Messages {
	if m, ok := catalog[locale]; ok {
		return m
	}
	return &ru
}

// Validate checks that every locale defines every template with the same
// format verbs as the Russian one.
func Validate() error {
	base := reflect.ValueOf(ru)
	fields := base.Type()
	var problems []string

	for _, locale := range models.Locales {
		m, ok := catalog[locale]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: no messages", locale))
			continue
		}
		v := reflect.ValueOf(*m)
		for i := 0; i < fields.NumField(); i++ {
			name := fields.Field(i).Name
			text := v.Field(i).String()
			if strings.TrimSpace(text) == "" {
				problems = append(problems, fmt.Sprintf("%s.%s: empty", locale, name))
				continue
			}
			if got, want := verbs(text), verbs(base.Field(i).String()); got != want {
				problems = append(problems, fmt.Sprintf("%s.%s: verbs %q, want %q", locale, name, got, want))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid messages: %s", strings.Join(problems, "; "))
	}
	return nil
}

// verbs returns the fmt verb letters of a template in order.
func verbs(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		i++
		if i < len(s) && s[i] == '%' {
			continue
		}
		for i < len(s) && strings.IndexByte("+-# 0123456789.", s[i]) >= 0 {
			i++
		}
		if i < len(s) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
