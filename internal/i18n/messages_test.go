package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/internal/models"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

func TestFor(t *testing.T) {
	assert.Same(t, &en, For(models.LocaleEN))
	assert.Same(t, &sr, For(models.LocaleSR))
	assert.Same(t, &ru, For(""), "unknown locale falls back to Russian")
}

func TestVerbs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", ""},
		{"%d of %d", "dd"},
		{"BMR %.0f, 100%% done, %s", "fs"},
		{"%-5d|%+.1f", "df"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, verbs(tt.in), tt.in)
	}
}

func TestValidate_DetectsMismatch(t *testing.T) {
	saved := en.Remaining
	t.Cleanup(func() { en.Remaining = saved })

	en.Remaining = "Left for today: %d kcal."
	err := Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "en.Remaining")
}

func TestLanguageButtons(t *testing.T) {
	require.Len(t, LanguageButtons, len(models.Locales))
	for _, b := range LanguageButtons {
		assert.Contains(t, LanguageMenu, b+" - ")
	}
}
