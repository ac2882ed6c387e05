package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/internal/models"
)

func TestExtract_Locales(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Profile
	}{
		{
			name: "russian single line",
			text: "Возраст 34 Рост 181 Вес 88 Цель вес 84 Пол м Активность средняя",
			want: models.Profile{Age: 34, HeightCM: 181, WeightKG: 88, GoalWeightKG: 84, Sex: models.SexMale, Activity: models.ActivityMedium},
		},
		{
			name: "russian template with colons",
			text: "Возраст: 29\nРост: 165 см\nВес: 70,5 кг\nЦель: 62\nПол: ж\nАктивность: низкая",
			want: models.Profile{Age: 29, HeightCM: 165, WeightKG: 70.5, GoalWeightKG: 62, Sex: models.SexFemale, Activity: models.ActivityLow},
		},
		{
			name: "english",
			text: "Age 41, height 190 cm, weight 102 kg, goal weight 90, sex: f, activity: high",
			want: models.Profile{Age: 41, HeightCM: 190, WeightKG: 102, GoalWeightKG: 90, Sex: models.SexFemale, Activity: models.ActivityHigh},
		},
		{
			name: "serbian",
			text: "Godine: 30\nVisina: 172\nTežina: 80\nCilj: 75\nPol: Ž\nAktivnost: niska",
			want: models.Profile{Age: 30, HeightCM: 172, WeightKG: 80, GoalWeightKG: 75, Sex: models.SexFemale, Activity: models.ActivityLow},
		},
		{
			name: "activity defaults to medium",
			text: "age 25 height 180 weight 75 goal 72",
			want: models.Profile{Age: 25, HeightCM: 180, WeightKG: 75, GoalWeightKG: 72, Sex: models.SexMale, Activity: models.ActivityMedium},
		},
	}

	e := NewProfileExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(tt.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_MissingFieldReturnsIncomplete(t *testing.T) {
	full := map[string]string{
		"age":    "Возраст 34",
		"height": "Рост 181",
		"weight": "Вес 88",
		"goal":   "Цель 84",
	}

	e := NewProfileExtractor()
	for skip := range full {
		t.Run("without "+skip, func(t *testing.T) {
			var parts []string
			for field, part := range full {
				if field != skip {
					parts = append(parts, part)
				}
			}
			_, err := e.Extract(strings.Join(parts, " ") + " Пол м")
			require.ErrorIs(t, err, models.ErrIncompleteProfile)
			assert.Contains(t, err.Error(), skip)
		})
	}
}

func TestExtract_FieldOrderDoesNotMatter(t *testing.T) {
	parts := []string{"Возраст 34", "Рост 181", "Вес 88", "Цель вес 84"}
	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{3, 0, 2, 1},
		{2, 3, 0, 1},
		{1, 3, 2, 0},
	}

	e := NewProfileExtractor()
	want, err := e.Extract(strings.Join(parts, "\n"))
	require.NoError(t, err)

	for _, order := range orders {
		var reordered []string
		for _, i := range order {
			reordered = append(reordered, parts[i])
		}
		got, err := e.Extract(strings.Join(reordered, " "))
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("order %v mismatch (-want +got):\n%s", order, diff)
		}
	}
}

func TestExtract_GoalPhraseDoesNotFeedWeight(t *testing.T) {
	e := NewProfileExtractor()
	got, err := e.Extract("Цель вес 84, возраст 34, рост 181, вес 88")
	require.NoError(t, err)
	assert.Equal(t, 84.0, got.GoalWeightKG)
	assert.Equal(t, 88.0, got.WeightKG)
}

func TestExtract_ImplausibleValuesAreSkipped(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"height too small", "возраст 34 рост 18 вес 88 цель 84"},
		{"height with an extra digit", "Возраст 34 Рост 1810 Вес 88 Цель вес 84"},
		{"weight with an extra digit", "Возраст 34 Рост 181 Вес 1000 Цель вес 84"},
		{"age with an extra digit", "age 3400 height 181 weight 88 goal 84"},
	}

	e := NewProfileExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.text)
			assert.ErrorIs(t, err, models.ErrIncompleteProfile)
		})
	}
}

func TestExtractWeight(t *testing.T) {
	e := NewProfileExtractor()

	w, err := e.ExtractWeight("85,5")
	require.NoError(t, err)
	assert.Equal(t, 85.5, w)

	_, err = e.ExtractWeight("heavy")
	assert.ErrorIs(t, err, models.ErrIncompleteProfile)
}
