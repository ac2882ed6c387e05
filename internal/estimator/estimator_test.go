package estimator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

type call struct {
	system, user string
	wantJSON     bool
}

type fakeCompleter struct {
	calls   []call
	respond func(system, user string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	f.calls = append(f.calls, call{system, user, wantJSON})
	if f.respond == nil {
		return "", errors.New("unexpected completion")
	}
	return f.respond(system, user)
}

func reply(s string) func(string, string) (string, error) {
	return func(string, string) (string, error) { return s, nil }
}

func newEstimator(c Completer, opts Options) *Estimator {
	return New(c, opts, logger.NewNop())
}

func TestEstimate_DirectMention(t *testing.T) {
	fc := &fakeCompleter{}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "300 ккал", models.LocaleRU)
	require.NoError(t, err)

	assert.Equal(t, 300, est.Kcal)
	assert.Equal(t, models.SourceDirect, est.Source)
	assert.False(t, est.UsedModel)
	assert.Empty(t, fc.calls)
}

func TestEstimate_DirectMentionWinsOverWeight(t *testing.T) {
	fc := &fakeCompleter{}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "200 г курицы, 330 kcal", models.LocaleRU)
	require.NoError(t, err)

	assert.Equal(t, 330, est.Kcal)
	assert.Equal(t, models.SourceDirect, est.Source)
	assert.Empty(t, fc.calls)
}

func TestEstimate_DirectMentionsAreSummed(t *testing.T) {
	e := newEstimator(&fakeCompleter{}, Options{})

	est, err := e.Estimate(context.Background(), "breakfast 350 kcal, snack 120 cal", models.LocaleEN)
	require.NoError(t, err)
	assert.Equal(t, 470, est.Kcal)
}

func TestEstimate_WeightScaledByModel(t *testing.T) {
	fc := &fakeCompleter{respond: reply(`{"kcal_per_100g": 165, "protein_per_100g": 31, "fat_per_100g": 3.6, "carbs_per_100g": 0}`)}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "200 г курицы", models.LocaleRU)
	require.NoError(t, err)

	assert.Equal(t, 330, est.Kcal)
	assert.Equal(t, models.SourceWeight, est.Source)
	assert.True(t, est.UsedModel)
	require.NotNil(t, est.Macros)
	assert.InDelta(t, 62, est.Macros.ProteinG, 1e-9)
	assert.InDelta(t, 7.2, est.Macros.FatG, 1e-9)

	require.Len(t, fc.calls, 1)
	assert.Contains(t, fc.calls[0].user, "курицы")
	assert.True(t, fc.calls[0].wantJSON)
}

func TestEstimate_WeightWithProseAnswer(t *testing.T) {
	fc := &fakeCompleter{respond: reply("В 100 г курицы около 165 ккал")}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "200 г курицы", models.LocaleRU)
	require.NoError(t, err)

	assert.Equal(t, 330, est.Kcal)
	assert.Equal(t, models.SourceWeight, est.Source)
}

func TestEstimate_WeightUnits(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"0,5 кг гречки", 500},
		{"1/2 kg rice", 500},
		{"250 ml milk", 250},
		{"1 л кефира", 1000},
		{"150 grams of salmon", 150},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e := newEstimator(&fakeCompleter{respond: reply("100")}, Options{})
			est, err := e.Estimate(context.Background(), tt.text, models.LocaleEN)
			require.NoError(t, err)
			assert.Equal(t, tt.want, est.Kcal)
		})
	}
}

func TestEstimate_DensityMentionNeedsNoModel(t *testing.T) {
	fc := &fakeCompleter{}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "200 г курицы (165 ккал на 100 г)", models.LocaleRU)
	require.NoError(t, err)

	assert.Equal(t, 330, est.Kcal)
	assert.Equal(t, models.SourceWeight, est.Source)
	assert.Empty(t, fc.calls)
}

func TestEstimate_WeightFailureFallsThroughToAnalysis(t *testing.T) {
	fc := &fakeCompleter{}
	fc.respond = func(system, user string) (string, error) {
		if len(fc.calls) == 1 {
			return `{"kcal_per_100g": 0}`, nil
		}
		return `{"items":[{"name":"mystery stew","kcal":420}],"total_kcal":420}`, nil
	}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "300 g mystery stew", models.LocaleEN)
	require.NoError(t, err)
	assert.Equal(t, 420, est.Kcal)
	assert.Equal(t, models.SourceAnalysis, est.Source)
	assert.Len(t, fc.calls, 2)
}

func TestEstimate_AnalysisJSON(t *testing.T) {
	fc := &fakeCompleter{respond: reply("Sure! ```json\n" +
		`{"items":[{"name":"Гречка","kcal":220},{"name":"Котлета","kcal":"250 ккал"}],"total_kcal":470,"protein_g":30,"fat_g":18,"carbs_g":45,"comment":"ok"}` +
		"\n```")}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "гречка с котлетой", models.LocaleRU)
	require.NoError(t, err)

	assert.Equal(t, 470, est.Kcal)
	assert.Equal(t, models.SourceAnalysis, est.Source)
	assert.Len(t, est.Items, 2)
	assert.Equal(t, 250.0, est.Items[1].Kcal)
	require.NotNil(t, est.Macros)
	assert.Equal(t, 30.0, est.Macros.ProteinG)
	assert.Equal(t, "ok", est.Comment)
}

func TestEstimate_AnalysisRecomputesMissingTotal(t *testing.T) {
	fc := &fakeCompleter{respond: reply(`{"items":[{"name":"soup","kcal":180},{"name":"bread","kcal":120}],"total_kcal":0}`)}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "soup and bread", models.LocaleEN)
	require.NoError(t, err)
	assert.Equal(t, 300, est.Kcal)
}

func TestEstimate_AnalysisSentinel(t *testing.T) {
	fc := &fakeCompleter{respond: reply("- Pasta — 400 kcal\n- Parmesan — 80 kcal\nTOTAL_KCAL: 480")}
	e := newEstimator(fc, Options{Format: FormatSentinel})

	est, err := e.Estimate(context.Background(), "pasta with parmesan", models.LocaleEN)
	require.NoError(t, err)

	assert.Equal(t, 480, est.Kcal)
	assert.Len(t, est.Items, 2)
	require.Len(t, fc.calls, 1)
	assert.False(t, fc.calls[0].wantJSON)
	assert.Contains(t, fc.calls[0].system, "TOTAL_KCAL")
}

func TestEstimate_AnalysisSyntheticItem(t *testing.T) {
	fc := &fakeCompleter{respond: reply("TOTAL_KCAL: 650")}
	e := newEstimator(fc, Options{Format: FormatSentinel})

	est, err := e.Estimate(context.Background(), "pizza slices", models.LocaleEN)
	require.NoError(t, err)

	require.Len(t, est.Items, 1)
	assert.Equal(t, "pizza slices", est.Items[0].Name)
	assert.Equal(t, 650.0, est.Items[0].Kcal)
}

func TestEstimate_OutOfBounds(t *testing.T) {
	for _, body := range []string{`{"total_kcal": 50000}`, `{"items":[{"name":"air","kcal":0}],"total_kcal":0}`} {
		e := newEstimator(&fakeCompleter{respond: reply(body)}, Options{})

		_, err := e.Estimate(context.Background(), "огромный пир", models.LocaleRU)
		assert.ErrorIs(t, err, models.ErrOutOfBoundsEstimate, body)
	}
}

func TestEstimate_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		respond func(string, string) (string, error)
	}{
		{"remote error", func(string, string) (string, error) { return "", errors.New("503") }},
		{"garbage", reply("I cannot help with that")},
		{"empty", reply("   ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEstimator(&fakeCompleter{respond: tt.respond}, Options{})
			_, err := e.Estimate(context.Background(), "что-то вкусное", models.LocaleRU)
			assert.ErrorIs(t, err, models.ErrEstimationUnavailable)
		})
	}
}

func TestEstimate_NoCompleter(t *testing.T) {
	e := newEstimator(nil, Options{})
	_, err := e.Estimate(context.Background(), "борщ", models.LocaleRU)
	assert.ErrorIs(t, err, models.ErrEstimationUnavailable)
}

func TestEstimate_Timeout(t *testing.T) {
	slow := completerFunc(func(ctx context.Context, _, _ string, _ bool) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	e := newEstimator(slow, Options{Timeout: 10 * time.Millisecond})

	_, err := e.Estimate(context.Background(), "борщ", models.LocaleRU)
	assert.ErrorIs(t, err, models.ErrEstimationUnavailable)
}

type completerFunc func(ctx context.Context, system, user string, wantJSON bool) (string, error)

func (f completerFunc) Complete(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	return f(ctx, system, user, wantJSON)
}

func TestEstimate_WithoutModel(t *testing.T) {
	fc := &fakeCompleter{respond: reply("100")}
	e := newEstimator(fc, Options{})

	est, err := e.Estimate(context.Background(), "450 ккал", models.LocaleRU, WithoutModel())
	require.NoError(t, err)
	assert.Equal(t, 450, est.Kcal)

	_, err = e.Estimate(context.Background(), "200 г курицы", models.LocaleRU, WithoutModel())
	assert.ErrorIs(t, err, models.ErrEstimationUnavailable)
	assert.Empty(t, fc.calls)
}

func TestEstimate_SafetyCap(t *testing.T) {
	e := newEstimator(&fakeCompleter{}, Options{MaxMealKcal: 1500})

	est, err := e.Estimate(context.Background(), "2100 kcal", models.LocaleEN)
	require.NoError(t, err)

	assert.True(t, est.Clamped)
	assert.Equal(t, 1500, est.Kcal)
	assert.Equal(t, 2100, est.RawKcal)
}

func TestEstimate_CeilingAppliesToDirectMentions(t *testing.T) {
	e := newEstimator(&fakeCompleter{}, Options{})
	_, err := e.Estimate(context.Background(), "25000 ккал", models.LocaleRU)
	assert.ErrorIs(t, err, models.ErrOutOfBoundsEstimate)
}

func TestEstimate_PromptLocale(t *testing.T) {
	fc := &fakeCompleter{respond: reply(`{"total_kcal": 500}`)}
	e := newEstimator(fc, Options{})

	_, err := e.Estimate(context.Background(), "ćevapi sa lukom", models.LocaleSR)
	require.NoError(t, err)
	require.Len(t, fc.calls, 1)
	assert.Contains(t, fc.calls[0].user, "Obrok")
}
