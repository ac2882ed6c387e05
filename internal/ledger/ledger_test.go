package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"calorie-bot/internal/db"
	"calorie-bot/internal/ledger"
	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLedger(t *testing.T) (*ledger.Ledger, *db.MemoryDB) {
	t.Helper()
	store := db.NewMemoryDB()
	now := time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
	l := ledger.New(store, time.UTC, logger.NewNop(), ledger.WithClock(func() time.Time { return now }))
	return l, store
}

func TestDayKey(t *testing.T) {
	belgrade, err := time.LoadLocation("Europe/Belgrade")
	require.NoError(t, err)

	ts := time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "20250314", ledger.DayKey(ts, time.UTC))
	assert.Equal(t, "20250315", ledger.DayKey(ts, belgrade))
}

func TestRecordMeal_SequenceAndTotals(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	day := l.Today()
	assert.Equal(t, "20250314", day)

	kcals := []float64{330, 950, 120.5}
	var total float64
	for i, k := range kcals {
		seq, newTotal, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{Description: "meal", Kcal: k, Source: models.SourceDirect})
		require.NoError(t, err)
		total += k
		assert.Equal(t, i+1, seq)
		assert.InDelta(t, total, newTotal, 1e-9)
	}

	sum, err := l.Summary(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.MealCount)
	assert.InDelta(t, 1400.5, sum.Totals.Kcal, 1e-9)

	var fromMeals float64
	for _, m := range sum.Meals {
		fromMeals += m.Kcal
	}
	assert.InDelta(t, sum.Totals.Kcal, fromMeals, 1e-9)
}

func TestRecordMeal_Macros(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	day := l.Today()

	_, _, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{
		Kcal: 330, Macros: &models.Macros{ProteinG: 34, FatG: 18, CarbsG: 6}, Source: models.SourceWeight,
	})
	require.NoError(t, err)
	_, _, err = l.RecordMeal(ctx, "u1", day, ledger.Meal{Kcal: 100, Source: models.SourceDirect})
	require.NoError(t, err)

	sum, err := l.Summary(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, models.Totals{Kcal: 430, ProteinG: 34, FatG: 18, CarbsG: 6}, sum.Totals)
}

func TestRecordMeal_RejectsNegative(t *testing.T) {
	l, _ := newLedger(t)
	_, _, err := l.RecordMeal(context.Background(), "u1", l.Today(), ledger.Meal{Kcal: -1})
	assert.Error(t, err)
}

func TestRecordMeal_DaysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	seq, _, err := l.RecordMeal(ctx, "u1", "20250314", ledger.Meal{Kcal: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	seq, total, err := l.RecordMeal(ctx, "u1", "20250315", ledger.Meal{Kcal: 200})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.Equal(t, 200.0, total)

	seq, _, err = l.RecordMeal(ctx, "u2", "20250314", ledger.Meal{Kcal: 200})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestRecordMeal_Concurrent(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	day := l.Today()

	const n = 50
	var wg sync.WaitGroup
	seqs := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, _, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{Description: fmt.Sprint(i), Kcal: 10})
			assert.NoError(t, err)
			seqs <- seq
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int]bool)
	for s := range seqs {
		assert.False(t, seen[s], "duplicate seq %d", s)
		seen[s] = true
	}
	for s := 1; s <= n; s++ {
		assert.True(t, seen[s], "missing seq %d", s)
	}

	row, err := store.GetOrCreateLedger(ctx, "u1", day)
	require.NoError(t, err)
	assert.InDelta(t, float64(n*10), row.Totals.Kcal, 1e-9)
}

// failingStore rejects the next AppendMeal calls.
type failingStore struct {
	*db.MemoryDB
	failures int
}

func (s *failingStore) AppendMeal(ctx context.Context, meal *models.MealRecord, totals models.Totals) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	return s.MemoryDB.AppendMeal(ctx, meal, totals)
}

func TestRecordMeal_FailedWriteKeepsTotalsConsistent(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryDB: db.NewMemoryDB(), failures: 1}
	l := ledger.New(store, time.UTC, logger.NewNop())
	day := l.Today()

	_, _, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{Description: "300 ккал", Kcal: 300})
	require.Error(t, err)

	seq, total, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{Description: "300 ккал", Kcal: 300})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.Equal(t, 300.0, total)

	meals, err := store.ListMeals(ctx, "u1", day)
	require.NoError(t, err)
	require.Len(t, meals, 1)

	row, err := store.GetOrCreateLedger(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, meals[0].Kcal, row.Totals.Kcal)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t)
	day := l.Today()

	for _, k := range []float64{400, 600} {
		_, _, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{Kcal: k})
		require.NoError(t, err)
	}
	require.NoError(t, l.Reset(ctx, "u1", day))

	sum, err := l.Summary(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, models.Totals{}, sum.Totals)
	assert.Zero(t, sum.MealCount)

	// Earlier meals stay in the store.
	all, err := store.ListMeals(ctx, "u1", day)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	seq, total, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{Kcal: 250})
	require.NoError(t, err)
	assert.Equal(t, 3, seq)
	assert.Equal(t, 250.0, total)

	sum, err = l.Summary(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.MealCount)
	assert.Equal(t, 3, sum.Meals[0].Seq)
}

func TestModelEstimates(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	day := l.Today()

	used, err := l.ModelEstimatesUsed(ctx, "u1", day)
	require.NoError(t, err)
	assert.Zero(t, used)

	require.NoError(t, l.CountModelEstimate(ctx, "u1", day))
	require.NoError(t, l.CountModelEstimate(ctx, "u1", day))

	used, err = l.ModelEstimatesUsed(ctx, "u1", day)
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name      string
		target    int
		kcal      float64
		remaining int
		over      int
	}{
		{"under", 1994, 1280, 714, 0},
		{"exact", 2000, 2000, 0, 0},
		{"over", 1950, 2100, 0, 150},
		{"rounds", 2000, 999.6, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining, over := ledger.Budget(tt.target, models.Totals{Kcal: tt.kcal})
			assert.Equal(t, tt.remaining, remaining)
			assert.Equal(t, tt.over, over)
		})
	}
}

func TestOverTargetAfterSecondMeal(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	day := l.Today()

	_, total, err := l.RecordMeal(ctx, "u1", day, ledger.Meal{Kcal: 400})
	require.NoError(t, err)
	remaining, over := ledger.Budget(1200, models.Totals{Kcal: total})
	assert.Equal(t, 800, remaining)
	assert.Zero(t, over)

	_, total, err = l.RecordMeal(ctx, "u1", day, ledger.Meal{Kcal: 900})
	require.NoError(t, err)
	remaining, over = ledger.Budget(1200, models.Totals{Kcal: total})
	assert.Zero(t, remaining)
	assert.Equal(t, 100, over)
}
