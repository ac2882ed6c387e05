// internal/ledger/ledger.go

// Package ledger keeps the per-user, per-day meal ledger.
package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"calorie-bot/internal/models"
	"calorie-bot/pkg/keylock"
	"calorie-bot/pkg/logger"
)

// DayLayout is the store address format of a calendar day.
const DayLayout = "20060102"

// Store is the persistence the ledger needs.
type Store interface {
	GetOrCreateLedger(ctx context.Context, userID, day string) (*models.DailyLedger, error)
	UpdateTotals(ctx context.Context, userID, day string, totals models.Totals) error
	InsertMeal(ctx context.Context, meal *models.MealRecord) error
	// AppendMeal inserts meal and sets the day totals atomically.
	AppendMeal(ctx context.Context, meal *models.MealRecord, totals models.Totals) error
	CountMeals(ctx context.Context, userID, day string) (int, error)
	ListMeals(ctx context.Context, userID, day string) ([]models.MealRecord, error)
	// MarkReset records the reset point and zeroes the totals.
	MarkReset(ctx context.Context, userID, day string, afterSeq int) error
	IncrementModelEstimates(ctx context.Context, userID, day string) (int, error)
}

// Meal is the input of RecordMeal.
type Meal struct {
	Description string
	Kcal        float64
	Macros      *models.Macros
	Items       []models.MealItem
	Source      models.EstimateSource
}

// Summary is the state of a day after the last reset.
type Summary struct {
	Day       string
	Totals    models.Totals
	Meals     []models.MealRecord
	MealCount int
}

type Ledger struct {
	store  Store
	locks  *keylock.Locker
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger
}

type Option func(*Ledger)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store Store, loc *time.Location, l *logger.Logger, opts ...Option) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	ledger := &Ledger{
		store:  store,
		locks:  keylock.New(),
		loc:    loc,
		now:    time.Now,
		logger: l.Named("ledger"),
	}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger
}

// DayKey formats t as a day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// Today returns the current day key in the ledger's reference timezone.
func (l *Ledger) Today() string {
	return DayKey(l.now(), l.loc)
}

// RecordMeal appends a meal and returns its sequence number and the new
// kcal total. Calls for the same (user, day) are serialized.
func (l *Ledger) RecordMeal(ctx context.Context, userID, day string, meal Meal) (int, float64, error) {
	if meal.Kcal < 0 {
		return 0, 0, fmt.Errorf("negative kcal %.1f", meal.Kcal)
	}

	unlock := l.locks.Lock(userID + "/" + day)
	defer unlock()

	// Next sequence number follows the stored meals
	row, err := l.store.GetOrCreateLedger(ctx, userID, day)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load ledger: %w", err)
	}
	count, err := l.store.CountMeals(ctx, userID, day)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count meals: %w", err)
	}

	record := &models.MealRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Day:         day,
		Seq:         count + 1,
		Description: meal.Description,
		Kcal:        meal.Kcal,
		Macros:      meal.Macros,
		Items:       meal.Items,
		Source:      meal.Source,
		CreatedAt:   l.now(),
	}
	totals := row.Totals.Add(meal.Kcal, meal.Macros)

	// Meal row and totals are written together
	if err := l.store.AppendMeal(ctx, record, totals); err != nil {
		return 0, 0, fmt.Errorf("failed to record meal: %w", err)
	}

	l.logger.Infow("Meal recorded", "user_id", userID, "day", day, "seq", record.Seq, "kcal", meal.Kcal, "total_kcal", totals.Kcal)
	return record.Seq, totals.Kcal, nil
}

// Reset zeroes the day's totals. Meal rows stay in the store.
func (l *Ledger) Reset(ctx context.Context, userID, day string) error {
	unlock := l.locks.Lock(userID + "/" + day)
	defer unlock()

	if _, err := l.store.GetOrCreateLedger(ctx, userID, day); err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	count, err := l.store.CountMeals(ctx, userID, day)
	if err != nil {
		return fmt.Errorf("failed to count meals: %w", err)
	}
	if err := l.store.MarkReset(ctx, userID, day, count); err != nil {
		return fmt.Errorf("failed to mark reset: %w", err)
	}

	l.logger.Infow("Ledger reset", "user_id", userID, "day", day, "meals_kept", count)
	return nil
}

func (l *Ledger) Summary(ctx context.Context, userID, day string) (*Summary, error) {
	row, err := l.store.GetOrCreateLedger(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	meals, err := l.store.ListMeals(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	row.Meals = meals
	active := row.ActiveMeals()

	return &Summary{
		Day:       day,
		Totals:    row.Totals,
		Meals:     active,
		MealCount: len(active),
	}, nil
}

// ModelEstimatesUsed returns how many remote-model estimates the user spent
// on day.
func (l *Ledger) ModelEstimatesUsed(ctx context.Context, userID, day string) (int, error) {
	row, err := l.store.GetOrCreateLedger(ctx, userID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger: %w", err)
	}
	return row.ModelEstimates, nil
}

func (l *Ledger) CountModelEstimate(ctx context.Context, userID, day string) error {
	if _, err := l.store.GetOrCreateLedger(ctx, userID, day); err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	_, err := l.store.IncrementModelEstimates(ctx, userID, day)
	return err
}

// Budget compares a day's kcal total with the target. Exactly one of
// remaining and over is non-zero unless the total hits the target.
func Budget(target int, totals models.Totals) (remaining, over int) {
	eaten := int(math.Round(totals.Kcal))
	if eaten > target {
		return 0, eaten - target
	}
	return target - eaten, 0
}
