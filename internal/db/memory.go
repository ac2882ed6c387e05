package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"calorie-bot/internal/models"
)

type dayKey struct {
	userID string
	day    string
}

// MemoryDB keeps everything in process memory. Used by tests and local runs.
type MemoryDB struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	states   map[string]models.UserState
	ledgers  map[dayKey]models.DailyLedger
	meals    map[dayKey][]models.MealRecord
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		profiles: make(map[string]models.Profile),
		states:   make(map[string]models.UserState),
		ledgers:  make(map[dayKey]models.DailyLedger),
		meals:    make(map[dayKey][]models.MealRecord),
	}
}

func (db *MemoryDB) Migrate(context.Context) error { return nil }

func (db *MemoryDB) Close() error { return nil }

func (db *MemoryDB) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.profiles[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (db *MemoryDB) UpsertProfile(_ context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.profiles[userID]
	if !ok && !update.Complete() {
		return nil, models.ErrIncompleteProfile
	}
	p.UserID = userID
	update.Apply(&p)
	p.UpdatedAt = time.Now()
	db.profiles[userID] = p
	return &p, nil
}

func (db *MemoryDB) GetState(_ context.Context, userID string) (*models.UserState, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.states[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (db *MemoryDB) SaveState(_ context.Context, state *models.UserState) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	s := *state
	if old, ok := db.states[s.UserID]; ok {
		s.CreatedAt = old.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	db.states[s.UserID] = s
	return nil
}

func (db *MemoryDB) SetPremium(_ context.Context, userID string, premium bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.states[userID]
	if !ok {
		return models.ErrNotFound
	}
	s.Premium = premium
	s.UpdatedAt = time.Now()
	db.states[userID] = s
	return nil
}

func (db *MemoryDB) GetOrCreateLedger(_ context.Context, userID, day string) (*models.DailyLedger, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := dayKey{userID, day}
	l, ok := db.ledgers[k]
	if !ok {
		now := time.Now()
		l = models.DailyLedger{UserID: userID, Day: day, CreatedAt: now, UpdatedAt: now}
		db.ledgers[k] = l
	}
	return &l, nil
}

func (db *MemoryDB) UpdateTotals(_ context.Context, userID, day string, totals models.Totals) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := dayKey{userID, day}
	if _, ok := db.ledgers[k]; !ok {
		return models.ErrNotFound
	}
	db.setTotals(k, totals)
	return nil
}

func (db *MemoryDB) InsertMeal(_ context.Context, meal *models.MealRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := dayKey{meal.UserID, meal.Day}
	if err := db.checkSeq(k, meal); err != nil {
		return err
	}
	db.meals[k] = append(db.meals[k], *meal)
	return nil
}

// AppendMeal validates both writes before applying either.
func (db *MemoryDB) AppendMeal(_ context.Context, meal *models.MealRecord, totals models.Totals) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := dayKey{meal.UserID, meal.Day}
	if _, ok := db.ledgers[k]; !ok {
		return models.ErrNotFound
	}
	if err := db.checkSeq(k, meal); err != nil {
		return err
	}
	db.meals[k] = append(db.meals[k], *meal)
	db.setTotals(k, totals)
	return nil
}

func (db *MemoryDB) checkSeq(k dayKey, meal *models.MealRecord) error {
	for _, m := range db.meals[k] {
		if m.Seq == meal.Seq {
			return fmt.Errorf("meal %d already exists for %s/%s", meal.Seq, meal.UserID, meal.Day)
		}
	}
	return nil
}

func (db *MemoryDB) setTotals(k dayKey, totals models.Totals) {
	l := db.ledgers[k]
	l.Totals = totals
	l.UpdatedAt = time.Now()
	db.ledgers[k] = l
}

func (db *MemoryDB) CountMeals(_ context.Context, userID, day string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.meals[dayKey{userID, day}]), nil
}

func (db *MemoryDB) ListMeals(_ context.Context, userID, day string) ([]models.MealRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	meals := append([]models.MealRecord(nil), db.meals[dayKey{userID, day}]...)
	sort.Slice(meals, func(i, j int) bool { return meals[i].Seq < meals[j].Seq })
	return meals, nil
}

// MarkReset records the reset point and zeroes the totals.
func (db *MemoryDB) MarkReset(_ context.Context, userID, day string, afterSeq int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := dayKey{userID, day}
	l, ok := db.ledgers[k]
	if !ok {
		return models.ErrNotFound
	}
	l.ResetAfterSeq = afterSeq
	l.Totals = models.Totals{}
	l.UpdatedAt = time.Now()
	db.ledgers[k] = l
	return nil
}

func (db *MemoryDB) IncrementModelEstimates(_ context.Context, userID, day string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := dayKey{userID, day}
	l, ok := db.ledgers[k]
	if !ok {
		return 0, models.ErrNotFound
	}
	l.ModelEstimates++
	l.UpdatedAt = time.Now()
	db.ledgers[k] = l
	return l.ModelEstimates, nil
}
