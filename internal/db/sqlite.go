package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"calorie-bot/internal/models"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteDB stores timestamps as RFC 3339 text.
type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One writer at a time; SQLite would answer SQLITE_BUSY otherwise.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (s *SQLiteDB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.getProfile(ctx, s.db, userID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteDB) getProfile(ctx context.Context, q queryRower, userID string) (*models.Profile, error) {
	query := `
		SELECT user_id, age, height_cm, weight_kg, goal_weight_kg, sex, activity, updated_at
		FROM profiles
		WHERE user_id = ?
	`

	var p models.Profile
	var updatedAt string
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Age, &p.HeightCM, &p.WeightKG, &p.GoalWeightKG,
		&p.Sex, &p.Activity, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (s *SQLiteDB) UpsertProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := s.getProfile(ctx, tx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		if !update.Complete() {
			return nil, models.ErrIncompleteProfile
		}
		p = &models.Profile{UserID: userID}
	case err != nil:
		return nil, err
	}
	update.Apply(p)
	p.UpdatedAt = time.Now()

	query := `
		INSERT INTO profiles (user_id, age, height_cm, weight_kg, goal_weight_kg, sex, activity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			age = excluded.age,
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			goal_weight_kg = excluded.goal_weight_kg,
			sex = excluded.sex,
			activity = excluded.activity,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		p.UserID, p.Age, p.HeightCM, p.WeightKG, p.GoalWeightKG,
		string(p.Sex), string(p.Activity), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteDB) GetState(ctx context.Context, userID string) (*models.UserState, error) {
	query := `
		SELECT user_id, chat_id, username, locale, state, premium, stripe_session_id, created_at, updated_at
		FROM user_states
		WHERE user_id = ?
	`

	var st models.UserState
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&st.UserID, &st.ChatID, &st.Username, &st.Locale, &st.State,
		&st.Premium, &st.StripeSessionID, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return &st, nil
}

func (s *SQLiteDB) SaveState(ctx context.Context, st *models.UserState) error {
	query := `
		INSERT INTO user_states (user_id, chat_id, username, locale, state, premium, stripe_session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			username = excluded.username,
			locale = excluded.locale,
			state = excluded.state,
			premium = excluded.premium,
			stripe_session_id = excluded.stripe_session_id,
			updated_at = excluded.updated_at
	`

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, query,
		st.UserID, st.ChatID, st.Username, string(st.Locale), string(st.State),
		st.Premium, st.StripeSessionID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *SQLiteDB) SetPremium(ctx context.Context, userID string, premium bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_states SET premium = ?, updated_at = ? WHERE user_id = ?`,
		premium, formatTime(time.Now()), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set premium: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) GetOrCreateLedger(ctx context.Context, userID, day string) (*models.DailyLedger, error) {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledgers (user_id, day, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO NOTHING
	`, userID, day, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	query := `
		SELECT user_id, day, kcal, protein_g, fat_g, carbs_g, reset_after_seq, model_estimates, created_at, updated_at
		FROM ledgers
		WHERE user_id = ? AND day = ?
	`
	var l models.DailyLedger
	var createdAt, updatedAt string
	err = s.db.QueryRowContext(ctx, query, userID, day).Scan(
		&l.UserID, &l.Day, &l.Totals.Kcal, &l.Totals.ProteinG, &l.Totals.FatG, &l.Totals.CarbsG,
		&l.ResetAfterSeq, &l.ModelEstimates, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteDB) UpdateTotals(ctx context.Context, userID, day string, totals models.Totals) error {
	return updateTotals(ctx, s.db, userID, day, totals)
}

func updateTotals(ctx context.Context, q execer, userID, day string, totals models.Totals) error {
	res, err := q.ExecContext(ctx, `
		UPDATE ledgers
		SET kcal = ?, protein_g = ?, fat_g = ?, carbs_g = ?, updated_at = ?
		WHERE user_id = ? AND day = ?
	`, totals.Kcal, totals.ProteinG, totals.FatG, totals.CarbsG, formatTime(time.Now()), userID, day)
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) InsertMeal(ctx context.Context, meal *models.MealRecord) error {
	return insertMeal(ctx, s.db, meal)
}

// AppendMeal inserts the meal and stores the new day totals in one
// transaction.
func (s *SQLiteDB) AppendMeal(ctx context.Context, meal *models.MealRecord, totals models.Totals) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMeal(ctx, tx, meal); err != nil {
		return err
	}
	if err := updateTotals(ctx, tx, meal.UserID, meal.Day, totals); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit meal: %w", err)
	}
	return nil
}

func insertMeal(ctx context.Context, q execer, meal *models.MealRecord) error {
	items, err := marshalItems(meal.Items)
	if err != nil {
		return err
	}
	protein, fat, carbs := macroColumns(meal.Macros)

	_, err = q.ExecContext(ctx, `
		INSERT INTO meals (id, user_id, day, seq, description, kcal, protein_g, fat_g, carbs_g, items, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, meal.ID, meal.UserID, meal.Day, meal.Seq, meal.Description, meal.Kcal,
		protein, fat, carbs, string(items), string(meal.Source), formatTime(meal.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CountMeals(ctx context.Context, userID, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM meals WHERE user_id = ? AND day = ?`, userID, day,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return n, nil
}

func (s *SQLiteDB) ListMeals(ctx context.Context, userID, day string) ([]models.MealRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, day, seq, description, kcal, protein_g, fat_g, carbs_g, items, source, created_at
		FROM meals
		WHERE user_id = ? AND day = ?
		ORDER BY seq
	`, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	var meals []models.MealRecord
	for rows.Next() {
		var m models.MealRecord
		var protein, fat, carbs sql.NullFloat64
		var items, createdAt string
		err := rows.Scan(
			&m.ID, &m.UserID, &m.Day, &m.Seq, &m.Description, &m.Kcal,
			&protein, &fat, &carbs, &items, &m.Source, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		if protein.Valid {
			m.Macros = &models.Macros{ProteinG: protein.Float64, FatG: fat.Float64, CarbsG: carbs.Float64}
		}
		if m.Items, err = unmarshalItems([]byte(items)); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// MarkReset records the reset point and zeroes the totals.
func (s *SQLiteDB) MarkReset(ctx context.Context, userID, day string, afterSeq int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ledgers
		SET reset_after_seq = ?, kcal = 0, protein_g = 0, fat_g = 0, carbs_g = 0, updated_at = ?
		WHERE user_id = ? AND day = ?`,
		afterSeq, formatTime(time.Now()), userID, day,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) IncrementModelEstimates(ctx context.Context, userID, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		UPDATE ledgers
		SET model_estimates = model_estimates + 1, updated_at = ?
		WHERE user_id = ? AND day = ?
		RETURNING model_estimates
	`, formatTime(time.Now()), userID, day).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count model estimate: %w", err)
	}
	return n, nil
}

func marshalItems(items []models.MealItem) ([]byte, error) {
	if items == nil {
		items = []models.MealItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meal items: %w", err)
	}
	return b, nil
}

func unmarshalItems(b []byte) ([]models.MealItem, error) {
	var items []models.MealItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("failed to decode meal items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func macroColumns(m *models.Macros) (protein, fat, carbs *float64) {
	if m == nil {
		return nil, nil, nil
	}
	return &m.ProteinG, &m.FatG, &m.CarbsG
}
