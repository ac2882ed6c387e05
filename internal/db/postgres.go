package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"calorie-bot/config"
	"calorie-bot/internal/models"
)

//go:embed schema_postgres.sql
var postgresSchema string

type PostgresDB struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresDB(ctx context.Context, cfg config.DBConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	// Set connection pool parameters
	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Connect with timeout
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection works
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool, timeout: timeout}, nil
}

func (db *PostgresDB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// bounded caps a single store call.
func (db *PostgresDB) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}

func (db *PostgresDB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, cancel := db.bounded(ctx)
	defer cancel()
	return getProfile(ctx, db.pool, userID)
}

type pgRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func getProfile(ctx context.Context, q pgRower, userID string) (*models.Profile, error) {
	query := `
        SELECT user_id, age, height_cm, weight_kg, goal_weight_kg, sex, activity, updated_at
        FROM profiles
        WHERE user_id = $1
    `

	var p models.Profile
	var sex, activity string
	err := q.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Age, &p.HeightCM, &p.WeightKG, &p.GoalWeightKG,
		&sex, &activity, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Sex = models.Sex(sex)
	p.Activity = models.ActivityLevel(activity)
	return &p, nil
}

func (db *PostgresDB) UpsertProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return nil, fmt.Errorf("failed to lock profile: %w", err)
	}

	p, err := getProfile(ctx, tx, userID)
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

	query := `
        INSERT INTO profiles (user_id, age, height_cm, weight_kg, goal_weight_kg, sex, activity)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id) DO UPDATE
        SET age = $2, height_cm = $3, weight_kg = $4, goal_weight_kg = $5,
            sex = $6, activity = $7, updated_at = NOW()
        RETURNING updated_at
    `
	err = tx.QueryRow(ctx, query,
		p.UserID, p.Age, p.HeightCM, p.WeightKG, p.GoalWeightKG,
		string(p.Sex), string(p.Activity),
	).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit profile: %w", err)
	}
	return p, nil
}

func (db *PostgresDB) GetState(ctx context.Context, userID string) (*models.UserState, error) {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	query := `
        SELECT user_id, chat_id, username, locale, state, premium, stripe_session_id, created_at, updated_at
        FROM user_states
        WHERE user_id = $1
    `

	var s models.UserState
	var locale, state string
	err := db.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.ChatID, &s.Username, &locale, &state,
		&s.Premium, &s.StripeSessionID, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	s.Locale = models.Locale(locale)
	s.State = models.ConversationState(state)
	return &s, nil
}

func (db *PostgresDB) SaveState(ctx context.Context, s *models.UserState) error {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	query := `
        INSERT INTO user_states (user_id, chat_id, username, locale, state, premium, stripe_session_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id) DO UPDATE
        SET chat_id = $2, username = $3, locale = $4, state = $5,
            premium = $6, stripe_session_id = $7, updated_at = NOW()
    `

	_, err := db.pool.Exec(ctx, query,
		s.UserID, s.ChatID, s.Username, string(s.Locale), string(s.State),
		s.Premium, s.StripeSessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (db *PostgresDB) SetPremium(ctx context.Context, userID string, premium bool) error {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx, `
        UPDATE user_states
        SET premium = $2, updated_at = NOW()
        WHERE user_id = $1
    `, userID, premium)
	if err != nil {
		return fmt.Errorf("failed to set premium: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) GetOrCreateLedger(ctx context.Context, userID, day string) (*models.DailyLedger, error) {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	query := `
        INSERT INTO ledgers (user_id, day)
        VALUES ($1, $2)
        ON CONFLICT (user_id, day) DO UPDATE SET user_id = EXCLUDED.user_id
        RETURNING user_id, day, kcal, protein_g, fat_g, carbs_g,
                  reset_after_seq, model_estimates, created_at, updated_at
    `

	var l models.DailyLedger
	err := db.pool.QueryRow(ctx, query, userID, day).Scan(
		&l.UserID, &l.Day, &l.Totals.Kcal, &l.Totals.ProteinG, &l.Totals.FatG, &l.Totals.CarbsG,
		&l.ResetAfterSeq, &l.ModelEstimates, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return &l, nil
}

func (db *PostgresDB) UpdateTotals(ctx context.Context, userID, day string, totals models.Totals) error {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx, updateTotalsSQL, userID, day, totals.Kcal, totals.ProteinG, totals.FatG, totals.CarbsG)
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) InsertMeal(ctx context.Context, meal *models.MealRecord) error {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	args, err := mealArgs(meal)
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, insertMealSQL, args...); err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

// AppendMeal inserts the meal and stores the new day totals in one
// transaction.
func (db *PostgresDB) AppendMeal(ctx context.Context, meal *models.MealRecord, totals models.Totals) error {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	args, err := mealArgs(meal)
	if err != nil {
		return err
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertMealSQL, args...); err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	tag, err := tx.Exec(ctx, updateTotalsSQL, meal.UserID, meal.Day, totals.Kcal, totals.ProteinG, totals.FatG, totals.CarbsG)
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit meal: %w", err)
	}
	return nil
}

const (
	insertMealSQL = `
        INSERT INTO meals (id, user_id, day, seq, description, kcal, protein_g, fat_g, carbs_g, items, source, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	updateTotalsSQL = `
        UPDATE ledgers
        SET kcal = $3, protein_g = $4, fat_g = $5, carbs_g = $6, updated_at = NOW()
        WHERE user_id = $1 AND day = $2
    `
)

func mealArgs(meal *models.MealRecord) ([]interface{}, error) {
	items, err := marshalItems(meal.Items)
	if err != nil {
		return nil, err
	}
	protein, fat, carbs := macroColumns(meal.Macros)
	return []interface{}{
		meal.ID, meal.UserID, meal.Day, meal.Seq, meal.Description, meal.Kcal,
		protein, fat, carbs, string(items), string(meal.Source), meal.CreatedAt,
	}, nil
}

func (db *PostgresDB) CountMeals(ctx context.Context, userID, day string) (int, error) {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM meals WHERE user_id = $1 AND day = $2`, userID, day,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return n, nil
}

func (db *PostgresDB) ListMeals(ctx context.Context, userID, day string) ([]models.MealRecord, error) {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx, `
        SELECT id, user_id, day, seq, description, kcal, protein_g, fat_g, carbs_g, items, source, created_at
        FROM meals
        WHERE user_id = $1 AND day = $2
        ORDER BY seq
    `, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	var meals []models.MealRecord
	for rows.Next() {
		var m models.MealRecord
		var protein, fat, carbs *float64
		var items []byte
		var source string
		err := rows.Scan(
			&m.ID, &m.UserID, &m.Day, &m.Seq, &m.Description, &m.Kcal,
			&protein, &fat, &carbs, &items, &source, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		if protein != nil && fat != nil && carbs != nil {
			m.Macros = &models.Macros{ProteinG: *protein, FatG: *fat, CarbsG: *carbs}
		}
		if m.Items, err = unmarshalItems(items); err != nil {
			return nil, err
		}
		m.Source = models.EstimateSource(source)
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// MarkReset records the reset point and zeroes the totals.
func (db *PostgresDB) MarkReset(ctx context.Context, userID, day string, afterSeq int) error {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx, `
        UPDATE ledgers
        SET reset_after_seq = $3, kcal = 0, protein_g = 0, fat_g = 0, carbs_g = 0, updated_at = NOW()
        WHERE user_id = $1 AND day = $2
    `, userID, day, afterSeq)
	if err != nil {
		return fmt.Errorf("failed to mark reset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) IncrementModelEstimates(ctx context.Context, userID, day string) (int, error) {
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	var n int
	err := db.pool.QueryRow(ctx, `
        UPDATE ledgers
        SET model_estimates = model_estimates + 1, updated_at = NOW()
        WHERE user_id = $1 AND day = $2
        RETURNING model_estimates
    `, userID, day).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count model estimate: %w", err)
	}
	return n, nil
}
