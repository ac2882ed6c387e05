// internal/estimator/estimator.go

// Package estimator prices a meal description in kilocalories. Deterministic
// signals in the text are used first; the remote model is consulted only when
// they are missing.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

// Completer is the remote text-completion service.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, wantJSON bool) (string, error)
}

// Format selects the output contract requested from the model in the full
// analysis stage.
type Format string

const (
	FormatJSON     Format = "json"
	FormatSentinel Format = "sentinel"
)

const (
	DefaultCeilingKcal = 20000
	DefaultTimeout     = 30 * time.Second
)

type Options struct {
	Format Format
	// MaxMealKcal clamps a single meal. Zero disables the cap.
	MaxMealKcal float64
	// CeilingKcal rejects estimates above it as hallucinated.
	CeilingKcal float64
	// Timeout bounds every remote call.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Format != FormatSentinel {
		o.Format = FormatJSON
	}
	if o.CeilingKcal <= 0 {
		o.CeilingKcal = DefaultCeilingKcal
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Estimate is a priced meal. When Clamped is set, Kcal holds the capped value
// and RawKcal the model's original figure.
type Estimate struct {
	Kcal      int
	RawKcal   int
	Clamped   bool
	Macros    *models.Macros
	Items     []models.MealItem
	Comment   string
	Source    models.EstimateSource
	UsedModel bool
}

type EstimateOption func(*request)

// WithoutModel limits the waterfall to signals found in the text itself.
func WithoutModel() EstimateOption {
	return func(r *request) { r.offline = true }
}

type request struct {
	text    string
	lower   string
	locale  models.Locale
	offline bool
	signals signals
}

// errSkip marks a stage that does not apply to the text.
var errSkip = errors.New("stage not applicable")

type stage struct {
	name string
	run  func(ctx context.Context, r *request) (*Estimate, error)
}

type Estimator struct {
	completer Completer
	opts      Options
	logger    *logger.Logger
	stages    []stage
}

func New(completer Completer, opts Options, l *logger.Logger) *Estimator {
	e := &Estimator{
		completer: completer,
		opts:      opts.withDefaults(),
		logger:    l.Named("estimator"),
	}
	e.stages = []stage{
		{name: string(models.SourceDirect), run: e.direct},
		{name: string(models.SourceWeight), run: e.byWeight},
		{name: string(models.SourceAnalysis), run: e.analyze},
	}
	return e
}

// Estimate runs the waterfall and stops at the first stage that prices the
// meal. It returns models.ErrOutOfBoundsEstimate for implausible totals and
// models.ErrEstimationUnavailable when no stage succeeds.
func (e *Estimator) Estimate(ctx context.Context, text string, locale models.Locale, opts ...EstimateOption) (*Estimate, error) {
	r := &request{
		text:   strings.TrimSpace(text),
		lower:  strings.ToLower(strings.TrimSpace(text)),
		locale: locale,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.signals = scan(r.lower)

	var lastErr error
	for _, s := range e.stages {
		est, err := s.run(ctx, r)
		if err == nil {
			est.Source = models.EstimateSource(s.name)
			return e.finish(est)
		}
		if errors.Is(err, models.ErrOutOfBoundsEstimate) {
			return nil, err
		}
		if !errors.Is(err, errSkip) {
			e.logger.Debugw("Estimation stage failed", "stage", s.name, "error", err)
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errSkip
	}
	return nil, fmt.Errorf("%w: %v", models.ErrEstimationUnavailable, lastErr)
}

// finish applies the sanity ceiling and the optional per-meal cap.
func (e *Estimator) finish(est *Estimate) (*Estimate, error) {
	if err := e.checkBounds(float64(est.RawKcal)); err != nil {
		return nil, err
	}
	est.Kcal = est.RawKcal
	if e.opts.MaxMealKcal > 0 && float64(est.RawKcal) > e.opts.MaxMealKcal {
		est.Kcal = int(math.Round(e.opts.MaxMealKcal))
		est.Clamped = true
	}
	return est, nil
}

func (e *Estimator) checkBounds(kcal float64) error {
	if kcal <= 0 || kcal > e.opts.CeilingKcal {
		return fmt.Errorf("%w: %.0f kcal", models.ErrOutOfBoundsEstimate, kcal)
	}
	return nil
}

func (e *Estimator) complete(ctx context.Context, systemPrompt, userPrompt string, wantJSON bool) (string, error) {
	if e.completer == nil {
		return "", errors.New("no completion service configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	start := time.Now()
	out, err := e.completer.Complete(ctx, systemPrompt, userPrompt, wantJSON)
	e.logger.Debugw("Completion finished", "duration", time.Since(start), "error", err)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}

func roundKcal(v float64) int {
	return int(math.Round(v))
}
