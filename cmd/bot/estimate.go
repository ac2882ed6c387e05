// cmd/bot/estimate.go
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"calorie-bot/internal/estimator"
	"calorie-bot/internal/models"
)

var (
	estimateLocale  string
	estimateOffline bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate [meal description]",
	Short: "Run the calorie estimator on a meal description",
	Long: `Prices a meal the same way the bot does and prints the result as JSON.

Examples:
  calorie-bot estimate "300 ккал"
  calorie-bot estimate --locale en "200 g chicken breast"
  calorie-bot estimate --offline "165 kcal per 100 g, 250 g"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringVar(&estimateLocale, "locale", string(models.LocaleRU), "Prompt locale (ru, en, sr)")
	estimateCmd.Flags().BoolVar(&estimateOffline, "offline", false, "Do not call the remote model")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	locale := models.Locale(estimateLocale)
	if !locale.Valid() {
		return fmt.Errorf("unsupported locale %q", estimateLocale)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	l := newLogger(cfg)
	defer l.Sync()

	est, err := newEstimator(cmd.Context(), cfg, l)
	if err != nil {
		return err
	}

	var opts []estimator.EstimateOption
	if estimateOffline {
		opts = append(opts, estimator.WithoutModel())
	}

	result, err := est.Estimate(cmd.Context(), strings.Join(args, " "), locale, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
