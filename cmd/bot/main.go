// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"calorie-bot/config"
	"calorie-bot/internal/bot"
	"calorie-bot/internal/db"
	"calorie-bot/internal/estimator"
	"calorie-bot/internal/gpt"
	"calorie-bot/internal/i18n"
	"calorie-bot/internal/ledger"
	"calorie-bot/internal/payment"
	"calorie-bot/internal/server"
	"calorie-bot/pkg/logger"
)

var (
	logLevel string
	dbDriver string
)

var rootCmd = &cobra.Command{
	Use:          "calorie-bot",
	Short:        "Telegram bot that counts calories against a daily deficit target",
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Override db.driver (postgres, sqlite, memory)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(estimateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dbDriver != "" {
		cfg.DB.Driver = dbDriver
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	if cfg.Log.Development {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.Log.Level)
}

// openStore connects with retries; the database may start after the bot.
func openStore(ctx context.Context, cfg *config.Config, l *logger.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		store, err = db.Open(ctx, cfg.DB)
		if err == nil {
			return store, nil
		}
		l.Errorw("Failed to connect to database, retrying...", "driver", cfg.DB.Driver, "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

func newCompleter(ctx context.Context, cfg config.GPTConfig) (estimator.Completer, error) {
	switch cfg.Provider {
	case "openai":
		return gpt.NewClientWithBaseURL(cfg.APIKey, cfg.BaseURL).WithModel(cfg.Model), nil
	case "gemini":
		return gpt.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown gpt provider %q", cfg.Provider)
	}
}

func newEstimator(ctx context.Context, cfg *config.Config, l *logger.Logger) (*estimator.Estimator, error) {
	completer, err := newCompleter(ctx, cfg.GPT)
	if err != nil {
		return nil, err
	}
	return estimator.New(completer, estimator.Options{
		Format:      estimator.Format(cfg.Estimator.Format),
		MaxMealKcal: cfg.Estimator.MaxMealKcal,
		CeilingKcal: cfg.Estimator.CeilingKcal,
		Timeout:     cfg.Estimator.Timeout,
	}, l), nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Initialize logger
	l := newLogger(cfg)
	defer l.Sync()

	// Validate critical configuration
	if err := cfg.Validate(); err != nil {
		l.Errorw("Invalid configuration", "error", err)
		return err
	}
	if err := i18n.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.Infow("Starting calorie bot", "db_driver", cfg.DB.Driver, "gpt_provider", cfg.GPT.Provider, "telegram_mode", cfg.Telegram.Mode)

	// Initialize database connection with retry
	store, err := openStore(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}

	// Initialize GPT client
	est, err := newEstimator(ctx, cfg, l)
	if err != nil {
		return err
	}

	// Initialize Stripe client
	var opts []bot.ConversationOption
	var stripeClient *payment.StripeClient
	if cfg.Billing.Enabled {
		stripeClient = payment.NewStripeClient(cfg.Stripe)
		opts = append(opts, bot.WithBilling(stripeClient, cfg.Billing.FreeModelEstimates))
	}

	// Create bot
	lg := ledger.New(store, cfg.Location(), l)
	conv := bot.NewConversation(store, lg, est, l, opts...)

	telegramBot, err := bot.NewTelegramBot(cfg.Telegram, conv, l)
	if err != nil {
		return err
	}

	// Webhook server
	srvOpts := server.Options{Port: cfg.Server.Port}
	if cfg.Telegram.Mode == bot.ModeWebhook {
		srvOpts.TelegramSecret = cfg.Telegram.WebhookSecret
	}
	if stripeClient != nil {
		srvOpts.Stripe = stripeClient
	}
	httpServer := server.NewServer(srvOpts, telegramBot, l)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return telegramBot.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("Shutting down bot...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Stop HTTP server first so no webhook update arrives during bot shutdown
		if err := httpServer.Stop(shutdownCtx); err != nil {
			l.Errorw("Error during HTTP server shutdown", "error", err)
		}
		// Then stop bot
		if err := telegramBot.Stop(shutdownCtx); err != nil {
			l.Errorw("Error during bot shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Errorw("Bot stopped with error", "error", err)
		return err
	}
	l.Info("Bot stopped successfully")
	return nil
}
