// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type TelegramConfig struct {
	Token         string
	Mode          string // polling or webhook
	WebhookURL    string
	WebhookSecret string
	Debug         bool
}

type DBConfig struct {
	Driver       string // postgres, sqlite or memory
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
	Timeout      time.Duration
}

type GPTConfig struct {
	Provider string // openai, gemini or none
	APIKey   string
	Model    string
	BaseURL  string
}

type EstimatorConfig struct {
	Format      string
	MaxMealKcal float64
	CeilingKcal float64
	Timeout     time.Duration
}

type LedgerConfig struct {
	Timezone string
}

type BillingConfig struct {
	Enabled            bool
	FreeModelEstimates int
}

type StripeConfig struct {
	SecretKey  string
	WebhookKey string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level       string
	Development bool
}

type Config struct {
	Telegram        TelegramConfig
	DB              DBConfig
	GPT             GPTConfig
	Estimator       EstimatorConfig
	Ledger          LedgerConfig
	Billing         BillingConfig
	Stripe          StripeConfig
	Server          ServerConfig
	Log             LogConfig
	ShutdownTimeout time.Duration
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"telegram.token":             "TELEGRAM_TOKEN",
	"telegram.mode":              "TELEGRAM_MODE",
	"telegram.webhookurl":        "TELEGRAM_WEBHOOK_URL",
	"telegram.webhooksecret":     "TELEGRAM_WEBHOOK_SECRET",
	"telegram.debug":             "TELEGRAM_DEBUG",
	"db.driver":                  "DB_DRIVER",
	"db.host":                    "DB_HOST",
	"db.port":                    "DB_PORT",
	"db.user":                    "DB_USER",
	"db.password":                "DB_PASSWORD",
	"db.dbname":                  "DB_NAME",
	"db.sslmode":                 "DB_SSL_MODE",
	"db.path":                    "DB_PATH",
	"gpt.provider":               "GPT_PROVIDER",
	"gpt.apikey":                 "GPT_API_KEY",
	"gpt.model":                  "GPT_MODEL",
	"gpt.baseurl":                "GPT_BASE_URL",
	"estimator.format":           "ESTIMATOR_FORMAT",
	"estimator.maxmealkcal":      "ESTIMATOR_MAX_MEAL_KCAL",
	"ledger.timezone":            "LEDGER_TIMEZONE",
	"billing.enabled":            "BILLING_ENABLED",
	"billing.freemodelestimates": "BILLING_FREE_MODEL_ESTIMATES",
	"stripe.secretkey":           "STRIPE_SECRET_KEY",
	"stripe.webhookkey":          "STRIPE_WEBHOOK_KEY",
	"stripe.priceid":             "STRIPE_PRICE_ID",
	"stripe.successurl":          "STRIPE_SUCCESS_URL",
	"stripe.cancelurl":           "STRIPE_CANCEL_URL",
	"server.port":                "SERVER_PORT",
	"log.level":                  "LOG_LEVEL",
	"log.development":            "LOG_DEVELOPMENT",
	"shutdowntimeout":            "SHUTDOWN_TIMEOUT",
}

// Load reads .env, an optional config file and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(".", "./config", "../config", "$HOME/.calorie-bot")
}

// LoadFrom searches the given directories for config.yaml. A missing file is
// not an error; environment variables and defaults still apply.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Set default values
	setDefaults(v)

	// Environment variables always win over the file
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	// Read config file if present
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("shutdowntimeout", 10*time.Second)
	v.SetDefault("telegram.mode", "polling")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.dbname", "calorie_bot")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "calorie-bot.db")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connlifetime", 5*time.Minute)
	v.SetDefault("db.timeout", 10*time.Second)
	v.SetDefault("gpt.provider", "openai")
	v.SetDefault("gpt.model", "gpt-4o-mini")
	v.SetDefault("estimator.format", "json")
	v.SetDefault("estimator.maxmealkcal", 0)
	v.SetDefault("estimator.ceilingkcal", 20000)
	v.SetDefault("estimator.timeout", 30*time.Second)
	v.SetDefault("ledger.timezone", "Europe/Belgrade")
	v.SetDefault("billing.enabled", false)
	v.SetDefault("billing.freemodelestimates", 5)
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram token is not configured"))
	}
	switch c.Telegram.Mode {
	case "polling":
	case "webhook":
		if c.Telegram.WebhookURL == "" || c.Telegram.WebhookSecret == "" {
			errs = append(errs, errors.New("webhook mode needs telegram.webhookurl and telegram.webhooksecret"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown telegram mode %q", c.Telegram.Mode))
	}
	if err := c.validateStore(); err != nil {
		errs = append(errs, err)
	}
	switch c.GPT.Provider {
	case "openai", "gemini":
		if c.GPT.APIKey == "" {
			errs = append(errs, errors.New("GPT API key is not configured"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("unknown gpt provider %q", c.GPT.Provider))
	}
	if c.Estimator.Format != "json" && c.Estimator.Format != "sentinel" {
		errs = append(errs, fmt.Errorf("unknown estimator format %q", c.Estimator.Format))
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid ledger timezone: %w", err))
	}
	if c.Billing.Enabled && (c.Stripe.SecretKey == "" || c.Stripe.WebhookKey == "" || c.Stripe.PriceID == "") {
		errs = append(errs, errors.New("stripe configuration is incomplete"))
	}
	return errors.Join(errs...)
}

// ValidateStore checks only the store settings. Used by the migrate command.
func (c *Config) ValidateStore() error {
	return c.validateStore()
}

func (c *Config) validateStore() error {
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.DBName == "" {
			return errors.New("postgres needs db.host and db.dbname")
		}
	case "sqlite":
		if c.DB.Path == "" {
			return errors.New("sqlite needs db.path")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db driver %q", c.DB.Driver)
	}
	return nil
}

// Location returns the ledger reference timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
