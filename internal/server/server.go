// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"calorie-bot/internal/bot"
	"calorie-bot/pkg/logger"
)

type Server struct {
	server *http.Server
	logger *logger.Logger
}

type Options struct {
	Port string
	// TelegramSecret mounts the Telegram webhook at /webhook/telegram/<secret>.
	// Empty disables the route.
	TelegramSecret string
	// Stripe mounts /webhook/stripe when set.
	Stripe bot.WebhookVerifier
}

func NewServer(opts Options, telegramBot *bot.TelegramBot, l *logger.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         ":" + opts.Port,
			Handler:      NewHandler(opts, telegramBot),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: l.Named("http"),
	}
}

// NewHandler builds the route table.
func NewHandler(opts Options, telegramBot *bot.TelegramBot) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if opts.TelegramSecret != "" {
		mux.HandleFunc("/webhook/telegram/"+opts.TelegramSecret, telegramBot.HandleWebhook)
	}
	if opts.Stripe != nil {
		mux.HandleFunc("/webhook/stripe", telegramBot.StripeWebhook(opts.Stripe))
	}
	return mux
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
