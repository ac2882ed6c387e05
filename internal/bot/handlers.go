package bot

import (
	"encoding/json"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stripe/stripe-go/v72"

	"calorie-bot/internal/payment"
)

const maxWebhookBody = 1 << 20

// WebhookVerifier checks Stripe webhook signatures.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error)
}

// HandleWebhook accepts Telegram updates. The reply is sent asynchronously so
// Telegram does not redeliver while an estimate is running. After Stop it
// answers 503.
func (t *TelegramBot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&update); err != nil {
		t.logger.Warnw("Failed to decode Telegram update", "error", err)
		http.Error(w, "Invalid update", http.StatusBadRequest)
		return
	}

	// Refused updates are redelivered by Telegram
	if !t.dispatch(update) {
		http.Error(w, "Shutting down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// StripeWebhook returns the handler for Stripe events.
func (t *TelegramBot) StripeWebhook(verifier WebhookVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			t.logger.Errorw("Failed to read webhook body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			t.logger.Warn("Missing Stripe signature header")
			http.Error(w, "Missing signature", http.StatusBadRequest)
			return
		}

		event, err := verifier.VerifyWebhookSignature(body, signature)
		if err != nil {
			t.logger.Warnw("Failed to verify webhook signature", "error", err)
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}

		switch event.Type {
		case payment.EventCheckoutCompleted:
			checkout, err := payment.ParseCompletedCheckout(event)
			if err != nil {
				t.logger.Errorw("Failed to parse checkout session", "error", err)
				http.Error(w, "Failed to parse event data", http.StatusBadRequest)
				return
			}

			reply, err := t.conv.ActivatePremium(r.Context(), checkout.UserID, checkout.SessionID)
			if err != nil {
				t.logger.Errorw("Failed to activate premium", "user_id", checkout.UserID, "session_id", checkout.SessionID, "error", err)
				http.Error(w, "Failed to process payment", http.StatusInternalServerError)
				return
			}
			t.Notify(reply)

		case "payment_intent.payment_failed":
			var intent stripe.PaymentIntent
			if event.Data == nil {
				break
			}
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				t.logger.Errorw("Failed to parse payment intent", "error", err)
				break
			}
			t.logger.Warnw("Payment failed", "payment_id", intent.ID)

		default:
			t.logger.Debugw("Ignoring Stripe event", "type", event.Type)
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Webhook received"))
	}
}
