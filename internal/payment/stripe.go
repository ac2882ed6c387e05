// internal/payment/stripe.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"

	"calorie-bot/config"
)

// EventCheckoutCompleted is the Stripe event that grants premium.
const EventCheckoutCompleted = "checkout.session.completed"

type StripeClient struct {
	secretKey     string
	webhookSecret string
	priceID       string
	successURL    string
	cancelURL     string
}

func NewStripeClient(cfg config.StripeConfig) *StripeClient {
	// Set the secret key for backend operations
	stripe.Key = cfg.SecretKey

	return &StripeClient{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookKey,
		priceID:       cfg.PriceID,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateCheckoutSession returns the session ID and its payment URL. The user
// id travels as the client reference and comes back in the webhook.
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, userID string) (string, string, error) {
	if stripe.Key != s.secretKey {
		stripe.Key = s.secretKey
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(userID),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.ID, sess.URL, nil
}

func (s *StripeClient) VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("webhook secret is not configured")
	}
	return webhook.ConstructEvent(payload, sig, s.webhookSecret)
}

// CompletedCheckout is the part of a finished checkout the bot acts on.
type CompletedCheckout struct {
	SessionID string
	UserID    string
}

// ParseCompletedCheckout reads a checkout.session.completed event.
func ParseCompletedCheckout(event stripe.Event) (*CompletedCheckout, error) {
	if event.Type != EventCheckoutCompleted {
		return nil, fmt.Errorf("unexpected event type %q", event.Type)
	}
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	if sess.ClientReferenceID == "" {
		return nil, fmt.Errorf("checkout session %s has no client reference", sess.ID)
	}
	return &CompletedCheckout{SessionID: sess.ID, UserID: sess.ClientReferenceID}, nil
}
