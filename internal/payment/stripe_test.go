package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"

	"calorie-bot/config"
)

func sign(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutEvent(clientRef string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "client_reference_id": %q}}
	}`, stripe.APIVersion, clientRef))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := NewStripeClient(config.StripeConfig{SecretKey: "sk_test", WebhookKey: "whsec_test"})
	payload := checkoutEvent("42")

	event, err := c.VerifyWebhookSignature(payload, sign(t, payload, "whsec_test"))
	require.NoError(t, err)

	checkout, err := ParseCompletedCheckout(event)
	require.NoError(t, err)
	assert.Equal(t, &CompletedCheckout{SessionID: "cs_test_1", UserID: "42"}, checkout)

	_, err = c.VerifyWebhookSignature(payload, sign(t, payload, "whsec_other"))
	assert.Error(t, err)
}

func TestVerifyWebhookSignature_NoSecret(t *testing.T) {
	c := NewStripeClient(config.StripeConfig{SecretKey: "sk_test"})
	_, err := c.VerifyWebhookSignature([]byte(`{}`), "t=1,v1=00")
	assert.ErrorContains(t, err, "not configured")
}

func TestParseCompletedCheckout_Errors(t *testing.T) {
	_, err := ParseCompletedCheckout(stripe.Event{Type: "payment_intent.succeeded"})
	assert.Error(t, err)

	_, err = ParseCompletedCheckout(stripe.Event{
		Type: EventCheckoutCompleted,
		Data: &stripe.EventData{Raw: []byte(`{"id": "cs_1"}`)},
	})
	assert.ErrorContains(t, err, "client reference")
}
