package checkout

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"slimwell/intake-backend/internal"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func signedEvent(t *testing.T, eventType string, object map[string]interface{}) ([]byte, string) {
	t.Helper()

	raw, err := json.Marshal(object)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_test",
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]json.RawMessage{"object": raw},
	})
	require.NoError(t, err)

	now := time.Now()
	signature := hex.EncodeToString(webhook.ComputeSignature(now, payload, testWebhookSecret))
	return payload, fmt.Sprintf("t=%d,v1=%s", now.Unix(), signature)
}

func TestStripeGateway_ParseEvent(t *testing.T) {
	gw, err := NewStripeGateway("sk_test", testWebhookSecret, "https://example/success", "https://example/cancel")
	require.NoError(t, err)

	t.Run("Completed checkout", func(t *testing.T) {
		payload, header := signedEvent(t, eventCheckoutCompleted, map[string]interface{}{
			"id":       "cs_test_1",
			"object":   "checkout.session",
			"metadata": map[string]string{"intake_session": "abc", "plan_id": "standard-quarterly", "phone": "+919876543210"},
		})

		completed, ok, err := gw.ParseEvent(payload, header)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, CompletedSession{ID: "cs_test_1", IntakeSession: "abc", PlanID: "standard-quarterly", Phone: "+919876543210"}, completed)
	})

	t.Run("Other event", func(t *testing.T) {
		payload, header := signedEvent(t, "customer.created", map[string]interface{}{"id": "cus_1", "object": "customer"})

		_, ok, err := gw.ParseEvent(payload, header)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Tampered signature", func(t *testing.T) {
		payload, _ := signedEvent(t, eventCheckoutCompleted, map[string]interface{}{"id": "cs_test_1"})

		_, _, err := gw.ParseEvent(payload, fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()))
		require.ErrorIs(t, err, internal.ErrInvalidWebhook)
	})
}

func TestNewStripeGatewayRequiresKey(t *testing.T) {
	_, err := NewStripeGateway("", testWebhookSecret, "", "")
	require.ErrorIs(t, err, internal.ErrGatewayUnavailable)
}
