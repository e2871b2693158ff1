package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"slimwell/intake-backend/internal"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const eventCheckoutCompleted = "checkout.session.completed"

// SessionParams describes one hosted checkout page.
type SessionParams struct {
	IdempotencyKey string
	PlanID         string
	PlanName       string
	Amount         int64
	Currency       string
	Phone          string
	Email          string
	IntakeSession  string
}

type GatewaySession struct {
	ID  string
	URL string
}

// CompletedSession is the part of a completed checkout the service acts on.
type CompletedSession struct {
	ID            string
	IntakeSession string
	PlanID        string
	Phone         string
}

type Gateway interface {
	CreateSession(ctx context.Context, params SessionParams) (GatewaySession, error)
	// ParseEvent verifies the signature of a webhook payload. It returns
	// ok=false for event types the service does not act on.
	ParseEvent(payload []byte, signature string) (CompletedSession, bool, error)
}

type stripeGateway struct {
	api           *client.API
	successURL    string
	cancelURL     string
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret, successURL, cancelURL string) (Gateway, error) {
	if secretKey == "" {
		return nil, internal.ErrGatewayUnavailable
	}
	return &stripeGateway{
		api:           client.New(secretKey, nil),
		successURL:    successURL,
		cancelURL:     cancelURL,
		webhookSecret: webhookSecret,
	}, nil
}

func (g *stripeGateway) CreateSession(ctx context.Context, p SessionParams) (GatewaySession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(p.IntakeSession),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(p.Currency)),
					UnitAmount: stripe.Int64(p.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.PlanName),
					},
				},
			},
		},
	}
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey(p.IdempotencyKey)
	params.AddMetadata("intake_session", p.IntakeSession)
	params.AddMetadata("plan_id", p.PlanID)
	params.AddMetadata("phone", p.Phone)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return GatewaySession{}, fmt.Errorf("%w: %v", internal.ErrCheckoutUnavailable, err)
	}
	return GatewaySession{ID: s.ID, URL: s.URL}, nil
}

func (g *stripeGateway) ParseEvent(payload []byte, signature string) (CompletedSession, bool, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return CompletedSession{}, false, fmt.Errorf("%w: %v", internal.ErrInvalidWebhook, err)
	}
	if event.Type != eventCheckoutCompleted {
		return CompletedSession{}, false, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return CompletedSession{}, false, fmt.Errorf("%w: %v", internal.ErrInvalidWebhook, err)
	}

	return CompletedSession{
		ID:            s.ID,
		IntakeSession: s.Metadata["intake_session"],
		PlanID:        s.Metadata["plan_id"],
		Phone:         s.Metadata["phone"],
	}, true, nil
}
