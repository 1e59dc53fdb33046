// Package gateway adapts the external payment provider to the deposit order
// lifecycle. It stays a thin boundary: confirmation correctness lives in the
// order manager and the ledger, not here.
package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
	"github.com/stripe/stripe-go/v72/webhook"
)

// PaymentEvent is the provider-neutral result of parsing a webhook.
type PaymentEvent struct {
	OrderNo     string
	ExternalRef string
	// Confirmed is true for a final payment success, false for the earlier
	// "payment seen" signal.
	Confirmed bool
}

type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the stripe client. The API key is process-wide
// in stripe-go v72.
func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

// CreateIntent opens a PaymentIntent for a deposit order. The order number
// travels in the intent metadata so the webhook can route the confirmation.
func (g *StripeGateway) CreateIntent(amount int64, currency, orderNo string) (clientSecret string, err error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("order_no", orderNo)

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return pi.ClientSecret, nil
}

// ParseWebhook verifies the event signature and extracts the deposit signal.
// Events that do not concern deposit orders return a nil event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	switch event.Type {
	case "payment_intent.processing", "payment_intent.succeeded":
	default:
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to parse payment intent: %w", err)
	}
	orderNo := pi.Metadata["order_no"]
	if orderNo == "" {
		return nil, nil
	}
	return &PaymentEvent{
		OrderNo:     orderNo,
		ExternalRef: pi.ID,
		Confirmed:   event.Type == "payment_intent.succeeded",
	}, nil
}
