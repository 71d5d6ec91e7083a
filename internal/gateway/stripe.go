// Package gateway holds the Stripe client behind the payment adapter's
// IntentClient interface.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"altelier/internal/service/payment"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
)

// OrderIDMetadataKey ties a Stripe payment intent back to our order.
const OrderIDMetadataKey = "order_id"

type StripeClient struct {
	webhookSecret string
}

func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{webhookSecret: webhookSecret}
}

func (c *StripeClient) CreateIntent(ctx context.Context, amountCents int64, currency, orderID string) (payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	params.AddMetadata(OrderIDMetadataKey, orderID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return payment.Intent{}, err
	}
	return intentFromStripe(pi), nil
}

func (c *StripeClient) GetIntent(ctx context.Context, intentID string) (payment.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return payment.Intent{}, err
	}
	return intentFromStripe(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (c *StripeClient) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	return webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), c.webhookSecret)
}

func intentFromStripe(pi *stripe.PaymentIntent) payment.Intent {
	return payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		OrderID:      pi.Metadata[OrderIDMetadataKey],
	}
}
