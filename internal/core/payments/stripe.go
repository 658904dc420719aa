// Package payments is the Stripe SDK boundary: intent creation and webhook
// event verification. Subscription semantics live in the service layer.
package payments

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/bidbot-ai/bidbot/internal/models"
)

// Plan prices in minor units (USD cents).
const (
	PriceProAmount     int64 = 2000
	PricePremiumAmount int64 = 4000
)

// InitStripe wires the Stripe API key for the process.
func InitStripe(secretKey string) {
	stripe.Key = secretKey
}

// PriceForTier maps a plan tier to its price. Unrecognized tiers fall back
// to the pro price.
func PriceForTier(tier string) (int64, string) {
	switch tier {
	case models.TierPremium:
		return PricePremiumAmount, models.TierPremium
	case models.TierPro:
		return PriceProAmount, models.TierPro
	default:
		return PriceProAmount, models.TierPro
	}
}

type Client struct {
	webhookSecret string
}

func NewClient(webhookSecret string) *Client {
	return &Client{webhookSecret: webhookSecret}
}

// CreateIntent starts a card payment intent for the given plan, carrying the
// user id and product in metadata so the webhook can apply the result.
func (c *Client) CreateIntent(tier, userID string) (*stripe.PaymentIntent, error) {
	amount, normalized := PriceForTier(tier)

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(string(stripe.CurrencyUSD)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.AddMetadata("product", fmt.Sprintf("%s_subscription", normalized))
	params.AddMetadata("user_id", userID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create intent: %w", err)
	}
	return intent, nil
}

// VerifyEvent checks the webhook signature against the shared secret and
// returns the decoded event.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		c.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook signature: %w", err)
	}
	return event, nil
}
