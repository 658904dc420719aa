package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/models"
)

// IntentCreator and EventVerifier are the slices of the Stripe client the
// service needs; tests substitute both.
type IntentCreator interface {
	CreateIntent(tier, userID string) (*stripe.PaymentIntent, error)
}

type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type StripeGateway interface {
	IntentCreator
	EventVerifier
}

// PaymentService creates payment intents and applies webhook outcomes to
// subscription state.
type PaymentService struct {
	db     core.DbClient
	stripe StripeGateway
}

func NewPaymentService(db core.DbClient, gateway StripeGateway) *PaymentService {
	return &PaymentService{db: db, stripe: gateway}
}

// CreateIntent starts a payment intent for the given plan tier.
func (s *PaymentService) CreateIntent(tier, userID string) (*stripe.PaymentIntent, error) {
	return s.stripe.CreateIntent(tier, userID)
}

// ApplyWebhookEvent verifies and applies one webhook delivery. A payload
// referencing an unknown or missing user is a no-op: the webhook endpoint
// must never fail on Stripe's side of the contract.
func (s *PaymentService) ApplyWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.stripe.VerifyEvent(payload, sigHeader)
	if err != nil {
		return err
	}

	if event.Type != "payment_intent.succeeded" {
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("decode payment intent: %w", err)
	}

	return s.applySucceededIntent(ctx, &intent)
}

func (s *PaymentService) applySucceededIntent(ctx context.Context, intent *stripe.PaymentIntent) error {
	userID := intent.Metadata["user_id"]
	if userID == "" {
		log.Printf("payment: intent %s has no user_id metadata, ignoring", intent.ID)
		return nil
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		log.Printf("payment: intent %s references unknown user %s, ignoring", intent.ID, userID)
		return nil
	}

	tier := tierFromProduct(intent.Metadata["product"])
	if err := s.db.ApplySubscription(ctx, userID, tier); err != nil {
		return err
	}

	payment := &models.Payment{
		ID:              uuid.NewString(),
		UserID:          userID,
		StripePaymentID: intent.ID,
		Amount:          intent.Amount,
		Status:          "succeeded",
		CreatedAt:       time.Now(),
	}
	if err := s.db.CreatePayment(ctx, payment); err != nil {
		return err
	}

	log.Printf("payment: user %s upgraded to %s via intent %s", userID, tier, intent.ID)
	return nil
}

// tierFromProduct maps intent metadata like "premium_subscription" to a
// tier. Anything unrecognized lands on premium, matching the default the
// paid feature set implies.
func tierFromProduct(product string) string {
	switch {
	case strings.Contains(product, models.TierPremium):
		return models.TierPremium
	case strings.Contains(product, models.TierPro):
		return models.TierPro
	default:
		return models.TierPremium
	}
}
