package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/bidbot-ai/bidbot/internal/models"
)

type stubGateway struct {
	event     stripe.Event
	verifyErr error
}

func (g *stubGateway) CreateIntent(tier, userID string) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{ID: "pi_test"}, nil
}

func (g *stubGateway) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return g.event, g.verifyErr
}

func succeededEvent(t *testing.T, userID, product string) stripe.Event {
	t.Helper()
	intent := map[string]any{
		"id":     "pi_123",
		"amount": 4000,
		"metadata": map[string]string{
			"user_id": userID,
			"product": product,
		},
	}
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return stripe.Event{
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestApplyWebhookEventUpgradesUser(t *testing.T) {
	db := newFakeDB()
	db.users["u1"] = &models.User{ID: "u1", SubscriptionTier: models.TierFree, LastQueryReset: time.Now()}

	svc := NewPaymentService(db, &stubGateway{event: succeededEvent(t, "u1", "premium_subscription")})
	if err := svc.ApplyWebhookEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if db.subscriptions["u1"] != models.TierPremium {
		t.Errorf("expected premium subscription, got %q", db.subscriptions["u1"])
	}
	if len(db.payments) != 1 {
		t.Fatalf("expected payment row, got %d", len(db.payments))
	}
	p := db.payments[0]
	if p.StripePaymentID != "pi_123" || p.Amount != 4000 || p.Status != "succeeded" {
		t.Errorf("unexpected payment row: %+v", p)
	}
}

func TestApplyWebhookEventUnknownUserIsNoop(t *testing.T) {
	db := newFakeDB()
	svc := NewPaymentService(db, &stubGateway{event: succeededEvent(t, "ghost", "pro_subscription")})

	if err := svc.ApplyWebhookEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unknown user must be a no-op, got %v", err)
	}
	if len(db.payments) != 0 || len(db.subscriptions) != 0 {
		t.Error("unknown user must not create rows")
	}
}

func TestApplyWebhookEventMissingUserIDIsNoop(t *testing.T) {
	db := newFakeDB()
	svc := NewPaymentService(db, &stubGateway{event: succeededEvent(t, "", "pro_subscription")})

	if err := svc.ApplyWebhookEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("missing user_id must be a no-op, got %v", err)
	}
	if len(db.payments) != 0 {
		t.Error("missing user_id must not create rows")
	}
}

func TestApplyWebhookEventIgnoresOtherTypes(t *testing.T) {
	db := newFakeDB()
	db.users["u1"] = &models.User{ID: "u1"}
	event := stripe.Event{Type: "payment_intent.created", Data: &stripe.EventData{Raw: []byte("{}")}}

	svc := NewPaymentService(db, &stubGateway{event: event})
	if err := svc.ApplyWebhookEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.subscriptions) != 0 {
		t.Error("non-succeeded events must not change subscriptions")
	}
}

func TestApplyWebhookEventRejectsBadSignature(t *testing.T) {
	svc := NewPaymentService(newFakeDB(), &stubGateway{verifyErr: errors.New("bad signature")})
	if err := svc.ApplyWebhookEvent(context.Background(), []byte("{}"), "sig"); err == nil {
		t.Fatal("expected verification error to propagate")
	}
}

func TestTierFromProduct(t *testing.T) {
	cases := []struct {
		product string
		want    string
	}{
		{"pro_subscription", models.TierPro},
		{"premium_subscription", models.TierPremium},
		{"", models.TierPremium},
		{"mystery_plan", models.TierPremium},
	}
	for _, c := range cases {
		if got := tierFromProduct(c.product); got != c.want {
			t.Errorf("tierFromProduct(%q) = %q, want %q", c.product, got, c.want)
		}
	}
}
