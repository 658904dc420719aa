package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	middleware "github.com/bidbot-ai/bidbot/internal/api/middlewares"
	"github.com/bidbot-ai/bidbot/internal/services"
)

const maxWebhookBytes = int64(65536)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type intentRequest struct {
	Plan string `json:"plan"`
}

// CreateIntent starts a payment intent for the authenticated user's chosen
// plan and hands the client secret back to the frontend.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	intent, err := h.payments.CreateIntent(req.Plan, userID)
	if err != nil {
		log.Printf("payment: intent creation failed for user %s: %v", userID, err)
		http.Error(w, "failed to create payment intent", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"clientSecret": intent.ClientSecret})
}

// Webhook applies Stripe payment events. Signature failures are 400s;
// everything verified returns 200 even when the event is a no-op.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.payments.ApplyWebhookEvent(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		log.Printf("payment: webhook rejected: %v", err)
		http.Error(w, "webhook verification failed", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
