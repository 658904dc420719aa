package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	middleware "github.com/bidbot-ai/bidbot/internal/api/middlewares"
	"github.com/bidbot-ai/bidbot/internal/services"
)

type QueryHandler struct {
	queries *services.QueryService
}

func NewQueryHandler(queries *services.QueryService) *QueryHandler {
	return &QueryHandler{queries: queries}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	AIResponse       string `json:"ai_response"`
	QueriesRemaining *int   `json:"queries_remaining,omitempty"`
}

func (h *QueryHandler) ProcessQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format, expected JSON", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "missing query parameter", http.StatusBadRequest)
		return
	}

	result, err := h.queries.Process(r.Context(), userID, req.Query)
	if err != nil {
		var rateErr *services.RateLimitError
		if errors.As(err, &rateErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": "Free tier query limit reached",
				"message": fmt.Sprintf("You have used all %d queries. Limit will reset in %d hours.",
					rateErr.Limit, int(rateErr.HoursUntilReset)),
				"subscription_options": services.SubscriptionOptions,
				"upgrade_url":          "/payment",
			})
			return
		}
		log.Printf("query: processing failed for user %s: %v", userID, err)
		http.Error(w, "failed to process query", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(queryResponse{
		AIResponse:       result.AIResponse,
		QueriesRemaining: result.QueriesRemaining,
	})
}

// RecentConversations returns the user's latest query/answer pairs.
func (h *QueryHandler) RecentConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	queries, err := h.queries.RecentConversations(r.Context(), userID, 10)
	if err != nil {
		log.Printf("query: listing conversations failed for user %s: %v", userID, err)
		http.Error(w, "failed to load conversations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":        "success",
		"conversations": queries,
	})
}
