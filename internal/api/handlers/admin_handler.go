package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bidbot-ai/bidbot/internal/core"
)

const adminPerPage = 10

type AdminHandler struct {
	dbclient core.DbClient
}

func NewAdminHandler(dbclient core.DbClient) *AdminHandler {
	return &AdminHandler{dbclient: dbclient}
}

type adminUserView struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	SubscriptionTier string `json:"subscription_tier"`
	IsPremium        bool   `json:"is_premium"`
	QueriesToday     int    `json:"queries_today"`
	TotalQueries     int    `json:"total_queries"`
	LastActive       string `json:"last_active"`
	CreatedAt        string `json:"created_at"`
}

// ListUsers returns a paginated, searchable user listing with per-user
// query stats.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	search := r.URL.Query().Get("search")

	users, total, err := h.dbclient.ListUsers(r.Context(), search, page, adminPerPage)
	if err != nil {
		log.Printf("admin: user listing failed: %v", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)

	views := make([]adminUserView, 0, len(users))
	for _, u := range users {
		today, err := h.dbclient.CountQueriesSince(r.Context(), u.ID, dayStart)
		if err != nil {
			log.Printf("admin: query count failed for %s: %v", u.ID, err)
		}
		totalQueries, err := h.dbclient.CountQueriesByUser(r.Context(), u.ID)
		if err != nil {
			log.Printf("admin: total count failed for %s: %v", u.ID, err)
		}
		views = append(views, adminUserView{
			ID:               u.ID,
			Username:         u.Username,
			Email:            u.Email,
			SubscriptionTier: u.SubscriptionTier,
			IsPremium:        u.IsPremium,
			QueriesToday:     today,
			TotalQueries:     totalQueries,
			LastActive:       u.LastActive.Format(time.RFC3339),
			CreatedAt:        u.CreatedAt.Format(time.RFC3339),
		})
	}

	totalPages := (total + adminPerPage - 1) / adminPerPage

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"users": views,
		"pagination": map[string]int{
			"current_page": page,
			"total_pages":  totalPages,
			"total_items":  total,
		},
	})
}

// RecentQueries lists the latest queries across all users.
func (h *AdminHandler) RecentQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := h.dbclient.ListRecentQueries(r.Context(), 20)
	if err != nil {
		log.Printf("admin: recent queries failed: %v", err)
		http.Error(w, "failed to list queries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"queries": queries})
}

// UserDetails shows one user's profile plus their recent activity.
func (h *AdminHandler) UserDetails(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := h.dbclient.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	activity, err := h.dbclient.ListQueriesByUser(r.Context(), userID, 10)
	if err != nil {
		log.Printf("admin: activity listing failed for %s: %v", userID, err)
		http.Error(w, "failed to load activity", http.StatusInternalServerError)
		return
	}

	totalQueries, err := h.dbclient.CountQueriesByUser(r.Context(), userID)
	if err != nil {
		log.Printf("admin: total count failed for %s: %v", userID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user": map[string]any{
			"id":                user.ID,
			"username":          user.Username,
			"email":             user.Email,
			"subscription_tier": user.SubscriptionTier,
			"is_premium":        user.IsPremium,
			"total_queries":     totalQueries,
			"created_at":        user.CreatedAt.Format(time.RFC3339),
		},
		"activity": activity,
	})
}
