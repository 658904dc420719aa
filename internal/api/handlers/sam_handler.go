package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bidbot-ai/bidbot/internal/core/sam"
)

type SamHandler struct {
	client *sam.Client
}

func NewSamHandler(client *sam.Client) *SamHandler {
	return &SamHandler{client: client}
}

// Status reports entity registration records for the dashboard widget.
func (h *SamHandler) Status(w http.ResponseWriter, r *http.Request) {
	entities, err := h.client.EntityStatus(r.Context(), "contractor status")
	if err != nil {
		log.Printf("sam: entity status failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"error":  "Could not fetch SAM.gov data. Please try again later.",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "success",
		"entities": entities,
	})
}

// Awards lists recently awarded contract notices.
func (h *SamHandler) Awards(w http.ResponseWriter, r *http.Request) {
	awards, err := h.client.SearchAwards(r.Context())
	if err != nil {
		log.Printf("sam: awards lookup failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"error":  "Could not fetch contract awards. Please try again later.",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"awards": awards,
	})
}

type samSearchRequest struct {
	Query string `json:"query"`
}

// Search runs a direct opportunity search against SAM.gov.
func (h *SamHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req samSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format, expected JSON", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "missing query parameter", http.StatusBadRequest)
		return
	}

	results, err := h.client.SearchOpportunities(r.Context(), req.Query)
	if err != nil {
		log.Printf("sam: opportunity search failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"error":  "Failed to search SAM.gov. Please try again later.",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if len(results) == 0 {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "warning",
			"message": "No solicitations found matching your criteria",
			"results": []sam.Opportunity{},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "success",
		"results": results,
		"count":   len(results),
	})
}
