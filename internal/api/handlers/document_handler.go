package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	middleware "github.com/bidbot-ai/bidbot/internal/api/middlewares"
	"github.com/bidbot-ai/bidbot/internal/models"
	"github.com/bidbot-ai/bidbot/internal/services"
)

const maxUploadBytes = 32 << 20 // 32 MB per request

type DocumentHandler struct {
	documents *services.DocumentService
	queries   *services.QueryService
	uploadDir string
}

func NewDocumentHandler(documents *services.DocumentService, queries *services.QueryService, uploadDir string) *DocumentHandler {
	return &DocumentHandler{documents: documents, queries: queries, uploadDir: uploadDir}
}

// Upload accepts one or more files plus an optional query to answer against
// them. Files with a disallowed extension are rejected before any disk write.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		http.Error(w, "no file part", http.StatusBadRequest)
		return
	}

	// Validate every declared filename before anything is written to disk.
	for _, header := range files {
		if header.Filename == "" {
			http.Error(w, "no selected file", http.StatusBadRequest)
			return
		}
		if !services.AllowedFilename(header.Filename) {
			http.Error(w, fmt.Sprintf("file type not allowed: %s", filepath.Base(header.Filename)), http.StatusBadRequest)
			return
		}
	}

	var docs []*models.Document
	for _, header := range files {
		doc, err := h.processOne(r, userID, header)
		if err != nil {
			log.Printf("document: upload failed for %s: %v", header.Filename, err)
			http.Error(w, "failed to process upload", http.StatusInternalServerError)
			return
		}
		docs = append(docs, doc)
	}

	response := map[string]any{"documents": docs}

	if query := r.FormValue("query"); query != "" {
		result, err := h.queries.Process(r.Context(), userID, query)
		if err != nil {
			var rateErr *services.RateLimitError
			if errors.As(err, &rateErr) {
				response["query_error"] = "Free tier query limit reached"
			} else {
				log.Printf("document: query after upload failed: %v", err)
				response["query_error"] = "failed to process query"
			}
		} else {
			response["ai_response"] = result.AIResponse
			if result.QueriesRemaining != nil {
				response["queries_remaining"] = *result.QueriesRemaining
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *DocumentHandler) processOne(r *http.Request, userID string, header *multipart.FileHeader) (*models.Document, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	storedName := uuid.NewString() + filepath.Ext(header.Filename)
	tempPath := filepath.Join(h.uploadDir, storedName)

	dst, err := os.Create(tempPath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(tempPath)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	return h.documents.ProcessUpload(r.Context(), userID, tempPath, header.Filename)
}

// List returns the caller's documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	documents, err := h.documents.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to load documents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}
