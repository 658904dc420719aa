package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/core/extract"
	"github.com/bidbot-ai/bidbot/internal/models"
)

const chunkTargetTokens = 200

// TextExtractor is the slice of the extractor the service needs.
type TextExtractor interface {
	Extract(path string) (text string, contentType string, err error)
}

// DocumentService processes uploads: text extraction, optional archival of
// the raw file to object storage, persistence, and chunk embedding for later
// similarity search. The temp file is gone by the time ProcessUpload returns,
// whatever the outcome.
type DocumentService struct {
	db        core.DbClient
	extractor TextExtractor
	embedder  core.EmbeddingProvider // nil disables chunk embedding
	storage   core.ObjectClient      // nil disables archival
	bucket    string
}

func NewDocumentService(db core.DbClient, extractor TextExtractor, embedder core.EmbeddingProvider, storage core.ObjectClient, bucket string) *DocumentService {
	return &DocumentService{
		db:        db,
		extractor: extractor,
		embedder:  embedder,
		storage:   storage,
		bucket:    bucket,
	}
}

// ProcessUpload extracts text from the saved temp file and stores the
// document row. Extraction failure produces a row with empty content rather
// than an error; the caller decides how to surface that.
func (s *DocumentService) ProcessUpload(ctx context.Context, userID, tempPath, originalFilename string) (*models.Document, error) {
	storageURL := ""
	if s.storage != nil && s.bucket != "" {
		storageURL = s.archive(ctx, userID, tempPath, originalFilename)
	}

	text, contentType, err := s.extractor.Extract(tempPath)
	if err != nil {
		log.Printf("document: extraction failed for %s: %v", originalFilename, err)
		text = ""
	}

	doc := &models.Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		StoredFilename:   path.Base(tempPath),
		OriginalFilename: originalFilename,
		ContentType:      contentType,
		Content:          text,
		StorageURL:       storageURL,
		CreatedAt:        time.Now(),
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	if text != "" && s.embedder != nil {
		if err := s.embedChunks(ctx, doc.ID, text); err != nil {
			log.Printf("document: chunk embedding failed for %s: %v", doc.ID, err)
		}
	}

	return doc, nil
}

// archive copies the raw upload to object storage before extraction deletes
// it. Archival failure is not fatal; the extracted text still lands in the
// row.
func (s *DocumentService) archive(ctx context.Context, userID, tempPath, originalFilename string) string {
	data, err := os.ReadFile(tempPath)
	if err != nil {
		log.Printf("document: archive read failed for %s: %v", tempPath, err)
		return ""
	}

	key := path.Join("users", userID, "documents", uuid.NewString(), sanitizeFilename(originalFilename))
	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, "application/octet-stream")
	if err != nil {
		log.Printf("document: archive upload failed for %s: %v", originalFilename, err)
		return ""
	}
	return url
}

func (s *DocumentService) embedChunks(ctx context.Context, docID, text string) error {
	chunks := splitChunks(text, chunkTargetTokens)
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vecs))
	}

	rows := make([]models.DocumentChunk, len(chunks))
	for i, ch := range chunks {
		rows[i] = models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Position:   ch.Pos,
			Text:       ch.Text,
			Embedding:  vecs[i],
			TokenCount: ch.TokenCnt,
			CreatedAt:  time.Now(),
		}
	}
	return s.db.InsertDocumentChunks(ctx, rows)
}

// ListByUser returns the user's documents, newest first.
func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	return s.db.ListDocumentsByUser(ctx, userID)
}

// AllowedFilename re-exports the extension allowlist so handlers can reject
// uploads before anything touches disk.
func AllowedFilename(filename string) bool {
	return extract.AllowedFilename(filename)
}

func sanitizeFilename(filename string) string {
	filename = strings.TrimSpace(path.Base(filename))
	return strings.ReplaceAll(filename, " ", "_")
}
