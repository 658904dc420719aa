package models

import (
	"time"
)

// Subscription tiers. Every paid tier implies premium feature access.
const (
	TierFree    = "free"
	TierPro     = "pro"
	TierPremium = "premium"
)

// User roles. Admin endpoints are gated on RoleAdmin.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an authenticated user of the system.
type User struct {
	ID               string    `db:"id" json:"id"`
	Username         string    `db:"username" json:"username"`
	Email            string    `db:"email" json:"email"`
	PasswordHash     string    `db:"password_hash" json:"-"`
	IsPremium        bool      `db:"is_premium" json:"is_premium"`
	SubscriptionTier string    `db:"subscription_tier" json:"subscription_tier"`
	Role             string    `db:"role" json:"role"`
	QueryCount       int       `db:"query_count" json:"query_count"`
	LastQueryReset   time.Time `db:"last_query_reset" json:"last_query_reset"`
	LastLogin        time.Time `db:"last_login" json:"last_login"`
	LastActive       time.Time `db:"last_active" json:"last_active"`
	TotalLogins      int       `db:"total_logins" json:"total_logins"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Query is one processed question/answer pair. Immutable once written.
type Query struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	QueryText string    `db:"query_text" json:"query_text"`
	Response  string    `db:"response" json:"response"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Document holds the extracted text of an upload. The uploaded file itself is
// removed from disk after extraction; the row is the durable artifact unless
// archival to object storage is configured (StorageURL).
type Document struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	StoredFilename   string    `db:"stored_filename" json:"stored_filename"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	ContentType      string    `db:"content_type" json:"content_type"`
	Content          string    `db:"content" json:"content"`
	StorageURL       string    `db:"storage_url" json:"storage_url,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// DocumentChunk represents one embedded text chunk of a document, used for
// similarity search when building answer context.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	Position   int       `db:"position" json:"position"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"-"`
	TokenCount int       `db:"token_count" json:"token_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RecentQuery is the admin listing view of a query joined with its author.
type RecentQuery struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	QueryText string    `json:"query_text"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment records a successful Stripe payment intent applied to a user.
type Payment struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	StripePaymentID string    `db:"stripe_payment_id" json:"stripe_payment_id"`
	Amount          int64     `db:"amount" json:"amount"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
