package core

import (
	"context"
	"time"

	"github.com/bidbot-ai/bidbot/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	UpdateUserQuota(ctx context.Context, id string, count int, lastReset time.Time) error
	IncrementUserQueryCount(ctx context.Context, id string, at time.Time) error
	ApplySubscription(ctx context.Context, id string, tier string) error
	ListUsers(ctx context.Context, search string, page, perPage int) ([]models.User, int, error)

	CreateQuery(ctx context.Context, q *models.Query) error
	ListQueriesByUser(ctx context.Context, userID string, limit int) ([]models.Query, error)
	ListRecentQueries(ctx context.Context, limit int) ([]models.RecentQuery, error)
	CountQueriesByUser(ctx context.Context, userID string) (int, error)
	CountQueriesSince(ctx context.Context, userID string, since time.Time) (int, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	SearchUserChunks(ctx context.Context, userID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)

	CreatePayment(ctx context.Context, p *models.Payment) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage used to
// archive raw uploads before local deletion.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
