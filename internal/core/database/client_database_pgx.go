package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bidbot-ai/bidbot/internal/config"
	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/models"
)

const (
	userLoadRetries    = 3
	userLoadRetryDelay = time.Second
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// withUserLoadRetry retries on transient connection failures. Only the
// user-lookup path carries this wrapper; everything else fails fast.
func withUserLoadRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < userLoadRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(userLoadRetryDelay)
		}
		err = fn()
		if err == nil || !errors.Is(err, sql.ErrConnDone) {
			return err
		}
		log.Printf("user load attempt %d failed on stale connection: %v", attempt+1, err)
	}
	return err
}

// Implementing the db interface for users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users
			(id, username, email, password_hash, is_premium, subscription_tier, role,
			 query_count, last_query_reset, last_login, last_active, total_logins, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), COALESCE($10, now()),
			 COALESCE($11, now()), $12, COALESCE($13, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsPremium,
		user.SubscriptionTier, user.Role, user.QueryCount, user.LastQueryReset,
		user.LastLogin, user.LastActive, user.TotalLogins, user.CreatedAt)
	return err
}

const userColumns = `
	id, username, email, password_hash, is_premium, subscription_tier, role,
	query_count, last_query_reset, last_login, last_active, total_logins, created_at
`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsPremium,
		&u.SubscriptionTier, &u.Role, &u.QueryCount, &u.LastQueryReset,
		&u.LastLogin, &u.LastActive, &u.TotalLogins, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user *models.User
	err := withUserLoadRetry(func() error {
		var inner error
		user, inner = scanUser(c.db.QueryRowContext(ctx, q, email))
		return inner
	})
	return user, err
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user *models.User
	err := withUserLoadRetry(func() error {
		var inner error
		user, inner = scanUser(c.db.QueryRowContext(ctx, q, id))
		return inner
	})
	return user, err
}

func (c *DatabaseClient) RecordLogin(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE users
		SET last_login = $2, last_active = $2, total_logins = total_logins + 1
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, at)
	return err
}

func (c *DatabaseClient) UpdateUserQuota(ctx context.Context, id string, count int, lastReset time.Time) error {
	const q = `
		UPDATE users
		SET query_count = $2, last_query_reset = $3
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, count, lastReset)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) IncrementUserQueryCount(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE users
		SET query_count = query_count + 1, last_active = $2
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, at)
	return err
}

func (c *DatabaseClient) ApplySubscription(ctx context.Context, id string, tier string) error {
	const q = `
		UPDATE users
		SET is_premium = TRUE, subscription_tier = $2, query_count = 0
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, tier)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) ListUsers(ctx context.Context, search string, page, perPage int) ([]models.User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	pattern := "%" + search + "%"

	var total int
	const countQ = `
		SELECT count(*) FROM users
		WHERE username ILIKE $1 OR email ILIKE $1
	`
	if err := c.db.QueryRowContext(ctx, countQ, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE $1 OR email ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := c.db.QueryContext(ctx, q, pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsPremium,
			&u.SubscriptionTier, &u.Role, &u.QueryCount, &u.LastQueryReset,
			&u.LastLogin, &u.LastActive, &u.TotalLogins, &u.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Implementing the db interface for queries

func (c *DatabaseClient) CreateQuery(ctx context.Context, query *models.Query) error {
	if query == nil {
		return errors.New("nil query")
	}
	const q = `
		INSERT INTO queries (id, user_id, query_text, response, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		query.ID, query.UserID, query.QueryText, query.Response, query.CreatedAt)
	return err
}

func (c *DatabaseClient) ListQueriesByUser(ctx context.Context, userID string, limit int) ([]models.Query, error) {
	const q = `
		SELECT id, user_id, query_text, response, created_at
		FROM queries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Query
	for rows.Next() {
		var item models.Query
		if err := rows.Scan(&item.ID, &item.UserID, &item.QueryText, &item.Response, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListRecentQueries(ctx context.Context, limit int) ([]models.RecentQuery, error) {
	const q = `
		SELECT q.id, u.username, q.query_text, q.created_at
		FROM queries q
		JOIN users u ON u.id = q.user_id
		ORDER BY q.created_at DESC
		LIMIT $1
	`
	rows, err := c.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RecentQuery
	for rows.Next() {
		var item models.RecentQuery
		if err := rows.Scan(&item.ID, &item.Username, &item.QueryText, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountQueriesByUser(ctx context.Context, userID string) (int, error) {
	const q = `SELECT count(*) FROM queries WHERE user_id = $1`
	var n int
	err := c.db.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

func (c *DatabaseClient) CountQueriesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const q = `SELECT count(*) FROM queries WHERE user_id = $1 AND created_at >= $2`
	var n int
	err := c.db.QueryRowContext(ctx, q, userID, since).Scan(&n)
	return n, err
}

// Implementing the db interface for documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, stored_filename, original_filename, content_type, content, storage_url, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.StoredFilename, doc.OriginalFilename,
		doc.ContentType, doc.Content, doc.StorageURL, doc.CreatedAt)
	return err
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	const q = `
		SELECT id, user_id, stored_filename, original_filename, content_type, content, storage_url, created_at
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.StoredFilename, &d.OriginalFilename,
			&d.ContentType, &d.Content, &d.StorageURL, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Implementing the db interface for document chunks

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, position, text, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.Position, ch.Text, vec, ch.TokenCount, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchUserChunks finds top-k similar chunks across all of a user's documents.
func (c *DatabaseClient) SearchUserChunks(ctx context.Context, userID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	const q = `
		SELECT ch.id, ch.document_id, ch.position, ch.text, ch.embedding, ch.token_count
		FROM document_chunks ch
		JOIN documents d ON d.id = ch.document_id
		WHERE d.user_id = $1
		ORDER BY ch.embedding <-> $2
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, userID, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var (
			ch  models.DocumentChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Position, &ch.Text, &emb, &ch.TokenCount); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Implementing the db interface for payments

func (c *DatabaseClient) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p == nil {
		return errors.New("nil payment")
	}
	const q = `
		INSERT INTO payments (id, user_id, stripe_payment_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		p.ID, p.UserID, p.StripePaymentID, p.Amount, p.Status, p.CreatedAt)
	return err
}
