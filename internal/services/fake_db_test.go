package services

import (
	"context"
	"time"

	"github.com/bidbot-ai/bidbot/internal/models"
)

// fakeDB is an in-memory DbClient for service tests.
type fakeDB struct {
	users    map[string]*models.User
	queries  []*models.Query
	payments []*models.Payment
	docs     []*models.Document
	chunks   []models.DocumentChunk

	quotaResets   int
	increments    int
	subscriptions map[string]string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:         make(map[string]*models.User),
		subscriptions: make(map[string]string),
	}
}

func (f *fakeDB) CreateUser(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeDB) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if u, ok := f.users[id]; ok {
		u.LastLogin = at
		u.TotalLogins++
	}
	return nil
}

func (f *fakeDB) UpdateUserQuota(ctx context.Context, id string, count int, lastReset time.Time) error {
	f.quotaResets++
	if u, ok := f.users[id]; ok {
		u.QueryCount = count
		u.LastQueryReset = lastReset
	}
	return nil
}

func (f *fakeDB) IncrementUserQueryCount(ctx context.Context, id string, at time.Time) error {
	f.increments++
	if u, ok := f.users[id]; ok {
		u.QueryCount++
		u.LastActive = at
	}
	return nil
}

func (f *fakeDB) ApplySubscription(ctx context.Context, id string, tier string) error {
	f.subscriptions[id] = tier
	if u, ok := f.users[id]; ok {
		u.SubscriptionTier = tier
		u.IsPremium = true
	}
	return nil
}

func (f *fakeDB) ListUsers(ctx context.Context, search string, page, perPage int) ([]models.User, int, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeDB) CreateQuery(ctx context.Context, q *models.Query) error {
	f.queries = append(f.queries, q)
	return nil
}

func (f *fakeDB) ListQueriesByUser(ctx context.Context, userID string, limit int) ([]models.Query, error) {
	var out []models.Query
	for _, q := range f.queries {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeDB) ListRecentQueries(ctx context.Context, limit int) ([]models.RecentQuery, error) {
	return nil, nil
}

func (f *fakeDB) CountQueriesByUser(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, q := range f.queries {
		if q.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) CountQueriesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	n := 0
	for _, q := range f.queries {
		if q.UserID == userID && !q.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) CreateDocument(ctx context.Context, doc *models.Document) error {
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeDB) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	var out []models.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDB) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeDB) SearchUserChunks(ctx context.Context, userID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	return nil, nil
}

func (f *fakeDB) CreatePayment(ctx context.Context, p *models.Payment) error {
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeDB) Close() error { return nil }
