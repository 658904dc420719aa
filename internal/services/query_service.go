package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/models"
)

// SubscriptionOptions is the upsell payload attached to rate-limit errors.
var SubscriptionOptions = map[string]map[string]string{
	models.TierPro: {
		"price":    "$20/month",
		"features": "Unlimited queries, priority support",
	},
	models.TierPremium: {
		"price":    "$40/month",
		"features": "Unlimited queries, priority support, advanced features",
	},
}

// RateLimitError is returned when a free-tier user has exhausted the rolling
// window. It carries everything the handler needs for the 429 payload.
type RateLimitError struct {
	Limit           int
	HoursUntilReset float64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("free tier query limit reached; resets in %d hours", int(e.HoursUntilReset))
}

// QueryResult is the outcome of a processed query. QueriesRemaining is only
// set for free-tier users.
type QueryResult struct {
	AIResponse       string
	QueriesRemaining *int
}

// Aggregator gathers external context; Answerer produces the final response.
type Aggregator interface {
	Aggregate(ctx context.Context, query string) []core.Snippet
}

type Answerer interface {
	Answer(ctx context.Context, userID, query string, snippets []core.Snippet) string
}

// QueryService enforces the free-tier rolling-window limit, runs the
// aggregation and answer pipeline, and persists the query row.
type QueryService struct {
	db         core.DbClient
	aggregator Aggregator
	answerer   Answerer
	limit      int
	window     time.Duration
	now        func() time.Time
}

func NewQueryService(db core.DbClient, agg Aggregator, ans Answerer, limit int, window time.Duration) *QueryService {
	return &QueryService{
		db:         db,
		aggregator: agg,
		answerer:   ans,
		limit:      limit,
		window:     window,
		now:        time.Now,
	}
}

// Process answers one user query. Free-tier counters are last-write-wins:
// concurrent requests from one user may race on the counter, which is
// accepted for this workload.
func (s *QueryService) Process(ctx context.Context, userID, queryText string) (*QueryResult, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	now := s.now()

	if !user.IsPremium {
		if now.Sub(user.LastQueryReset) >= s.window {
			user.QueryCount = 0
			user.LastQueryReset = now
			if err := s.db.UpdateUserQuota(ctx, userID, 0, now); err != nil {
				return nil, err
			}
		}

		if user.QueryCount >= s.limit {
			nextReset := user.LastQueryReset.Add(s.window)
			hours := nextReset.Sub(now).Hours()
			if hours < 0 {
				hours = 0
			}
			return nil, &RateLimitError{Limit: s.limit, HoursUntilReset: hours}
		}
	}

	snippets := s.aggregator.Aggregate(ctx, queryText)
	answer := s.answerer.Answer(ctx, userID, queryText, snippets)

	query := &models.Query{
		ID:        uuid.NewString(),
		UserID:    userID,
		QueryText: queryText,
		Response:  answer,
		CreatedAt: now,
	}
	if err := s.db.CreateQuery(ctx, query); err != nil {
		return nil, err
	}

	result := &QueryResult{AIResponse: answer}

	// The counter moves only after a successful answer.
	if !user.IsPremium {
		if err := s.db.IncrementUserQueryCount(ctx, userID, now); err != nil {
			return nil, err
		}
		remaining := s.limit - (user.QueryCount + 1)
		if remaining < 0 {
			remaining = 0
		}
		result.QueriesRemaining = &remaining
	}

	return result, nil
}

// RecentConversations lists the user's latest query/answer pairs.
func (s *QueryService) RecentConversations(ctx context.Context, userID string, limit int) ([]models.Query, error) {
	return s.db.ListQueriesByUser(ctx, userID, limit)
}
