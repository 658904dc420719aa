package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/models"
	"github.com/bidbot-ai/bidbot/internal/services"
)

// memDB implements the persistence calls the handlers under test exercise;
// anything else panics through the embedded nil interface.
type memDB struct {
	core.DbClient
	users   map[string]*models.User
	queries []*models.Query
	created []*models.User
}

func newMemDB() *memDB {
	return &memDB{users: make(map[string]*models.User)}
}

func (m *memDB) CreateUser(ctx context.Context, user *models.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return errors.New("duplicate email")
		}
	}
	m.users[user.ID] = user
	m.created = append(m.created, user)
	return nil
}

func (m *memDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return m.users[id], nil
}

func (m *memDB) RecordLogin(ctx context.Context, id string, at time.Time) error { return nil }

func (m *memDB) UpdateUserQuota(ctx context.Context, id string, count int, lastReset time.Time) error {
	if u, ok := m.users[id]; ok {
		u.QueryCount = count
		u.LastQueryReset = lastReset
	}
	return nil
}

func (m *memDB) IncrementUserQueryCount(ctx context.Context, id string, at time.Time) error {
	if u, ok := m.users[id]; ok {
		u.QueryCount++
	}
	return nil
}

func (m *memDB) CreateQuery(ctx context.Context, q *models.Query) error {
	m.queries = append(m.queries, q)
	return nil
}

func (m *memDB) ListQueriesByUser(ctx context.Context, userID string, limit int) ([]models.Query, error) {
	var out []models.Query
	for _, q := range m.queries {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}

type noopAggregator struct{}

func (noopAggregator) Aggregate(ctx context.Context, query string) []core.Snippet { return nil }

type staticAnswerer struct{ answer string }

func (s staticAnswerer) Answer(ctx context.Context, userID, query string, snippets []core.Snippet) string {
	return s.answer
}

func authedRequest(method, target, body, userID string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r.WithContext(context.WithValue(r.Context(), "user_id", userID))
}

func TestSignupMissingFields(t *testing.T) {
	h := NewAuthHandler(newMemDB(), "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":"a@b.c"}`))
	resp := httptest.NewRecorder()
	h.Signup(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSignupAndLogin(t *testing.T) {
	db := newMemDB()
	h := NewAuthHandler(db, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"hunter22"}`))
	resp := httptest.NewRecorder()
	h.Signup(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var signupBody map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &signupBody); err != nil || signupBody["token"] == "" {
		t.Fatalf("signup: expected token, got %s", resp.Body.String())
	}
	if len(db.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(db.created))
	}
	u := db.created[0]
	if u.SubscriptionTier != models.TierFree || u.Role != models.RoleUser {
		t.Errorf("new user must start on free tier with user role: %+v", u)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22")) != nil {
		t.Error("stored hash must match the password")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"alice@example.com","password":"hunter22"}`))
	resp = httptest.NewRecorder()
	h.Login(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.Code)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	db := newMemDB()
	h := NewAuthHandler(db, "secret")

	body := `{"username":"alice","email":"alice@example.com","password":"pw123456"}`
	resp := httptest.NewRecorder()
	h.Signup(resp, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body)))
	if resp.Code != http.StatusOK {
		t.Fatalf("first signup: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	h.Signup(resp, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body)))
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", resp.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := newMemDB()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	db.users["u1"] = &models.User{ID: "u1", Email: "bob@example.com", PasswordHash: string(hash)}

	h := NewAuthHandler(db, "secret")
	resp := httptest.NewRecorder()
	h.Login(resp, httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"bob@example.com","password":"wrong"}`)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func newQueryHandlerFixture(user *models.User) (*QueryHandler, *memDB) {
	db := newMemDB()
	if user != nil {
		db.users[user.ID] = user
	}
	svc := services.NewQueryService(db, noopAggregator{}, staticAnswerer{answer: "here you go"}, 5, 8*time.Hour)
	return NewQueryHandler(svc), db
}

func TestProcessQuerySuccess(t *testing.T) {
	h, db := newQueryHandlerFixture(&models.User{
		ID:             "u1",
		QueryCount:     1,
		LastQueryReset: time.Now().Add(-time.Hour),
	})

	resp := httptest.NewRecorder()
	h.ProcessQuery(resp, authedRequest(http.MethodPost, "/api/query", `{"query":"what is an rfq"}`, "u1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		AIResponse       string `json:"ai_response"`
		QueriesRemaining *int   `json:"queries_remaining"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.AIResponse != "here you go" {
		t.Errorf("unexpected answer %q", body.AIResponse)
	}
	if body.QueriesRemaining == nil || *body.QueriesRemaining != 3 {
		t.Errorf("expected 3 remaining, got %v", body.QueriesRemaining)
	}
	if len(db.queries) != 1 {
		t.Errorf("expected persisted query, got %d", len(db.queries))
	}
}

func TestProcessQueryRateLimited(t *testing.T) {
	h, _ := newQueryHandlerFixture(&models.User{
		ID:             "u1",
		QueryCount:     5,
		LastQueryReset: time.Now().Add(-time.Hour),
	})

	resp := httptest.NewRecorder()
	h.ProcessQuery(resp, authedRequest(http.MethodPost, "/api/query", `{"query":"one more"}`, "u1"))

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body["error"] != "Free tier query limit reached" {
		t.Errorf("unexpected error field %v", body["error"])
	}
	opts, ok := body["subscription_options"].(map[string]any)
	if !ok {
		t.Fatalf("expected subscription_options, got %v", body["subscription_options"])
	}
	if _, ok := opts["pro"]; !ok {
		t.Error("subscription_options must offer the pro plan")
	}
	if _, ok := opts["premium"]; !ok {
		t.Error("subscription_options must offer the premium plan")
	}
	if body["upgrade_url"] != "/payment" {
		t.Errorf("unexpected upgrade_url %v", body["upgrade_url"])
	}
}

func TestProcessQueryPremiumOmitsRemaining(t *testing.T) {
	h, _ := newQueryHandlerFixture(&models.User{
		ID:        "u1",
		IsPremium: true,
	})

	resp := httptest.NewRecorder()
	h.ProcessQuery(resp, authedRequest(http.MethodPost, "/api/query", `{"query":"anything"}`, "u1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "queries_remaining") {
		t.Errorf("premium response must omit queries_remaining: %s", resp.Body.String())
	}
}

func TestProcessQueryEmptyQuery(t *testing.T) {
	h, _ := newQueryHandlerFixture(&models.User{ID: "u1"})

	resp := httptest.NewRecorder()
	h.ProcessQuery(resp, authedRequest(http.MethodPost, "/api/query", `{"query":""}`, "u1"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProcessQueryBadJSON(t *testing.T) {
	h, _ := newQueryHandlerFixture(&models.User{ID: "u1"})

	resp := httptest.NewRecorder()
	h.ProcessQuery(resp, authedRequest(http.MethodPost, "/api/query", `not json`, "u1"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProcessQueryMissingAuth(t *testing.T) {
	h, _ := newQueryHandlerFixture(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"hi"}`))
	resp := httptest.NewRecorder()
	h.ProcessQuery(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

