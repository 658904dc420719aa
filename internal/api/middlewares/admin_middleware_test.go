package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/models"
)

// userLookupDB satisfies core.DbClient for role checks; any other call panics.
type userLookupDB struct {
	core.DbClient
	users map[string]*models.User
}

func (f *userLookupDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func adminRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), "user_id", userID))
	}
	return req
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	db := &userLookupDB{users: map[string]*models.User{
		"a1": {ID: "a1", Role: models.RoleAdmin},
	}}
	handler := RequireAdmin(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest("a1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRequireAdminRejectsRegularUser(t *testing.T) {
	db := &userLookupDB{users: map[string]*models.User{
		"u1": {ID: "u1", Role: models.RoleUser},
	}}
	handler := RequireAdmin(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for non-admin")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest("u1"))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestRequireAdminRejectsUnknownUser(t *testing.T) {
	db := &userLookupDB{users: map[string]*models.User{}}
	handler := RequireAdmin(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for unknown user")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest("ghost"))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRequireAdminRejectsMissingContext(t *testing.T) {
	db := &userLookupDB{users: map[string]*models.User{}}
	handler := RequireAdmin(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without auth context")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, adminRequest(""))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
