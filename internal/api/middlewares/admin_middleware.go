package middleware

import (
	"net/http"

	"github.com/bidbot-ai/bidbot/internal/core"
	"github.com/bidbot-ai/bidbot/internal/models"
)

// RequireAdmin loads the authenticated user and rejects anyone without the
// admin role. It must run after JWTMiddleware.
func RequireAdmin(db core.DbClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserID(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := db.GetUserByID(r.Context(), userID)
			if err != nil || user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if user.Role != models.RoleAdmin {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
