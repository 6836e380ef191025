package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"samaj/internal/models"
	"samaj/internal/services"
	"samaj/internal/utils"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthMiddleware validates the access credential on protected routes and
// loads the owning member into the request context.
type AuthMiddleware struct {
	authService services.AuthService
}

func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require accepts the access token from either the session cookie or an
// Authorization bearer header; the cookie wins when both are present.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""
		if cookie, err := r.Cookie("accessToken"); err == nil {
			tokenString = cookie.Value
		}
		if tokenString == "" {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				tokenString = strings.TrimSpace(header[len("Bearer "):])
			}
		}
		if tokenString == "" {
			utils.SendJSONError(w, "unauthorized access", http.StatusUnauthorized)
			return
		}

		user, err := m.authService.CurrentUser(r.Context(), tokenString)
		if err != nil {
			utils.RespondWithError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin layers a role check on top of Require.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || user.Role != models.RoleAdmin {
			log.Warn().Msg("Non-admin access attempt on admin route")
			utils.SendJSONError(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// UserFromContext returns the authenticated member placed by Require.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}
