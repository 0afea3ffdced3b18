package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hvmc/store-backend/pkg/models"
	"github.com/sirupsen/logrus"
)

type contextKey string

const userContextKey contextKey = "auth.user"

// UserFromContext returns the authenticated user attached by Middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// ContextWithUser attaches an authenticated user to ctx.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Middleware authenticates requests from the Authorization bearer token
// and loads the user into the request context.
type Middleware struct {
	tokens *TokenManager
	users  UserStore
	logger *logrus.Logger
}

func NewMiddleware(tokens *TokenManager, users UserStore, logger *logrus.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondUnauthorized(w, "Authentication credentials were not provided")
			return
		}

		claims, err := m.tokens.ParseAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondUnauthorized(w, "Invalid or expired token")
			return
		}

		user, err := m.users.GetByID(r.Context(), claims.Subject)
		if err != nil || !user.IsActive {
			m.logger.WithField("user_id", claims.Subject).Warn("Token subject could not be resolved")
			respondUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireStaff allows only staff users through. Must run after Handler.
func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsStaff {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"success":false,"message":"Staff access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
