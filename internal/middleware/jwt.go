// internal/middleware/jwt.go
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"videotube/internal/api"
	"videotube/internal/auth"
	"videotube/internal/models"
	"videotube/internal/utils"
)

// AccessTokenCookie is the cookie the access token travels in.
const AccessTokenCookie = "accessToken"

// AccessVerifier is the slice of the token service this middleware needs.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// UserLoader resolves the user a verified token belongs to.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// ExtractAccessToken reads the token from the cookie first, then from a
// Bearer Authorization header.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware rejects requests without a valid access token and stores
// the authenticated user in the request context.
func AuthMiddleware(tokens AccessVerifier, users UserLoader, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractAccessToken(r)
			if tokenString == "" {
				api.WriteError(w, log, utils.NewAppError(utils.ErrUnauthorized, "Unauthorized request", nil))
				return
			}

			claims, err := tokens.VerifyAccessToken(tokenString)
			if err != nil {
				log.Debug("JWT rejected", "error", err)
				api.WriteError(w, log, utils.NewAppError(utils.ErrInvalidToken, "Invalid access token", nil))
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				if utils.IsErrorCode(err, utils.ErrUserNotFound) {
					api.WriteError(w, log, utils.NewAppError(utils.ErrInvalidToken, "Invalid access token", nil))
					return
				}
				api.WriteError(w, log, err)
				return
			}

			ctx := SetUserInContext(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Define a custom context key type to avoid collisions
type contextKey string

// UserKey is the key used to store the authenticated user in the context
const UserKey contextKey = "user"

// SetUserInContext saves the user in the request context
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUserFromContext retrieves the user from the context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok && user != nil
}

// GetUserIDFromContext retrieves the user ID from the context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := GetUserFromContext(ctx)
	if !ok {
		return "", false
	}
	return user.ID, true
}
