package middleware

import (
	"log/slog"
	"net/http"

	sharedutils "github.com/cwangg897/OneDayPiece/shared/utils"
	"github.com/cwangg897/OneDayPiece/v1/models"
	"github.com/cwangg897/OneDayPiece/v1/services"
	authutils "github.com/cwangg897/OneDayPiece/v1/utils"
)

// JWTAuthMiddleware provides JWT authentication functionality
type JWTAuthMiddleware struct {
	tokens *services.TokenProvider
}

// NewJWTAuthMiddleware creates a new JWT authentication middleware backed by
// the first-party token provider
func NewJWTAuthMiddleware(tokens *services.TokenProvider) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{tokens: tokens}
}

// AuthenticateJWT returns a middleware function that validates JWT tokens
// and attaches the verified member identity to the request context
func (j *JWTAuthMiddleware) AuthenticateJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := authutils.ExtractBearerToken(r)
		if err != nil {
			slog.Warn("Failed to extract bearer token", "error", err, "path", r.URL.Path, "method", r.Method)
			sharedutils.RespondWithError(w, http.StatusUnauthorized, "Invalid or missing authorization header")
			return
		}

		claims, err := j.tokens.ParseToken(tokenString, false)
		if err != nil {
			slog.Warn("Token validation failed", "error", err, "path", r.URL.Path, "method", r.Method)
			sharedutils.RespondWithError(w, http.StatusUnauthorized, "Invalid access token")
			return
		}
		if claims.TokenType != models.TokenTypeAccess {
			slog.Warn("Non-access token presented on API route", "path", r.URL.Path)
			sharedutils.RespondWithError(w, http.StatusUnauthorized, "Invalid access token")
			return
		}

		user := &models.AuthenticatedUser{
			MemberID:  claims.MemberID,
			Email:     claims.Subject,
			Nickname:  claims.Nickname,
			Role:      claims.Role,
			IssuedAt:  claims.IssuedAt.Time,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		if user.IsTokenExpired() {
			slog.Warn("Token is expired", "expiry", user.ExpiresAt, "user", user.Email)
			sharedutils.RespondWithError(w, http.StatusUnauthorized, "Access token has expired")
			return
		}

		ctx := authutils.SetAuthenticatedUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
