/**
 * @description
 * This file contains the authentication middleware. It verifies the bearer
 * token on every protected request and implements the sliding session:
 * when the token is close to expiry a replacement is issued and attached
 * to the response in the X-Auth-Token header, so clients extend their
 * session without a dedicated refresh endpoint.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5 (via the token service) for verification.
 */

package api

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/app"
	"github.com/terangapay/backoffice/internal/domain"
)

// RefreshTokenHeader carries the replacement token during sliding refresh.
const RefreshTokenHeader = "X-Auth-Token"

type contextKey string

const sessionContextKey contextKey = "session"

// Authenticator verifies the bearer token, stashes the session claims in
// the request context and applies the sliding-refresh policy.
func Authenticator(tokens *app.TokenService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "access denied: token missing")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				respondError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if tokens.NeedsRefresh(claims) {
				fresh, err := tokens.Issue(claims.Subject, claims.Role)
				if err != nil {
					// Refresh failure never blocks the request itself.
					logger.Warn("session refresh failed", zap.Error(err))
				} else {
					w.Header().Set(RefreshTokenHeader, fresh)
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext retrieves the verified session claims, or nil when
// the request was not authenticated.
func SessionFromContext(ctx context.Context) *app.SessionClaims {
	claims, _ := ctx.Value(sessionContextKey).(*app.SessionClaims)
	return claims
}

// sessionRole returns the authenticated role, or the empty role when the
// request carries no session.
func sessionRole(ctx context.Context) domain.Role {
	if claims := SessionFromContext(ctx); claims != nil {
		return claims.Role
	}
	return ""
}
