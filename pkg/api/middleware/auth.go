// Package middleware provides HTTP middleware for the picopot API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/api/auth"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/api/handlers"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext returns the claims stored by BearerAuth, or nil.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// BearerAuth rejects requests without a valid Bearer token with 401.
func BearerAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="picopot"`)
				handlers.Unauthorized(w, "Authorization header required")
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="picopot", error="invalid_token"`)
				handlers.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
