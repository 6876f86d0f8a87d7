// Package middleware provides HTTP middleware for authentication.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// identityKey is the context key for storing the authenticated identity.
const identityKey ContextKey = "identity"

// TokenValidator is an interface for validating JWT tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (IdentityGetter, error)
}

// IdentityGetter extracts the interview subject (usually an email) from token claims.
type IdentityGetter interface {
	Identity() string
}

// AuthMiddleware creates middleware that validates bearer tokens and adds the identity to the request context.
// When required is false, requests without an Authorization header pass through anonymously;
// a header that is present but invalid is always rejected.
func AuthMiddleware(validator TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			identity := strings.TrimSpace(claims.Identity())
			if identity == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity extracts the authenticated identity from the request context.
func GetIdentity(r *http.Request) (string, bool) {
	identity, ok := r.Context().Value(identityKey).(string)
	if !ok || identity == "" {
		return "", false
	}
	return identity, true
}
