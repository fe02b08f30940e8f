// Package middleware provides HTTP middlewares for bearer authentication and
// request logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenValidator resolves an access token to a user ID.
type TokenValidator func(token string) (userID string, ok bool)

// BearerAuth checks the Authorization header with validate.
//
// A request carrying an invalid token is always rejected with 401, even
// when required is false. Without a header the request passes through
// anonymously unless required is set.
//
// The resolved user ID is stored in the request context.
func BearerAuth(validate TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if required {
					unauthorized(w, "Authentication credentials were not provided.")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				unauthorized(w, "Invalid token header.")
				return
			}
			userID, ok := validate(token)
			if !ok {
				unauthorized(w, "Given token not valid for any token type")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID stored by BearerAuth.
// Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
