package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"accountsvc/pkg/token"
)

type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

type claimsKey struct{}

func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*token.Claims)
	return claims, ok
}

// Authenticate rejects requests without a valid bearer session token with
// 401 and otherwise exposes the token claims through ClaimsFromContext.
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Authorization token is required")
				return
			}

			claims, err := parser.Parse(raw)
			if err != nil {
				if errors.Is(err, token.ErrTokenExpired) {
					unauthorized(w, "Session expired. Please log in again.")
					return
				}
				unauthorized(w, "Invalid authorization token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="accountsvc"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
