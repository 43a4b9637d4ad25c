package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/tallyloyalty/tally/internal/auth"
)

// TokenCookieName is the cookie carrying the signed auth token.
const TokenCookieName = "tally_token"

// RequireAuth verifies the auth cookie and injects the caller's Identity
// into the request context. Requests without a valid token get a JSON 401;
// the API serves a PWA, not browser navigations, so no redirect.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(TokenCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			id := auth.VerifyToken(secret, cookie.Value)
			if id == nil {
				unauthorized(w)
				return
			}

			ctx := auth.WithIdentity(r.Context(), *id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMerchant rejects callers that are not merchants.
func RequireMerchant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsMerchant(r.Context()) {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCustomer rejects callers that are not customers.
func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsCustomer(r.Context()) {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "unauthorized"})
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "forbidden"})
}
