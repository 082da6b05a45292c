package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/politiguessr/internal/auth"
)

// Auth validates an optional Bearer token from the identity provider.
//
// No Authorization header: the request proceeds anonymously. A header
// that is present but invalid is rejected with 401 rather than silently
// downgraded, so a client with an expired session finds out instead of
// burning its anonymous allowance.
func Auth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if tokenString == "" {
				writeAuthError(w, r)
				return
			}

			claims, err := svc.ValidateToken(tokenString)
			if err != nil {
				slog.DebugContext(r.Context(), "bearer token rejected", "error", err)
				writeAuthError(w, r)
				return
			}

			ctx := SetUserID(r.Context(), claims.Subject)
			ctx = SetUsername(ctx, claims.Username)
			ctx = SetUserTier(ctx, auth.TierOf(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a 401 in the API's uniform error shape.
// Defined here rather than reusing the api package to avoid an import
// cycle between middleware and handlers.
func writeAuthError(w http.ResponseWriter, r *http.Request) {
	UpdateResponseContext(w, SetErrorCode(r.Context(), "auth_failed"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	resp := map[string]map[string]string{
		"error": {
			"code":    "auth_failed",
			"message": "Invalid or expired access token",
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write auth error response", "error", err)
	}
}
