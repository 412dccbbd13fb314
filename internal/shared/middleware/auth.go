package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ajo/internal/domain/authz"
	"ajo/internal/shared/apperror"
	"ajo/internal/shared/auth"
)

// AccessTokenCookie is the HttpOnly cookie carrying the session token.
const AccessTokenCookie = "access_token"

// IdentityResolver maps an authenticated user to the caller identity the
// domain services act on.
type IdentityResolver interface {
	Identity(ctx context.Context, userID string) (authz.Identity, error)
}

// Auth validates the request's token and stores the caller's identity on
// the request context. Requests without a valid token or profile get 401.
func Auth(jwt *auth.JWT, identities IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			claims, err := jwt.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			id, err := identities.Identity(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, apperror.ErrStore) {
					writeError(w, http.StatusServiceUnavailable, "service unavailable")
					return
				}
				writeError(w, http.StatusUnauthorized, "profile not found")
				return
			}

			next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken reads the token from the cookie first (browser requests), then
// from the Authorization header (API clients).
func bearerToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
