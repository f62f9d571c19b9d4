package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/obs"
)

// publicPaths skip the authentication gate entirely.
var publicPaths = map[string]bool{
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/v1/info":         true,
	"/v1/auth/login":   true,
	"/v1/auth/refresh": true,
}

// withAuth resolves the caller's token into a Principal and stores it on
// the request context. Requests without a valid token are rejected here;
// handlers behind the gate can assume a principal is present.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] || r.URL.Path == "/" {
			next.ServeHTTP(w, r)
			return
		}

		token, source := extractToken(r)
		principal, err := a.auth.Validate(r.Context(), token)
		if err != nil {
			var ae *auth.AuthError
			if errors.As(err, &ae) {
				obs.AuthFailure(failureReason(err))
				writeError(w, r, http.StatusUnauthorized, ae.Message)
				return
			}
			obs.AuthFailure("internal")
			writeError(w, r, http.StatusInternalServerError, "Internal server error")
			return
		}
		obs.TokenSource(source)

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken prefers the Authorization header; the access_token query
// parameter is honoured only for read-style requests (download links and
// the like, where setting a header is impractical).
func extractToken(r *http.Request) (token, source string) {
	if raw := r.Header.Get("Authorization"); raw != "" {
		return parseBearer(raw), "header"
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if q := strings.TrimSpace(r.URL.Query().Get("access_token")); q != "" {
			return q, "query"
		}
	}
	return "", "none"
}

func parseBearer(raw string) string {
	parts := strings.SplitN(strings.TrimSpace(raw), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrInactiveUser):
		return "inactive"
	case errors.Is(err, auth.ErrSessionIdle):
		return "idle"
	default:
		return "invalid"
	}
}
