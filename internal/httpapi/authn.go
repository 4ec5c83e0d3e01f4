package httpapi

import (
	"net/http"
	"strings"

	"leadsniper.app/internal/auth"
)

// publicPaths are reachable without a session token. The admin reset
// endpoint authenticates with its own shared secret.
var publicPaths = map[string]bool{
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/v1/info":                true,
	"/v1/stream":              true,
	"/v1/admin/reset-credits": true,
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] || !a.auth.SupportsTokens() {
			next.ServeHTTP(w, r)
			return
		}
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized. Please log in.")
			return
		}
		principal, err := a.auth.VerifyToken(raw)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized. Please log in.")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
