package httpapi

import (
	"crypto/subtle"
	"net/http"

	"leadsniper.app/internal/audit"
)

// handleResetCredits restores the free-tier credit balance for every
// non-Pro profile. It is meant to be called by a scheduler and is
// authenticated with a shared secret rather than a user session.
func (a *API) handleResetCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.cronSecret == "" || subtle.ConstantTimeCompare([]byte(bearerToken(r)), []byte(a.cronSecret)) != 1 {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	updated, err := a.profiles.ResetFreeCredits(r.Context(), a.freeCredits)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.LogEvent(r.Context(), "credits.reset", map[string]any{
		"updated": updated,
		"credits": a.freeCredits,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}
