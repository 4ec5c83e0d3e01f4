package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"leadsniper.app/internal/auth"
	"leadsniper.app/internal/lead"
	"leadsniper.app/internal/profile"
)

const defaultListLimit = 50

func (a *API) handleLeadsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), defaultListLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit "+err.Error())
		return
	}
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
	}
	leads, next, err := a.leads.List(r.Context(), limit, after)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"next":  next,
	})
}

func (a *API) handleLeadResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/leads/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	l, err := a.leads.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized. Please log in.")
		return
	}
	p, err := a.profiles.Get(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "User profile not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile":  p,
		"entitled": p.Entitled(),
	})
}
