package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"leadsniper.app/internal/auth"
	"leadsniper.app/internal/genai"
	"leadsniper.app/internal/lead"
	"leadsniper.app/internal/obs"
	"leadsniper.app/internal/pitch"
	"leadsniper.app/internal/profile"
	"leadsniper.app/internal/ratelimit"
)

type generatePitchRequest struct {
	LeadID             string `json:"leadId"`
	CustomInstructions string `json:"customInstructions,omitempty"`
	Tone               string `json:"tone,omitempty"`
	Length             string `json:"length,omitempty"`
}

type leadSummary struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

type generatePitchResponse struct {
	Success          bool        `json:"success"`
	Pitch            string      `json:"pitch"`
	Usage            genai.Usage `json:"usage"`
	Lead             leadSummary `json:"lead"`
	RemainingCredits any         `json:"remainingCredits"`
}

func (a *API) handlePitches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.generatePitch(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

// generatePitch runs the full request pipeline. The rate-limit window is
// consumed before the body is validated, so malformed requests count
// against the caller's quota.
func (a *API) generatePitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized. Please log in.")
		return
	}

	res, err := a.limiter.Check(ctx, principal.UserID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	setRateLimitHeaders(w, res)
	if !res.Allowed {
		obs.ObserveRateLimited()
		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "Rate limit exceeded. Please try again later.",
			"retryAfter": res.RetryAfterSeconds,
			"request_id": RequestIDFromContext(ctx),
		})
		return
	}

	var req generatePitchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.LeadID) == "" {
		writeError(w, r, http.StatusBadRequest, "leadId is required")
		return
	}
	tone, err := pitch.ParseTone(req.Tone)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	length, err := pitch.ParseLength(req.Length)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	l, err := a.leads.Get(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	p, err := a.profiles.Get(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "User profile not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	result, err := a.pitches.Generate(ctx, p, l, pitch.Request{
		CustomInstructions: req.CustomInstructions,
		Tone:               tone,
		Length:             length,
		RequestID:          RequestIDFromContext(ctx),
	})
	if err != nil {
		var upstream *genai.UpstreamError
		switch {
		case errors.Is(err, pitch.ErrNotEntitled):
			writeError(w, r, http.StatusForbidden, "You have no credits left. Upgrade to Pro for unlimited pitches.")
		case errors.As(err, &upstream), errors.Is(err, genai.ErrEmptyCompletion):
			writeError(w, r, http.StatusServiceUnavailable, "AI service temporarily unavailable. Please try again later.")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	var remaining any = result.RemainingCredits
	if result.Unlimited {
		remaining = "Unlimited"
	}
	writeJSON(w, http.StatusOK, generatePitchResponse{
		Success: true,
		Pitch:   result.Pitch,
		Usage:   result.Usage,
		Lead: leadSummary{
			Title:    result.Lead.Title,
			Company:  result.Lead.Company,
			Location: result.Lead.Location,
		},
		RemainingCredits: remaining,
	})
}

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.UnixMilli(), 10))
}
