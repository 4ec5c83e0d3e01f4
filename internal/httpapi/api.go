package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"leadsniper.app/internal/auth"
	"leadsniper.app/internal/lead"
	"leadsniper.app/internal/obs"
	"leadsniper.app/internal/pitch"
	"leadsniper.app/internal/profile"
	"leadsniper.app/internal/ratelimit"
	"leadsniper.app/internal/stream"
)

// ReadyProbe checks backing-store readiness (DB ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Auth     *auth.Service
	Profiles profile.Store
	Leads    lead.Store
	Limiter  ratelimit.Limiter
	Pitches  *pitch.Service
	Events   *stream.Stream

	// CronSecret guards the credit-reset endpoint; empty disables it.
	CronSecret string
	// FreeCredits is the balance free-tier profiles are reset to.
	FreeCredits int64

	// Per-client-IP token bucket in front of all routes. Zero values keep
	// the defaults.
	IPRateBurst  int
	IPRatePerSec int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth     *auth.Service
	profiles profile.Store
	leads    lead.Store
	limiter  ratelimit.Limiter
	pitches  *pitch.Service
	events   *stream.Stream

	cronSecret  string
	freeCredits int64

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, d Deps) *API {
	a := &API{
		mux:         http.NewServeMux(),
		readyProbe:  rp,
		version:     version,
		auth:        d.Auth,
		profiles:    d.Profiles,
		leads:       d.Leads,
		limiter:     d.Limiter,
		pitches:     d.Pitches,
		events:      d.Events,
		cronSecret:  d.CronSecret,
		freeCredits: d.FreeCredits,
		rateBurst:   100,
		ratePerSec:  10,
	}
	if d.IPRateBurst > 0 {
		a.rateBurst = d.IPRateBurst
	}
	if d.IPRatePerSec > 0 {
		a.ratePerSec = d.IPRatePerSec
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// domain routes
	a.mux.HandleFunc("/v1/pitches", a.handlePitches)
	a.mux.HandleFunc("/v1/leads", a.handleLeadsCollection)
	a.mux.HandleFunc("/v1/leads/", a.handleLeadResource)
	a.mux.HandleFunc("/v1/profile", a.handleProfile)
	a.mux.HandleFunc("/v1/admin/reset-credits", a.handleResetCredits)
	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimitByIP(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- ops handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "leadsniper-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "leadsniper-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
