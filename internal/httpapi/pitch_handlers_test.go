package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"leadsniper.app/internal/auth"
	"leadsniper.app/internal/genai"
	"leadsniper.app/internal/lead"
	"leadsniper.app/internal/pitch"
	"leadsniper.app/internal/profile"
	"leadsniper.app/internal/ratelimit"
	"leadsniper.app/internal/retry"
	"leadsniper.app/internal/stream"
)

type scriptedProvider struct {
	mu    sync.Mutex
	calls int
	reqs  []genai.Request
	fail  int
	err   error
	text  string
}

func (p *scriptedProvider) Generate(ctx context.Context, req genai.Request) (genai.Generation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.reqs = append(p.reqs, req)
	if p.calls <= p.fail {
		return genai.Generation{}, p.err
	}
	return genai.Generation{
		Text:  p.text,
		Usage: genai.Usage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
	}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *scriptedProvider) lastRequest() genai.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reqs) == 0 {
		return genai.Request{}
	}
	return p.reqs[len(p.reqs)-1]
}

type testEnv struct {
	t        *testing.T
	srv      *httptest.Server
	auth     *auth.Service
	profiles *profile.InMemory
	leads    *lead.InMemory
	provider *scriptedProvider
	pitches  *pitch.Service

	sleepMu sync.Mutex
	sleeps  []time.Duration
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		t:        t,
		profiles: profile.NewInMemory(),
		leads:    lead.NewInMemory(),
		provider: &scriptedProvider{text: "Dear hiring team, I would love to help."},
		auth:     auth.New("test-secret"),
	}
	retrier := retry.New(3, retry.WithSleep(func(ctx context.Context, d time.Duration) error {
		env.sleepMu.Lock()
		env.sleeps = append(env.sleeps, d)
		env.sleepMu.Unlock()
		return nil
	}))
	limiter := ratelimit.NewFixedWindow(5, time.Minute)
	t.Cleanup(limiter.Stop)

	events := stream.New()
	env.pitches = pitch.NewService(env.provider, env.profiles, env.leads, retrier, pitch.WithEvents(events))

	api := New(ReadyProbe{}, "test", Deps{
		Auth:        env.auth,
		Profiles:    env.profiles,
		Leads:       env.leads,
		Limiter:     limiter,
		Pitches:     env.pitches,
		Events:      events,
		CronSecret:  "cron-secret",
		FreeCredits: 3,
	})
	env.srv = httptest.NewServer(api.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) seedProfile(id string, credits int64, pro bool) profile.Profile {
	e.t.Helper()
	p, err := e.profiles.Create(context.Background(), profile.Profile{
		ID:       id,
		Email:    id + "@example.com",
		FullName: "Test User",
		Skills:   []string{"Go", "SQL"},
		Pro:      pro,
		Credits:  credits,
	})
	if err != nil {
		e.t.Fatalf("seed profile: %v", err)
	}
	return p
}

func (e *testEnv) seedLead(id string) lead.Lead {
	e.t.Helper()
	l, err := e.leads.Create(context.Background(), lead.Lead{
		ID:      id,
		Title:   "Backend Engineer",
		Company: "Acme Corp",
		// Location intentionally empty on some tests via overrides.
		Location:     "Berlin",
		Requirements: []string{"Go", "Postgres"},
		Description:  "Build billing APIs.",
	})
	if err != nil {
		e.t.Fatalf("seed lead: %v", err)
	}
	return l
}

func (e *testEnv) token(userID string) string {
	e.t.Helper()
	tok, err := e.auth.IssueToken(userID)
	if err != nil {
		e.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path, token string, body any) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGeneratePitchHappyPath(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)
	env.seedLead("lead-1")
	tok := env.token("user-1")

	resp := env.do(http.MethodPost, "/v1/pitches", tok, map[string]any{
		"leadId": "lead-1",
		"tone":   "enthusiastic",
		"length": "short",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", got)
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["pitch"] == "" {
		t.Error("empty pitch in response")
	}
	if got := body["remainingCredits"]; got != float64(2) {
		t.Errorf("remainingCredits = %v, want 2", got)
	}
	leadOut, _ := body["lead"].(map[string]any)
	if leadOut["title"] != "Backend Engineer" || leadOut["company"] != "Acme Corp" {
		t.Errorf("unexpected lead summary: %v", leadOut)
	}
	usage, _ := body["usage"].(map[string]any)
	if usage["total_tokens"] != float64(200) {
		t.Errorf("total_tokens = %v, want 200", usage["total_tokens"])
	}

	env.pitches.Wait()
	p, err := env.profiles.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.Credits != 2 {
		t.Errorf("stored credits = %d, want 2", p.Credits)
	}
	l, err := env.leads.Get(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if !l.PitchGenerated {
		t.Error("lead pitch flag not set")
	}

	if got := env.provider.lastRequest().MaxTokens; got != 300 {
		t.Errorf("max tokens = %d, want 300 for short", got)
	}
}

func TestGeneratePitchDefaultsToneAndLength(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)
	env.seedLead("lead-1")

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("user-1"), map[string]any{
		"leadId": "lead-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
	if got := env.provider.lastRequest().MaxTokens; got != 500 {
		t.Errorf("max tokens = %d, want 500 for default medium length", got)
	}
	env.pitches.Wait()
}

func TestGeneratePitchRequiresAuth(t *testing.T) {
	env := newEnv(t)
	env.seedLead("lead-1")

	resp := env.do(http.MethodPost, "/v1/pitches", "", map[string]any{"leadId": "lead-1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "Unauthorized. Please log in." {
		t.Errorf("error = %v", body["error"])
	}
	if env.provider.callCount() != 0 {
		t.Errorf("provider called %d times, want 0", env.provider.callCount())
	}
}

func TestGeneratePitchMalformedBodyConsumesSlot(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)
	env.seedLead("lead-1")
	tok := env.token("user-1")

	// Missing leadId: 400, but the window slot is already gone.
	resp := env.do(http.MethodPost, "/v1/pitches", tok, map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4 after malformed request", got)
	}
	resp.Body.Close()

	resp = env.do(http.MethodPost, "/v1/pitches", tok, map[string]any{"leadId": "lead-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "3" {
		t.Errorf("X-RateLimit-Remaining = %q, want 3", got)
	}
	resp.Body.Close()
	env.pitches.Wait()
}

func TestGeneratePitchInvalidTone(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)
	env.seedLead("lead-1")

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("user-1"), map[string]any{
		"leadId": "lead-1",
		"tone":   "aggressive",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
	if env.provider.callCount() != 0 {
		t.Errorf("provider called %d times, want 0", env.provider.callCount())
	}
}

func TestGeneratePitchRateLimited(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 100, false)
	env.seedLead("lead-1")
	tok := env.token("user-1")

	for i := 0; i < 5; i++ {
		resp := env.do(http.MethodPost, "/v1/pitches", tok, map[string]any{"leadId": "lead-1"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := env.do(http.MethodPost, "/v1/pitches", tok, map[string]any{"leadId": "lead-1"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || retryAfter < 1 || retryAfter > 60 {
		t.Errorf("Retry-After = %q, want 1..60", resp.Header.Get("Retry-After"))
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	body := decodeBody(t, resp)
	if body["error"] != "Rate limit exceeded. Please try again later." {
		t.Errorf("error = %v", body["error"])
	}
	if _, ok := body["retryAfter"].(float64); !ok {
		t.Errorf("retryAfter missing from body: %v", body)
	}

	if env.provider.callCount() != 5 {
		t.Errorf("provider called %d times, want 5", env.provider.callCount())
	}
	env.pitches.Wait()
}

func TestGeneratePitchLeadNotFound(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("user-1"), map[string]any{
		"leadId": "nope",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "Lead not found" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestGeneratePitchProfileNotFound(t *testing.T) {
	env := newEnv(t)
	env.seedLead("lead-1")

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("ghost"), map[string]any{
		"leadId": "lead-1",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "User profile not found" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestGeneratePitchNoCreditsLeft(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 0, false)
	env.seedLead("lead-1")

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("user-1"), map[string]any{
		"leadId": "lead-1",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "You have no credits left. Upgrade to Pro for unlimited pitches." {
		t.Errorf("error = %v", body["error"])
	}
	if env.provider.callCount() != 0 {
		t.Errorf("provider called %d times, want 0", env.provider.callCount())
	}
}

func TestGeneratePitchProIsUnlimited(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("pro-1", 0, true)
	env.seedLead("lead-1")

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("pro-1"), map[string]any{
		"leadId": "lead-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["remainingCredits"] != "Unlimited" {
		t.Errorf("remainingCredits = %v, want Unlimited", body["remainingCredits"])
	}
	env.pitches.Wait()
	p, _ := env.profiles.Get(context.Background(), "pro-1")
	if p.Credits != 0 {
		t.Errorf("pro credits changed to %d", p.Credits)
	}
}

func TestGeneratePitchUpstreamFailureRetriesThenFails(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)
	env.seedLead("lead-1")
	env.provider.fail = 10
	env.provider.err = &genai.UpstreamError{StatusCode: 500, Err: context.DeadlineExceeded}

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("user-1"), map[string]any{
		"leadId": "lead-1",
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "AI service temporarily unavailable. Please try again later." {
		t.Errorf("error = %v", body["error"])
	}

	if env.provider.callCount() != 3 {
		t.Errorf("provider called %d times, want 3", env.provider.callCount())
	}
	env.sleepMu.Lock()
	sleeps := append([]time.Duration(nil), env.sleeps...)
	env.sleepMu.Unlock()
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(sleeps) != len(want) || sleeps[0] != want[0] || sleeps[1] != want[1] {
		t.Errorf("backoff delays = %v, want %v", sleeps, want)
	}

	p, _ := env.profiles.Get(context.Background(), "user-1")
	if p.Credits != 3 {
		t.Errorf("credits = %d, want 3 after failed generation", p.Credits)
	}
}

func TestGeneratePitchNonRetryableUpstream(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)
	env.seedLead("lead-1")
	env.provider.fail = 10
	env.provider.err = &genai.UpstreamError{StatusCode: 400, Err: context.Canceled}

	resp := env.do(http.MethodPost, "/v1/pitches", env.token("user-1"), map[string]any{
		"leadId": "lead-1",
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
	if env.provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1 for non-retryable failure", env.provider.callCount())
	}
}

func TestPitchesMethodNotAllowed(t *testing.T) {
	env := newEnv(t)
	env.seedProfile("user-1", 3, false)

	resp := env.do(http.MethodGet, "/v1/pitches", env.token("user-1"), nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
	if got := resp.Header.Get("Allow"); got != http.MethodPost {
		t.Errorf("Allow = %q, want POST", got)
	}
	resp.Body.Close()
}
