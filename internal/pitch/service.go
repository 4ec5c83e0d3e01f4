package pitch

import (
	"context"
	"sync"
	"time"

	"leadsniper.app/internal/audit"
	"leadsniper.app/internal/genai"
	"leadsniper.app/internal/ids"
	"leadsniper.app/internal/lead"
	"leadsniper.app/internal/obs"
	"leadsniper.app/internal/profile"
	"leadsniper.app/internal/retry"
	"leadsniper.app/internal/stream"
)

const defaultTailTimeout = 10 * time.Second

// Sampling parameters used for every generation.
const (
	defaultTopP             = 0.9
	defaultFrequencyPenalty = 0.3
	defaultPresencePenalty  = 0.2
)

// Recorder persists the audit copy of each generation.
type Recorder interface {
	AppendGeneration(ctx context.Context, rec GenerationRecord) error
}

// Request is a validated generation request.
type Request struct {
	CustomInstructions string
	Tone               Tone
	Length             Length
	RequestID          string
}

// Result is a completed generation.
type Result struct {
	Pitch            string
	Usage            genai.Usage
	Lead             lead.Lead
	Unlimited        bool
	CreditsCharged   int64
	RemainingCredits int64
}

// Service runs the generation pipeline: entitlement gate, prompt build,
// retried model call, conditional credit decrement, then fire-and-forget
// audit writes.
type Service struct {
	provider    genai.Provider
	profiles    profile.Store
	leads       lead.Store
	recorder    Recorder
	events      *stream.Stream
	retrier     *retry.Retrier
	temperature float32
	tailTimeout time.Duration

	tails sync.WaitGroup
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithRecorder enables persisted generation records.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithEvents publishes a ticker event per successful generation.
func WithEvents(st *stream.Stream) ServiceOption {
	return func(s *Service) { s.events = st }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) ServiceOption {
	return func(s *Service) {
		if t > 0 {
			s.temperature = t
		}
	}
}

// WithTailTimeout bounds the detached best-effort writes.
func WithTailTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.tailTimeout = d
		}
	}
}

// NewService wires the generation pipeline.
func NewService(provider genai.Provider, profiles profile.Store, leads lead.Store, retrier *retry.Retrier, opts ...ServiceOption) *Service {
	s := &Service{
		provider:    provider,
		profiles:    profiles,
		leads:       leads,
		retrier:     retrier,
		temperature: 0.7,
		tailTimeout: defaultTailTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate produces a pitch for the given profile and lead. The profile and
// lead were loaded by the caller; the credit balance observed on p drives the
// optimistic decrement. Once the model call succeeds the method always
// returns a Result: credit and audit failures downstream are logged, never
// surfaced.
func (s *Service) Generate(ctx context.Context, p profile.Profile, l lead.Lead, req Request) (Result, error) {
	if !p.Entitled() {
		obs.ObservePitch("rejected")
		return Result{}, ErrNotEntitled
	}

	gr := genai.Request{
		SystemPrompt:     buildSystemPrompt(req.Tone, req.Length),
		Prompt:           buildUserPrompt(l, p, req.CustomInstructions, req.Tone, req.Length),
		MaxTokens:        req.Length.MaxTokens(),
		Temperature:      s.temperature,
		TopP:             defaultTopP,
		FrequencyPenalty: defaultFrequencyPenalty,
		PresencePenalty:  defaultPresencePenalty,
	}

	var gen genai.Generation
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		var callErr error
		gen, callErr = s.provider.Generate(ctx, gr)
		return callErr
	})
	if err != nil {
		obs.ObservePitch("upstream_error")
		return Result{}, err
	}

	// From here on the request is committed to success.
	res := Result{
		Pitch:     gen.Text,
		Usage:     gen.Usage,
		Lead:      l,
		Unlimited: p.Pro,
	}
	if !p.Pro {
		res.CreditsCharged = 1
		res.RemainingCredits = p.Credits - 1
		s.applyCreditGuard(ctx, p, req.RequestID)
	}

	s.dispatchTails(p, l, req, res)
	obs.ObservePitch("ok")
	return res, nil
}

// applyCreditGuard decrements the balance conditionally on the value read at
// request start. A lost race means one free generation; it is logged and the
// response is unaffected. The decrement is never re-attempted.
func (s *Service) applyCreditGuard(ctx context.Context, p profile.Profile, requestID string) {
	affected, err := s.profiles.ConditionalDecrement(ctx, p.ID, p.Credits, 1)
	if err != nil {
		obs.LogEvent(map[string]any{
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
			"level":      "error",
			"msg":        "credit decrement failed",
			"request_id": requestID,
			"user_id":    p.ID,
			"error":      err.Error(),
		})
		return
	}
	if affected == 0 {
		obs.ObserveCreditConflict()
		obs.LogEvent(map[string]any{
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
			"level":      "warn",
			"msg":        "credit decrement lost to concurrent writer",
			"request_id": requestID,
			"user_id":    p.ID,
			"expected":   p.Credits,
		})
	}
}

// dispatchTails runs the best-effort bookkeeping on a detached context so a
// caller disconnect cannot cancel it.
func (s *Service) dispatchTails(p profile.Profile, l lead.Lead, req Request, res Result) {
	s.tails.Add(1)
	go func() {
		defer s.tails.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.tailTimeout)
		defer cancel()
		ctx = audit.WithRequestID(ctx, req.RequestID)

		if s.recorder != nil {
			rec := GenerationRecord{
				ID:          ids.New(),
				UserID:      p.ID,
				LeadID:      l.ID,
				Pitch:       res.Pitch,
				Tone:        req.Tone,
				Length:      req.Length,
				TokensUsed:  res.Usage.TotalTokens,
				CreditsUsed: res.CreditsCharged,
				RequestID:   req.RequestID,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.recorder.AppendGeneration(ctx, rec); err != nil {
				s.logTailFailure("append generation record", req.RequestID, err)
			}
		}

		if err := s.leads.SetPitchGenerated(ctx, l.ID); err != nil {
			s.logTailFailure("set lead pitch flag", req.RequestID, err)
		}

		if s.events != nil {
			s.events.Publish(stream.PitchEvent{
				LeadID:    l.ID,
				Title:     l.Title,
				Company:   l.Company,
				Location:  l.Location,
				Tone:      string(req.Tone),
				Timestamp: time.Now().UTC(),
			})
		}

		_ = audit.LogEvent(ctx, "pitch.generate", map[string]any{
			"lead_id":      l.ID,
			"user_id":      p.ID,
			"tone":         string(req.Tone),
			"length":       string(req.Length),
			"tokens_used":  res.Usage.TotalTokens,
			"credits_used": res.CreditsCharged,
		})
	}()
}

// Wait blocks until all in-flight best-effort writes finish. Called during
// graceful shutdown and by tests.
func (s *Service) Wait() {
	s.tails.Wait()
}

func (s *Service) logTailFailure(what, requestID string, err error) {
	obs.LogEvent(map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"level":      "error",
		"msg":        "best-effort write failed: " + what,
		"request_id": requestID,
		"error":      err.Error(),
	})
}
