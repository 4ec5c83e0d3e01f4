package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Groq calls the Groq chat completions API through the OpenAI-compatible
// client.
type Groq struct {
	client *openai.Client
	model  string
}

var _ Provider = (*Groq)(nil)

// NewGroq creates a Groq provider. baseURL may be empty to use the default.
func NewGroq(apiKey, baseURL, model string) (*Groq, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("genai: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("genai: model is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	} else {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	return &Groq{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Generate performs one completion call. HTTP failures come back as
// *UpstreamError so the retrier can classify them.
func (g *Groq) Generate(ctx context.Context, req Request) (Generation, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	})
	if err != nil {
		return Generation{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return Generation{}, ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Generation{}, ErrEmptyCompletion
	}

	return Generation{
		Text: text,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	// Transport-level failures (timeouts, connection resets) behave like a
	// server error for retry purposes.
	return &UpstreamError{StatusCode: 503, Err: fmt.Errorf("transport: %w", err)}
}
