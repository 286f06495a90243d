package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/alnah/go-summarizeme/internal/apierr"
)

// chatCompleter is the part of *openai.Client used here.
// This allows injecting mocks in tests.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Generator     = (*OpenAI)(nil)
	_ chatCompleter = (*openai.Client)(nil)
)

// OpenAI generates text with the chat completion API of OpenAI or any
// OpenAI-compatible server.
type OpenAI struct {
	client chatCompleter
	settings
}

// NewOpenAI creates an OpenAI backend. WithBaseURL points the client at a
// compatible server (the URL must include the /v1 prefix). WithHTTPClient
// replaces the transport.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrEmptyAPIKey
	}
	g := &OpenAI{settings: defaultSettings()}
	for _, opt := range opts {
		opt(&g.settings)
	}

	cfg := openai.DefaultConfig(apiKey)
	if g.baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(g.baseURL, "/")
	}
	if g.httpClient != nil {
		cfg.HTTPClient = g.httpClient
	}
	g.client = openai.NewClientWithConfig(cfg)
	return g, nil
}

// Generate sends prompt as a single user message with temperature 0.
func (g *OpenAI) Generate(ctx context.Context, model, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	return g.call(ctx, model, func(ctx context.Context) (string, error) {
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", apierr.ErrEmptyResponse
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}, classifyOpenAIError)
}

// classifyOpenAIError maps go-openai errors to apierr sentinel errors.
func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		// Quota exhaustion arrives as 429 but needs user action.
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests &&
			(strings.Contains(apiErr.Message, "quota") || strings.Contains(apiErr.Message, "billing")) {
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
		}
		return apierr.ClassifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return apierr.ClassifyStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
