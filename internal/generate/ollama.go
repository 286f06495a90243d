package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alnah/go-summarizeme/internal/apierr"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// Compile-time interface compliance checks.
var (
	_ Generator   = (*Ollama)(nil)
	_ ModelLister = (*Ollama)(nil)
)

// Ollama generates text with a local Ollama server's native chat API.
type Ollama struct {
	settings
}

// NewOllama creates an Ollama backend. The base URL defaults to
// DefaultOllamaURL.
func NewOllama(opts ...Option) *Ollama {
	g := &Ollama{settings: defaultSettings()}
	for _, opt := range opts {
		opt(&g.settings)
	}
	g.baseURL = strings.TrimSuffix(g.baseURL, "/")
	if g.baseURL == "" {
		g.baseURL = DefaultOllamaURL
	}
	if g.httpClient == nil {
		// Per-attempt timeouts come from the context.
		g.httpClient = &http.Client{}
	}
	return g
}

// Ollama chat request/response types.

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name       string    `json:"name"`
		Size       int64     `json:"size"`
		ModifiedAt time.Time `json:"modified_at"`
	} `json:"models"`
}

// ollamaAPIError is a non-2xx answer from the server.
type ollamaAPIError struct {
	StatusCode int
	Message    string
}

func (e *ollamaAPIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Ollama API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("Ollama API error %d", e.StatusCode)
}

// Generate sends prompt as a single user message, non-streaming.
func (g *Ollama) Generate(ctx context.Context, model, prompt string) (string, error) {
	req := ollamaChatRequest{
		Model:    model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  map[string]any{"temperature": 0},
	}

	return g.call(ctx, model, func(ctx context.Context) (string, error) {
		var resp ollamaChatResponse
		if err := g.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
			return "", err
		}
		if resp.Message.Content == "" && !resp.Done {
			return "", apierr.ErrEmptyResponse
		}
		return strings.TrimSpace(resp.Message.Content), nil
	}, classifyOllamaError)
}

// Models lists the models pulled on the server.
func (g *Ollama) Models(ctx context.Context) ([]Model, error) {
	var resp ollamaTagsResponse
	if err := g.do(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, fmt.Errorf("list models: %w", classifyOllamaError(err))
	}
	models := make([]Model, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, Model{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt})
	}
	return models, nil
}

// do performs one JSON request against the server.
func (g *Ollama) do(ctx context.Context, method, path string, in, out any) (err error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &ollamaAPIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// classifyOllamaError maps Ollama failures to apierr sentinel errors.
func classifyOllamaError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *ollamaAPIError
	if errors.As(err, &apiErr) {
		return apierr.ClassifyStatus(apiErr.StatusCode, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
