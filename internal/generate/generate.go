// Package generate exposes text generation backends behind a single
// Generate(model, prompt) capability. Every call is bounded by a timeout,
// retried on transient failures, and reported as ErrGeneration when it
// ultimately fails.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alnah/go-summarizeme/internal/apierr"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Defaults shared by all backends.
const (
	DefaultTimeout    = 5 * time.Minute
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second

	// Response size limit to prevent OOM from malformed responses (10MB).
	maxResponseSize = 10 * 1024 * 1024
)

// Generator produces text for a prompt with the named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ModelLister lists the models a backend can serve.
type ModelLister interface {
	Models(ctx context.Context) ([]Model, error)
}

// Model describes a model available on a backend.
type Model struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// settings are shared by every backend.
type settings struct {
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	baseURL    string
	httpClient httpDoer
	logger     *slog.Logger
}

func defaultSettings() settings {
	return settings{
		timeout:    DefaultTimeout,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Option configures a backend.
type Option func(*settings)

// WithTimeout bounds each individual generation attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) Option {
	return func(s *settings) {
		if base > 0 {
			s.baseDelay = base
		}
		if max > 0 {
			s.maxDelay = max
		}
	}
}

// WithBaseURL sets a custom base URL (proxies, self-hosted servers, tests).
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c httpDoer) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// call runs one generation with per-attempt timeout and retry, wrapping
// the final error in ErrGeneration.
func (s *settings) call(
	ctx context.Context,
	model string,
	attempt func(ctx context.Context) (string, error),
	classify func(error) error,
) (string, error) {
	cfg := apierr.RetryConfig{
		MaxRetries: s.maxRetries,
		BaseDelay:  s.baseDelay,
		MaxDelay:   s.maxDelay,
		OnRetry: func(n int, err error) {
			s.logger.Warn("retrying generation", "model", model, "attempt", n, "error", err)
		},
	}

	text, err := apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		text, err := attempt(callCtx)
		if err != nil {
			return "", classify(err)
		}
		return text, nil
	}, apierr.IsRetryable)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGeneration, model, err)
	}
	return text, nil
}
