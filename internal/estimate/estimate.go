// Package estimate sizes text in model-relevant units so callers can decide
// whether a transcript must be chunked before generation.
package estimate

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Estimator returns the size of a text in some fixed unit.
// Implementations must be deterministic, and a text extended with more
// words must never estimate smaller than the original.
type Estimator interface {
	Estimate(text string) int
}

// Compile-time interface compliance checks.
var (
	_ Estimator = Words{}
	_ Estimator = (*Tokens)(nil)
)

// Words counts whitespace-separated words.
type Words struct{}

// Estimate returns the number of whitespace-separated words in text.
func (Words) Estimate(text string) int {
	return len(strings.Fields(text))
}

// Tokens counts tokens with a model's BPE vocabulary.
type Tokens struct {
	model string
	enc   *tiktoken.Tiktoken
}

// The offline loader embeds the BPE ranks so no network access is needed.
var loaderOnce sync.Once

// NewTokens returns a tokenizer-backed estimator for model.
// Fails when the model's vocabulary is unknown.
func NewTokens(model string) (*Tokens, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("no tokenizer for model %q: %w", model, err)
	}
	return &Tokens{model: model, enc: enc}, nil
}

// Estimate returns the token count of text.
func (t *Tokens) Estimate(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Model returns the model name the vocabulary was selected for.
func (t *Tokens) Model() string {
	return t.model
}

// ForModel returns a token estimator for model, or Words when no vocabulary
// is known for it. The fallback is logged at debug level and never surfaced.
func ForModel(model string, logger *slog.Logger) Estimator {
	tok, err := NewTokens(model)
	if err != nil {
		if logger != nil {
			logger.Debug("falling back to word estimate", "model", model, "error", err)
		}
		return Words{}
	}
	return tok
}
