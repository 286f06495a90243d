package cli

import (
	"errors"
	"fmt"

	"github.com/alnah/go-summarizeme/internal/config"
)

// Provider represents a validated generation backend.
// Zero value is invalid and must not be used.
// Use ParseProvider to create from user input, or the pre-parsed constants.
type Provider struct {
	name string
}

// Compile-time interface compliance check.
var _ fmt.Stringer = Provider{}

// ErrInvalidProvider indicates an invalid provider name was specified.
var ErrInvalidProvider = errors.New("invalid provider")

// Pre-parsed provider constants for use in code.
var (
	OpenAIProvider = Provider{name: config.ProviderOpenAI}
	OllamaProvider = Provider{name: config.ProviderOllama}
)

// validProviders contains the set of valid provider names.
var validProviders = map[string]bool{
	config.ProviderOpenAI: true,
	config.ProviderOllama: true,
}

// ParseProvider validates and parses a provider name string.
// Returns ErrInvalidProvider if the name is not recognized.
func ParseProvider(s string) (Provider, error) {
	if s == "" {
		return Provider{}, fmt.Errorf("provider cannot be empty: %w", ErrInvalidProvider)
	}
	if !validProviders[s] {
		return Provider{}, fmt.Errorf("unknown provider %q (use 'openai' or 'ollama'): %w", s, ErrInvalidProvider)
	}
	return Provider{name: s}, nil
}

// MustParseProvider parses a provider name, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParseProvider(s string) Provider {
	p, err := ParseProvider(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the provider name string.
// Returns empty string for zero value.
func (p Provider) String() string {
	return p.name
}

// IsZero returns true if this is the zero value (no provider set).
func (p Provider) IsZero() bool {
	return p.name == ""
}

// IsOllama returns true if this provider is Ollama.
func (p Provider) IsOllama() bool {
	return p.name == config.ProviderOllama
}

// OrDefault returns p, or the configured provider when p is unset.
func (p Provider) OrDefault(cfg config.Config) Provider {
	if !p.IsZero() {
		return p
	}
	if cfg.Provider == config.ProviderOllama {
		return OllamaProvider
	}
	return OpenAIProvider
}
