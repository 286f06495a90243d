package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/go-summarizeme/internal/config"
	"github.com/alnah/go-summarizeme/internal/generate"
	"github.com/alnah/go-summarizeme/internal/store"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories for domain objects
	ConfigLoader     ConfigLoader
	StoreOpener      StoreOpener
	GeneratorFactory GeneratorFactory
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// StoreOpener opens the database.
type StoreOpener interface {
	Open(ctx context.Context, path string) (*store.Store, error)
}

// GeneratorFactory creates generation backends.
type GeneratorFactory interface {
	NewGenerator(p Provider, cfg config.Config) (generate.Generator, error)
	NewModelLister(cfg config.Config) generate.ModelLister
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithStoreOpener sets the store opener.
func WithStoreOpener(o StoreOpener) EnvOption {
	return func(e *Env) {
		e.StoreOpener = o
	}
}

// WithGeneratorFactory sets the generator factory.
func WithGeneratorFactory(f GeneratorFactory) EnvOption {
	return func(e *Env) {
		e.GeneratorFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		Now:              time.Now,
		ConfigLoader:     &defaultConfigLoader{},
		StoreOpener:      &defaultStoreOpener{},
		GeneratorFactory: &defaultGeneratorFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultStoreOpener implements StoreOpener using the store package.
type defaultStoreOpener struct{}

func (defaultStoreOpener) Open(ctx context.Context, path string) (*store.Store, error) {
	return store.Open(ctx, path)
}

// defaultGeneratorFactory builds OpenAI and Ollama backends from config.
type defaultGeneratorFactory struct{}

func (defaultGeneratorFactory) NewGenerator(p Provider, cfg config.Config) (generate.Generator, error) {
	opts := []generate.Option{generate.WithTimeout(cfg.TimeoutDuration())}
	if cfg.BaseURL != "" {
		opts = append(opts, generate.WithBaseURL(cfg.BaseURL))
	}

	if p.IsOllama() {
		return generate.NewOllama(opts...), nil
	}
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	return generate.NewOpenAI(cfg.APIKey, opts...)
}

func (defaultGeneratorFactory) NewModelLister(cfg config.Config) generate.ModelLister {
	var opts []generate.Option
	if cfg.BaseURL != "" && cfg.Provider == config.ProviderOllama {
		opts = append(opts, generate.WithBaseURL(cfg.BaseURL))
	}
	return generate.NewOllama(opts...)
}

// Compile-time interface verification.
var (
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ StoreOpener      = (*defaultStoreOpener)(nil)
	_ GeneratorFactory = (*defaultGeneratorFactory)(nil)
)
