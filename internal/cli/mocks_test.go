package cli

import (
	"context"
	"strings"
	"sync"

	"github.com/alnah/go-summarizeme/internal/config"
	"github.com/alnah/go-summarizeme/internal/generate"
	"github.com/alnah/go-summarizeme/internal/store"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// tempStoreOpener - opens a real SQLite store at the configured path
// ---------------------------------------------------------------------------

type tempStoreOpener struct {
	mu    sync.Mutex
	opens int
}

func (o *tempStoreOpener) Open(ctx context.Context, path string) (*store.Store, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()
	return store.Open(ctx, path)
}

// ---------------------------------------------------------------------------
// Mock GeneratorFactory + Generator + ModelLister
// ---------------------------------------------------------------------------

type mockGeneratorFactory struct {
	generator *mockGenerator
	lister    *mockModelLister
	err       error

	mu        sync.Mutex
	providers []Provider
	listerCfg config.Config
}

func (f *mockGeneratorFactory) NewGenerator(p Provider, _ config.Config) (generate.Generator, error) {
	f.mu.Lock()
	f.providers = append(f.providers, p)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.generator, nil
}

func (f *mockGeneratorFactory) NewModelLister(cfg config.Config) generate.ModelLister {
	f.mu.Lock()
	f.listerCfg = cfg
	f.mu.Unlock()
	return f.lister
}

func (f *mockGeneratorFactory) Providers() []Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Provider(nil), f.providers...)
}

// mockGenerator answers evaluation prompts with "5" and every other
// prompt with a fixed text, unless GenerateFunc is set.
type mockGenerator struct {
	GenerateFunc func(ctx context.Context, model, prompt string) (string, error)

	mu     sync.Mutex
	calls  int
	models []string
}

func (m *mockGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.models = append(m.models, model)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, model, prompt)
	}
	if strings.Contains(prompt, "Transformed transcript:") {
		return "5", nil
	}
	return "generated text", nil
}

func (m *mockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockGenerator) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.models...)
}

type mockModelLister struct {
	models []generate.Model
	err    error
}

func (m *mockModelLister) Models(context.Context) ([]generate.Model, error) {
	return m.models, m.err
}

// Compile-time interface verification.
var (
	_ ConfigLoader       = (*mockConfigLoader)(nil)
	_ StoreOpener        = (*tempStoreOpener)(nil)
	_ GeneratorFactory   = (*mockGeneratorFactory)(nil)
	_ generate.Generator = (*mockGenerator)(nil)
)
