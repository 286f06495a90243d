package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-summarizeme/internal/caption"
	"github.com/alnah/go-summarizeme/internal/config"
	"github.com/alnah/go-summarizeme/internal/store"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testEnv - Env backed by a temporary data directory and database
// ---------------------------------------------------------------------------

// testHarness groups the Env with what tests inspect afterwards.
type testHarness struct {
	env       *Env
	cfg       config.Config
	stdout    *syncBuffer
	stderr    *syncBuffer
	generator *mockGenerator
	lister    *mockModelLister
}

// testEnv creates an Env whose config points at fresh temp directories.
// Generation goes through a mockGenerator.
func testEnv(t *testing.T) *testHarness {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Config{
		DataDir:   filepath.Join(dir, "data"),
		Database:  filepath.Join(dir, "state", "summarizeme.db"),
		Provider:  config.ProviderOpenAI,
		Model:     "test-model",
		ChunkSize: 4000,
		Workers:   2,
		Parallel:  1,
		Timeout:   "1m",
		LogLevel:  "error",
		LogFormat: "text",
		APIKey:    "sk-test",
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		t.Fatalf("create data dir: %v", err)
	}

	h := &testHarness{
		cfg:       cfg,
		stdout:    &syncBuffer{},
		stderr:    &syncBuffer{},
		generator: &mockGenerator{},
		lister:    &mockModelLister{},
	}
	h.env = &Env{
		Stdout: h.stdout,
		Stderr: h.stderr,
		Getenv: staticEnv(nil),
		Now:    fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		ConfigLoader: &mockConfigLoader{
			LoadFunc: func() (config.Config, error) { return h.cfg, nil },
		},
		StoreOpener:      &tempStoreOpener{},
		GeneratorFactory: &mockGeneratorFactory{generator: h.generator, lister: h.lister},
	}
	return h
}

// openStore opens the harness database for assertions.
func (h *testHarness) openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), h.cfg.Database)
	if err != nil {
		t.Fatalf("store.Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// writeTranscript writes a transcript artifact under the data directory.
func (h *testHarness) writeTranscript(t *testing.T, collection, id, title string, lines ...string) {
	t.Helper()

	a := caption.Artifact{ID: id, Title: title, UploadDate: "20240101"}
	for i, line := range lines {
		a.Transcript = append(a.Transcript, caption.Entry{Text: line, Start: float64(i), Duration: 1})
	}

	dir := filepath.Join(h.cfg.DataDir, collection, "transcripts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	var b strings.Builder
	if err := a.Encode(&b); err != nil {
		t.Fatalf("encode artifact: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// writeFile creates a file with content in a temp directory and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}
