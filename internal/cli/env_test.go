package cli

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alnah/go-summarizeme/internal/config"
	"github.com/alnah/go-summarizeme/internal/generate"
)

// ---------------------------------------------------------------------------
// Tests for DefaultEnv
// ---------------------------------------------------------------------------

func TestDefaultEnvReturnsValidEnv(t *testing.T) {
	t.Parallel()

	env := DefaultEnv()

	if env == nil {
		t.Fatal("DefaultEnv() returned nil")
	}
	if env.Stdout != os.Stdout {
		t.Errorf("DefaultEnv() Stdout = %v, want os.Stdout", env.Stdout)
	}
	if env.Stderr != os.Stderr {
		t.Errorf("DefaultEnv() Stderr = %v, want os.Stderr", env.Stderr)
	}
	if env.Getenv == nil {
		t.Error("DefaultEnv() Getenv = nil, want non-nil")
	}
	if env.Now == nil {
		t.Error("DefaultEnv() Now = nil, want non-nil")
	}
	if env.ConfigLoader == nil {
		t.Error("DefaultEnv() ConfigLoader = nil, want non-nil")
	}
	if env.StoreOpener == nil {
		t.Error("DefaultEnv() StoreOpener = nil, want non-nil")
	}
	if env.GeneratorFactory == nil {
		t.Error("DefaultEnv() GeneratorFactory = nil, want non-nil")
	}
}

func TestDefaultEnvGetenvUsesOsGetenv(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv()

	testKey := "GO_SUMMARIZEME_TEST_KEY_12345"
	t.Setenv(testKey, "test_value_xyz")

	if got := DefaultEnv().Getenv(testKey); got != "test_value_xyz" {
		t.Errorf("DefaultEnv().Getenv(%q) = %q, want %q", testKey, got, "test_value_xyz")
	}
}

func TestDefaultEnvNowReturnsCurrentTime(t *testing.T) {
	t.Parallel()

	before := time.Now()
	result := DefaultEnv().Now()
	after := time.Now()

	if result.Before(before) || result.After(after) {
		t.Errorf("DefaultEnv().Now() = %v, want time between %v and %v", result, before, after)
	}
}

// ---------------------------------------------------------------------------
// Tests for NewEnv with options
// ---------------------------------------------------------------------------

func TestNewEnvOptions(t *testing.T) {
	t.Parallel()

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	fixed := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	loader := &mockConfigLoader{}
	opener := &tempStoreOpener{}
	factory := &mockGeneratorFactory{}

	env := NewEnv(
		WithStdout(stdout),
		WithStderr(stderr),
		WithGetenv(staticEnv(map[string]string{"TEST": "custom_value"})),
		WithNow(fixedTime(fixed)),
		WithConfigLoader(loader),
		WithStoreOpener(opener),
		WithGeneratorFactory(factory),
	)

	if env.Stdout != stdout || env.Stderr != stderr {
		t.Error("NewEnv() did not apply writer options")
	}
	if got := env.Getenv("TEST"); got != "custom_value" {
		t.Errorf("Getenv(%q) = %q, want %q", "TEST", got, "custom_value")
	}
	if !env.Now().Equal(fixed) {
		t.Errorf("Now() = %v, want %v", env.Now(), fixed)
	}
	if env.ConfigLoader != loader || env.StoreOpener != opener || env.GeneratorFactory != factory {
		t.Error("NewEnv() did not apply factory options")
	}
}

func TestNewEnvNoOptions(t *testing.T) {
	t.Parallel()

	env := NewEnv()
	if env.Stderr != os.Stderr || env.ConfigLoader == nil {
		t.Error("NewEnv() without options should match DefaultEnv()")
	}
}

// ---------------------------------------------------------------------------
// Tests for the default generator factory
// ---------------------------------------------------------------------------

func TestDefaultGeneratorFactory(t *testing.T) {
	t.Parallel()

	f := defaultGeneratorFactory{}

	t.Run("openai without key", func(t *testing.T) {
		t.Parallel()
		_, err := f.NewGenerator(OpenAIProvider, config.Config{Timeout: "1m"})
		if !errors.Is(err, ErrAPIKeyMissing) {
			t.Errorf("NewGenerator(openai) error = %v, want ErrAPIKeyMissing", err)
		}
	})

	t.Run("openai with key", func(t *testing.T) {
		t.Parallel()
		gen, err := f.NewGenerator(OpenAIProvider, config.Config{APIKey: "sk-test", Timeout: "1m"})
		if err != nil {
			t.Fatalf("NewGenerator(openai) unexpected error: %v", err)
		}
		if _, ok := gen.(*generate.OpenAI); !ok {
			t.Errorf("NewGenerator(openai) = %T, want *generate.OpenAI", gen)
		}
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		t.Parallel()
		gen, err := f.NewGenerator(OllamaProvider, config.Config{Timeout: "1m"})
		if err != nil {
			t.Fatalf("NewGenerator(ollama) unexpected error: %v", err)
		}
		if _, ok := gen.(*generate.Ollama); !ok {
			t.Errorf("NewGenerator(ollama) = %T, want *generate.Ollama", gen)
		}
	})
}
