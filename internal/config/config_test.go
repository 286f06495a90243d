package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Notes:
// - White-box testing (package config) for readFile and applyDefaults.
// - Uses t.TempDir() + t.Setenv("XDG_CONFIG_HOME") for I/O isolation.
// - Tests using t.Setenv are NOT parallel (incompatible with t.Parallel).
//
// Coverage gaps (intentional - rare I/O errors not worth mocking):
// - os.UserHomeDir() failures in Dir(), ExpandPath()
// - Write errors in Save() (disk full, permission denied mid-write)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// isolate points every config and data lookup at a temp dir and clears
// the environment fallbacks.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, env := range []string{
		EnvDataDir, EnvDatabase, EnvProvider, EnvModel, EnvBaseURL,
		EnvLogLevel, EnvLogFormat, EnvOpenAIKey, EnvOllamaHost,
	} {
		t.Setenv(env, "")
	}
	return dir
}

// writeConfigFile creates a config file in the given directory.
func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, appName)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestLoad
// ---------------------------------------------------------------------------

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantData := filepath.Join(dir, "data", appName)
	if cfg.DataDir != filepath.Join(wantData, "data") {
		t.Errorf("DataDir = %q, want under %q", cfg.DataDir, wantData)
	}
	if cfg.Database != filepath.Join(wantData, appName+".db") {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.Provider != ProviderOpenAI || cfg.Model != "gpt-4o" {
		t.Errorf("Provider/Model = %q/%q, want openai/gpt-4o", cfg.Provider, cfg.Model)
	}
	if cfg.ChunkSize != 4000 || cfg.Workers != 4 || cfg.Parallel != 1 {
		t.Errorf("ChunkSize/Workers/Parallel = %d/%d/%d", cfg.ChunkSize, cfg.Workers, cfg.Parallel)
	}
	if cfg.TimeoutDuration() != 5*time.Minute {
		t.Errorf("TimeoutDuration() = %v, want 5m", cfg.TimeoutDuration())
	}
	if cfg.StateDir() != wantData {
		t.Errorf("StateDir() = %q, want %q", cfg.StateDir(), wantData)
	}
}

func TestLoad_FileThenEnvThenDefaults(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, `
provider = "ollama"
chunk-size = 1200
timeout = "30s"
`)
	t.Setenv(EnvProvider, "openai")
	t.Setenv(EnvDataDir, "/env/data")
	t.Setenv(EnvOllamaHost, "gpu-box:11434")
	t.Setenv(EnvOpenAIKey, "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != ProviderOllama {
		t.Errorf("Provider = %q, want file value ollama", cfg.Provider)
	}
	if cfg.DataDir != "/env/data" {
		t.Errorf("DataDir = %q, want env value", cfg.DataDir)
	}
	if cfg.BaseURL != "http://gpu-box:11434" {
		t.Errorf("BaseURL = %q, want OLLAMA_HOST with scheme", cfg.BaseURL)
	}
	if cfg.Model != "llama3.2" {
		t.Errorf("Model = %q, want ollama default", cfg.Model)
	}
	if cfg.ChunkSize != 1200 {
		t.Errorf("ChunkSize = %d, want 1200", cfg.ChunkSize)
	}
	if cfg.TimeoutDuration() != 30*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 30s", cfg.TimeoutDuration())
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want env value", cfg.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"bad provider", `provider = "claude"`, ErrInvalidValue},
		{"negative workers", `workers = -2`, ErrInvalidValue},
		{"bad timeout", `timeout = "soon"`, ErrInvalidValue},
		{"bad log level", `log-level = "loud"`, ErrInvalidValue},
		{"malformed toml", `provider = `, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeConfigFile(t, dir, tt.content)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSaveGetList
// ---------------------------------------------------------------------------

func TestSaveGetList(t *testing.T) {
	isolate(t)

	if err := Save(KeyModel, "gpt-4o-mini"); err != nil {
		t.Fatalf("Save(model) error = %v", err)
	}
	if err := Save(KeyChunkSize, "2500"); err != nil {
		t.Fatalf("Save(chunk-size) error = %v", err)
	}
	if err := Save(KeyModel, "gpt-4.1"); err != nil {
		t.Fatalf("Save(model) overwrite error = %v", err)
	}

	got, err := Get(KeyModel)
	if err != nil || got != "gpt-4.1" {
		t.Errorf("Get(model) = %q, %v, want gpt-4.1", got, err)
	}

	all, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[KeyChunkSize] != "2500" {
		t.Errorf("List() = %v", all)
	}

	p, _ := Path()
	table, err := readFile(p)
	if err != nil {
		t.Fatalf("readFile() error = %v", err)
	}
	if _, ok := table[KeyChunkSize].(int64); !ok {
		t.Errorf("chunk-size stored as %T, want TOML integer", table[KeyChunkSize])
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after Save error = %v", err)
	}
	if cfg.ChunkSize != 2500 || cfg.Model != "gpt-4.1" {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestSave_Rejects(t *testing.T) {
	isolate(t)

	tests := []struct {
		key, value string
		want       error
	}{
		{"colour", "blue", ErrUnknownKey},
		{KeyWorkers, "zero", ErrInvalidValue},
		{KeyWorkers, "0", ErrInvalidValue},
		{KeyProvider, "bard", ErrInvalidValue},
		{KeyDataDir, "  ", ErrInvalidValue},
		{KeyLogFormat, "xml", ErrInvalidValue},
	}
	for _, tt := range tests {
		if err := Save(tt.key, tt.value); !errors.Is(err, tt.want) {
			t.Errorf("Save(%q, %q) error = %v, want %v", tt.key, tt.value, err, tt.want)
		}
	}

	all, err := List()
	if err != nil || len(all) != 0 {
		t.Errorf("List() = %v, %v, want empty", all, err)
	}
}

func TestGet_MissingFile(t *testing.T) {
	isolate(t)

	got, err := Get(KeyModel)
	if err != nil || got != "" {
		t.Errorf("Get() = %q, %v, want empty, nil", got, err)
	}
}

// ---------------------------------------------------------------------------
// TestKeys
// ---------------------------------------------------------------------------

func TestKeys(t *testing.T) {
	t.Parallel()

	for _, key := range Keys() {
		err := ValidateValue(key, "")
		if errors.Is(err, ErrUnknownKey) {
			t.Errorf("ValidateValue(%q) reports unknown key", key)
		}
	}
}

func TestIsKey(t *testing.T) {
	t.Parallel()

	if !IsKey(KeyChunkSize) {
		t.Errorf("IsKey(%q) = false, want true", KeyChunkSize)
	}
	if IsKey("output-dir") {
		t.Error("IsKey(\"output-dir\") = true, want false")
	}
}

func TestEnvVar(t *testing.T) {
	t.Parallel()

	if got := EnvVar(KeyModel); got != EnvModel {
		t.Errorf("EnvVar(%q) = %q, want %q", KeyModel, got, EnvModel)
	}
	if got := EnvVar(KeyWorkers); got != "" {
		t.Errorf("EnvVar(%q) = %q, want empty", KeyWorkers, got)
	}
}

// ---------------------------------------------------------------------------
// TestExpandPath - Pure function for ~ expansion
// ---------------------------------------------------------------------------

func TestExpandPath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("cannot get home dir: %v", err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"expands tilde prefix", "~/Documents/file.txt", filepath.Join(home, "Documents/file.txt")},
		{"no expansion for absolute path", "/absolute/path", "/absolute/path"},
		{"no expansion for relative path", "relative/path", "relative/path"},
		{"no expansion for tilde in middle", "/path/~/file", "/path/~/file"},
		{"no expansion for bare tilde", "~", "~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExpandPath(tt.path); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
