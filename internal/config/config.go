// Package config loads user settings from ~/.config/summarizeme/config.toml
// with environment fallbacks.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const appName = "summarizeme"

// Config keys.
const (
	KeyDataDir   = "data-dir"
	KeyDatabase  = "database"
	KeyProvider  = "provider"
	KeyModel     = "model"
	KeyBaseURL   = "base-url"
	KeyChunkSize = "chunk-size"
	KeyWorkers   = "workers"
	KeyParallel  = "parallel"
	KeyTimeout   = "timeout"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
)

// Environment variable fallbacks.
const (
	EnvDataDir    = "SUMMARIZEME_DATA_DIR"
	EnvDatabase   = "SUMMARIZEME_DATABASE"
	EnvProvider   = "SUMMARIZEME_PROVIDER"
	EnvModel      = "SUMMARIZEME_MODEL"
	EnvBaseURL    = "SUMMARIZEME_BASE_URL"
	EnvLogLevel   = "SUMMARIZEME_LOG_LEVEL"
	EnvLogFormat  = "SUMMARIZEME_LOG_FORMAT"
	EnvOpenAIKey  = "OPENAI_API_KEY"
	EnvOllamaHost = "OLLAMA_HOST"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Sentinel errors for configuration problems.
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// intKeys hold integer values in the TOML file.
var intKeys = []string{KeyChunkSize, KeyWorkers, KeyParallel}

// Keys returns every supported key in display order.
func Keys() []string {
	return []string{
		KeyDataDir, KeyDatabase, KeyProvider, KeyModel, KeyBaseURL,
		KeyChunkSize, KeyWorkers, KeyParallel, KeyTimeout, KeyLogLevel, KeyLogFormat,
	}
}

// IsKey reports whether key is a supported config key.
func IsKey(key string) bool {
	return slices.Contains(Keys(), key)
}

// envVars maps keys to the environment variable read when the file leaves them unset.
var envVars = map[string]string{
	KeyDataDir:   EnvDataDir,
	KeyDatabase:  EnvDatabase,
	KeyProvider:  EnvProvider,
	KeyModel:     EnvModel,
	KeyBaseURL:   EnvBaseURL,
	KeyLogLevel:  EnvLogLevel,
	KeyLogFormat: EnvLogFormat,
}

// EnvVar returns the environment fallback of key, or "" if it has none.
func EnvVar(key string) string {
	return envVars[key]
}

// Config holds user configuration.
type Config struct {
	DataDir   string `toml:"data-dir"`
	Database  string `toml:"database"`
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base-url"`
	ChunkSize int    `toml:"chunk-size"`
	Workers   int    `toml:"workers"`
	Parallel  int    `toml:"parallel"`
	Timeout   string `toml:"timeout"`
	LogLevel  string `toml:"log-level"`
	LogFormat string `toml:"log-format"`

	// APIKey is only ever read from the environment.
	APIKey string `toml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	data := dataHome()
	return Config{
		DataDir:   filepath.Join(data, "data"),
		Database:  filepath.Join(data, appName+".db"),
		Provider:  ProviderOpenAI,
		Model:     "gpt-4o",
		ChunkSize: 4000,
		Workers:   4,
		Parallel:  1,
		Timeout:   "5m",
		LogLevel:  "info",
		LogFormat: "auto",
	}
}

// dataHome returns XDG_DATA_HOME/summarizeme or ~/.local/share/summarizeme.
func dataHome() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// Dir returns the configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/summarizeme.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// Path returns the config file path.
func Path() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.toml"), nil
}

// Load reads the config file and environment, then fills defaults.
// Precedence: config file values, then environment variables, then defaults.
// A missing file is not an error.
func Load() (Config, error) {
	var cfg Config

	p, err := Path()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from home dir
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", p, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.DataDir = ExpandPath(cfg.DataDir)
	cfg.Database = ExpandPath(cfg.Database)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	fallback := func(field *string, env string) {
		if *field == "" {
			*field = os.Getenv(env)
		}
	}
	fallback(&c.DataDir, EnvDataDir)
	fallback(&c.Database, EnvDatabase)
	fallback(&c.Provider, EnvProvider)
	fallback(&c.Model, EnvModel)
	fallback(&c.BaseURL, EnvBaseURL)
	fallback(&c.LogLevel, EnvLogLevel)
	fallback(&c.LogFormat, EnvLogFormat)
	c.APIKey = os.Getenv(EnvOpenAIKey)

	if c.BaseURL == "" && c.Provider == ProviderOllama {
		if host := os.Getenv(EnvOllamaHost); host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			c.BaseURL = host
		}
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	setString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setInt := func(field *int, def int) {
		if *field == 0 {
			*field = def
		}
	}
	setString(&c.DataDir, d.DataDir)
	setString(&c.Database, d.Database)
	setString(&c.Provider, d.Provider)
	setString(&c.Timeout, d.Timeout)
	setString(&c.LogLevel, d.LogLevel)
	setString(&c.LogFormat, d.LogFormat)
	setInt(&c.ChunkSize, d.ChunkSize)
	setInt(&c.Workers, d.Workers)
	setInt(&c.Parallel, d.Parallel)
	if c.Model == "" && c.Provider == d.Provider {
		c.Model = d.Model
	}
	if c.Model == "" && c.Provider == ProviderOllama {
		c.Model = "llama3.2"
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := ValidateValue(KeyProvider, c.Provider); err != nil {
		return err
	}
	if err := ValidateValue(KeyTimeout, c.Timeout); err != nil {
		return err
	}
	if err := ValidateValue(KeyLogLevel, c.LogLevel); err != nil {
		return err
	}
	if err := ValidateValue(KeyLogFormat, c.LogFormat); err != nil {
		return err
	}
	for key, v := range map[string]int{KeyChunkSize: c.ChunkSize, KeyWorkers: c.Workers, KeyParallel: c.Parallel} {
		if v < 1 {
			return fmt.Errorf("%s must be positive, got %d: %w", key, v, ErrInvalidValue)
		}
	}
	return nil
}

// TimeoutDuration returns the per-call generation timeout.
func (c Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// StateDir returns the directory holding the database and lock files.
func (c Config) StateDir() string {
	return filepath.Dir(c.Database)
}

// ValidateValue checks a single value for key.
func ValidateValue(key, value string) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%s: %s: %w", key, fmt.Sprintf(format, args...), ErrInvalidValue)
	}

	switch key {
	case KeyProvider:
		if value != ProviderOpenAI && value != ProviderOllama {
			return invalid("%q (expected %s or %s)", value, ProviderOpenAI, ProviderOllama)
		}
	case KeyTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return invalid("%q is not a positive duration", value)
		}
	case KeyLogLevel:
		if !slices.Contains([]string{"debug", "info", "warn", "error"}, value) {
			return invalid("%q (expected debug, info, warn or error)", value)
		}
	case KeyLogFormat:
		if !slices.Contains([]string{"auto", "text", "json"}, value) {
			return invalid("%q (expected auto, text or json)", value)
		}
	case KeyChunkSize, KeyWorkers, KeyParallel:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return invalid("%q is not a positive integer", value)
		}
	case KeyDataDir, KeyDatabase, KeyModel, KeyBaseURL:
		if strings.TrimSpace(value) == "" {
			return invalid("cannot be empty")
		}
	default:
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	return nil
}

// readFile reads the config file as a generic table.
func readFile(p string) (map[string]any, error) {
	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	table := make(map[string]any)
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return table, nil
}

// Save validates and writes a single key to the config file.
// Creates the config directory and file if they don't exist.
// Preserves other keys but discards comments.
func Save(key, value string) error {
	if err := ValidateValue(key, value); err != nil {
		return err
	}

	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	table, err := readFile(p)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if table == nil {
		table = make(map[string]any)
	}

	if slices.Contains(intKeys, key) {
		n, _ := strconv.Atoi(value)
		table[key] = n
	} else {
		table[key] = value
	}

	data, err := toml.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	// #nosec G306 -- config file with standard permissions
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns an empty string if the key is not set.
func Get(key string) (string, error) {
	all, err := List()
	if err != nil {
		return "", err
	}
	return all[key], nil
}

// List returns every value set in the config file, rendered as strings.
func List() (map[string]string, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	table, err := readFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
