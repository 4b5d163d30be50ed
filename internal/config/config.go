package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Text embedding providers.
const (
	ProviderService = "service"
	ProviderOpenAI  = "openai"
)

// Config holds the mantadmin configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig holds search backend connection settings.
type BackendConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"` // 0 = no client timeout, callers' contexts decide
	// EnsureSettingsTable creates the vector settings table at startup.
	EnsureSettingsTable bool `yaml:"ensure_settings_table"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	// TextProvider selects who embeds text: the embedding service or an OpenAI-compatible API.
	TextProvider string       `yaml:"text_provider"`
	Service      ServiceConfig `yaml:"service"`
	OpenAI       OpenAIConfig  `yaml:"openai"`
}

// ServiceConfig holds embedding service settings. It also serves images and multi-field requests.
type ServiceConfig struct {
	URL          string `yaml:"url"`
	DefaultModel string `yaml:"default_model"`
	Normalize    bool   `yaml:"normalize"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// OpenAIConfig holds OpenAI-compatible provider settings.
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Provider   string `yaml:"provider"` // metrics label, e.g. "nebius"
}

// CacheConfig holds the vector metadata cache settings.
type CacheConfig struct {
	VectorColumnsTTLSec int `yaml:"vector_columns_ttl_sec"`
	SweepIntervalSec    int `yaml:"sweep_interval_sec"`
}

// RedisConfig holds the optional text embedding cache store. Empty addrs disable it.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	EmbeddingTTLSec  int      `yaml:"embedding_ttl_sec"` // 0 = keep until evicted
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether an embedding cache store is configured.
func (r RedisConfig) Enabled() bool { return len(r.Addrs) > 0 }

// SearchConfig holds vector search tuning.
type SearchConfig struct {
	OversamplingFactor int `yaml:"oversampling_factor"`
	OversamplingFloor  int `yaml:"oversampling_floor"`
}

// VectorColumnsTTL returns the metadata cache TTL.
func (c CacheConfig) VectorColumnsTTL() time.Duration {
	return time.Duration(c.VectorColumnsTTLSec) * time.Second
}

// SweepInterval returns how often expired metadata entries are dropped.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Embedding.TextProvider == "" {
		c.Embedding.TextProvider = ProviderService
	}
	if c.Embedding.Service.TimeoutSec <= 0 {
		c.Embedding.Service.TimeoutSec = 60
	}
	if c.Embedding.OpenAI.Provider == "" {
		c.Embedding.OpenAI.Provider = ProviderOpenAI
	}
	if c.Cache.VectorColumnsTTLSec <= 0 {
		c.Cache.VectorColumnsTTLSec = 300
	}
	if c.Cache.SweepIntervalSec <= 0 {
		c.Cache.SweepIntervalSec = 60
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Search.OversamplingFactor <= 0 {
		c.Search.OversamplingFactor = 10
	}
	if c.Search.OversamplingFloor <= 0 {
		c.Search.OversamplingFloor = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := validURL("backend.url", c.Backend.URL); err != nil {
		return err
	}

	switch c.Embedding.TextProvider {
	case ProviderService:
		if c.Embedding.Service.URL == "" {
			return errors.New("embedding.service.url is required when text_provider is \"service\"")
		}
	case ProviderOpenAI:
		if c.Embedding.OpenAI.APIKey == "" {
			return errors.New("embedding.openai.api_key is required when text_provider is \"openai\"")
		}
	default:
		return fmt.Errorf(
			"embedding.text_provider must be %q or %q, got %q",
			ProviderService, ProviderOpenAI, c.Embedding.TextProvider,
		)
	}
	if c.Embedding.Service.URL != "" {
		if err := validURL("embedding.service.url", c.Embedding.Service.URL); err != nil {
			return err
		}
	}

	if c.Cache.SweepIntervalSec > c.Cache.VectorColumnsTTLSec {
		return fmt.Errorf("cache.sweep_interval_sec (%d) must not exceed cache.vector_columns_ttl_sec (%d)",
			c.Cache.SweepIntervalSec, c.Cache.VectorColumnsTTLSec)
	}
	return nil
}

func validURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
