// Package config loads docsai configuration.
//
// Values are layered: built-in defaults, then ~/.docsai/config.toml (or the
// file named by --config), then a .env file in the working directory, then
// the process environment. The result is validated once at startup and passed
// to constructors; nothing reads configuration after that.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docsai/internal/chunker"
	"github.com/custodia-labs/docsai/internal/core/domain"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Cache drivers.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// DefaultDimensions is the vector length used when none is configured.
const DefaultDimensions = 768

// Environment variables read by Load.
const (
	EnvGeminiKey         = "GEMINI_API_KEY"
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvAnthropicKey      = "ANTHROPIC_API_KEY"
	EnvDatabaseURL       = "DATABASE_URL"
	EnvRedisURL          = "REDIS_URL"
	EnvEmbeddingProvider = "DOCSAI_EMBEDDING_PROVIDER"
	EnvLLMProvider       = "DOCSAI_LLM_PROVIDER"
	EnvStore             = "DOCSAI_STORE"
	EnvCache             = "DOCSAI_CACHE"
	EnvOllamaURL         = "OLLAMA_HOST"
)

// ErrInvalid marks a configuration that cannot start the service.
var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as a string ("30s", "1h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete runtime configuration.
type Config struct {
	LogLevel  string          `toml:"log_level"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Store     StoreConfig     `toml:"store"`
	Cache     CacheConfig     `toml:"cache"`
	Chunker   ChunkerConfig   `toml:"chunker"`
	RAG       RAGConfig       `toml:"rag"`
	Server    ServerConfig    `toml:"server"`
}

// EmbeddingConfig selects the embedding provider and its client policy.
type EmbeddingConfig struct {
	Provider          domain.AIProvider `toml:"provider"`
	Model             string            `toml:"model"`
	BaseURL           string            `toml:"base_url"`
	APIKey            string            `toml:"api_key"`
	Dimensions        int               `toml:"dimensions"`
	BatchSize         int               `toml:"batch_size"`
	MaxAttempts       int               `toml:"max_attempts"`
	BaseDelay         Duration          `toml:"base_delay"`
	MaxDelay          Duration          `toml:"max_delay"`
	RequestsPerSecond float64           `toml:"requests_per_second"`
}

// LLMConfig selects the generation provider.
type LLMConfig struct {
	Provider domain.AIProvider `toml:"provider"`
	Model    string            `toml:"model"`
	BaseURL  string            `toml:"base_url"`
	APIKey   string            `toml:"api_key"`
	Timeout  Duration          `toml:"timeout"`
}

// StoreConfig selects the vector store.
type StoreConfig struct {
	Driver      string `toml:"driver"`
	DatabaseURL string `toml:"database_url"`
	Path        string `toml:"path"`
	MaxConns    int32  `toml:"max_conns"`
}

// CacheConfig selects the query cache.
type CacheConfig struct {
	Driver   string   `toml:"driver"`
	RedisURL string   `toml:"redis_url"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

// ChunkerConfig sets the chunk window.
type ChunkerConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// RAGConfig tunes the question pipeline.
type RAGConfig struct {
	TopK        int     `toml:"top_k"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// ServerConfig configures `docsai serve`.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	MaxUploadMB    int64    `toml:"max_upload_mb"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Embedding: EmbeddingConfig{
			Provider:    domain.AIProviderGemini,
			Model:       "gemini-embedding-001",
			Dimensions:  DefaultDimensions,
			BatchSize:   100,
			MaxAttempts: 5,
			BaseDelay:   Duration{500 * time.Millisecond},
			MaxDelay:    Duration{8 * time.Second},
		},
		LLM: LLMConfig{
			Provider: domain.AIProviderGemini,
			Model:    "gemini-1.5-flash",
			Timeout:  Duration{2 * time.Minute},
		},
		Store: StoreConfig{
			Driver:   StorePostgres,
			MaxConns: 10,
		},
		Cache: CacheConfig{
			Driver: CacheRedis,
			TTL:    Duration{time.Hour},
		},
		Chunker: ChunkerConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultChunkOverlap,
		},
		RAG: RAGConfig{
			TopK: 4,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: Duration{2 * time.Minute},
			MaxUploadMB:    50,
		},
	}
}

// Dir returns the docsai home directory (~/.docsai).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".docsai"), nil
}

// DefaultPath returns ~/.docsai/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load builds the configuration from path (default location when empty),
// .env and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated is Load without Validate, for displaying a broken setup.
func LoadUnvalidated(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadFile reads defaults overlaid with the TOML file at path.
// A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions, creating the directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
// Provider API keys apply only to the section using that provider, and never
// replace a key set in the file.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get(EnvEmbeddingProvider); v != "" {
		c.Embedding.Provider = domain.AIProvider(strings.ToLower(v))
	}
	if v := get(EnvLLMProvider); v != "" {
		c.LLM.Provider = domain.AIProvider(strings.ToLower(v))
	}
	if v := get(EnvStore); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	if v := get(EnvCache); v != "" {
		c.Cache.Driver = strings.ToLower(v)
	}
	if v := get(EnvDatabaseURL); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := get(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
	}

	keys := map[domain.AIProvider]string{
		domain.AIProviderGemini:    get(EnvGeminiKey),
		domain.AIProviderOpenAI:    get(EnvOpenAIKey),
		domain.AIProviderAnthropic: get(EnvAnthropicKey),
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = keys[c.Embedding.Provider]
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = keys[c.LLM.Provider]
	}

	if v := get(EnvOllamaURL); v != "" {
		if c.Embedding.Provider == domain.AIProviderOllama && c.Embedding.BaseURL == "" {
			c.Embedding.BaseURL = v
		}
		if c.LLM.Provider == domain.AIProviderOllama && c.LLM.BaseURL == "" {
			c.LLM.BaseURL = v
		}
	}
}

// Validate reports every problem that would stop the service from starting.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch {
	case !c.Embedding.Provider.IsValid():
		add("embedding.provider %q is not one of gemini, openai, ollama", c.Embedding.Provider)
	case !c.Embedding.Provider.SupportsEmbeddings():
		add("embedding.provider %q has no embedding API", c.Embedding.Provider)
	case c.Embedding.Provider.RequiresAPIKey() && c.Embedding.APIKey == "":
		add("embedding.api_key is required for %s (set %s)", c.Embedding.Provider, envKeyFor(c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		add("embedding.dimensions must be positive")
	}
	if c.Embedding.BatchSize <= 0 {
		add("embedding.batch_size must be positive")
	}
	if c.Embedding.MaxAttempts <= 0 {
		add("embedding.max_attempts must be positive")
	}
	if c.Embedding.BaseDelay.Duration <= 0 || c.Embedding.MaxDelay.Duration < c.Embedding.BaseDelay.Duration {
		add("embedding.base_delay must be positive and no greater than embedding.max_delay")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		add("embedding.requests_per_second must not be negative")
	}

	switch {
	case !c.LLM.Provider.IsValid():
		add("llm.provider %q is not one of gemini, openai, anthropic, ollama", c.LLM.Provider)
	case c.LLM.Provider.RequiresAPIKey() && c.LLM.APIKey == "":
		add("llm.api_key is required for %s (set %s)", c.LLM.Provider, envKeyFor(c.LLM.Provider))
	}

	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for postgres (set %s)", EnvDatabaseURL)
		}
	case StoreSQLite, StoreMemory:
	default:
		add("store.driver %q is not one of postgres, sqlite, memory", c.Store.Driver)
	}

	switch c.Cache.Driver {
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			add("cache.redis_url is required for redis (set %s)", EnvRedisURL)
		}
	case CacheMemory, CacheNone:
	default:
		add("cache.driver %q is not one of redis, memory, none", c.Cache.Driver)
	}
	if c.Cache.TTL.Duration <= 0 {
		add("cache.ttl must be positive")
	}

	if c.Chunker.Size <= 0 {
		add("chunker.size must be positive")
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		add("chunker.overlap must be at least 0 and less than chunker.size")
	}
	if c.RAG.TopK <= 0 {
		add("rag.top_k must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(problems, "\n  - "))
}

// EmbeddingSettings converts the embedding section for the provider factory.
func (c *Config) EmbeddingSettings() domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider:          c.Embedding.Provider,
		Model:             c.Embedding.Model,
		BaseURL:           c.Embedding.BaseURL,
		APIKey:            c.Embedding.APIKey,
		Dimensions:        c.Embedding.Dimensions,
		BatchSize:         c.Embedding.BatchSize,
		MaxAttempts:       c.Embedding.MaxAttempts,
		BaseDelay:         c.Embedding.BaseDelay.Duration,
		MaxDelay:          c.Embedding.MaxDelay.Duration,
		RequestsPerSecond: c.Embedding.RequestsPerSecond,
	}
}

// LLMSettings converts the llm section for the provider factory.
func (c *Config) LLMSettings() domain.LLMSettings {
	return domain.LLMSettings{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		BaseURL:  c.LLM.BaseURL,
		APIKey:   c.LLM.APIKey,
		Timeout:  c.LLM.Timeout.Duration,
	}
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Embedding.APIKey = mask(c.Embedding.APIKey)
	out.LLM.APIKey = mask(c.LLM.APIKey)
	out.Store.DatabaseURL = maskURL(c.Store.DatabaseURL)
	out.Cache.RedisURL = maskURL(c.Cache.RedisURL)
	return &out
}

func envKeyFor(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderGemini:
		return EnvGeminiKey
	case domain.AIProviderOpenAI:
		return EnvOpenAIKey
	case domain.AIProviderAnthropic:
		return EnvAnthropicKey
	default:
		return ""
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskURL hides the password in a URL with userinfo.
func maskURL(s string) string {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return s
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return s
	}
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return s
	}
	return scheme + "://" + user + ":****@" + host
}
