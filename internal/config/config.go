package config

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/cvanbaush/news-summaries/internal/article"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Environment settings, all prefixed with NEWS_.
const (
	EnvNewsAPIKey     = "NEWS_NEWSAPI_KEY"
	EnvOpenAIKey      = "NEWS_OPENAI_API_KEY"
	EnvAnthropicKey   = "NEWS_ANTHROPIC_API_KEY"
	EnvGeminiKey      = "NEWS_GEMINI_API_KEY"
	EnvAIKey          = "NEWS_AI_KEY"
	EnvMaxPerCategory = "NEWS_MAX_PER_CATEGORY"
	EnvConfigDir      = "NEWS_CONFIG_DIR"
)

const defaultMaxPerCategory = 5

type Source struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// UnmarshalYAML treats a missing enabled key as true and a missing type as rss.
func (s *Source) UnmarshalYAML(value *yaml.Node) error {
	type plain Source
	p := plain{Type: "rss", Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Source(p)
	return nil
}

// Sources groups feed sources by category.
type Sources struct {
	World    []Source `yaml:"world"`
	National []Source `yaml:"national"`
	Local    []Source `yaml:"local"`
}

// For returns the sources configured for a category.
func (s Sources) For(cat article.Category) []Source {
	switch cat {
	case article.World:
		return s.World
	case article.National:
		return s.National
	case article.Local:
		return s.Local
	}
	return nil
}

type NewsAPIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key,omitempty"`
	Country    string `yaml:"country"`
	PageSize   int    `yaml:"page_size"`
	LocalQuery string `yaml:"local_query"`
}

type AIConfig struct {
	Provider          string `yaml:"provider"` // "openai", "claude" or "gemini"
	APIKey            string `yaml:"api_key,omitempty"`
	Model             string `yaml:"model"`
	Concurrency       int    `yaml:"concurrency,omitempty"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	MaxPerCategory int           `yaml:"max_per_category"`
	Retention      string        `yaml:"retention"`
	Output         string        `yaml:"output"`
	NewsAPI        NewsAPIConfig `yaml:"newsapi"`
	AI             *AIConfig     `yaml:"ai,omitempty"`
	Log            LogConfig     `yaml:"log"`
	Sources        Sources       `yaml:"sources"`
}

// LoadDotEnv reads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// NewsAPIKey returns the NewsAPI credential from config or NEWS_NEWSAPI_KEY.
func (c *Config) NewsAPIKey() string {
	if c.NewsAPI.APIKey != "" {
		return c.NewsAPI.APIKey
	}
	return os.Getenv(EnvNewsAPIKey)
}

// AIProvider returns the configured summarization provider, openai by default.
func (c *Config) AIProvider() string {
	if c.AI == nil || c.AI.Provider == "" {
		return "openai"
	}
	return c.AI.Provider
}

// AIKey returns the resolved summarization key: config first, then the
// provider-specific variable, then NEWS_AI_KEY.
func (c *Config) AIKey() string {
	if c.AI != nil && c.AI.APIKey != "" {
		return c.AI.APIKey
	}
	var env string
	switch c.AIProvider() {
	case "openai":
		env = EnvOpenAIKey
	case "claude":
		env = EnvAnthropicKey
	case "gemini":
		env = EnvGeminiKey
	}
	if v := os.Getenv(env); env != "" && v != "" {
		return v
	}
	return os.Getenv(EnvAIKey)
}

// AIEnabled reports whether summarization has a usable key.
func (c *Config) AIEnabled() bool {
	return c.AIKey() != ""
}

// AIModel returns the configured model name, or "" for the provider default.
func (c *Config) AIModel() string {
	if c.AI == nil {
		return ""
	}
	return c.AI.Model
}

// GetMaxPerCategory applies NEWS_MAX_PER_CATEGORY, then config, then 5.
func (c *Config) GetMaxPerCategory() int {
	if v := os.Getenv(EnvMaxPerCategory); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if c.MaxPerCategory <= 0 {
		return defaultMaxPerCategory
	}
	return c.MaxPerCategory
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 30 * 24 * time.Hour
	}
	d, err := ParseDuration(c.Retention)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

// EnabledSources returns the enabled sources for a category in config order.
func (c *Config) EnabledSources(cat article.Category) []Source {
	var out []Source
	for _, s := range c.Sources.For(cat) {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// HasEnabledSources reports whether any RSS source is enabled.
func (c *Config) HasEnabledSources() bool {
	for _, cat := range article.Priority {
		if len(c.EnabledSources(cat)) > 0 {
			return true
		}
	}
	return false
}

// ParseDuration accepts Go durations plus an "Nd" day suffix.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func DefaultConfigPath() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return filepath.Join(xdg.ConfigHome, "newsdigest", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "newsdigest", "newsdigest.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: embedded defaults still apply if the write fails.
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Seeded so that a file without newsapi.enabled keeps the default.
	cfg := Config{NewsAPI: NewsAPIConfig{Enabled: defaults.NewsAPI.Enabled}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	fillDefaults(&cfg, defaults)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

// fillDefaults copies scalar defaults into fields a user file left empty.
// Sources are never merged: a user file owns its source list.
func fillDefaults(cfg, defaults *Config) {
	if cfg.Output == "" {
		cfg.Output = defaults.Output
	}
	if cfg.Retention == "" {
		cfg.Retention = defaults.Retention
	}
	if cfg.NewsAPI.Country == "" {
		cfg.NewsAPI.Country = defaults.NewsAPI.Country
	}
	if cfg.NewsAPI.PageSize <= 0 {
		cfg.NewsAPI.PageSize = defaults.NewsAPI.PageSize
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

func validate(cfg *Config) error {
	if cfg.MaxPerCategory < 0 {
		return fmt.Errorf("max_per_category must not be negative, got %d", cfg.MaxPerCategory)
	}
	if cfg.NewsAPI.PageSize > 100 {
		return fmt.Errorf("newsapi.page_size must be at most 100, got %d", cfg.NewsAPI.PageSize)
	}
	if cfg.AI != nil {
		switch cfg.AI.Provider {
		case "", "openai", "claude", "gemini":
		default:
			return fmt.Errorf("unknown AI provider: %q (valid: openai, claude, gemini)", cfg.AI.Provider)
		}
		if cfg.AI.Concurrency < 0 || cfg.AI.RequestsPerMinute < 0 {
			return fmt.Errorf("ai.concurrency and ai.requests_per_minute must not be negative")
		}
	}

	validTypes := map[string]bool{"": true, "rss": true, "atom": true}
	for _, cat := range article.Priority {
		for i, s := range cfg.Sources.For(cat) {
			if s.Name == "" {
				return fmt.Errorf("%s source %d: name is required", cat, i)
			}
			if s.URL == "" {
				return fmt.Errorf("source %q: url is required", s.Name)
			}
			u, err := url.Parse(s.URL)
			if err != nil {
				return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
			}
			if !validTypes[s.Type] {
				return fmt.Errorf("source %q: unknown type %q (valid: rss, atom)", s.Name, s.Type)
			}
		}
	}
	return nil
}
