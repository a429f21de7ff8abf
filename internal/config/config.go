// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Links     LinksConfig     `mapstructure:"links"`
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed"`
	AI        AIConfig        `mapstructure:"ai"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Store     StoreConfig     `mapstructure:"store"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SafetyConfig governs the SSRF resolver.
type SafetyConfig struct {
	// FailClosed denies targets whose hostnames fail to resolve. The default
	// (fail-open) accepts them with a logged warning so transient DNS issues
	// for legitimate public names do not become denials.
	FailClosed bool `mapstructure:"fail_closed"`
}

// FetchConfig controls the bounded fetcher.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes"`
}

// LinksConfig bounds the internal-link health sweep.
type LinksConfig struct {
	MaxLinks       int `mapstructure:"max_links"`
	Parallelism    int `mapstructure:"parallelism"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// PageSpeedConfig configures the external speed-scoring service. An empty
// APIKey degrades the performance analyzer rather than failing audits.
type PageSpeedConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ProviderConfig holds one AI provider's credential and model selection.
// An empty credential disables the provider, it is not an error.
type ProviderConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// ServerURL applies to self-hosted providers (ollama).
	ServerURL string `mapstructure:"server_url"`
}

// AIConfig configures the provider fallback chain.
type AIConfig struct {
	OpenAI         ProviderConfig `mapstructure:"openai"`
	Anthropic      ProviderConfig `mapstructure:"anthropic"`
	Ollama         ProviderConfig `mapstructure:"ollama"`
	TimeoutSeconds int            `mapstructure:"timeout_seconds"`
}

// WindowConfig is one endpoint's fixed-window rate limit.
type WindowConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	Max           int `mapstructure:"max"`
}

// RateLimitConfig holds per-endpoint limits. Each endpoint keeps its own
// independent window state; there is no shared global budget.
type RateLimitConfig struct {
	Audit    WindowConfig `mapstructure:"audit"`
	Question WindowConfig `mapstructure:"question"`
}

// StoreConfig selects and configures the audit store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // file | memory | postgres
	Dir     string `mapstructure:"dir"`
	DSN     string `mapstructure:"dsn"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
	v.SetDefault("safety.fail_closed", false)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.user_agent", "website-auditor/0.1")
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("links.max_links", 20)
	v.SetDefault("links.parallelism", 4)
	v.SetDefault("links.timeout_seconds", 8)
	v.SetDefault("pagespeed.endpoint", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("pagespeed.timeout_seconds", 30)
	v.SetDefault("ai.timeout_seconds", 25)
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("ai.ollama.model", "llama3.1")
	v.SetDefault("ratelimit.audit.window_seconds", 60)
	v.SetDefault("ratelimit.audit.max", 5)
	v.SetDefault("ratelimit.question.window_seconds", 60)
	v.SetDefault("ratelimit.question.max", 20)
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.dir", "./data")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Links.MaxLinks < 0 {
		return fmt.Errorf("links.max_links must be >= 0")
	}
	if c.Links.Parallelism <= 0 {
		return fmt.Errorf("links.parallelism must be > 0")
	}
	if c.RateLimit.Audit.Max <= 0 || c.RateLimit.Audit.WindowSeconds <= 0 {
		return fmt.Errorf("ratelimit.audit window and max must be > 0")
	}
	if c.RateLimit.Question.Max <= 0 || c.RateLimit.Question.WindowSeconds <= 0 {
		return fmt.Errorf("ratelimit.question window and max must be > 0")
	}
	switch c.Store.Backend {
	case "file", "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend must be file, memory, or postgres")
	}
	if c.Store.Backend == "file" && c.Store.Dir == "" {
		return fmt.Errorf("store.dir must be set for the file backend")
	}
	return nil
}

// FetchTimeout converts the fetch timeout to a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// AITimeout converts the per-provider call timeout to a duration.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
