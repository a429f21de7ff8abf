package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.False(t, cfg.Safety.FailClosed)
	require.Equal(t, 15*time.Second, cfg.FetchTimeout())
	require.Equal(t, 20, cfg.Links.MaxLinks)
	require.Equal(t, 5, cfg.RateLimit.Audit.Max)
	require.Equal(t, "file", cfg.Store.Backend)
	require.Empty(t, cfg.AI.OpenAI.APIKey, "providers are disabled by default")
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  port: 9090
safety:
  fail_closed: true
ai:
  openai:
    api_key: sk-test
ratelimit:
  audit:
    window_seconds: 10
    max: 2
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Safety.FailClosed)
	require.Equal(t, "sk-test", cfg.AI.OpenAI.APIKey)
	require.Equal(t, 2, cfg.RateLimit.Audit.Max)
	// Untouched sections keep their defaults.
	require.Equal(t, 20, cfg.RateLimit.Question.Max)
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero fetch timeout", func(c *Config) { c.Fetch.TimeoutSeconds = 0 }},
		{"zero sweep parallelism", func(c *Config) { c.Links.Parallelism = 0 }},
		{"zero audit window", func(c *Config) { c.RateLimit.Audit.WindowSeconds = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "s3" }},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres"; c.Store.DSN = "" }},
		{"file without dir", func(c *Config) { c.Store.Dir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
