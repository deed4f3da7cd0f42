package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 120
auth:
  enabled: true
  user: editor
  password: secret
scrape:
  user_agent: test-agent
  nav_timeout_seconds: 20
  body_wait_seconds: 5
  http_timeout_seconds: 8
  max_retries: 1
  max_text_chars: 4000
  headless_enabled: false
gemini:
  api_key: test-key
  model: gemini-2.0-flash
  timeout_seconds: 30
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.User != "editor" || cfg.Auth.Password != "secret" {
		t.Fatalf("expected auth overrides to apply: %+v", cfg.Auth)
	}
	if cfg.Scrape.UserAgent != "test-agent" || cfg.Scrape.HeadlessEnabled {
		t.Fatalf("expected scrape overrides to apply: %+v", cfg.Scrape)
	}
	if cfg.Scrape.MaxTextChars != 4000 {
		t.Fatalf("expected max_text_chars 4000, got %d", cfg.Scrape.MaxTextChars)
	}
	if got := cfg.Scrape.HTTPTimeout(); got != 8*time.Second {
		t.Fatalf("expected http timeout 8s, got %v", got)
	}
	if got := cfg.Gemini.Timeout(); got != 30*time.Second {
		t.Fatalf("expected gemini timeout 30s, got %v", got)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 3001, RequestTimeoutSeconds: 180},
		Scrape: ScrapeConfig{
			NavTimeoutSeconds:  30,
			BodyWaitSeconds:    10,
			HTTPTimeoutSeconds: 10,
			MaxTextChars:       8000,
		},
		Gemini: GeminiConfig{APIKey: "key"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid http timeout",
			cfg: func() Config {
				c := base
				c.Scrape.HTTPTimeoutSeconds = 0
				return c
			}(),
			want: "scrape.http_timeout_seconds",
		},
		{
			name: "negative retries",
			cfg: func() Config {
				c := base
				c.Scrape.MaxRetries = -1
				return c
			}(),
			want: "scrape.max_retries",
		},
		{
			name: "invalid truncation limit",
			cfg: func() Config {
				c := base
				c.Scrape.MaxTextChars = 0
				return c
			}(),
			want: "scrape.max_text_chars",
		},
		{
			name: "missing gemini key",
			cfg: func() Config {
				c := base
				c.Gemini.APIKey = ""
				return c
			}(),
			want: "gemini.api_key",
		},
		{
			name: "auth missing password",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				c.Auth.User = "admin"
				return c
			}(),
			want: "auth.user and auth.password",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ARTICLR_GEMINI_API_KEY", "env-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Fatalf("expected default port 3001, got %d", cfg.Server.Port)
	}
	if cfg.Scrape.NavTimeoutSeconds != 30 || cfg.Scrape.BodyWaitSeconds != 10 {
		t.Fatalf("unexpected scrape timeout defaults: %+v", cfg.Scrape)
	}
	if cfg.Scrape.MaxRetries != 2 || cfg.Scrape.MaxTextChars != 8000 {
		t.Fatalf("unexpected scrape defaults: %+v", cfg.Scrape)
	}
	if !cfg.Scrape.HeadlessEnabled {
		t.Fatal("expected headless enabled by default")
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected default model %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected api key from environment, got %q", cfg.Gemini.APIKey)
	}
}
