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
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines the basic-auth toggle guarding the whole API.
type AuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// ScrapeConfig governs both content-acquisition strategies.
type ScrapeConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	NavTimeoutSeconds  int    `mapstructure:"nav_timeout_seconds"`
	BodyWaitSeconds    int    `mapstructure:"body_wait_seconds"`
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
	MaxRetries         int    `mapstructure:"max_retries"`
	MaxTextChars       int    `mapstructure:"max_text_chars"`
	HeadlessEnabled    bool   `mapstructure:"headless_enabled"`
}

// GeminiConfig configures the generative-service client.
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARTICLR")
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
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.request_timeout_seconds", 180)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.user", "admin")
	// Register valueless keys so AutomaticEnv can populate them during Unmarshal.
	v.SetDefault("auth.password", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("scrape.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scrape.nav_timeout_seconds", 30)
	v.SetDefault("scrape.body_wait_seconds", 10)
	v.SetDefault("scrape.http_timeout_seconds", 10)
	v.SetDefault("scrape.max_retries", 2)
	v.SetDefault("scrape.max_text_chars", 8000)
	v.SetDefault("scrape.headless_enabled", true)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.endpoint", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.timeout_seconds", 60)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Scrape.NavTimeoutSeconds <= 0 || c.Scrape.BodyWaitSeconds <= 0 {
		return fmt.Errorf("scrape.nav_timeout_seconds and scrape.body_wait_seconds must be > 0")
	}
	if c.Scrape.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.http_timeout_seconds must be > 0")
	}
	if c.Scrape.MaxRetries < 0 {
		return fmt.Errorf("scrape.max_retries must be >= 0")
	}
	if c.Scrape.MaxTextChars <= 0 {
		return fmt.Errorf("scrape.max_text_chars must be > 0")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key must be set")
	}
	if c.Auth.Enabled && (c.Auth.User == "" || c.Auth.Password == "") {
		return fmt.Errorf("auth.user and auth.password must be set when auth is enabled")
	}
	return nil
}

// NavTimeout returns the browser navigation budget as a duration.
func (c ScrapeConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// BodyWait returns the body-element wait budget as a duration.
func (c ScrapeConfig) BodyWait() time.Duration {
	return time.Duration(c.BodyWaitSeconds) * time.Second
}

// HTTPTimeout returns the per-attempt direct fetch budget as a duration.
func (c ScrapeConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Timeout returns the generative call budget as a duration.
func (c GeminiConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
