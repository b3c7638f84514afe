package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration. Values are resolved in three
// layers: built-in defaults, an optional YAML file, then environment
// variables. The last layer wins.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// AuthPassword gates every inbound request. AuthPasswordHash, when set,
	// takes precedence and is compared with bcrypt.
	AuthPassword     string `yaml:"auth_password"`
	AuthPasswordHash string `yaml:"auth_password_hash"`

	// AuthDir is the directory holding per-project credential files.
	AuthDir string `yaml:"auth_dir"`

	// CredentialsJSON is an optional full credential blob supplied
	// out-of-band (GEMINI_CREDENTIALS). It is never persisted back.
	CredentialsJSON string `yaml:"-"`

	// ProjectID overrides project resolution when a credential does not
	// embed one (GOOGLE_CLOUD_PROJECT).
	ProjectID string `yaml:"project_id"`

	CodeAssistEndpoint string `yaml:"code_assist_endpoint"`

	// OAuth client used for token refresh exchanges.
	OAuthClientID     string `yaml:"oauth_client_id"`
	OAuthClientSecret string `yaml:"oauth_client_secret"`

	// Cooldown tuning for rate-limited credentials.
	CooldownBaseSec int `yaml:"cooldown_base_sec"`
	CooldownMaxSec  int `yaml:"cooldown_max_sec"`

	// Onboarding poll loop bounds.
	OnboardPollIntervalSec int `yaml:"onboard_poll_interval_sec"`
	OnboardMaxAttempts     int `yaml:"onboard_max_attempts"`

	// Inbound per-key rate limiting. Zero disables the limiter.
	RateLimitRPS   int `yaml:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst"`

	// RedisAddr selects the Redis credential store instead of the file
	// store when non-empty.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log_file"`
}

const (
	DefaultCodeAssistEndpoint = "https://cloudcode-pa.googleapis.com"

	// Matches the gemini-cli installed-app client.
	DefaultOAuthClientID     = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"
	DefaultOAuthClientSecret = "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"
)

func defaults() *Config {
	return &Config{
		Host:                   "0.0.0.0",
		Port:                   8888,
		AuthDir:                "./auth",
		CodeAssistEndpoint:     DefaultCodeAssistEndpoint,
		OAuthClientID:          DefaultOAuthClientID,
		OAuthClientSecret:      DefaultOAuthClientSecret,
		CooldownBaseSec:        60,
		CooldownMaxSec:         1800,
		OnboardPollIntervalSec: 5,
		OnboardMaxAttempts:     60,
		RedisPrefix:            "geminicli2api",
	}
}

// Load builds the configuration from defaults and the environment.
func Load() *Config {
	cfg := defaults()
	cfg.mergeEnv()
	return cfg
}

// LoadWithFile layers an optional YAML file between defaults and the
// environment. A missing file is not an error.
func LoadWithFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env-only configuration
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

// Validate expands and checks paths and required values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.AuthPassword) == "" && strings.TrimSpace(c.AuthPasswordHash) == "" {
		return fmt.Errorf("GEMINI_AUTH_PASSWORD is not set")
	}
	if c.AuthDir != "" {
		abs, err := filepath.Abs(c.AuthDir)
		if err != nil {
			return fmt.Errorf("resolve auth dir: %w", err)
		}
		c.AuthDir = abs
	}
	if c.CooldownBaseSec <= 0 {
		c.CooldownBaseSec = 60
	}
	if c.CooldownMaxSec < c.CooldownBaseSec {
		c.CooldownMaxSec = 1800
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
