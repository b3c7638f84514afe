package config

import (
	"os"
	"strconv"
	"strings"
)

func (c *Config) mergeEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("GEMINI_AUTH_PASSWORD"); v != "" {
		c.AuthPassword = v
	}
	if v := os.Getenv("GEMINI_AUTH_PASSWORD_HASH"); v != "" {
		c.AuthPasswordHash = v
	}
	if v := os.Getenv("AUTH_DIR"); v != "" {
		c.AuthDir = v
	}
	if v := os.Getenv("GEMINI_CREDENTIALS"); v != "" {
		c.CredentialsJSON = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.ProjectID = v
	}
	if v := os.Getenv("CODE_ASSIST_ENDPOINT"); v != "" {
		c.CodeAssistEndpoint = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("OAUTH_CLIENT_ID"); v != "" {
		c.OAuthClientID = v
	}
	if v := os.Getenv("OAUTH_CLIENT_SECRET"); v != "" {
		c.OAuthClientSecret = v
	}
	setIntFromEnv("COOLDOWN_BASE_SEC", func(n int) { c.CooldownBaseSec = n })
	setIntFromEnv("COOLDOWN_MAX_SEC", func(n int) { c.CooldownMaxSec = n })
	setIntFromEnv("ONBOARD_POLL_INTERVAL_SEC", func(n int) { c.OnboardPollIntervalSec = n })
	setIntFromEnv("ONBOARD_MAX_ATTEMPTS", func(n int) { c.OnboardMaxAttempts = n })
	setIntFromEnv("RATE_LIMIT_RPS", func(n int) { c.RateLimitRPS = n })
	setIntFromEnv("RATE_LIMIT_BURST", func(n int) { c.RateLimitBurst = n })
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	setIntFromEnv("REDIS_DB", func(n int) { c.RedisDB = n })
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		c.RedisPrefix = v
	}
	setToggleFromEnv("DEBUG", func(b bool) { c.Debug = b })
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

func setIntFromEnv(key string, setter func(int)) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			setter(n)
		}
	}
}

func setToggleFromEnv(key string, setter func(bool)) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		setter(true)
	case "0", "false", "no", "off":
		setter(false)
	}
}
