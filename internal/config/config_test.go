package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 8888, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, DefaultCodeAssistEndpoint, cfg.CodeAssistEndpoint)
	assert.Equal(t, 60, cfg.CooldownBaseSec)
	assert.Equal(t, 1800, cfg.CooldownMaxSec)
	assert.Equal(t, 5, cfg.OnboardPollIntervalSec)
	assert.Equal(t, 60, cfg.OnboardMaxAttempts)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("GEMINI_AUTH_PASSWORD", "pw")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj-env")
	t.Setenv("CODE_ASSIST_ENDPOINT", "https://example.com/")
	t.Setenv("COOLDOWN_BASE_SEC", "30")
	t.Setenv("DEBUG", "true")

	cfg := Load()
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "pw", cfg.AuthPassword)
	assert.Equal(t, "proj-env", cfg.ProjectID)
	assert.Equal(t, "https://example.com", cfg.CodeAssistEndpoint, "trailing slash is stripped")
	assert.Equal(t, 30, cfg.CooldownBaseSec)
	assert.True(t, cfg.Debug)
}

func TestYAMLFileLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\nauth_password: from-file\n"), 0o600))

	// Environment wins over the file.
	t.Setenv("GEMINI_AUTH_PASSWORD", "from-env")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "from-env", cfg.AuthPassword)
}

func TestLoadWithMissingFile(t *testing.T) {
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8888, cfg.Port)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.AuthPassword = ""
	cfg.AuthPasswordHash = ""
	assert.Error(t, cfg.Validate(), "a shared secret is required")

	cfg.AuthPassword = "pw"
	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.AuthDir), "auth dir is made absolute")

	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
}
