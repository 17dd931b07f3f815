package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("INFERNOTEST", "")
	require.NoError(t, err)

	assert.Equal(t, "inferno-connect", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "common", cfg.Azure.TenantID)
	assert.Equal(t, "https://api.infernocore.jolokia.com", cfg.Inferno.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Inferno.Timeout)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "inferno_session", cfg.Session.CookieName)
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
azure:
  tenant_id: 11111111-2222-3333-4444-555555555555
  client_id: app-client-id
inferno:
  api_key: secret-key
  timeout: 2s
session:
  backend: redis
  redis_addr: redis:6379
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig("INFERNOTEST", path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", cfg.Azure.TenantID)
	assert.Equal(t, "app-client-id", cfg.Azure.ClientID)
	assert.Equal(t, "secret-key", cfg.Inferno.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Inferno.Timeout)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("INFERNOTEST_SERVER_PORT", "7070")
	t.Setenv("INFERNOTEST_INFERNO_API_KEY", "env-key")

	cfg, err := LoadConfig("INFERNOTEST", "")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Inferno.APIKey)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Session: SessionConfig{Backend: "memory"},
			Inferno: InfernoConfig{BaseURL: "https://api.example.com", Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad backend", func(c *Config) { c.Session.Backend = "bolt" }, "invalid session backend"},
		{"redis without addr", func(c *Config) {
			c.Session.Backend = "redis"
			c.Session.RedisAddr = ""
		}, "redis_addr is required"},
		{"missing base url", func(c *Config) { c.Inferno.BaseURL = "" }, "base_url is required"},
		{"zero timeout", func(c *Config) { c.Inferno.Timeout = 0 }, "timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
