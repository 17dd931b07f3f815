// Package config provides configuration management for the Inferno Connect
// service.
//
// Configuration is loaded in the following order (later sources override
// earlier ones):
//  1. Default values
//  2. Configuration files (./config.yaml, ./configs/config.yaml,
//     ~/.inferno-connect/config.yaml, /etc/inferno-connect/config.yaml)
//  3. .env files
//  4. Environment variables with the INFERNO_ prefix
//
// Environment variables use underscores for nested keys:
//   - INFERNO_SERVER_PORT=8080
//   - INFERNO_AZURE_TENANT_ID=...
//   - INFERNO_INFERNO_API_KEY=...
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServiceConfig contains service metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Debug           bool          `mapstructure:"debug"`
	BodyLimit       string        `mapstructure:"body_limit"`
}

// AzureConfig contains the Azure AD application registration used for
// sign-in and delegated Microsoft Graph access.
type AzureConfig struct {
	// TenantID is the directory tenant, or "common" for multi-tenant apps
	TenantID string `mapstructure:"tenant_id"`

	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// RedirectURL is the absolute URL of the /auth/callback route
	RedirectURL string `mapstructure:"redirect_url"`
}

// InfernoConfig contains settings for the Inferno Core event API.
type InfernoConfig struct {
	// APIKey is the opaque bearer credential for api.infernocore
	APIKey string `mapstructure:"api_key"`

	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds each event fetch; the event API is the only
	// uncontrolled third party in the request path
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig contains session store settings.
type SessionConfig struct {
	// Backend selects the store implementation: "memory" or "redis"
	Backend string `mapstructure:"backend"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	TTL           time.Duration `mapstructure:"ttl"`
	CookieName    string        `mapstructure:"cookie_name"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig contains HTTP security settings.
type SecurityConfig struct {
	RateLimit      float64  `mapstructure:"rate_limit"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Config is the top-level configuration for the service.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Server   ServerConfig   `mapstructure:"server"`
	Azure    AzureConfig    `mapstructure:"azure"`
	Inferno  InfernoConfig  `mapstructure:"inferno"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Security SecurityConfig `mapstructure:"security"`
}

// Loader provides configuration loading functionality.
type Loader struct {
	v      *viper.Viper
	prefix string
}

// NewLoader creates a configuration loader with the given environment prefix.
func NewLoader(envPrefix string) *Loader {
	return &Loader{
		v:      viper.New(),
		prefix: envPrefix,
	}
}

// SetDefaults sets the standard service defaults.
func (l *Loader) SetDefaults() {
	l.v.SetDefault("service.name", "inferno-connect")
	l.v.SetDefault("service.version", "dev")
	l.v.SetDefault("service.environment", "development")

	l.v.SetDefault("server.host", "0.0.0.0")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.read_timeout", "30s")
	l.v.SetDefault("server.write_timeout", "30s")
	l.v.SetDefault("server.shutdown_timeout", "10s")
	l.v.SetDefault("server.debug", false)
	l.v.SetDefault("server.body_limit", "2M")

	// Empty defaults keep the keys known to viper so environment
	// variables bind during Unmarshal.
	l.v.SetDefault("azure.tenant_id", "common")
	l.v.SetDefault("azure.client_id", "")
	l.v.SetDefault("azure.client_secret", "")
	l.v.SetDefault("azure.redirect_url", "")

	l.v.SetDefault("inferno.api_key", "")
	l.v.SetDefault("inferno.base_url", "https://api.infernocore.jolokia.com")
	l.v.SetDefault("inferno.timeout", "5s")

	l.v.SetDefault("session.backend", "memory")
	l.v.SetDefault("session.redis_addr", "localhost:6379")
	l.v.SetDefault("session.redis_password", "")
	l.v.SetDefault("session.ttl", "8h")
	l.v.SetDefault("session.cookie_name", "inferno_session")
	l.v.SetDefault("session.secure_cookies", false)

	l.v.SetDefault("logging.level", "info")
	l.v.SetDefault("logging.format", "text")

	l.v.SetDefault("security.rate_limit", 0)
	l.v.SetDefault("security.allowed_origins", []string{"*"})
}

// Load reads configuration from file, .env, and environment variables into
// target. If cfgFile is empty, config.yaml is searched in the standard
// locations.
func (l *Loader) Load(cfgFile string, target interface{}) error {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./configs")
		l.v.AddConfigPath("$HOME/.inferno-connect")
		l.v.AddConfigPath("/etc/inferno-connect")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if cfgFile != "" && !isFileNotFoundError(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		if cfgFile == "" {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Merge .env file if present
	l.v.SetConfigFile(".env")
	l.v.SetConfigType("env")
	_ = l.v.MergeInConfig()

	if l.prefix != "" {
		l.v.SetEnvPrefix(l.prefix)
	}
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.Unmarshal(target); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}

// LoadConfig loads and validates the service configuration. The envPrefix
// is used for environment variables (e.g. "INFERNO" -> "INFERNO_SERVER_PORT").
func LoadConfig(envPrefix, cfgFile string) (*Config, error) {
	loader := NewLoader(envPrefix)
	loader.SetDefaults()

	cfg := &Config{}
	if err := loader.Load(cfgFile, cfg); err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ValidateConfig validates the loaded configuration.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	switch cfg.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid session backend: %q", cfg.Session.Backend)
	}

	if cfg.Session.Backend == "redis" && cfg.Session.RedisAddr == "" {
		return fmt.Errorf("session redis_addr is required for the redis backend")
	}

	if cfg.Inferno.BaseURL == "" {
		return fmt.Errorf("inferno base_url is required")
	}

	if cfg.Inferno.Timeout <= 0 {
		return fmt.Errorf("inferno timeout must be positive")
	}

	return nil
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
