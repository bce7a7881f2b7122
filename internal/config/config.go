// Package config provides Viper-based configuration for fisioctl.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete fisioctl configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Session   SessionConfig   `mapstructure:"session"`
	DevServer DevServerConfig `mapstructure:"dev_server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
}

// APIConfig points the CLI at the clinic backend.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint          `mapstructure:"max_retries"`
}

// SessionConfig selects where the session is persisted.
type SessionConfig struct {
	// Backend is "bolt" or "redis".
	Backend   string        `mapstructure:"backend"`
	Path      string        `mapstructure:"path"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisTTL  time.Duration `mapstructure:"redis_ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	// VerifyOnStart checks the stored credential with the server before
	// every command.
	VerifyOnStart bool `mapstructure:"verify_on_start"`
	// AuditLog, when set, receives session audit events as JSON lines.
	AuditLog string `mapstructure:"audit_log"`
}

// DevServerConfig configures `fisioctl dev-server`.
type DevServerConfig struct {
	Addr          string `mapstructure:"addr"`
	RedisEmbedded bool   `mapstructure:"redis_embedded"`
	SeedEmail     string `mapstructure:"seed_email"`
	SeedPassword  string `mapstructure:"seed_password"`
	SeedName      string `mapstructure:"seed_name"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// Load reads configuration from file and FISIOCTL_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".fisioctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/fisioctl")
	}

	// FISIOCTL_API_BASE_URL overrides api.base_url.
	v.SetEnvPrefix("FISIOCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DefaultSessionPath is ~/.config/fisioctl/session.db.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.db"
	}
	return filepath.Join(home, ".config", "fisioctl", "session.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://fisioonhand.work/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.max_retries", 3)

	v.SetDefault("session.backend", "bolt")
	v.SetDefault("session.path", DefaultSessionPath())
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_ttl", time.Duration(0))
	v.SetDefault("session.key_prefix", "@Auth:")
	v.SetDefault("session.verify_on_start", true)
	v.SetDefault("session.audit_log", "")

	v.SetDefault("dev_server.addr", "127.0.0.1:8787")
	v.SetDefault("dev_server.redis_embedded", false)
	v.SetDefault("dev_server.seed_email", "ana@fisioonhand.dev")
	v.SetDefault("dev_server.seed_password", "fisio-dev-123")
	v.SetDefault("dev_server.seed_name", "ana")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.colors", true)
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	switch cfg.Session.Backend {
	case "bolt":
		if cfg.Session.Path == "" {
			return fmt.Errorf("session.path is required for the bolt backend")
		}
	case "redis":
		if cfg.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid session.backend: %s (must be bolt or redis)", cfg.Session.Backend)
	}
	if cfg.Session.KeyPrefix == "" {
		return fmt.Errorf("session.key_prefix must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	return nil
}
