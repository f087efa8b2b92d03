// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	Database   DatabaseConfig   `koanf:"database"`
	Log        LogConfig        `koanf:"log"`
	CORS       CORSConfig       `koanf:"cors"`
	JWT        JWTConfig        `koanf:"jwt"`
	Alerting   AlertingConfig   `koanf:"alerting"`
	Collectors CollectorsConfig `koanf:"collectors"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `koanf:"driver"`
}

// DatabaseConfig contains PostgreSQL settings, used when storage.driver is
// "postgres".
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// JWTConfig contains token settings.
type JWTConfig struct {
	SecretKey           string        `koanf:"secret_key"`
	AccessTokenDuration time.Duration `koanf:"access_token_duration"`
}

// AlertingConfig contains notification dispatch settings.
type AlertingConfig struct {
	DispatchInterval time.Duration `koanf:"dispatch_interval"`
	Email            EmailConfig   `koanf:"email"`
	Slack            SlackConfig   `koanf:"slack"`
	Teams            TeamsConfig   `koanf:"teams"`
	Webhook          WebhookConfig `koanf:"webhook"`
}

// EmailConfig contains SMTP sender settings.
type EmailConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address"`
}

// SlackConfig contains Slack webhook sender settings.
type SlackConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Username  string        `koanf:"username"`
	IconURL   string        `koanf:"icon_url"`
	RateLimit float64       `koanf:"rate_limit"`
	Timeout   time.Duration `koanf:"timeout"`
}

// TeamsConfig contains Microsoft Teams webhook sender settings.
type TeamsConfig struct {
	Enabled bool          `koanf:"enabled"`
	Timeout time.Duration `koanf:"timeout"`
}

// WebhookConfig contains generic webhook sender settings.
type WebhookConfig struct {
	Enabled bool          `koanf:"enabled"`
	Timeout time.Duration `koanf:"timeout"`
}

// CollectorsConfig contains collector liveness monitor settings.
type CollectorsConfig struct {
	MonitorInterval time.Duration `koanf:"monitor_interval"`
	StaleAfter      time.Duration `koanf:"stale_after"`
}

// envPrefix maps FLEETWATCH_SERVER__PORT to server.port and so on. The
// section separator is a double underscore so key-internal underscores
// (secret_key, dispatch_interval) survive the mapping.
const envPrefix = "FLEETWATCH_"

// Load reads configuration from the optional YAML file at path, then
// overlays environment variables, then applies defaults for unset values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		JWT: JWTConfig{
			AccessTokenDuration: 15 * time.Minute,
		},
		Alerting: AlertingConfig{
			DispatchInterval: time.Minute,
			Email: EmailConfig{
				SMTPPort: 587,
			},
			Slack: SlackConfig{
				RateLimit: 1,
				Timeout:   10 * time.Second,
			},
			Teams: TeamsConfig{
				Timeout: 10 * time.Second,
			},
			Webhook: WebhookConfig{
				Timeout: 10 * time.Second,
			},
		},
		Collectors: CollectorsConfig{
			MonitorInterval: time.Minute,
			StaleAfter:      5 * time.Minute,
		},
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required when storage.driver is postgres")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}

	if c.Alerting.DispatchInterval <= 0 {
		return fmt.Errorf("alerting.dispatch_interval must be positive")
	}
	if c.Collectors.MonitorInterval <= 0 {
		return fmt.Errorf("collectors.monitor_interval must be positive")
	}
	if c.Collectors.StaleAfter <= 0 {
		return fmt.Errorf("collectors.stale_after must be positive")
	}

	return nil
}
