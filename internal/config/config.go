// Package config loads and validates page analyzer configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. PAGE_ANALYZER_SERVER_PORT.
const EnvPrefix = "PAGE_ANALYZER"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Session   SessionConfig   `mapstructure:"session"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// DBConfig controls access to Postgres. An empty DSN selects in-memory storage.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// SessionConfig configures the signed cookie that carries flash messages.
type SessionConfig struct {
	Secret string `mapstructure:"secret"`
	Name   string `mapstructure:"name"`
	Secure bool   `mapstructure:"secure"`
}

// FetchConfig configures outbound page checks.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
}

// RateLimitConfig throttles checks per host. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TelemetryConfig toggles OpenTelemetry tracing. Endpoint is the OTLP/gRPC
// collector address (host:port).
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from .env, an optional file and the environment, then
// validates it.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for tools such as the migrator that only
// need a subset of the settings.
func Read(path string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

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
	return cfg, nil
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// bindAliases lets the conventional bare variables stand in for prefixed keys.
func bindAliases(v *viper.Viper) error {
	aliases := map[string]string{
		"db.dsn":         "DATABASE_URL",
		"session.secret": "SECRET_KEY",
		"server.port":    "PORT",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 5)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("db.query_timeout", 3*time.Second)
	v.SetDefault("db.migrate_on_start", true)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.name", "page_analyzer")
	v.SetDefault("session.secure", false)
	v.SetDefault("fetch.timeout", 5*time.Second)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("logging.development", true)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "page-analyzer")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret (SECRET_KEY) is required")
	}
	if c.Session.Name == "" {
		return fmt.Errorf("session.name must not be empty")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Server.RequestTimeout <= c.Fetch.Timeout {
		return fmt.Errorf("server.request_timeout must exceed fetch.timeout")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.burst must be > 0 when ratelimit.rps is set")
	}
	if c.DB.DSN != "" {
		if c.DB.MaxConns <= 0 {
			return fmt.Errorf("db.max_conns must be > 0")
		}
		if c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
			return fmt.Errorf("db.min_conns must be between 0 and db.max_conns")
		}
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.ServiceName == "" {
			return fmt.Errorf("telemetry.service_name must be set when telemetry is enabled")
		}
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint must be set when telemetry is enabled")
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1")
		}
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// UsesPostgres reports whether a database DSN was configured.
func (c Config) UsesPostgres() bool {
	return c.DB.DSN != ""
}
