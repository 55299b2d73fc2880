// Package config loads application configuration from the environment,
// optionally overridden by a YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/groupdesk/groupdesk/pkg/logger"
)

// Placeholder values used when the platform credentials are absent. Requests
// made against them fail; startup still succeeds so local tooling keeps
// working against in-memory stores.
const (
	PlaceholderURL     = "https://placeholder.invalid"
	PlaceholderAnonKey = "placeholder-anon-key"
)

// Platform configures the managed backend the application talks to.
type Platform struct {
	URL        string        `env:"SUPABASE_URL" yaml:"url"`
	AnonKey    string        `env:"SUPABASE_ANON_KEY" yaml:"anon_key"`
	ServiceKey string        `env:"SUPABASE_SERVICE_KEY" yaml:"service_key"`
	JWTSecret  string        `env:"SUPABASE_JWT_SECRET" yaml:"jwt_secret"`
	Timeout    time.Duration `env:"SUPABASE_TIMEOUT,default=30s" yaml:"timeout"`
	Bucket     string        `env:"SUPABASE_ATTACHMENT_BUCKET,default=chat-uploads" yaml:"bucket"`
}

// Gateway configures the HTTP gateway.
type Gateway struct {
	Addr string `env:"GATEWAY_ADDR,default=:8090" yaml:"addr"`
	// AllowedOrigins is a comma-separated list of CORS origins.
	AllowedOrigins string  `env:"GATEWAY_ALLOWED_ORIGINS,default=http://localhost:5173" yaml:"allowed_origins"`
	RateLimit      float64 `env:"GATEWAY_RATE_LIMIT,default=20" yaml:"rate_limit"`
	RateBurst      int     `env:"GATEWAY_RATE_BURST,default=40" yaml:"rate_burst"`
}

// Origins returns the parsed CORS origin list.
func (g Gateway) Origins() []string {
	var out []string
	for _, part := range strings.Split(g.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Postgres configures the optional direct-database store for self-hosted
// deployments. Empty DSN means the store is not used.
type Postgres struct {
	DSN string `env:"POSTGRES_DSN" yaml:"dsn"`
}

// Redis configures the optional shared display-name cache.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" yaml:"addr"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB,default=0" yaml:"db"`
}

// Reminder configures the due-task reminder sweep.
type Reminder struct {
	Schedule string        `env:"REMINDER_SCHEDULE,default=@hourly" yaml:"schedule"`
	Horizon  time.Duration `env:"REMINDER_HORIZON,default=24h" yaml:"horizon"`
}

// Config is the root application configuration.
type Config struct {
	LogLevel string   `env:"LOG_LEVEL,default=info" yaml:"log_level"`
	Platform Platform `yaml:"platform"`
	Gateway  Gateway  `yaml:"gateway"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Reminder Reminder `yaml:"reminder"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present. Missing platform credentials are
// logged and replaced with non-functional placeholders.
func Load(log *logger.Logger) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		// envdecode reports an error when no field is set at all, which is a
		// legal state for local runs. Fall through to placeholder handling.
		if err != envdecode.ErrNoTargetFieldsAreSet {
			return Config{}, fmt.Errorf("decode environment: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.fillPlaceholders(log)
	return cfg, nil
}

// LoadFile overlays configuration from a YAML file on top of the environment.
func LoadFile(path string, log *logger.Logger) (Config, error) {
	cfg, err := Load(log)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	cfg.fillPlaceholders(log)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 30 * time.Second
	}
	if c.Platform.Bucket == "" {
		c.Platform.Bucket = "chat-uploads"
	}
	if c.Gateway.Addr == "" {
		c.Gateway.Addr = ":8090"
	}
	if c.Gateway.RateLimit == 0 {
		c.Gateway.RateLimit = 20
	}
	if c.Gateway.RateBurst == 0 {
		c.Gateway.RateBurst = 40
	}
	if c.Reminder.Schedule == "" {
		c.Reminder.Schedule = "@hourly"
	}
	if c.Reminder.Horizon == 0 {
		c.Reminder.Horizon = 24 * time.Hour
	}
}

func (c *Config) fillPlaceholders(log *logger.Logger) {
	if c.Platform.URL == "" {
		if log != nil {
			log.Error("SUPABASE_URL is not set; using non-functional placeholder")
		}
		c.Platform.URL = PlaceholderURL
	}
	if c.Platform.AnonKey == "" {
		if log != nil {
			log.Error("SUPABASE_ANON_KEY is not set; using non-functional placeholder")
		}
		c.Platform.AnonKey = PlaceholderAnonKey
	}
}

// PlatformConfigured reports whether real platform credentials are present.
func (c *Config) PlatformConfigured() bool {
	return c.Platform.URL != PlaceholderURL && c.Platform.AnonKey != PlaceholderAnonKey
}
