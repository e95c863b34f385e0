// Package config loads the service configuration from an optional YAML file,
// a .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Leads     LeadsConfig     `yaml:"leads"`
	Redis     RedisConfig     `yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Mail      MailConfig      `yaml:"mail"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	FollowUp  FollowUpConfig  `yaml:"follow_up"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StoreConfig struct {
	// Backend is "postgres" or "memory".
	Backend string `yaml:"backend"`
}

type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	Driver                 string `yaml:"driver"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	RetryBudget            int    `yaml:"retry_budget"`
	RetryBackoffMillis     int    `yaml:"retry_backoff_ms"`
	MigrateOnStart         bool   `yaml:"migrate_on_start"`
}

func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

func (c DatabaseConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

type LeadsConfig struct {
	MaxBatchSize   int    `yaml:"max_batch_size"`
	CountryCode    string `yaml:"country_code"`
	NationalLength int    `yaml:"national_length"`
	MinDigits      int    `yaml:"min_digits"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RabbitMQConfig struct {
	URL string `yaml:"url"`
}

type MailConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	Brand      string `yaml:"brand"`
	AdminEmail string `yaml:"admin_email"`
}

func (c MailConfig) Enabled() bool {
	return c.Host != ""
}

type WhatsAppConfig struct {
	AccessToken string `yaml:"access_token"`
	PhoneID     string `yaml:"phone_id"`
	BaseURL     string `yaml:"base_url"`
	Template    string `yaml:"template"`
	Language    string `yaml:"language"`
}

func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneID != ""
}

type FollowUpConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

func (c FollowUpConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path and applies defaults. An empty path
// yields the defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "postgres"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Database.RetryBudget == 0 {
		cfg.Database.RetryBudget = 3
	}
	if cfg.Database.RetryBackoffMillis == 0 {
		cfg.Database.RetryBackoffMillis = 20
	}
	if cfg.Leads.MaxBatchSize == 0 {
		cfg.Leads.MaxBatchSize = 5000
	}
	if cfg.Leads.CountryCode == "" {
		cfg.Leads.CountryCode = "91"
	}
	if cfg.Leads.NationalLength == 0 {
		cfg.Leads.NationalLength = 10
	}
	if cfg.Leads.MinDigits == 0 {
		cfg.Leads.MinDigits = 7
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "no-reply@nivesh.academy"
	}
	if cfg.Mail.Brand == "" {
		cfg.Mail.Brand = "Nivesh Academy"
	}
	if cfg.WhatsApp.Template == "" {
		cfg.WhatsApp.Template = "webinar_registration"
	}
	if cfg.WhatsApp.Language == "" {
		cfg.WhatsApp.Language = "en"
	}
	if cfg.FollowUp.IntervalMinutes == 0 {
		cfg.FollowUp.IntervalMinutes = 60
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// LoadFromEnv loads a .env file when present, then the YAML file named by
// CONFIG_PATH, then environment overrides.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	num("PORT", &cfg.Server.Port)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("DATABASE_URL", &cfg.Database.URL)
	str("DB_DRIVER", &cfg.Database.Driver)
	num("DB_RETRY_BUDGET", &cfg.Database.RetryBudget)
	if v := os.Getenv("DB_MIGRATE"); v != "" {
		cfg.Database.MigrateOnStart = v == "1" || strings.EqualFold(v, "true")
	}
	num("LEADS_MAX_BATCH_SIZE", &cfg.Leads.MaxBatchSize)
	str("LEADS_COUNTRY_CODE", &cfg.Leads.CountryCode)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("RABBITMQ_URL", &cfg.RabbitMQ.URL)
	str("MAIL_HOST", &cfg.Mail.Host)
	num("MAIL_PORT", &cfg.Mail.Port)
	str("MAIL_USER", &cfg.Mail.User)
	str("MAIL_PASS", &cfg.Mail.Password)
	str("MAIL_FROM", &cfg.Mail.From)
	str("ADMIN_EMAIL", &cfg.Mail.AdminEmail)
	str("WHATSAPP_ACCESS_TOKEN", &cfg.WhatsApp.AccessToken)
	str("WHATSAPP_PHONE_ID", &cfg.WhatsApp.PhoneID)
	str("WHATSAPP_TEMPLATE", &cfg.WhatsApp.Template)
	num("RATE_LIMIT_REQUESTS", &cfg.RateLimit.Requests)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	switch cfg.Store.Backend {
	case "memory":
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	switch cfg.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return nil
}
