package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/groovenomad/internal/logging"
)

// DefaultPath is used when GN_CONFIG_PATH is not set.
const DefaultPath = "/data/config.yaml"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     logging.Config    `yaml:"logging"`
	Lexicon     LexiconConfig     `yaml:"lexicon"`
	Quotes      QuotesConfig      `yaml:"quotes"`
	Auth        AuthConfig        `yaml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"ratelimit"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Backup      BackupConfig      `yaml:"backup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int    `yaml:"port"`
	BasePath   string `yaml:"base_path"`
	CORSOrigin string `yaml:"cors_origin"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LexiconConfig points at an optional YAML overlay for the matching tables.
type LexiconConfig struct {
	Path string `yaml:"path"`
}

// QuotesConfig configures where quote requests are forwarded.
type QuotesConfig struct {
	WebhookURL  string `yaml:"webhook_url"`
	WebhookType string `yaml:"webhook_type"`
}

// AuthConfig holds the admin API credential. Admin routes are disabled
// while AdminTokenHash is empty.
type AuthConfig struct {
	AdminTokenHash string `yaml:"admin_token_hash"`
}

// RateLimitConfig bounds requests per client IP on the public write endpoints.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// MaintenanceConfig schedules database upkeep. Visitor questions older than
// QueryRetentionDays are pruned; zero keeps them.
type MaintenanceConfig struct {
	IntervalHours      int `yaml:"interval_hours"`
	QueryRetentionDays int `yaml:"query_retention_days"`
}

// BackupConfig schedules database snapshots.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	IntervalHours int    `yaml:"interval_hours"`
	Retention     int    `yaml:"retention"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			BasePath:   "/",
			CORSOrigin: "*",
		},
		Database: DatabaseConfig{
			Path: "/data/groovenomad.db",
		},
		Logging: logging.DefaultConfig(),
		Quotes: QuotesConfig{
			WebhookType: "make",
		},
		RateLimit: RateLimitConfig{
			PerMinute: 30,
			Burst:     10,
		},
		Maintenance: MaintenanceConfig{
			IntervalHours:      24,
			QueryRetentionDays: 365,
		},
		Backup: BackupConfig{
			Dir:           "/data/backups",
			IntervalHours: 24,
			Retention:     7,
		},
	}
}

// PathFromEnv returns GN_CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("GN_CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("GN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("GN_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("GN_CORS_ORIGIN"); v != "" {
		c.Server.CORSOrigin = v
	}
	if v := os.Getenv("GN_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("GN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("GN_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("GN_LEXICON_PATH"); v != "" {
		c.Lexicon.Path = v
	}
	if v := os.Getenv("GN_QUOTE_WEBHOOK_URL"); v != "" {
		c.Quotes.WebhookURL = v
	}
	if v := os.Getenv("GN_QUOTE_WEBHOOK_TYPE"); v != "" {
		c.Quotes.WebhookType = v
	}
	if v := os.Getenv("GN_ADMIN_TOKEN_HASH"); v != "" {
		c.Auth.AdminTokenHash = v
	}
	if v := os.Getenv("GN_BACKUP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Backup.Enabled = b
		}
	}
	if v := os.Getenv("GN_BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	switch c.Quotes.WebhookType {
	case "generic", "make", "slack", "discord":
	default:
		return fmt.Errorf("invalid quote webhook type: %q", c.Quotes.WebhookType)
	}
	if c.RateLimit.PerMinute < 1 {
		return fmt.Errorf("ratelimit per_minute must be positive, got %d", c.RateLimit.PerMinute)
	}
	if c.RateLimit.Burst < 1 {
		c.RateLimit.Burst = 1
	}
	if c.Maintenance.IntervalHours < 1 {
		return fmt.Errorf("maintenance interval_hours must be positive, got %d", c.Maintenance.IntervalHours)
	}
	if c.Maintenance.QueryRetentionDays < 0 {
		return fmt.Errorf("maintenance query_retention_days must not be negative, got %d", c.Maintenance.QueryRetentionDays)
	}
	if c.Backup.Enabled {
		if c.Backup.Dir == "" {
			return fmt.Errorf("backup dir is required when backups are enabled")
		}
		if c.Backup.IntervalHours < 1 {
			return fmt.Errorf("backup interval_hours must be positive, got %d", c.Backup.IntervalHours)
		}
		if c.Backup.Retention < 1 {
			return fmt.Errorf("backup retention must be positive, got %d", c.Backup.Retention)
		}
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
