// Package config loads service settings from YAML, .env and the environment.
package config

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NEWSAPP_"

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Auth struct {
	SessionTTL               string `yaml:"session_ttl"`
	RequireEmailConfirmation bool   `yaml:"require_email_confirmation"`
}

type Articles struct {
	PageLimit int `yaml:"page_limit"`
}

type Trending struct {
	DaysBack int `yaml:"days_back"`
	Limit    int `yaml:"limit"`
}

type Ingest struct {
	Enabled     bool   `yaml:"enabled"`
	AutoPublish bool   `yaml:"auto_publish"`
	Timeout     string `yaml:"timeout"`
}

type Config struct {
	Listen    string   `yaml:"listen"`
	LogLevel  string   `yaml:"log_level"`
	Database  Database `yaml:"database"`
	Auth      Auth     `yaml:"auth"`
	Articles  Articles `yaml:"articles"`
	Trending  Trending `yaml:"trending"`
	Ingest    Ingest   `yaml:"ingest"`
	RateLimit string   `yaml:"rate_limit"`
}

// SessionTTL returns the parsed session lifetime.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.SessionTTL)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// IngestTimeout returns the per-feed request timeout.
func (c *Config) IngestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Ingest.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Level maps log_level to a slog level. Unknown values mean info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// DatabaseDSN returns the configured DSN, or the default SQLite file.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.Database.Driver == "postgres" {
		return ""
	}
	return DataPath()
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newsapp", "config.yaml")
}

func DataPath() string {
	return filepath.Join(xdg.DataHome, "newsapp", "newsapp.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads path over the embedded defaults, then applies .env and
// NEWSAPP_* overrides. A missing file at path leaves the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"LISTEN":          &cfg.Listen,
		"LOG_LEVEL":       &cfg.LogLevel,
		"DATABASE_DRIVER": &cfg.Database.Driver,
		"DATABASE_DSN":    &cfg.Database.DSN,
		"SESSION_TTL":     &cfg.Auth.SessionTTL,
		"INGEST_TIMEOUT":  &cfg.Ingest.Timeout,
		"RATE_LIMIT":      &cfg.RateLimit,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"REQUIRE_EMAIL_CONFIRMATION": &cfg.Auth.RequireEmailConfirmation,
		"INGEST_ENABLED":             &cfg.Ingest.Enabled,
		"AUTO_PUBLISH":               &cfg.Ingest.AutoPublish,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}

	if v, ok := os.LookupEnv(EnvPrefix + "PAGE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPAGE_LIMIT: %w", EnvPrefix, err)
		}
		cfg.Articles.PageLimit = n
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver: unknown driver %q (valid: sqlite, postgres)", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		return errors.New("database.dsn is required for postgres")
	}
	if cfg.Articles.PageLimit <= 0 {
		return fmt.Errorf("articles.page_limit must be positive, got %d", cfg.Articles.PageLimit)
	}
	if cfg.Trending.DaysBack <= 0 || cfg.Trending.Limit <= 0 {
		return fmt.Errorf("trending.days_back and trending.limit must be positive")
	}
	for name, v := range map[string]string{
		"auth.session_ttl": cfg.Auth.SessionTTL,
		"ingest.timeout":   cfg.Ingest.Timeout,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("%s: invalid duration %q", name, v)
		}
	}
	if strings.TrimSpace(cfg.RateLimit) != "" {
		if _, err := limiter.NewRateFromFormatted(cfg.RateLimit); err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
	}
	return nil
}
