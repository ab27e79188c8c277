package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a field.
const (
	DefaultListenAddr = ":8080"
	DefaultDatabase   = "data/cineapi.db"
	DefaultCacheTTL   = 30 * time.Second
	DefaultProxyFile  = "proxy.txt"
)

// Config holds the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
}

// DatabaseConfig controls the persistence layer.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // SQLite path or PostgreSQL DSN.
}

// RedisConfig controls the response cache backend.
type RedisConfig struct {
	URL string `yaml:"url"` // redis:// URL; empty disables response caching.
}

// CacheConfig controls response memoization.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl-seconds"` // Cached response lifetime.
}

// UpstreamConfig points at the scraped third-party sites.
type UpstreamConfig struct {
	MovieSiteURL  string `yaml:"movie-site-url"`  // Base URL of the movie site.
	SeriesSiteURL string `yaml:"series-site-url"` // Base URL of the series site.
	ProxyFile     string `yaml:"proxy-file"`      // Rotating outbound proxy pool file.
}

// LogConfig controls logging output.
type LogConfig struct {
	Level      string `yaml:"level"`        // logrus level name.
	File       string `yaml:"file"`         // Optional rotating log file path.
	MaxSizeMB  int    `yaml:"max-size-mb"`  // Rotation threshold.
	MaxBackups int    `yaml:"max-backups"`  // Rotated files to keep.
	MaxAgeDays int    `yaml:"max-age-days"` // Rotated file retention.
}

// AuthConfig controls the request accounting middleware.
type AuthConfig struct {
	Required    bool     `yaml:"required"`     // Reject requests without an API key.
	SkipPaths   []string `yaml:"skip-paths"`   // Paths that bypass authentication.
	SkipMethods []string `yaml:"skip-methods"` // HTTP methods that bypass authentication.
}

// CacheTTL returns the configured response cache TTL.
func (c *Config) CacheTTL() time.Duration {
	if c == nil || c.Cache.TTLSeconds <= 0 {
		return DefaultCacheTTL
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Load reads the config file at path, applies environment overrides and
// fills in defaults. A missing file is not an error; the defaults and
// environment alone are enough to boot.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Auth: AuthConfig{Required: true},
	}

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		case os.IsNotExist(errRead):
			// Fall through to env and defaults.
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides layers environment variables over the file values.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CINEAPI_ADDR")); v != "" {
		cfg.Server.Addr = v
	} else if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.Redis.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("CACHE_TTL")); v != "" {
		if ttl, errParse := strconv.Atoi(v); errParse == nil && ttl > 0 {
			cfg.Cache.TTLSeconds = ttl
		}
	}
	if v := strings.TrimSpace(os.Getenv("MOVIE_SITE_URL")); v != "" {
		cfg.Upstream.MovieSiteURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SERIES_SITE_URL")); v != "" {
		cfg.Upstream.SeriesSiteURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PROXY_FILE")); v != "" {
		cfg.Upstream.ProxyFile = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}

// applyDefaults fills remaining zero values.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultListenAddr
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = DefaultDatabase
	}
	if strings.TrimSpace(cfg.Upstream.ProxyFile) == "" {
		cfg.Upstream.ProxyFile = DefaultProxyFile
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if len(cfg.Auth.SkipPaths) == 0 {
		cfg.Auth.SkipPaths = []string{"/", "/healthz", "/docs*"}
	}
	if len(cfg.Auth.SkipMethods) == 0 {
		cfg.Auth.SkipMethods = []string{"OPTIONS"}
	}
}
