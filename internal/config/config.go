// Package config loads and validates kanka-search configuration via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/JakeFAU/kanka-search/internal/index"
	"github.com/JakeFAU/kanka-search/internal/kanka"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Kanka       KankaConfig       `mapstructure:"kanka"`
	Crawler     CrawlerConfig     `mapstructure:"crawler"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Search      SearchConfig      `mapstructure:"search"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

// KankaConfig points at the Kanka API and web UI.
type KankaConfig struct {
	Token     string `mapstructure:"token"`
	APIURL    string `mapstructure:"api_url"`
	WebURL    string `mapstructure:"web_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// CrawlerConfig governs how a refresh talks to the API. MaxAttempts above 1
// retries throttled and failed API calls.
type CrawlerConfig struct {
	Categories         []string      `mapstructure:"categories"`
	MaxConcurrency     int           `mapstructure:"max_concurrency"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
}

// CacheConfig selects where the snapshot lives and how long it stays fresh.
type CacheConfig struct {
	Backend  string         `mapstructure:"backend"`
	Path     string         `mapstructure:"path"`
	TTLHours int            `mapstructure:"ttl_hours"`
	GCS      GCSCacheConfig `mapstructure:"gcs"`
}

// GCSCacheConfig names the object used by the gcs backend.
type GCSCacheConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Object   string `mapstructure:"object"`
	Endpoint string `mapstructure:"endpoint"`
}

// SearchConfig controls ranking output.
type SearchConfig struct {
	Limit int `mapstructure:"limit"`
}

// DiagnosticsConfig locates the failure log.
type DiagnosticsConfig struct {
	LogPath string `mapstructure:"log_path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DefaultPath is the per-user config file, read when no --config is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "kanka-search", "config.yaml")
}

// Discover picks the config file to load: explicit when set, otherwise
// DefaultPath when that file exists, otherwise none.
func Discover(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return existing(DefaultPath())
}

func existing(path string) string {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KANKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kanka.api_url", kanka.DefaultAPIURL)
	v.SetDefault("kanka.web_url", kanka.DefaultWebURL)
	v.SetDefault("kanka.user_agent", "kanka-search/1.0")
	v.SetDefault("crawler.categories", kanka.DefaultCategories)
	v.SetDefault("crawler.max_concurrency", 8)
	v.SetDefault("crawler.request_timeout", 15*time.Second)
	v.SetDefault("crawler.rate_limit_per_minute", 0)
	v.SetDefault("crawler.max_attempts", 1)
	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.path", "cache.json")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.gcs.object", "kanka-search/cache.json")
	v.SetDefault("search.limit", 25)
	v.SetDefault("diagnostics.log_path", "log.txt")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.port", 8080)
}

// The Alfred workflow exports its variables as "token" and "cache_limit".
func bindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("kanka.token", "KANKA_TOKEN", "token"); err != nil {
		return fmt.Errorf("bind kanka.token: %w", err)
	}
	if err := v.BindEnv("cache.ttl_hours", "KANKA_CACHE_TTL_HOURS", "cache_limit"); err != nil {
		return fmt.Errorf("bind cache.ttl_hours: %w", err)
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache.ttl_hours must be > 0")
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be > 0")
	}
	if c.Crawler.MaxConcurrency <= 0 {
		return fmt.Errorf("crawler.max_concurrency must be > 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.MaxAttempts <= 0 {
		return fmt.Errorf("crawler.max_attempts must be > 0")
	}
	if c.Crawler.RateLimitPerMinute < 0 {
		return fmt.Errorf("crawler.rate_limit_per_minute must be >= 0")
	}
	if len(c.Crawler.Categories) == 0 {
		return fmt.Errorf("crawler.categories must not be empty")
	}
	switch c.Cache.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Cache.Path) == "" {
			return fmt.Errorf("cache.path must be set for the file backend")
		}
	case BackendGCS:
		if c.Cache.GCS.Bucket == "" {
			return fmt.Errorf("cache.gcs.bucket must be set for the gcs backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("cache.backend %q is not one of file, gcs, memory", c.Cache.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// CacheTTL is the freshness window of the cache.
func (c Config) CacheTTL() time.Duration {
	return index.TTLFromHours(c.Cache.TTLHours)
}
