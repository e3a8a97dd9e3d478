package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/voyagen/darteve/internal/models"
)

// Upstream defaults for the combined playlist and the cloud category list.
const (
	DefaultPlaylistURL = "https://raw.githubusercontent.com/FunctionError/PiratesTv/refs/heads/main/combined_playlist.m3u"
	DefaultMasterURL   = "https://raw.githubusercontent.com/FunctionError/PiratesTv/refs/heads/main/master_playlists.json"
	DefaultProxyURL    = "https://api.allorigins.win/raw"
	DefaultRadioURL    = "https://all.api.radio-browser.info"
	DefaultUserAgent   = "DarTeve/1.0"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort  string `yaml:"server_port" env:"SERVER_PORT"`

	UserAgent string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout   time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	ProxyURL  string        `yaml:"proxy_url" env:"PROXY_URL"`
	// ProxyRate caps relay requests per second (0 = unlimited).
	ProxyRate float64 `yaml:"proxy_rate" env:"PROXY_RATE"`

	PlaylistURL string `yaml:"playlist_url" env:"PLAYLIST_URL"`
	MasterURL   string `yaml:"master_url" env:"MASTER_URL"`
	RadioURL    string `yaml:"radio_url" env:"RADIO_URL"`
	// CacheTTL applies to the shared Redis playlist tier only (0 = no expiry).
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`

	FallbackTimeout time.Duration `yaml:"fallback_timeout" env:"FALLBACK_TIMEOUT"`
	MaxRecoveries   int           `yaml:"max_recoveries" env:"MAX_RECOVERIES"`
	Engines         []string      `yaml:"engines" env:"ENGINES"`

	LogLevel        string `yaml:"log_level" env:"LOG_LEVEL"`
	LogPretty       bool   `yaml:"log_pretty" env:"LOG_PRETTY"`
	TracingExporter string `yaml:"tracing_exporter" env:"TRACING_EXPORTER"`

	Sources    []models.Source   `yaml:"sources"`
	Categories []models.Category `yaml:"categories"`
}

// Defaults returns a Config with every optional field populated.
func Defaults() *Config {
	return &Config{
		SQLitePath:      "darteve.db",
		ServerPort:      "8080",
		UserAgent:       DefaultUserAgent,
		Timeout:         30 * time.Second,
		ProxyURL:        DefaultProxyURL,
		ProxyRate:       5,
		PlaylistURL:     DefaultPlaylistURL,
		MasterURL:       DefaultMasterURL,
		RadioURL:        DefaultRadioURL,
		FallbackTimeout: 30 * time.Second,
		MaxRecoveries:   2,
		Engines:         []string{"native", "clappr", "dplayer", "videojs"},
		LogLevel:        "info",
		TracingExporter: "none",
		Sources:         DefaultSources(),
	}
}

// DefaultSources are the feeds merged into the live events category. The
// combined playlist is not one of them; the catalog loads it directly.
func DefaultSources() []models.Source {
	return []models.Source{
		{ID: models.CategoryWC2026, Name: "WC-2026", URL: "https://raw.githubusercontent.com/Jazzdar1/darfree.tv/refs/heads/main/Subirmaxpro.m3u", Kind: models.SourceKindM3U, AlwaysEvents: true},
		{ID: "cat-worldcup", Name: "World CUP", URL: "https://raw.githubusercontent.com/subirkumarpaul/Subirmaxpro/refs/heads/main/Subirmaxpro", Kind: models.SourceKindM3U},
	}
}

// Load builds config from environment variables on top of Defaults.
// .env.local and .env are read first; variables already set in the environment win.
func Load() (*Config, error) {
	loadEnvFiles()
	c := Defaults()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("DATABASE_URL", &c.DatabaseURL)
	str("SQLITE_PATH", &c.SQLitePath)
	str("REDIS_URL", &c.RedisURL)
	str("SERVER_PORT", &c.ServerPort)
	str("FETCHER_USER_AGENT", &c.UserAgent)
	str("PROXY_URL", &c.ProxyURL)
	str("PLAYLIST_URL", &c.PlaylistURL)
	str("MASTER_URL", &c.MasterURL)
	str("RADIO_URL", &c.RadioURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("TRACING_EXPORTER", &c.TracingExporter)
	dur("FETCHER_TIMEOUT", &c.Timeout)
	dur("FALLBACK_TIMEOUT", &c.FallbackTimeout)
	dur("CACHE_TTL", &c.CacheTTL)

	if v := os.Getenv("PROXY_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PROXY_RATE: %w", err))
		} else {
			c.ProxyRate = f
		}
	}
	if v := os.Getenv("MAX_RECOVERIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_RECOVERIES: %w", err))
		} else {
			c.MaxRecoveries = n
		}
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_PRETTY: %w", err))
		} else {
			c.LogPretty = b
		}
	}
	if v := os.Getenv("ENGINES"); v != "" {
		var engines []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				engines = append(engines, e)
			}
		}
		c.Engines = engines
	}
	return errors.Join(errs...)
}

// Validate checks invariants that the rest of the program relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		errs = append(errs, ErrMissingStore)
	}
	if c.ServerPort == "" {
		errs = append(errs, ErrMissingPort)
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.FallbackTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fallback_timeout must be positive, got %s", c.FallbackTimeout))
	}
	if c.MaxRecoveries < 0 {
		errs = append(errs, fmt.Errorf("max_recoveries must be >= 0, got %d", c.MaxRecoveries))
	}
	if len(c.Engines) == 0 {
		errs = append(errs, ErrNoEngines)
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Errorf("sources[%d]: id is required", i))
		case seen[s.ID]:
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: url is required", i))
		}
		if s.Kind != models.SourceKindM3U && s.Kind != models.SourceKindJSON {
			errs = append(errs, fmt.Errorf("sources[%d]: kind must be %q or %q", i, models.SourceKindM3U, models.SourceKindJSON))
		}
	}
	return errors.Join(errs...)
}
