package config

import (
	"fmt"
	"os"
	"time"

	"github.com/voyagen/darteve/internal/models"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL     string            `yaml:"database_url"`
	SQLitePath      string            `yaml:"sqlite_path"`
	RedisURL        string            `yaml:"redis_url"`
	ServerPort      string            `yaml:"server_port"`
	UserAgent       string            `yaml:"user_agent"`
	Timeout         string            `yaml:"timeout"`
	ProxyURL        string            `yaml:"proxy_url"`
	ProxyRate       *float64          `yaml:"proxy_rate"`
	PlaylistURL     string            `yaml:"playlist_url"`
	MasterURL       string            `yaml:"master_url"`
	RadioURL        string            `yaml:"radio_url"`
	CacheTTL        string            `yaml:"cache_ttl"`
	FallbackTimeout string            `yaml:"fallback_timeout"`
	MaxRecoveries   *int              `yaml:"max_recoveries"`
	Engines         []string          `yaml:"engines"`
	LogLevel        string            `yaml:"log_level"`
	LogPretty       bool              `yaml:"log_pretty"`
	TracingExporter string            `yaml:"tracing_exporter"`
	Sources         []models.Source   `yaml:"sources"`
	Categories      []models.Category `yaml:"categories"`
}

// LoadFromFile loads config from a YAML file on top of Defaults.
// A non-empty sources list replaces the default sources.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFile(data)
}

func parseFile(data []byte) (*Config, error) {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	c := Defaults()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.DatabaseURL, f.DatabaseURL)
	set(&c.SQLitePath, f.SQLitePath)
	set(&c.RedisURL, f.RedisURL)
	set(&c.ServerPort, f.ServerPort)
	set(&c.UserAgent, f.UserAgent)
	set(&c.ProxyURL, f.ProxyURL)
	set(&c.PlaylistURL, f.PlaylistURL)
	set(&c.MasterURL, f.MasterURL)
	set(&c.RadioURL, f.RadioURL)
	set(&c.LogLevel, f.LogLevel)
	set(&c.TracingExporter, f.TracingExporter)
	c.LogPretty = f.LogPretty

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", f.Timeout, &c.Timeout},
		{"cache_ttl", f.CacheTTL, &c.CacheTTL},
		{"fallback_timeout", f.FallbackTimeout, &c.FallbackTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = v
	}
	if f.ProxyRate != nil {
		c.ProxyRate = *f.ProxyRate
	}
	if f.MaxRecoveries != nil {
		c.MaxRecoveries = *f.MaxRecoveries
	}
	if len(f.Engines) > 0 {
		c.Engines = f.Engines
	}
	if len(f.Sources) > 0 {
		c.Sources = f.Sources
	}
	for i := range c.Sources {
		if c.Sources[i].Kind == "" {
			c.Sources[i].Kind = models.SourceKindM3U
		}
	}
	c.Categories = f.Categories

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
