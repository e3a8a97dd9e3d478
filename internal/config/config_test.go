package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/darteve/internal/models"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FETCHER_TIMEOUT", "5s")
	t.Setenv("FALLBACK_TIMEOUT", "12s")
	t.Setenv("ENGINES", "native, videojs")
	t.Setenv("PROXY_RATE", "2.5")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", c.ServerPort)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, 12*time.Second, c.FallbackTimeout)
	assert.Equal(t, []string{"native", "videojs"}, c.Engines)
	assert.InDelta(t, 2.5, c.ProxyRate, 0.0001)
	assert.Equal(t, DefaultUserAgent, c.UserAgent)
}

func TestLoadFromEnvInvalidDuration(t *testing.T) {
	t.Setenv("FETCHER_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "FETCHER_TIMEOUT")
}

func TestDefaultSourcesSkipCombinedPlaylist(t *testing.T) {
	sources := DefaultSources()
	require.NotEmpty(t, sources)
	for _, src := range sources {
		assert.NotEqual(t, models.CategoryCombined, src.ID)
		assert.NotEqual(t, DefaultPlaylistURL, src.URL)
	}
}

func TestParseFile(t *testing.T) {
	data := []byte(`
server_port: "7000"
fallback_timeout: 20s
max_recoveries: 3
sources:
  - id: feed-a
    name: Feed A
    url: https://example.com/a.json
    kind: json
    shape: default
  - id: list-b
    name: List B
    url: https://example.com/b.m3u
categories:
  - id: cat-extra
    name: Extra
    playlist_url: https://example.com/extra.m3u
`)
	c, err := parseFile(data)
	require.NoError(t, err)
	assert.Equal(t, "7000", c.ServerPort)
	assert.Equal(t, 20*time.Second, c.FallbackTimeout)
	assert.Equal(t, 3, c.MaxRecoveries)
	require.Len(t, c.Sources, 2)
	assert.Equal(t, models.SourceKindJSON, c.Sources[0].Kind)
	assert.Equal(t, models.SourceKindM3U, c.Sources[1].Kind, "kind defaults to m3u")
	require.Len(t, c.Categories, 1)
	assert.Equal(t, "cat-extra", c.Categories[0].ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
		wantMsg string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "no store",
			mutate:  func(c *Config) { c.SQLitePath = ""; c.DatabaseURL = "" },
			wantErr: ErrMissingStore,
		},
		{
			name:    "no engines",
			mutate:  func(c *Config) { c.Engines = nil },
			wantErr: ErrNoEngines,
		},
		{
			name: "duplicate source",
			mutate: func(c *Config) {
				c.Sources = append(c.Sources, c.Sources[0])
			},
			wantMsg: "duplicate id",
		},
		{
			name: "bad kind",
			mutate: func(c *Config) {
				c.Sources = []models.Source{{ID: "x", URL: "http://x", Kind: "xml"}}
			},
			wantMsg: "kind must be",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			err := c.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				assert.ErrorContains(t, err, tt.wantMsg)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
