package player

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		hint       string
		wantURL    string
		wantHeader http.Header
		wantEmbed  bool
	}{
		{
			name:       "plain",
			raw:        "https://cdn.example/live.m3u8",
			wantURL:    "https://cdn.example/live.m3u8",
			wantHeader: http.Header{},
		},
		{
			name:    "header suffix",
			raw:     " https://cdn.example/live.m3u8|referer=https://site.example/&user-agent=Mozilla/5.0%20(X11)&ORIGIN=https://site.example&x-token=abc ",
			wantURL: "https://cdn.example/live.m3u8",
			wantHeader: http.Header{
				"Referer":    {"https://site.example/"},
				"User-Agent": {"Mozilla/5.0 (X11)"},
				"Origin":     {"https://site.example"},
				"x-token":    {"abc"},
			},
		},
		{
			name:       "malformed pairs are skipped",
			raw:        "https://cdn.example/a.m3u8|novalue&=x&Referer=https://r/",
			wantURL:    "https://cdn.example/a.m3u8",
			wantHeader: http.Header{"Referer": {"https://r/"}},
		},
		{
			name:       "php embed",
			raw:        "https://sultan.example/play.php?id=9|Referer=https://r/",
			wantURL:    "https://sultan.example/play.php?id=9",
			wantHeader: http.Header{"Referer": {"https://r/"}},
			wantEmbed:  true,
		},
		{
			name:       "iframe hint",
			raw:        "https://e.example/x",
			hint:       "IFRAME",
			wantURL:    "https://e.example/x",
			wantHeader: http.Header{},
			wantEmbed:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTarget(tt.raw, tt.hint)
			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantHeader, got.Header)
			assert.Equal(t, tt.wantEmbed, got.Embed)
		})
	}
}

func TestIsPassthrough(t *testing.T) {
	tests := []struct {
		matchID, mirror string
		want            bool
	}{
		{"m-cat-sultan-3", "", true},
		{"m-cat-sultan-3", "HD", true},
		{"m-cat-events-1", "Sultan (VIP)", true},
		{"m-cat-events-1", "VIP", false},
		{"m-cat-events-1", "HD", false},
		{"", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPassthrough(tt.matchID, tt.mirror), "%q %q", tt.matchID, tt.mirror)
	}
}

func TestTargetWithSuffix(t *testing.T) {
	tg := ParseTarget("https://a/master.m3u8|Referer=https://r/", "")
	assert.Equal(t, "https://a/720.m3u8|Referer=https://r/", tg.WithSuffix("https://a/720.m3u8"))
	assert.Equal(t, "https://a/720.m3u8", ParseTarget("https://a/master.m3u8", "").WithSuffix("https://a/720.m3u8"))
}
