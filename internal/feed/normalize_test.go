package feed

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/darteve/internal/fetcher"
	"github.com/voyagen/darteve/internal/models"
)

var jsonSource = models.Source{ID: "feed", Name: "Feed", Kind: models.SourceKindJSON}

func TestNormalizeBareArray(t *testing.T) {
	data := []byte(`[
		{"id": "e1", "title": "India vs Pakistan", "category": "Cricket", "url": "https://s/1.m3u8",
		 "start_time": 1700000000, "status": "upcoming", "team1": "India", "team2": "Pakistan", "is_hot": true},
		{"name": "Movie Night", "category": "Movies", "stream_url": "https://s/2.m3u8"},
		{"title": "No Stream", "category": "Sports"},
		{"title": 42, "link": "https://s/3.m3u8"},
		"not an object"
	]`)
	res, err := Normalize(data, jsonSource)
	require.NoError(t, err)

	wantChannels := []models.Channel{
		{ID: "e1", Name: "India vs Pakistan", Logo: fetcher.AvatarURL("India vs Pakistan"), CategoryID: "feed", StreamURL: "https://s/1.m3u8"},
		{ID: "ch-feed-1", Name: "Movie Night", Logo: fetcher.AvatarURL("Movie Night"), CategoryID: "feed", StreamURL: "https://s/2.m3u8"},
		{ID: "ch-feed-2", Name: "42", Logo: fetcher.AvatarURL("42"), CategoryID: "feed", StreamURL: "https://s/3.m3u8"},
	}
	if diff := cmp.Diff(wantChannels, res.Channels); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, "e1", m.ID)
	assert.Equal(t, models.SportCricket, m.Sport)
	assert.Equal(t, "India", m.Team1)
	assert.Equal(t, "Pakistan", m.Team2)
	assert.Equal(t, "upcoming", m.RawStatus)
	assert.Equal(t, int64(1700000000), m.StartTime)
	assert.True(t, m.IsHot)
	assert.Equal(t, "Cricket", m.League)
}

func TestNormalizePayloadKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{name: "data key", doc: `{"data": [{"title": "A", "url": "https://a"}]}`, want: 1},
		{name: "matches key", doc: `{"matches": [{"title": "A", "url": "https://a"}, {"title": "B", "url": "https://b"}]}`, want: 2},
		{name: "priority order", doc: `{"events": [{"url": "https://e"}], "data": [{"url": "https://d1"}, {"url": "https://d2"}]}`, want: 2},
		{name: "skips non-array candidate", doc: `{"data": {"x": 1}, "items": [{"url": "https://i"}]}`, want: 1},
		{name: "empty array", doc: `[]`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize([]byte(tt.doc), jsonSource)
			require.NoError(t, err)
			assert.Len(t, res.Channels, tt.want)
		})
	}
}

func TestNormalizeUnrecognized(t *testing.T) {
	for _, doc := range []string{`{"foo": []}`, `"hello"`, `42`} {
		_, err := Normalize([]byte(doc), jsonSource)
		assert.True(t, errors.Is(err, ErrUnrecognizedShape), "doc %s: %v", doc, err)
	}
	_, err := Normalize([]byte(`{not json`), jsonSource)
	assert.Error(t, err)
}

func TestNormalizeExclusionIsIdempotent(t *testing.T) {
	data := []byte(`[{"title": "a"}, {"title": "b", "url": ""}, {"title": "c", "url": "https://c"}, {"title": "d", "url": null}]`)
	first, err := Normalize(data, jsonSource)
	require.NoError(t, err)
	second, err := Normalize(data, jsonSource)
	require.NoError(t, err)
	assert.Len(t, first.Channels, 1)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	for _, ch := range first.Channels {
		assert.NotEmpty(t, ch.StreamURL)
	}
}

func TestNormalizeMirrors(t *testing.T) {
	data := []byte(`[{
		"title": "Final", "sport": "football",
		"links": [
			{"name": "HD", "url": "https://m/1"},
			"https://m/2",
			{"server": "Dup", "link": "https://m/1"},
			{"name": "Embed", "url": "https://m/e.php", "type": "Iframe"}
		]
	}]`)
	res, err := Normalize(data, jsonSource)
	require.NoError(t, err)
	require.Len(t, res.Channels, 1)
	assert.Equal(t, "https://m/1", res.Channels[0].StreamURL, "first mirror becomes the primary stream")

	require.Len(t, res.Matches, 1)
	want := []models.Mirror{
		{Name: "HD", URL: "https://m/1"},
		{Name: "Server 2", URL: "https://m/2"},
		{Name: "Embed", URL: "https://m/e.php", Type: "Iframe"},
	}
	if diff := cmp.Diff(want, res.Matches[0].Mirrors); diff != "" {
		t.Errorf("mirrors mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.SportFootball, res.Matches[0].Sport)
}

func TestNormalizeStringStartTime(t *testing.T) {
	data := []byte(`[{"title": "Cricket Live", "url": "https://x", "start_time": "2026-10-18T12:00:00Z"}]`)
	res, err := Normalize(data, jsonSource)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(1792324800000), res.Matches[0].StartTime)
}

func TestNormalizeAlwaysEvents(t *testing.T) {
	src := jsonSource
	src.AlwaysEvents = true
	data := []byte(`[{"title": "Cartoon Hour", "url": "https://x"}]`)
	res, err := Normalize(data, src)
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
}

func TestFromM3U(t *testing.T) {
	entries := []fetcher.ParsedEntry{
		{Name: "Willow Cricket", Logo: "l1", Group: "Sports", URL: "https://1"},
		{Name: "Star Movies", Logo: "l2", Group: "Movies", URL: "https://2"},
		{Name: "BBC News", Logo: "l3", Group: "News", URL: "https://3"},
	}
	src := models.Source{ID: "cat-combined"}
	res := FromM3U(entries, src)

	require.Len(t, res.Channels, 3)
	assert.Equal(t, "ch-cat-combined-0", res.Channels[0].ID)
	assert.Equal(t, "ch-cat-combined-2", res.Channels[2].ID)

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, "m-cat-combined-0", m.ID)
	assert.Equal(t, models.SportCricket, m.Sport)
	assert.Equal(t, BroadcastOpponent, m.Team2)
	assert.Equal(t, "Sports", m.League)
	assert.True(t, m.IsHot)
}

func TestDecodeSniffsJSON(t *testing.T) {
	src := models.Source{ID: "x", Kind: models.SourceKindM3U}
	res, err := Decode([]byte("  [{\"title\":\"A\",\"url\":\"https://a\"}]"), src)
	require.NoError(t, err)
	assert.Len(t, res.Channels, 1)

	res, err = Decode([]byte("#EXTM3U\n#EXTINF:-1,B\nhttps://b\n"), src)
	require.NoError(t, err)
	assert.Len(t, res.Channels, 1)
	assert.Equal(t, "B", res.Channels[0].Name)
}
