package fetcher

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseM3U(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-logo="https://logo/a.png" group-title="Sports",Willow HD
https://a.example/live.m3u8
http://orphan.example/no-metadata.m3u8
#EXTINF:-1,
https://b.example/index.m3u8
#EXTINF:-1 tvg-id="x" group-title="",News, Live
  https://c.example/stream|Referer=https://site/  
#EXTINF:-1 tvg-logo="https://logo/d.png",Dropped
# a comment, not a url
#EXTINF:-1,Last One
rtmp://not-http/stream
https://e.example/last
`
	got := ParseM3U(strings.NewReader(input))
	want := []ParsedEntry{
		{Name: "Willow HD", Logo: "https://logo/a.png", Group: "Sports", URL: "https://a.example/live.m3u8"},
		{Name: UnknownChannel, Logo: AvatarURL(UnknownChannel), Group: DefaultGroup, URL: "https://b.example/index.m3u8"},
		{Name: "Live", Logo: AvatarURL("Live"), Group: DefaultGroup, URL: "https://c.example/stream|Referer=https://site/"},
		{Name: "Last One", Logo: AvatarURL("Last One"), Group: DefaultGroup, URL: "https://e.example/last"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseM3U mismatch (-want +got):\n%s", diff)
	}
}

func TestParseM3UNeverEmitsEmptyFields(t *testing.T) {
	inputs := []string{
		"",
		"garbage\nmore garbage",
		"#EXTINF:\nhttps://x",
		"#EXTINF:-1 tvg-logo=\"\",\nhttps://y\n#EXTINF:-1,\n\nhttp://z",
		"https://only-urls\nhttps://more",
	}
	for _, in := range inputs {
		for _, e := range ParseM3U(strings.NewReader(in)) {
			assert.NotEmpty(t, e.Name, "input %q", in)
			assert.NotEmpty(t, e.URL, "input %q", in)
			assert.NotEmpty(t, e.Logo, "input %q", in)
			assert.NotEmpty(t, e.Group, "input %q", in)
		}
	}
}

func TestParseM3UOrphanURLDropped(t *testing.T) {
	got := ParseM3U(strings.NewReader("https://a\nhttps://b\n"))
	assert.Empty(t, got)
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t, "https://ui-avatars.com/api/?name=Star%20Sports%201&background=random", AvatarURL("Star Sports 1"))
}
