package player

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageEnginesRender(t *testing.T) {
	data := PageData{SessionID: "abc", Attempt: 7, URL: "https://cdn.example/live.m3u8", EventsURL: "/api/sessions/abc/events"}
	tests := map[string]string{
		ClapprName:  "clappr.min.js",
		DPlayerName: "DPlayer.min.js",
		VideoJSName: `<source src="https://cdn.example/live.m3u8"`,
	}
	for name, marker := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := NewPage(name)
			require.NoError(t, err)
			eng := f()
			assert.Equal(t, name, eng.Name())

			var buf bytes.Buffer
			assert.ErrorIs(t, eng.(PageRenderer).Render(&buf, data), ErrNoPage)

			require.NoError(t, eng.Attach(context.Background(), ParseTarget(data.URL, ""), nil))
			buf.Reset()
			require.NoError(t, eng.(PageRenderer).Render(&buf, data))
			html := buf.String()
			assert.Contains(t, html, marker)
			assert.Contains(t, html, "cdn.example")
			assert.Regexp(t, `var attempt =\s*7\s*;`, html)
			assert.Contains(t, html, "sendErr")

			assert.Contains(t, html, "reloadSource")

			require.NoError(t, eng.Recover())
			require.NoError(t, eng.Recover())
			assert.Equal(t, 2, eng.(*Page).Reloads())

			eng.Teardown()
			assert.ErrorIs(t, eng.(PageRenderer).Render(&buf, data), ErrNoPage)
			assert.ErrorIs(t, eng.Recover(), ErrNoRecovery)
		})
	}
}

func TestPageEscapesURL(t *testing.T) {
	f, err := NewPage(ClapprName)
	require.NoError(t, err)
	eng := f()
	require.NoError(t, eng.Attach(context.Background(), Target{}, nil))
	var buf bytes.Buffer
	require.NoError(t, eng.(PageRenderer).Render(&buf, PageData{URL: `https://x/"</script><script>alert(1)//`}))
	assert.NotContains(t, buf.String(), "<script>alert(1)")
}

func TestLadder(t *testing.T) {
	ladder, err := Ladder([]string{NativeName, ClapprName, DPlayerName, VideoJSName}, nil)
	require.NoError(t, err)
	var names []string
	for _, f := range ladder {
		names = append(names, f().Name())
	}
	assert.Equal(t, []string{"native", "clappr", "dplayer", "videojs"}, names)

	_, err = Ladder([]string{"flash"}, nil)
	assert.Error(t, err)
	_, err = Ladder([]string{"report"}, nil)
	assert.Error(t, err)
}
