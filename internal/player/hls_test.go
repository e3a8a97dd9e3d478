package player

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/darteve/internal/fetcher"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720
720/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=640000,RESOLUTION=640x360
https://other.example/360/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg0.ts
`

type chanSink struct {
	ready chan struct{}
	errs  chan EngineError
}

func newChanSink() *chanSink {
	return &chanSink{ready: make(chan struct{}, 4), errs: make(chan EngineError, 4)}
}

func (c *chanSink) Ready()              { c.ready <- struct{}{} }
func (c *chanSink) Error(e EngineError) { c.errs <- e }

func (c *chanSink) wait(t *testing.T) (ready bool, e EngineError) {
	t.Helper()
	select {
	case <-c.ready:
		return true, EngineError{}
	case e := <-c.errs:
		return false, e
	case <-time.After(2 * time.Second):
		t.Fatal("no report from engine")
		return false, EngineError{}
	}
}

func hlsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/master.m3u8":
			assert.Equal(t, "https://site.example/", r.Header.Get("Referer"))
			_, _ = w.Write([]byte(masterPlaylist))
		case "/media.m3u8":
			_, _ = w.Write([]byte(mediaPlaylist))
		case "/page":
			_, _ = w.Write([]byte("<html><body>not a playlist</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func attachNative(t *testing.T, raw string) (*Native, *chanSink) {
	t.Helper()
	n := NewNative(fetcher.New(fetcher.Options{Timeout: 2 * time.Second}))().(*Native)
	sink := newChanSink()
	require.NoError(t, n.Attach(context.Background(), ParseTarget(raw, ""), sink))
	t.Cleanup(n.Teardown)
	return n, sink
}

func TestNativeMasterPlaylist(t *testing.T) {
	srv := hlsServer(t)
	n, sink := attachNative(t, srv.URL+"/master.m3u8|Referer=https://site.example/")

	ready, e := sink.wait(t)
	require.True(t, ready, "unexpected error: %v", e)
	levels := n.Levels()
	require.Len(t, levels, 2)
	assert.Equal(t, srv.URL+"/720/index.m3u8", levels[0].URL)
	assert.Equal(t, "1280x720", levels[0].Name)
	assert.Equal(t, uint32(1280000), levels[0].Bandwidth)
	assert.Equal(t, "https://other.example/360/index.m3u8", levels[1].URL)
	assert.Equal(t, 1, levels[1].Index)
}

func TestNativeMediaPlaylist(t *testing.T) {
	srv := hlsServer(t)
	n, sink := attachNative(t, srv.URL+"/media.m3u8")
	ready, e := sink.wait(t)
	require.True(t, ready, "unexpected error: %v", e)
	assert.Empty(t, n.Levels())
}

func TestNativeHTTPErrorIsRecoverable(t *testing.T) {
	srv := hlsServer(t)
	n, sink := attachNative(t, srv.URL+"/missing.m3u8")
	ready, e := sink.wait(t)
	require.False(t, ready)
	assert.True(t, e.Network)
	assert.False(t, e.Fatal)

	require.NoError(t, n.Recover())
	ready, e = sink.wait(t)
	require.False(t, ready)
	assert.True(t, e.Network)
}

func TestNativeUndecodableIsFatal(t *testing.T) {
	srv := hlsServer(t)
	_, sink := attachNative(t, srv.URL+"/page")
	ready, e := sink.wait(t)
	require.False(t, ready)
	assert.True(t, e.Fatal)
}

func TestNativeTeardownSilencesProbe(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	n := NewNative(fetcher.New(fetcher.Options{Timeout: 5 * time.Second}))()
	sink := newChanSink()
	require.NoError(t, n.Attach(context.Background(), ParseTarget(srv.URL+"/x.m3u8", ""), sink))
	n.Teardown()

	select {
	case <-sink.ready:
		t.Fatal("ready after teardown")
	case e := <-sink.errs:
		t.Fatalf("error after teardown: %v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSessionWithNativeEngine(t *testing.T) {
	srv := hlsServer(t)
	ladder, err := Ladder([]string{NativeName, ClapprName}, fetcher.New(fetcher.Options{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	s := NewSession("native", Options{Ladder: ladder, FallbackTimeout: time.Minute})
	defer s.Close()

	require.NoError(t, s.Select(srv.URL+"/master.m3u8|Referer=https://site.example/", ""))
	require.Eventually(t, func() bool { return s.Snapshot().State == StatePlaying }, 2*time.Second, 10*time.Millisecond)
	snap := s.Snapshot()
	assert.Equal(t, NativeName, snap.Engine)
	require.Len(t, snap.Qualities, 2)
	assert.Equal(t, srv.URL+"/720/index.m3u8|Referer=https://site.example/", snap.Qualities[0].URL)
}

func TestNativePageReportsErrors(t *testing.T) {
	n := NewNative(nil)().(*Native)
	var buf bytes.Buffer
	require.NoError(t, n.Render(&buf, PageData{
		SessionID: "abc",
		Attempt:   3,
		URL:       "https://cdn.example/live.m3u8",
		EventsURL: "/api/sessions/abc/events",
	}))
	html := buf.String()
	assert.Contains(t, html, "hls.min.js")
	assert.Regexp(t, `var attempt =\s*3\s*;`, html)
	assert.Contains(t, html, "Hls.Events.ERROR")
	assert.Contains(t, html, "softErr")
	assert.Contains(t, html, "reloadSource")
}
