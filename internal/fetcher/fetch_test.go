package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDirect(t *testing.T) {
	var proxyHits atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
	}))
	defer proxy.Close()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("direct"))
	}))
	defer upstream.Close()

	c := New(Options{UserAgent: "test-agent", Timeout: 2 * time.Second, ProxyURL: proxy.URL})
	body, err := c.Fetch(context.Background(), upstream.URL)
	require.NoError(t, err)
	assert.Equal(t, "direct", string(body))
	assert.Zero(t, proxyHits.Load())
}

func TestFetchFallsBackToProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	var gotTarget string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("url")
		_, _ = w.Write([]byte("relayed"))
	}))
	defer proxy.Close()

	c := New(Options{Timeout: 2 * time.Second, ProxyURL: proxy.URL})
	body, err := c.Fetch(context.Background(), upstream.URL+"/list.m3u?a=1")
	require.NoError(t, err)
	assert.Equal(t, "relayed", string(body))
	assert.Equal(t, upstream.URL+"/list.m3u?a=1", gotTarget)
}

func TestFetchBothFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	c := New(Options{Timeout: 2 * time.Second, ProxyURL: down.URL})
	_, err := c.Fetch(context.Background(), down.URL)
	require.Error(t, err)
	assert.True(t, IsStatus(err))
}

func TestFetchWithoutProxy(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer down.Close()

	c := New(Options{Timeout: 2 * time.Second})
	_, err := c.Fetch(context.Background(), down.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://site/", r.Header.Get("Referer"))
		assert.Equal(t, "custom", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{UserAgent: "default"})
	h := http.Header{}
	h.Set("Referer", "https://site/")
	h.Set("User-Agent", "custom")
	body, err := c.Get(context.Background(), srv.URL, h)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestProxyURL(t *testing.T) {
	got, err := ProxyURL("https://relay.example/raw?mode=x", "https://a.example/p.m3u?x=1&y=2")
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example/raw?mode=x&url=https%3A%2F%2Fa.example%2Fp.m3u%3Fx%3D1%26y%3D2", got)
}

func TestFetchM3U(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:-1,One\nhttps://one\n"))
	}))
	defer srv.Close()

	entries, err := FetchM3U(context.Background(), New(Options{}), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "One", entries[0].Name)
}
