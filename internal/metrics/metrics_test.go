package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(SourceFetches.WithLabelValues("t-src", "proxy", "error"))
	RecordFetch("t-src", "proxy", errors.New("boom"))
	after := testutil.ToFloat64(SourceFetches.WithLabelValues("t-src", "proxy", "error"))
	assert.Equal(t, before+1, after)
}

func TestMetricsEndpoint(t *testing.T) {
	RecordFetch("init", "direct", nil)
	RecordCacheLookup("local", true)
	RecordTransition("Idle", "Loading")
	SessionsActive.Set(0)

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	for _, name := range []string{
		"darteve_source_fetches_total",
		"darteve_playlist_cache_lookups_total",
		"darteve_playback_transitions_total",
		"darteve_sessions_active",
	} {
		assert.Contains(t, string(body), name)
	}
}
