package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceFetches counts upstream fetches by source, mode (direct, proxy) and result (ok, error).
	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "darteve_source_fetches_total",
		Help: "Total number of upstream fetch attempts",
	}, []string{"source", "mode", "result"})

	// SourcesFailed counts sources that contributed nothing to an aggregation.
	SourcesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "darteve_sources_failed_total",
		Help: "Total number of sources dropped from an aggregation",
	}, []string{"source"})

	// PlaylistCache counts cache lookups by tier (local, redis) and outcome (hit, miss).
	PlaylistCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "darteve_playlist_cache_lookups_total",
		Help: "Playlist cache lookups",
	}, []string{"tier", "outcome"})

	// PlaylistResolutions counts resolutions that actually hit the network.
	PlaylistResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "darteve_playlist_resolutions_total",
		Help: "Playlist resolutions performed",
	}, []string{"result"})

	// PlaybackTransitions counts playback state machine transitions.
	PlaybackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "darteve_playback_transitions_total",
		Help: "Playback state transitions",
	}, []string{"from", "to"})

	// EngineFallbacks counts escalations away from an engine.
	EngineFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "darteve_engine_fallbacks_total",
		Help: "Engine ladder escalations by engine and reason",
	}, []string{"engine", "reason"})

	// SessionsActive tracks open playback sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "darteve_sessions_active",
		Help: "Number of open playback sessions",
	})
)

// RecordFetch increments the fetch counter for a source.
func RecordFetch(source, mode string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SourceFetches.WithLabelValues(source, mode, result).Inc()
}

// RecordCacheLookup increments the cache lookup counter.
func RecordCacheLookup(tier string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	PlaylistCache.WithLabelValues(tier, outcome).Inc()
}

// RecordTransition increments the transition counter.
func RecordTransition(from, to string) {
	PlaybackTransitions.WithLabelValues(from, to).Inc()
}
