// Package aggregator merges the configured sources into one best-effort result.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voyagen/darteve/internal/feed"
	"github.com/voyagen/darteve/internal/logging"
	"github.com/voyagen/darteve/internal/metrics"
	"github.com/voyagen/darteve/internal/models"
)

// ErrAllSourcesFailed is returned when no configured source produced a result.
var ErrAllSourcesFailed = errors.New("aggregator: all sources failed")

// Fetcher retrieves a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Aggregator fetches every source in parallel and merges the results in configured order.
type Aggregator struct {
	fetcher Fetcher
	sources []models.Source
	timeout time.Duration
}

// New creates an Aggregator. timeout bounds each source independently; zero means no extra bound.
func New(f Fetcher, sources []models.Source, timeout time.Duration) *Aggregator {
	return &Aggregator{fetcher: f, sources: sources, timeout: timeout}
}

// Sources returns the configured sources.
func (a *Aggregator) Sources() []models.Source {
	return a.sources
}

type outcome struct {
	res feed.Result
	err error
}

// Aggregate fetches all sources and merges what succeeded.
// A failed source contributes nothing. Only when every source fails is an
// error returned, together with an empty result.
func (a *Aggregator) Aggregate(ctx context.Context) (feed.Result, error) {
	logger := logging.Component("aggregator")
	outcomes := make([]outcome, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src models.Source) {
			defer wg.Done()
			res, err := a.fetchSource(ctx, src)
			outcomes[i] = outcome{res: res, err: err}
		}(i, src)
	}
	wg.Wait()

	results := make([]feed.Result, 0, len(outcomes))
	for i, o := range outcomes {
		if o.err != nil {
			metrics.SourcesFailed.WithLabelValues(a.sources[i].ID).Inc()
			logger.Warn().Err(o.err).Str("source", a.sources[i].ID).Msg("source dropped")
			continue
		}
		results = append(results, o.res)
	}
	if len(a.sources) > 0 && len(results) == 0 {
		return feed.Result{}, ErrAllSourcesFailed
	}

	merged := Merge(results...)
	logger.Debug().
		Int("sources", len(a.sources)).
		Int("succeeded", len(results)).
		Int("channels", len(merged.Channels)).
		Int("matches", len(merged.Matches)).
		Msg("aggregation complete")
	return merged, nil
}

func (a *Aggregator) fetchSource(ctx context.Context, src models.Source) (res feed.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source %s: panic: %v", src.ID, r)
		}
	}()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	body, err := a.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return feed.Result{}, fmt.Errorf("source %s: %w", src.ID, err)
	}
	return feed.Decode(body, src)
}

// Merge concatenates results in order. A channel whose stream URL an earlier
// result already carries is dropped; repeats within one result are kept.
// Matches describing the same fixture are folded into the first one, and the
// later copies' streams are appended as mirrors unless their URL is already
// known.
func Merge(results ...feed.Result) feed.Result {
	var out feed.Result
	earlier := make(map[string]struct{})
	for _, r := range results {
		for _, ch := range r.Channels {
			if _, dup := earlier[ch.StreamURL]; dup {
				continue
			}
			out.Channels = append(out.Channels, ch)
		}
		for _, ch := range r.Channels {
			earlier[ch.StreamURL] = struct{}{}
		}
	}

	byKey := make(map[string]int)
	for _, r := range results {
		for _, m := range r.Matches {
			k := fixtureKey(m)
			idx, ok := byKey[k]
			if !ok {
				byKey[k] = len(out.Matches)
				out.Matches = append(out.Matches, m)
				continue
			}
			out.Matches[idx] = fold(out.Matches[idx], m)
		}
	}
	return out
}

// fold merges the streams of dup into m.
func fold(m, dup models.Match) models.Match {
	mirrors := append([]models.Mirror(nil), m.Mirrors...)
	if len(mirrors) == 0 {
		mirrors = append(mirrors, models.Mirror{Name: "Server 1", URL: m.StreamURL})
	}
	seen := make(map[string]struct{}, len(mirrors)+1)
	seen[m.StreamURL] = struct{}{}
	for _, mr := range mirrors {
		seen[mr.URL] = struct{}{}
	}

	extra := dup.Mirrors
	if len(extra) == 0 {
		extra = []models.Mirror{{URL: dup.StreamURL}}
	}
	for _, mr := range extra {
		if _, ok := seen[mr.URL]; ok || mr.URL == "" {
			continue
		}
		seen[mr.URL] = struct{}{}
		if mr.Name == "" {
			mr.Name = fmt.Sprintf("Server %d", len(mirrors)+1)
		}
		mirrors = append(mirrors, mr)
	}
	m.Mirrors = mirrors
	m.IsHot = m.IsHot || dup.IsHot
	if m.StartTime == 0 {
		m.StartTime = dup.StartTime
	}
	if m.RawStatus == "" {
		m.RawStatus = dup.RawStatus
	}
	return m
}

func fixtureKey(m models.Match) string {
	norm := func(s string) string { return strings.Join(strings.Fields(strings.ToLower(s)), " ") }
	return norm(m.Team1) + "|" + norm(m.Team2) + "|" + norm(m.League)
}
