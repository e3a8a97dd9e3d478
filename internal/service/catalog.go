// Package service holds the catalog: categories, their resolved playlists,
// live matches and the user's library.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/voyagen/darteve/internal/aggregator"
	"github.com/voyagen/darteve/internal/cache"
	"github.com/voyagen/darteve/internal/feed"
	"github.com/voyagen/darteve/internal/fetcher"
	"github.com/voyagen/darteve/internal/logging"
	"github.com/voyagen/darteve/internal/match"
	"github.com/voyagen/darteve/internal/models"
	"github.com/voyagen/darteve/internal/store"
)

// Catalog errors.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnavailable     = errors.New("broadcaster synchronization failed")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidChannel  = errors.New("invalid channel")
)

// Result limits.
const (
	MaxSearchResults = 100
	MaxRelated       = 40
)

// Fetcher retrieves a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Aggregator merges the configured event sources.
type Aggregator interface {
	Aggregate(ctx context.Context) (feed.Result, error)
}

// Options configures a Catalog.
type Options struct {
	Fetcher    Fetcher
	Store      store.Store
	Aggregator Aggregator
	// Redis enables the shared playlist tier and the refresh queue. May be nil.
	Redis    *cache.Redis
	CacheTTL time.Duration

	PlaylistURL string
	MasterURL   string
	// Extra categories from configuration, listed after the built-ins.
	Extra []models.Category
}

// Catalog serves categories and channels through the playlist cache.
type Catalog struct {
	fetcher  Fetcher
	store    store.Store
	agg      Aggregator
	redis    *cache.Redis
	playlist *cache.PlaylistCache
	logger   zerolog.Logger

	playlistURL string
	masterURL   string
	extra       []models.Category

	mu       sync.RWMutex
	cloud    []models.Category
	matches  map[string][]models.Match
	loadedAt time.Time

	// libMu serializes read-modify-write of the library keys.
	libMu sync.Mutex
}

// New creates a Catalog. Call Load to populate it.
func New(opts Options) *Catalog {
	c := &Catalog{
		fetcher:     opts.Fetcher,
		store:       opts.Store,
		agg:         opts.Aggregator,
		redis:       opts.Redis,
		logger:      logging.Component("catalog"),
		playlistURL: opts.PlaylistURL,
		masterURL:   opts.MasterURL,
		extra:       opts.Extra,
		matches:     make(map[string][]models.Match),
	}
	c.playlist = cache.NewPlaylistCache(c, opts.Redis, opts.CacheTTL)
	return c
}

// Playlists exposes the playlist cache.
func (c *Catalog) Playlists() *cache.PlaylistCache { return c.playlist }

// LoadedAt reports when Load last succeeded.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Load fetches the combined playlist and the live event sources, seeds the
// cache with them and refreshes the cloud category index. It fails only when
// neither the combined playlist nor any event source could be read.
func (c *Catalog) Load(ctx context.Context) error {
	combined := c.combinedCategory()
	var combinedErr, eventsErr error

	if body, err := c.fetcher.Fetch(ctx, combined.PlaylistURL); err != nil {
		combinedErr = err
		c.logger.Warn().Err(err).Str("url", combined.PlaylistURL).Msg("combined playlist unavailable")
	} else {
		res := feed.FromM3U(fetcher.ParseM3U(bytes.NewReader(body)), sourceFor(combined))
		c.playlist.Put(ctx, combined.ID, res.Channels)
		c.setMatches(combined.ID, res.Matches)
		c.logger.Info().Int("channels", len(res.Channels)).Int("matches", len(res.Matches)).Msg("combined playlist loaded")
	}

	if c.agg != nil {
		if res, err := c.agg.Aggregate(ctx); err != nil {
			eventsErr = err
			c.logger.Warn().Err(err).Msg("live event sources unavailable")
		} else {
			c.playlist.Put(ctx, models.CategoryEvents, res.Channels)
			c.setMatches(models.CategoryEvents, res.Matches)
		}
	} else {
		eventsErr = aggregator.ErrAllSourcesFailed
	}

	if combinedErr != nil && eventsErr != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(combinedErr, eventsErr))
	}

	c.loadCloud(ctx)

	c.mu.Lock()
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Catalog) loadCloud(ctx context.Context) {
	if c.masterURL == "" {
		return
	}
	body, err := c.fetcher.Fetch(ctx, c.masterURL)
	if err != nil {
		c.logger.Info().Err(err).Msg("cloud master not found")
		return
	}
	var raw []cloudCategory
	if err := json.Unmarshal(bytes.TrimSpace(body), &raw); err != nil {
		c.logger.Info().Err(err).Msg("cloud master unreadable")
		return
	}
	cats := make([]models.Category, 0, len(raw))
	for _, r := range raw {
		if cat, ok := r.category(); ok {
			cats = append(cats, cat)
		}
	}
	c.mu.Lock()
	c.cloud = cats
	c.mu.Unlock()
}

func (c *Catalog) combinedCategory() models.Category {
	cat := builtinCategories[0]
	if c.playlistURL != "" {
		cat.PlaylistURL = c.playlistURL
	}
	return cat
}

// Categories lists every category: built-ins, configured extras, cloud,
// custom and finally favorites. Later duplicates of an id are dropped.
func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	custom, err := c.CustomCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	cloud := c.cloud
	c.mu.RUnlock()

	all := make([]models.Category, 0, len(builtinCategories)+len(c.extra)+len(cloud)+len(custom)+1)
	all = append(all, c.combinedCategory())
	all = append(all, builtinCategories[1:]...)
	all = append(all, c.extra...)
	all = append(all, cloud...)
	all = append(all, custom...)
	all = append(all, favoritesCategory)
	return lo.UniqBy(all, func(cat models.Category) string { return cat.ID }), nil
}

// Category looks up one category by id.
func (c *Catalog) Category(ctx context.Context, id string) (models.Category, error) {
	cats, err := c.Categories(ctx)
	if err != nil {
		return models.Category{}, err
	}
	cat, ok := lo.Find(cats, func(cat models.Category) bool { return cat.ID == id })
	if !ok {
		return models.Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	return cat, nil
}

// Channels returns the channels of a category through the cache.
func (c *Catalog) Channels(ctx context.Context, id string) ([]models.Channel, error) {
	if _, err := c.Category(ctx, id); err != nil {
		return nil, err
	}
	return c.playlist.Resolve(ctx, id)
}

// ResolveCategory fetches and decodes a category's playlist. It implements
// cache.Resolver and is not cached itself.
func (c *Catalog) ResolveCategory(ctx context.Context, id string) ([]models.Channel, error) {
	cat, err := c.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case cat.IsFavorites():
		return c.Favorites(ctx)
	case cat.IsAggregated():
		if c.agg == nil {
			return nil, aggregator.ErrAllSourcesFailed
		}
		res, err := c.agg.Aggregate(ctx)
		if err != nil {
			return nil, err
		}
		c.setMatches(cat.ID, res.Matches)
		return res.Channels, nil
	}

	body, err := c.fetcher.Fetch(ctx, cat.PlaylistURL)
	if err != nil {
		return nil, err
	}
	res, err := feed.Decode(body, sourceFor(cat))
	if err != nil {
		return nil, err
	}
	if cat.ID == models.CategoryCombined {
		c.setMatches(cat.ID, res.Matches)
	}
	return res.Channels, nil
}

func sourceFor(cat models.Category) models.Source {
	return models.Source{
		ID:           cat.ID,
		Name:         cat.Name,
		URL:          cat.PlaylistURL,
		Kind:         models.SourceKindM3U,
		AlwaysEvents: cat.ID == models.CategoryWC2026,
	}
}

func (c *Catalog) setMatches(categoryID string, ms []models.Match) {
	c.mu.Lock()
	c.matches[categoryID] = ms
	c.mu.Unlock()
}

// AllMatches returns the combined playlist matches merged with the live
// event sources.
func (c *Catalog) AllMatches() []models.Match {
	c.mu.RLock()
	combined := feed.Result{Matches: c.matches[models.CategoryCombined]}
	events := feed.Result{Matches: c.matches[models.CategoryEvents]}
	c.mu.RUnlock()
	return aggregator.Merge(combined, events).Matches
}

// Matches classifies every match at now and filters by sport and status.
func (c *Catalog) Matches(sport, status string, now time.Time) ([]match.View, match.Counts) {
	return match.Filter(c.AllMatches(), sport, status, now)
}

// Match finds a match by id.
func (c *Catalog) Match(id string) (models.Match, bool) {
	return lo.Find(c.AllMatches(), func(m models.Match) bool { return m.ID == id })
}

// known returns every locally cached channel in category order without
// duplicate stream URLs.
func (c *Catalog) known(ctx context.Context) []models.Channel {
	cats, err := c.Categories(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("list categories")
		cats = builtinCategories
	}
	var all []models.Channel
	for _, cat := range cats {
		if chs, ok := c.playlist.Get(cat.ID); ok {
			all = append(all, chs...)
		}
	}
	return lo.UniqBy(all, func(ch models.Channel) string { return ch.StreamURL })
}

// Search matches q case-insensitively against the names of every loaded
// channel and returns at most MaxSearchResults.
func (c *Catalog) Search(ctx context.Context, q string) []models.Channel {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []models.Channel{}
	}
	out := make([]models.Channel, 0)
	for _, ch := range c.known(ctx) {
		if strings.Contains(strings.ToLower(ch.Name), q) {
			out = append(out, ch)
			if len(out) == MaxSearchResults {
				break
			}
		}
	}
	return out
}

// Related lists channels to offer next to channelID: others of its category,
// or of every loaded category when the channel is not known.
func (c *Catalog) Related(ctx context.Context, channelID string) []models.Channel {
	all := c.known(ctx)
	pool := all
	if self, ok := lo.Find(all, func(ch models.Channel) bool { return ch.ID == channelID }); ok {
		if chs, ok := c.playlist.Get(self.CategoryID); ok {
			pool = chs
		}
	}
	out := make([]models.Channel, 0, MaxRelated)
	for _, ch := range pool {
		if ch.ID == channelID {
			continue
		}
		out = append(out, ch)
		if len(out) == MaxRelated {
			break
		}
	}
	return out
}
