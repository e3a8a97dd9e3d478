// Package radio searches the radio-browser directory and places stations on a tuner dial.
package radio

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/darteve/internal/cache"
)

// Band is a tuner band.
type Band string

const (
	FM Band = "FM"
	MW Band = "MW"
	SW Band = "SW"
)

// Filter values with special meaning.
const (
	CountryGlobal = "Global"
	GenreAll      = "All"
	GenreSports   = "Sports/Cricket"
)

const (
	searchPath  = "/json/stations/search"
	searchLimit = 150
	cacheTTL    = 10 * time.Minute
)

var (
	reFM = regexp.MustCompile(`(\d{2,3}\.\d)`)
	reMW = regexp.MustCompile(`(?i)(\d{3,4})\s?(AM|MW|kHz)`)
)

// Station is a directory entry placed on the dial.
type Station struct {
	UUID      string  `json:"stationuuid"`
	Name      string  `json:"name"`
	URL       string  `json:"url_resolved"`
	Favicon   string  `json:"favicon"`
	Country   string  `json:"country"`
	Tags      string  `json:"tags"`
	Band      Band    `json:"band"`
	Frequency float64 `json:"frequency"`
}

// Query selects stations. Empty fields match everything.
type Query struct {
	Country string
	Name    string
	Genre   string
}

// Fetcher retrieves a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Directory searches a radio-browser compatible API.
type Directory struct {
	fetcher Fetcher
	baseURL string
	redis   *cache.Redis
}

// NewDirectory creates a Directory. r may be nil to disable result caching.
func NewDirectory(f Fetcher, baseURL string, r *cache.Redis) *Directory {
	return &Directory{fetcher: f, baseURL: strings.TrimRight(baseURL, "/"), redis: r}
}

// Search returns stations for q, most clicked first. When a name search
// finds nothing it is retried as a state (region) search. For India and
// Global the local pack is listed first.
func (d *Directory) Search(ctx context.Context, q Query) ([]Station, error) {
	key := "radio:" + d.searchURL(q, false)
	if st, err := cache.Get[[]Station](ctx, d.redis, key); err == nil {
		return st, nil
	}

	raw, err := d.fetch(ctx, d.searchURL(q, false))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 && q.Name != "" {
		if raw, err = d.fetch(ctx, d.searchURL(q, true)); err != nil {
			return nil, err
		}
	}

	stations := make([]Station, 0, len(raw)+len(localStations))
	for i, st := range raw {
		st.Band, st.Frequency = Place(st.UUID, st.Name, i)
		stations = append(stations, st)
	}
	if q.Country == "" || strings.EqualFold(q.Country, "India") || strings.EqualFold(q.Country, CountryGlobal) {
		stations = withLocalPack(stations, q.Name)
	}

	if err := cache.Set(ctx, d.redis, key, stations, cacheTTL); err != nil {
		log.Warn().Err(err).Msg("radio: cache set")
	}
	return stations, nil
}

func (d *Directory) fetch(ctx context.Context, rawURL string) ([]Station, error) {
	body, err := d.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("radio search: %w", err)
	}
	var out []Station
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("radio search: decode: %w", err)
	}
	return out, nil
}

func (d *Directory) searchURL(q Query, byState bool) string {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(searchLimit))
	v.Set("hidebroken", "true")
	v.Set("order", "clickcount")
	v.Set("reverse", "true")
	if q.Country != "" && !strings.EqualFold(q.Country, CountryGlobal) {
		v.Set("country", q.Country)
	}
	if q.Name != "" {
		if byState {
			v.Set("state", q.Name)
		} else {
			v.Set("name", q.Name)
		}
	}
	switch {
	case q.Genre == "" || strings.EqualFold(q.Genre, GenreAll):
	case strings.EqualFold(q.Genre, GenreSports):
		v.Set("tagList", "cricket,sports")
	default:
		v.Set("tag", strings.ToLower(q.Genre))
	}
	return d.baseURL + searchPath + "?" + v.Encode()
}

// Place assigns a band and frequency to the i-th station of a result.
// A real FM frequency in the name wins, then an AM/MW one; otherwise the
// band follows the position and the frequency is a stable hash of uuid.
func Place(uuid, name string, i int) (Band, float64) {
	if m := reFM.FindStringSubmatch(name); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f >= 87.5 && f <= 108.0 {
			return FM, f
		}
	}
	if m := reMW.FindStringSubmatch(name); m != nil {
		if k, err := strconv.Atoi(m[1]); err == nil && k >= 520 && k <= 1610 {
			return MW, float64(k)
		}
	}
	band := FM
	switch {
	case i%4 == 0:
		band = MW
	case i%7 == 0:
		band = SW
	}
	return band, StableFrequency(uuid, band)
}

// StableFrequency maps uuid to a frequency inside band.
func StableFrequency(uuid string, band Band) float64 {
	var h int64
	for _, c := range utf16.Encode([]rune(uuid)) {
		h = int64(c) + int64(int32(h)<<5) - h
	}
	if h < 0 {
		h = -h
	}
	switch band {
	case MW:
		return float64(520 + (h%109)*10)
	case SW:
		return round1(2.3 + float64(h%238)*0.1)
	default:
		return round1(87.5 + float64(h%205)*0.1)
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
