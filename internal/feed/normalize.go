package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/voyagen/darteve/internal/fetcher"
	"github.com/voyagen/darteve/internal/models"
)

// ErrUnrecognizedShape is returned when a document is neither an array nor an
// object holding an array under one of the payload keys.
var ErrUnrecognizedShape = errors.New("feed: unrecognized shape")

// Placeholders for matches built from single-channel items.
const (
	BroadcastOpponent = "Live Broadcast"
	liveToken         = "live"
)

// Result is the canonical output of one source.
type Result struct {
	Channels []models.Channel
	Matches  []models.Match
}

// Normalize converts a JSON feed document into channels and matches.
// Items without a usable stream URL are skipped. The same input always
// yields the same output.
func Normalize(data []byte, src models.Source) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("feed %s: decode: %w", src.ID, err)
	}
	m := MappingFor(src.Shape)
	items, err := payload(doc, m)
	if err != nil {
		return Result{}, fmt.Errorf("feed %s: %w", src.ID, err)
	}

	cls := ClassifierFor(src)
	var res Result
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		mirrors := readMirrors(item, m)
		stream := firstString(item, m.StreamURL)
		if stream == "" && len(mirrors) > 0 {
			stream = mirrors[0].URL
		}
		if stream == "" {
			continue
		}

		team1 := firstString(item, m.Team1)
		team2 := firstString(item, m.Team2)
		name := firstString(item, m.Name)
		if name == "" && team1 != "" && team2 != "" {
			name = team1 + " vs " + team2
		}
		if name == "" {
			name = fetcher.UnknownChannel
		}
		logo := firstString(item, m.Logo)
		if logo == "" {
			logo = fetcher.AvatarURL(name)
		}
		category := firstString(item, m.Category)
		upstreamID := firstString(item, m.ID)

		chID := upstreamID
		if chID == "" {
			chID = fmt.Sprintf("ch-%s-%d", src.ID, len(res.Channels))
		}
		res.Channels = append(res.Channels, models.Channel{
			ID:         chID,
			Name:       name,
			Logo:       logo,
			CategoryID: src.ID,
			StreamURL:  stream,
		})

		if !cls.IsEvent(src.AlwaysEvents, name, category) {
			continue
		}
		matchID := upstreamID
		if matchID == "" {
			matchID = fmt.Sprintf("m-%s-%d", src.ID, len(res.Matches))
		}
		if team1 == "" {
			team1 = name
		}
		if team2 == "" {
			team2 = BroadcastOpponent
		}
		league := firstString(item, m.League)
		if league == "" {
			league = category
		}
		if league == "" {
			league = fetcher.DefaultGroup
		}
		res.Matches = append(res.Matches, models.Match{
			ID:         matchID,
			Sport:      DeriveSport(firstString(item, m.Sport), name),
			League:     league,
			Team1:      team1,
			Team2:      team2,
			Team1Logo:  lo.CoalesceOrEmpty(firstString(item, m.Team1Logo), logo),
			Team2Logo:  lo.CoalesceOrEmpty(firstString(item, m.Team2Logo), logo),
			RawStatus:  firstString(item, m.Status),
			StartTime:  firstTime(item, m.Start),
			IsHot:      firstBool(item, m.Hot),
			StreamURL:  stream,
			GroupTitle: category,
			Mirrors:    mirrors,
		})
	}
	return res, nil
}

// FromM3U converts parsed playlist entries into channels and, through the
// source's classifier, matches.
func FromM3U(entries []fetcher.ParsedEntry, src models.Source) Result {
	cls := ClassifierFor(src)
	var res Result
	for _, e := range entries {
		if e.URL == "" {
			continue
		}
		res.Channels = append(res.Channels, models.Channel{
			ID:         fmt.Sprintf("ch-%s-%d", src.ID, len(res.Channels)),
			Name:       e.Name,
			Logo:       e.Logo,
			CategoryID: src.ID,
			StreamURL:  e.URL,
		})
		if !cls.IsEvent(src.AlwaysEvents, e.Name, e.Group) {
			continue
		}
		res.Matches = append(res.Matches, models.Match{
			ID:         fmt.Sprintf("m-%s-%d", src.ID, len(res.Matches)),
			Sport:      DeriveSport(e.Name),
			League:     e.Group,
			Team1:      e.Name,
			Team2:      BroadcastOpponent,
			Team1Logo:  e.Logo,
			Team2Logo:  e.Logo,
			RawStatus:  liveToken,
			IsHot:      true,
			StreamURL:  e.URL,
			GroupTitle: e.Group,
		})
	}
	return res
}

// Decode picks the JSON or M3U path for a fetched body. JSON sources, and any
// body that starts like a JSON document, go through Normalize.
func Decode(data []byte, src models.Source) (Result, error) {
	trimmed := bytes.TrimSpace(data)
	if src.Kind == models.SourceKindJSON || (len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')) {
		return Normalize(trimmed, src)
	}
	return FromM3U(fetcher.ParseM3U(bytes.NewReader(data)), src), nil
}

func payload(doc any, m FieldMapping) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, k := range m.Payload {
			if arr, ok := v[k].([]any); ok {
				return arr, nil
			}
		}
	}
	return nil, ErrUnrecognizedShape
}

func readMirrors(item map[string]any, m FieldMapping) []models.Mirror {
	var out []models.Mirror
	for _, k := range m.Mirrors {
		arr, ok := item[k].([]any)
		if !ok {
			continue
		}
		for i, raw := range arr {
			var mr models.Mirror
			switch v := raw.(type) {
			case string:
				mr.URL = strings.TrimSpace(v)
			case map[string]any:
				mr.URL = firstString(v, m.MirrorURL)
				mr.Name = firstString(v, m.MirrorName)
				mr.Type = firstString(v, m.MirrorType)
			}
			if mr.URL == "" {
				continue
			}
			if mr.Name == "" {
				mr.Name = fmt.Sprintf("Server %d", i+1)
			}
			out = append(out, mr)
		}
		break
	}
	if len(out) == 0 {
		return nil
	}
	return lo.UniqBy(out, func(mr models.Mirror) string { return mr.URL })
}

func firstString(item map[string]any, keys []string) string {
	for _, k := range keys {
		if s := toString(item[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstBool(item map[string]any, keys []string) bool {
	for _, k := range keys {
		switch v := item[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n != 0
			}
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// firstTime returns the first usable start time as a raw epoch value
// (seconds or milliseconds, as sent) or 0.
func firstTime(item map[string]any, keys []string) int64 {
	for _, k := range keys {
		switch v := item[k].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil && n > 0 {
				return n
			}
			if f, err := v.Float64(); err == nil && f > 0 {
				return int64(f)
			}
		case string:
			s := strings.TrimSpace(v)
			if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
				return n
			}
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UnixMilli()
				}
			}
		}
	}
	return 0
}

// toString coerces scalar JSON values to text; containers and null become "".
func toString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
