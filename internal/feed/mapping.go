package feed

// FieldMapping lists, per logical field, the candidate keys tried in order.
type FieldMapping struct {
	Payload   []string
	ID        []string
	Name      []string
	Logo      []string
	StreamURL []string
	Start     []string
	Status    []string
	Category  []string
	Sport     []string
	League    []string
	Team1     []string
	Team2     []string
	Team1Logo []string
	Team2Logo []string
	Hot       []string
	Mirrors   []string

	MirrorName []string
	MirrorURL  []string
	MirrorType []string
}

// DefaultMapping covers the key spellings seen across public sports feeds.
var DefaultMapping = FieldMapping{
	Payload:   []string{"data", "matches", "events", "items", "channels", "streams", "results"},
	ID:        []string{"id", "_id", "uid", "match_id", "event_id"},
	Name:      []string{"title", "name", "match_name", "channel_name", "event", "event_name"},
	Logo:      []string{"logo", "image", "thumbnail", "thumb", "icon", "poster", "tvg_logo"},
	StreamURL: []string{"url", "stream_url", "streamUrl", "stream", "link", "src", "m3u8", "source"},
	Start:     []string{"start_time", "startTime", "timestamp", "start", "time", "date", "kickoff"},
	Status:    []string{"status", "state", "match_status", "event_status"},
	Category:  []string{"category", "group", "group_title", "groupTitle", "genre", "sport"},
	Sport:     []string{"sport", "sport_name", "category"},
	League:    []string{"league", "tournament", "competition", "series"},
	Team1:     []string{"team1", "home", "home_team", "homeTeam", "team_a", "teamA"},
	Team2:     []string{"team2", "away", "away_team", "awayTeam", "team_b", "teamB"},
	Team1Logo: []string{"team1_logo", "team1Logo", "home_logo", "homeLogo"},
	Team2Logo: []string{"team2_logo", "team2Logo", "away_logo", "awayLogo"},
	Hot:       []string{"is_hot", "isHot", "hot", "featured", "popular"},
	Mirrors:   []string{"mirrors", "links", "servers", "multiLinks", "sources"},

	MirrorName: []string{"name", "title", "server", "label"},
	MirrorURL:  []string{"url", "link", "stream_url", "src", "embed"},
	MirrorType: []string{"type", "kind", "format"},
}

// shapes holds named mappings selectable per source.
var shapes = map[string]FieldMapping{
	"":        DefaultMapping,
	"default": DefaultMapping,
}

// RegisterShape adds or replaces a named mapping.
// It is meant to be called during program initialisation.
func RegisterShape(name string, m FieldMapping) {
	shapes[name] = m
}

// MappingFor returns the mapping registered under name, or DefaultMapping.
func MappingFor(name string) FieldMapping {
	if m, ok := shapes[name]; ok {
		return m
	}
	return DefaultMapping
}
