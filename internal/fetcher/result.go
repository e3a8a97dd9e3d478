package fetcher

// ParsedEntry is one EXTINF/URL pair from an M3U playlist.
type ParsedEntry struct {
	Name  string
	Logo  string
	Group string
	URL   string
}
