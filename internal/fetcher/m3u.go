package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Placeholders for incomplete metadata.
const (
	UnknownChannel = "Unknown Channel"
	DefaultGroup   = "General"
)

var (
	reTvgLogo = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup   = regexp.MustCompile(`group-title="([^"]*)"`)
)

// ParseM3U reads an M3U playlist from r and returns its entries in order.
// It never fails: malformed input yields fewer (or zero) entries, and a read
// error returns what was parsed before it.
func ParseM3U(r io.Reader) []ParsedEntry {
	var entries []ParsedEntry
	scanner := bufio.NewScanner(r)
	// Handle long lines (some M3U have very long EXTINF lines).
	const maxSize = 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxSize)

	var pending *ParsedEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			e := entryFromEXTINF(line)
			pending = &e
		case strings.HasPrefix(line, "http"):
			if pending == nil {
				continue
			}
			pending.URL = line
			entries = append(entries, *pending)
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Int("entries", len(entries)).Msg("m3u: scan stopped early")
	}
	return entries
}

// FetchM3U fetches url through c and parses it.
func FetchM3U(ctx context.Context, c *Client, url string) ([]ParsedEntry, error) {
	body, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseM3U(bytes.NewReader(body)), nil
}

func entryFromEXTINF(line string) ParsedEntry {
	name := line
	if i := strings.LastIndex(line, ","); i >= 0 {
		name = line[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "#EXTINF:") {
		name = UnknownChannel
	}
	e := ParsedEntry{
		Name:  name,
		Logo:  matchFirst(reTvgLogo, line),
		Group: matchFirst(reGroup, line),
	}
	if e.Logo == "" {
		e.Logo = AvatarURL(name)
	}
	if e.Group == "" {
		e.Group = DefaultGroup
	}
	return e
}

// AvatarURL is the generated logo used when a channel has none.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + strings.ReplaceAll(url.QueryEscape(name), "+", "%20") + "&background=random"
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
