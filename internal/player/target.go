package player

import (
	"net/http"
	"net/url"
	"strings"
)

// Target is a stream URL split into what is fetched and the headers sent with it.
type Target struct {
	// URL is the fetch target without the header suffix.
	URL string
	// Header holds the headers carried by the "|k=v&k2=v2" suffix.
	Header http.Header
	// Suffix is the raw text after "|", kept so derived URLs (quality
	// variants) can carry the same headers.
	Suffix string
	// Embed marks pages that are shown as-is instead of decoded.
	Embed bool
}

// canonicalHeaders maps lowercase suffix keys to their header names.
var canonicalHeaders = map[string]string{
	"referer":    "Referer",
	"referrer":   "Referer",
	"user-agent": "User-Agent",
	"origin":     "Origin",
}

// ParseTarget splits raw into fetch URL and headers and detects embed pages.
// Keys other than Referer, User-Agent and Origin are kept verbatim.
func ParseTarget(raw, typeHint string) Target {
	raw = strings.TrimSpace(raw)
	base, suffix, _ := strings.Cut(raw, "|")
	t := Target{
		URL:    strings.TrimSpace(base),
		Header: http.Header{},
		Suffix: strings.TrimSpace(suffix),
	}
	for _, pair := range strings.Split(t.Suffix, "&") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		if name, ok := canonicalHeaders[strings.ToLower(k)]; ok {
			k = name
		}
		t.Header[k] = []string{strings.TrimSpace(v)}
	}
	t.Embed = IsEmbed(t.URL, typeHint)
	return t
}

// IsEmbed reports whether a stream is an embed page rather than a media stream.
func IsEmbed(rawURL, typeHint string) bool {
	if strings.EqualFold(strings.TrimSpace(typeHint), "iframe") {
		return true
	}
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, ".html") || strings.Contains(lower, ".php")
}

// IsPassthrough reports whether a stream of a match is always shown as an
// embed: every stream of a Sultan match and any mirror labelled "(VIP)".
func IsPassthrough(matchID, mirrorName string) bool {
	return strings.Contains(matchID, "cat-sultan") || strings.Contains(mirrorName, "(VIP)")
}

// WithSuffix returns u with t's header suffix appended.
func (t Target) WithSuffix(u string) string {
	if t.Suffix == "" {
		return u
	}
	return u + "|" + t.Suffix
}

// HeaderMap flattens Header for JSON output.
func (t Target) HeaderMap() map[string]string {
	if len(t.Header) == 0 {
		return nil
	}
	m := make(map[string]string, len(t.Header))
	for k, vs := range t.Header {
		if len(vs) > 0 {
			m[k] = vs[0]
		}
	}
	return m
}
