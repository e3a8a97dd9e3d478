package models

// Source kinds.
const (
	SourceKindM3U  = "m3u"
	SourceKindJSON = "json"
)

// Status is the derived live state of a match.
type Status string

const (
	StatusLive     Status = "Live"
	StatusUpcoming Status = "Upcoming"
	StatusRecent   Status = "Recent"
)

// Sports shown as filters.
const (
	SportCricket  = "Cricket"
	SportFootball = "Football"
	SportOther    = "Other"
)

// Well-known category ids.
const (
	CategoryCombined  = "cat-combined"
	CategoryEvents    = "cat-events"
	CategoryFavorites = "cat-favorites"
	CategoryWC2026    = "cat-wc2026"
)
