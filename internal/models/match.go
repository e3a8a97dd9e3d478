package models

// Mirror is an alternate stream for the same live content.
type Mirror struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"` // hint, e.g. "Iframe" or "HLS"
}

// Match is a live event record. Its status is never stored; see match.Classify.
type Match struct {
	ID         string   `json:"id"`
	Sport      string   `json:"sport"`
	League     string   `json:"league"`
	Team1      string   `json:"team1"`
	Team2      string   `json:"team2"`
	Team1Logo  string   `json:"team1_logo"`
	Team2Logo  string   `json:"team2_logo"`
	RawStatus  string   `json:"raw_status,omitempty"`
	StartTime  int64    `json:"start_time,omitempty"` // epoch seconds or milliseconds
	IsHot      bool     `json:"is_hot"`
	StreamURL  string   `json:"stream_url"`
	GroupTitle string   `json:"group_title,omitempty"`
	Mirrors    []Mirror `json:"mirrors,omitempty"`
}
