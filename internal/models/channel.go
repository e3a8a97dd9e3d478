package models

// Channel is a single playable entry resolved from a category's playlist or feed.
// StreamURL may carry a trailing "|key=value&..." header suffix.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Logo       string `json:"logo"`
	CategoryID string `json:"category_id"`
	StreamURL  string `json:"stream_url"`
}
