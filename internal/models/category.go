package models

// Category groups channels behind one playlist locator.
// PlaylistURL is either a fetchable URL or one of the Locator* sentinels.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	PlaylistURL string `json:"playlist_url" yaml:"playlist_url"`
	Custom      bool   `json:"custom,omitempty" yaml:"-"`
}

// Locators that are resolved in-process rather than fetched.
const (
	LocatorAggregator = "aggregator:"
	LocatorFavorites  = "favorites:"
)

// IsAggregated reports whether the category is served by the source aggregator.
func (c Category) IsAggregated() bool { return c.PlaylistURL == LocatorAggregator }

// IsFavorites reports whether the category is the user's favorites list.
func (c Category) IsFavorites() bool { return c.PlaylistURL == LocatorFavorites }
