package models

// Source describes one upstream endpoint contributing to the aggregate.
type Source struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
	Kind string `json:"kind" yaml:"kind"` // SourceKindM3U or SourceKindJSON
	// Shape names the field mapping used for JSON feeds ("" = default).
	Shape string `json:"shape,omitempty" yaml:"shape"`
	// AlwaysEvents promotes every item of the source to a match.
	AlwaysEvents bool `json:"always_events,omitempty" yaml:"always_events"`
	// Keywords and Blocked override the event classifier word lists when set.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`
	Blocked  []string `json:"blocked,omitempty" yaml:"blocked"`
}
