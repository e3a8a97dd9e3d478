package config

import "errors"

var (
	// ErrMissingStore means neither DATABASE_URL nor SQLITE_PATH is configured.
	ErrMissingStore = errors.New("config: DATABASE_URL or SQLITE_PATH is required")
	ErrMissingPort  = errors.New("config: server port is required")
	ErrNoEngines    = errors.New("config: at least one playback engine is required")
)
