package player

import (
	"context"
	"fmt"
	"io"
)

// EngineError is reported by an engine when an attempt goes wrong.
type EngineError struct {
	// Fatal errors cannot be recovered inside the engine.
	Fatal bool
	// Network errors are transport problems (timeouts, HTTP failures).
	Network bool
	Err     error
}

func (e EngineError) Error() string {
	kind := "recoverable"
	if e.Fatal {
		kind = "fatal"
	}
	if e.Err == nil {
		return kind + " engine error"
	}
	return fmt.Sprintf("%s engine error: %v", kind, e.Err)
}

func (e EngineError) Unwrap() error { return e.Err }

// Events receives the outcome of one attach attempt.
// Calls for an attempt that has been torn down are ignored.
type Events interface {
	// Ready signals the first frame (or a decodable manifest).
	Ready()
	// Error signals a failure.
	Error(EngineError)
}

// Engine is one playback implementation on the ladder.
//
// Attach must return before reporting through ev; reports are expected
// from another goroutine or from a client callback. Only one engine is
// attached per session at a time and Teardown always precedes the next
// Attach.
type Engine interface {
	Name() string
	Attach(ctx context.Context, t Target, ev Events) error
	// Recover retries the current target inside the engine.
	Recover() error
	Teardown()
}

// Factory creates a fresh engine for each attempt.
type Factory func() Engine

// Level is an adaptive bitrate variant.
type Level struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Bandwidth  uint32 `json:"bandwidth"`
	Resolution string `json:"resolution,omitempty"`
	URL        string `json:"url"`
}

// LevelProvider is implemented by engines that expose quality levels once ready.
type LevelProvider interface {
	Levels() []Level
}

// PageData is what a page engine needs to render its player page.
type PageData struct {
	SessionID string
	Attempt   uint64
	URL       string
	EventsURL string
}

// PageRenderer is implemented by engines whose playback happens in a client page.
type PageRenderer interface {
	Render(w io.Writer, d PageData) error
}
