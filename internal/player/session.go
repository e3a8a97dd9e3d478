package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/voyagen/darteve/internal/logging"
	"github.com/voyagen/darteve/internal/metrics"
	"github.com/voyagen/darteve/internal/models"
)

// State is the playback state of a session.
type State string

const (
	StateIdle            State = "Idle"
	StateLoading         State = "Loading"
	StateSwitchingEngine State = "SwitchingEngine"
	StatePlaying         State = "Playing"
	StateFailed          State = "Failed"
	StateEmbedded        State = "Embedded"
)

// ExhaustedMessage is shown when every engine on the ladder failed.
const ExhaustedMessage = "All players failed. Stream link is dead or offline."

// Defaults for Options.
const (
	DefaultFallbackTimeout = 30 * time.Second
	DefaultMaxRecoveries   = 2
)

var (
	ErrSessionClosed = errors.New("player: session closed")
	ErrNoStream      = errors.New("player: no stream selected")
	ErrBadIndex      = errors.New("player: index out of range")
	ErrNoPage        = errors.New("player: active engine has no page")
)

// Options configures a Session.
type Options struct {
	Ladder          []Factory
	FallbackTimeout time.Duration
	MaxRecoveries   int
	Clock           Clock
	// MatchID is the match being watched, if any.
	MatchID string
	// OnChange is called with the new snapshot after every transition.
	// It runs while the session is locked and must not call back into it.
	OnChange func(Snapshot)
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	ID            string            `json:"id"`
	State         State             `json:"state"`
	StreamURL     string            `json:"stream_url"`
	Target        string            `json:"target"`
	Headers       map[string]string `json:"headers,omitempty"`
	Engine        string            `json:"engine,omitempty"`
	EngineIndex   int               `json:"engine_index"`
	Attempt       uint64            `json:"attempt"`
	HasEverPlayed bool              `json:"has_ever_played"`
	Recoveries    int               `json:"recoveries"`
	QualityIndex  int               `json:"quality_index"`
	Qualities     []Level           `json:"qualities,omitempty"`
	MirrorIndex   int               `json:"mirror_index"`
	Mirrors       []models.Mirror   `json:"mirrors,omitempty"`
	Error         string            `json:"error,omitempty"`
	Notice        string            `json:"notice,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Session drives one stream selection through the engine ladder.
// All methods are safe for concurrent use.
type Session struct {
	id   string
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	state    State
	raw      string
	hint     string
	target   Target
	engine   Engine
	index    int
	gen      uint64
	timer    Timer
	everPlay bool
	recovers int
	lastErr  string
	notice   string

	masterURL string
	quality   int
	levels    []Level
	mirrors   []models.Mirror
	mirror    int
	updated   time.Time
}

// NewSession creates an idle session.
func NewSession(id string, opts Options) *Session {
	if opts.FallbackTimeout <= 0 {
		opts.FallbackTimeout = DefaultFallbackTimeout
	}
	if opts.MaxRecoveries < 0 {
		opts.MaxRecoveries = 0
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:      id,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
		quality: -1,
		mirror:  -1,
		updated: opts.Clock.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SetMirrors replaces the alternate streams offered for the current match.
func (s *Session) SetMirrors(mirrors []models.Mirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirrors = mirrors
	s.mirror = -1
	s.emitLocked()
}

// Select starts playback of rawURL from the first engine.
func (s *Session) Select(rawURL, typeHint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.masterURL = rawURL
	s.quality = -1
	s.levels = nil
	s.selectLocked(rawURL, typeHint)
	return nil
}

// SelectMirror switches to mirror i.
func (s *Session) SelectMirror(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if i < 0 || i >= len(s.mirrors) {
		return fmt.Errorf("mirror %d: %w", i, ErrBadIndex)
	}
	m := s.mirrors[i]
	s.mirror = i
	s.masterURL = m.URL
	s.quality = -1
	s.levels = nil
	s.selectLocked(m.URL, m.Type)
	return nil
}

// SelectQuality switches to quality level i; -1 returns to automatic
// selection on the master playlist.
func (s *Session) SelectQuality(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.masterURL == "" {
		return ErrNoStream
	}
	if i < -1 || i >= len(s.levels) {
		return fmt.Errorf("quality %d: %w", i, ErrBadIndex)
	}
	u := s.masterURL
	if i >= 0 {
		u = s.levels[i].URL
	}
	s.quality = i
	s.selectLocked(u, s.hint)
	return nil
}

// Retry restarts the current selection from the first engine.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.raw == "" {
		return ErrNoStream
	}
	s.selectLocked(s.raw, s.hint)
	return nil
}

// Report delivers a client-side engine event for attempt.
// kind is "ready" or "error". Reports for earlier attempts are ignored.
func (s *Session) Report(attempt uint64, kind string, fatal, network bool) error {
	switch strings.ToLower(kind) {
	case "ready":
		s.onReady(attempt)
	case "error":
		s.onError(attempt, EngineError{Fatal: fatal, Network: network, Err: errors.New("client reported error")})
	default:
		return fmt.Errorf("unknown event %q", kind)
	}
	return nil
}

// RenderPage writes the player page of the active engine.
func (s *Session) RenderPage(w io.Writer, eventsURL string) error {
	s.mu.Lock()
	eng, gen, target := s.engine, s.gen, s.target
	s.mu.Unlock()
	r, ok := eng.(PageRenderer)
	if !ok {
		return ErrNoPage
	}
	return r.Render(w, PageData{SessionID: s.id, Attempt: gen, URL: target.URL, EventsURL: eventsURL})
}

// Close releases the engine and timers. The session cannot be reused.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.clearTimers()
	s.detach()
	s.setState(StateIdle)
	s.cancel()
	s.emitLocked()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		State:         s.state,
		StreamURL:     s.raw,
		Target:        s.target.URL,
		Headers:       s.target.HeaderMap(),
		EngineIndex:   s.index,
		Attempt:       s.gen,
		HasEverPlayed: s.everPlay,
		Recoveries:    s.recovers,
		QualityIndex:  s.quality,
		Qualities:     append([]Level(nil), s.levels...),
		MirrorIndex:   s.mirror,
		Mirrors:       append([]models.Mirror(nil), s.mirrors...),
		Error:         s.lastErr,
		Notice:        s.notice,
		UpdatedAt:     s.updated,
	}
	if s.engine != nil {
		snap.Engine = s.engine.Name()
	}
	return snap
}

// selectLocked resets the engine state for rawURL and starts the ladder.
func (s *Session) selectLocked(rawURL, typeHint string) {
	s.clearTimers()
	s.detach()

	s.raw = rawURL
	s.hint = typeHint
	s.target = ParseTarget(rawURL, typeHint)
	if !s.target.Embed && IsPassthrough(s.opts.MatchID, s.mirrorNameLocked(rawURL)) {
		s.target.Embed = true
	}
	s.index = 0
	s.everPlay = false
	s.lastErr = ""
	s.notice = ""

	if s.target.Embed {
		s.setState(StateEmbedded)
		s.emitLocked()
		return
	}
	if len(s.opts.Ladder) == 0 {
		s.lastErr = ExhaustedMessage
		s.setState(StateFailed)
		s.emitLocked()
		return
	}
	s.attachLocked(0, s.opts.Ladder[0]())
}

// attachLocked starts attempt i on eng with a fresh fallback timer.
func (s *Session) attachLocked(i int, eng Engine) {
	s.index = i
	s.recovers = 0
	s.gen++
	gen := s.gen
	s.engine = eng
	s.setState(StateLoading)
	s.timer = s.opts.Clock.AfterFunc(s.opts.FallbackTimeout, func() { s.onTimeout(gen) })
	s.emitLocked()

	if err := s.engine.Attach(s.ctx, s.target, &attemptSink{s: s, gen: gen}); err != nil {
		s.lastErr = err.Error()
		s.escalateLocked("attach")
	}
}

// mirrorNameLocked returns the name of the mirror carrying rawURL.
func (s *Session) mirrorNameLocked(rawURL string) string {
	for _, m := range s.mirrors {
		if m.URL == rawURL {
			return m.Name
		}
	}
	return ""
}

// escalateLocked abandons the current engine and moves down the ladder.
func (s *Session) escalateLocked(reason string) {
	name := ""
	if s.engine != nil {
		name = s.engine.Name()
	}
	metrics.EngineFallbacks.WithLabelValues(name, reason).Inc()
	logger := logging.Component("player")
	logger.Debug().
		Str("session", s.id).Str("engine", name).Str("reason", reason).
		Msg("engine abandoned")

	s.clearTimers()
	s.detach()
	s.everPlay = false

	next := s.index + 1
	if next >= len(s.opts.Ladder) {
		s.lastErr = ExhaustedMessage
		s.notice = ""
		s.setState(StateFailed)
		s.emitLocked()
		return
	}
	eng := s.opts.Ladder[next]()
	upcoming := strings.ToUpper(eng.Name())
	if reason == "timeout" {
		s.notice = fmt.Sprintf("%ds Timeout! Switching to %s...", int(s.opts.FallbackTimeout/time.Second), upcoming)
	} else {
		s.notice = fmt.Sprintf("Switching to %s...", upcoming)
	}
	s.setState(StateSwitchingEngine)
	s.emitLocked()
	s.attachLocked(next, eng)
}

func (s *Session) onReady(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	switch s.state {
	case StateLoading:
		s.clearTimers()
		s.everPlay = true
		s.recovers = 0
		s.lastErr = ""
		s.notice = ""
		if lp, ok := s.engine.(LevelProvider); ok {
			if levels := lp.Levels(); len(levels) > 0 {
				for i := range levels {
					levels[i].URL = s.target.WithSuffix(levels[i].URL)
				}
				s.levels = levels
			}
		}
		s.setState(StatePlaying)
		s.emitLocked()
	case StatePlaying:
		// Recovered in place.
		s.recovers = 0
		s.lastErr = ""
		s.emitLocked()
	}
}

func (s *Session) onError(gen uint64, e EngineError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	if s.state != StateLoading && s.state != StatePlaying {
		return
	}
	s.lastErr = e.Error()
	if !e.Fatal && s.recovers < s.opts.MaxRecoveries {
		s.recovers++
		if err := s.engine.Recover(); err == nil {
			s.emitLocked()
			return
		}
	}
	reason := "recovery exhausted"
	if e.Fatal {
		reason = "fatal"
	}
	s.escalateLocked(reason)
}

func (s *Session) onTimeout(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen || s.state != StateLoading {
		return
	}
	s.timer = nil
	s.escalateLocked("timeout")
}

// clearTimers is the single release path for the fallback timer.
func (s *Session) clearTimers() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// detach tears down the attached engine and invalidates its attempt.
func (s *Session) detach() {
	if s.engine != nil {
		s.engine.Teardown()
		s.engine = nil
	}
	s.gen++
}

func (s *Session) setState(to State) {
	if s.state != to {
		metrics.RecordTransition(string(s.state), string(to))
	}
	s.state = to
	s.updated = s.opts.Clock.Now()
}

func (s *Session) emitLocked() {
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.snapshotLocked())
	}
}

// attemptSink routes engine reports to the attempt that created it.
type attemptSink struct {
	s   *Session
	gen uint64
}

func (a *attemptSink) Ready() { a.s.onReady(a.gen) }
func (a *attemptSink) Error(e EngineError) { a.s.onError(a.gen, e) }
