package player

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voyagen/darteve/internal/metrics"
	"github.com/voyagen/darteve/internal/models"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("player: session not found")

const subscriberBuffer = 8

// OpenRequest describes what a new session should play.
type OpenRequest struct {
	StreamURL string          `json:"stream_url"`
	Type      string          `json:"type,omitempty"`
	MatchID   string          `json:"match_id,omitempty"`
	Mirrors   []models.Mirror `json:"mirrors,omitempty"`
}

// ManagerOptions configures every session created by a Manager.
type ManagerOptions struct {
	Ladder          []Factory
	FallbackTimeout time.Duration
	MaxRecoveries   int
	Clock           Clock
}

// Manager owns the playback sessions and fans out their state changes.
type Manager struct {
	opts ManagerOptions

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	session *Session
	subs    map[chan Snapshot]struct{}
}

// NewManager creates an empty Manager.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{opts: opts, sessions: make(map[string]*entry)}
}

// Open creates a session and starts playback of req.StreamURL.
func (m *Manager) Open(req OpenRequest) (*Session, error) {
	id := uuid.NewString()
	e := &entry{subs: make(map[chan Snapshot]struct{})}
	e.session = NewSession(id, Options{
		Ladder:          m.opts.Ladder,
		FallbackTimeout: m.opts.FallbackTimeout,
		MaxRecoveries:   m.opts.MaxRecoveries,
		Clock:           m.opts.Clock,
		MatchID:         req.MatchID,
		OnChange:        func(s Snapshot) { m.broadcast(id, s) },
	})

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()
	metrics.SessionsActive.Inc()

	if len(req.Mirrors) > 0 {
		e.session.SetMirrors(req.Mirrors)
	}
	if req.StreamURL != "" {
		if err := e.session.Select(req.StreamURL, req.Type); err != nil {
			_ = m.Close(id)
			return nil, err
		}
	}
	return e.session, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Close tears a session down and disconnects its subscribers.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.session.Close()
	m.mu.Lock()
	for ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	m.mu.Unlock()
	metrics.SessionsActive.Dec()
	return nil
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Close(id)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Subscribe returns a channel of snapshots for session id, primed with the
// current state. The channel is closed when the session closes or cancel is
// called. Slow subscribers only see the latest snapshots.
func (m *Manager) Subscribe(id string) (<-chan Snapshot, func(), error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan Snapshot, subscriberBuffer)
	ch <- s.Snapshot()

	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}, nil
	}
	e.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (m *Manager) broadcast(id string, snap Snapshot) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return
	}
	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// Drop the oldest snapshot to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
