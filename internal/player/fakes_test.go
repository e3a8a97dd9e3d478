package player

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves the clock and runs the timers that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recorder observes every fake engine built by one ladder.
type recorder struct {
	mu         sync.Mutex
	attaches   []string
	teardowns  int
	active     int
	maxActive  int
	recovers   int
	sinks      []Events
	attachErr  map[string]error
	recoverErr error
	levels     []Level
}

func (r *recorder) ladder(names ...string) []Factory {
	out := make([]Factory, len(names))
	for i, name := range names {
		name := name
		out[i] = func() Engine { return &fakeEngine{name: name, rec: r} }
	}
	return out
}

func (r *recorder) lastSink() Events {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sinks[len(r.sinks)-1]
}

func (r *recorder) attached() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.attaches...)
}

type fakeEngine struct {
	name string
	rec  *recorder
}

func (e *fakeEngine) Name() string { return e.name }

func (e *fakeEngine) Attach(_ context.Context, _ Target, ev Events) error {
	r := e.rec
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attaches = append(r.attaches, e.name)
	r.sinks = append(r.sinks, ev)
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	return r.attachErr[e.name]
}

func (e *fakeEngine) Recover() error {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	e.rec.recovers++
	return e.rec.recoverErr
}

func (e *fakeEngine) Teardown() {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	e.rec.teardowns++
	e.rec.active--
}

func (e *fakeEngine) Levels() []Level {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	return append([]Level(nil), e.rec.levels...)
}
