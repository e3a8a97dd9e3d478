package player

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules fallback timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
