// ABOUTME: Clock abstraction used for staleness checks and highlight decay
// ABOUTME: The real clock delegates to package time; tests substitute a manual clock

package feedsync

import "time"

// Timer is a pending deferred action.
type Timer interface {
	Stop() bool
}

// Clock supplies the current time and deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the system clock.
func RealClock() Clock { return realClock{} }
