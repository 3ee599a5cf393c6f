// Package clock provides TimerSource implementations: a system clock backed
// by time.AfterFunc and a fake clock for deterministic tests.
package clock

import (
	"time"

	"github.com/aretw0/pledge/pkg/ports"
)

// System is the production TimerSource backed by the wall clock.
type System struct{}

// NewSystem returns a TimerSource backed by the real clock.
func NewSystem() System {
	return System{}
}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// AfterFunc schedules fn at the absolute time at. A time already in the past
// fires immediately, matching time.AfterFunc with a non-positive duration.
func (s System) AfterFunc(at time.Time, fn func()) ports.CancelFunc {
	t := time.AfterFunc(time.Until(at), fn)
	return func() { t.Stop() }
}
