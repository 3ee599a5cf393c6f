package ports

import "time"

// CancelFunc stops a scheduled callback. Cancellation is best-effort: a
// callback that already fired simply loses its CAS and does no harm.
type CancelFunc func()

// TimerSource abstracts the clock so tests can inject a fake and advance it
// deterministically rather than sleeping in real time.
type TimerSource interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules fn to run at the absolute time at, returning a
	// handle that cancels the callback if it has not fired yet.
	AfterFunc(at time.Time, fn func()) CancelFunc
}
