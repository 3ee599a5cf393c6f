package clock

import (
	"sort"
	"sync"
	"time"

	"github.com/aretw0/pledge/pkg/ports"
)

// Fake is a manually advanced TimerSource for tests. Callbacks scheduled via
// AfterFunc fire synchronously inside Advance, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	at time.Time
	fn func()
}

// NewFake creates a fake clock frozen at the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{
		now:    now.UTC(),
		timers: make(map[int]*fakeTimer),
	}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers fn to fire once the fake clock reaches at.
func (f *Fake) AfterFunc(at time.Time, fn func()) ports.CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.timers[id] = &fakeTimer{at: at.UTC(), fn: fn}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.timers, id)
	}
}

// Advance moves the clock forward and fires every due callback in deadline
// order. Callbacks run without the internal lock held, so they may schedule
// or cancel timers themselves.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	var due []*fakeTimer
	for id, t := range f.timers {
		if !t.at.After(now) {
			due = append(due, t)
			delete(f.timers, id)
		}
	}
	f.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Pending returns the number of scheduled, unfired callbacks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}
