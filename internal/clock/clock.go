// Package clock resolves the current time in a team's local timezone.
// Sweeps and command handlers take a Clock so tests can pin the time.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current wall time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

var (
	zoneMu    sync.Mutex
	zoneCache = map[string]*time.Location{}
)

// In returns the clock's current time in the named IANA zone. An
// unresolvable zone falls back to UTC rather than failing: policies are
// validated on write, so this only happens for hand-edited documents.
func In(c Clock, tz string) time.Time {
	return c.Now().In(location(tz))
}

func location(tz string) *time.Location {
	zoneMu.Lock()
	defer zoneMu.Unlock()
	if loc, ok := zoneCache[tz]; ok {
		return loc
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	zoneCache[tz] = loc
	return loc
}

// Fixed is a test clock pinned to one instant.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Set moves the fixed clock.
func (f *Fixed) Set(t time.Time) { f.T = t }
