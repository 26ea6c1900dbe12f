// Package clock provides the engine's single source of truth for wall
// time, market hours and holidays. Every component that needs "now"
// takes a Clock rather than calling time.Now() directly, so tests and
// backtests can inject a fixed or replayed time source.
package clock

import "time"

// IST is the fixed location every market-hour computation runs in.
var IST = mustLoadLocation("Asia/Kolkata")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("clock: " + err.Error())
	}
	return loc
}

// Clock returns the current instant. Production code uses System; tests
// and backtests use a Fixed clock.
type Clock interface {
	Now() time.Time
}

// System is the production Clock, backed by time.Now().
type System struct{}

// Now returns the current wall-clock time in IST.
func (System) Now() time.Time { return time.Now().In(IST) }

// Fixed is a Clock that always returns the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return time.Time(f) }
