package runner

import "time"

// Clock supplies run timestamps. Injecting it keeps archive rows
// deterministic under test; production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns T. Tests use it so run created_at columns
// and report timestamps are reproducible.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.T
}
