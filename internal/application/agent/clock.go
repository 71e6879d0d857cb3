package agent

import "time"

// Clock abstracts "now" so the same loop logic runs against real time in
// paper/live mode and a replayed timeline in backtests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// RealClock returns the wall clock in UTC.
func RealClock() Clock { return realClock{} }

// FixedClock always returns the given instant. Backtests advance it one
// period at a time.
type FixedClock struct {
	Instant time.Time
}

func (c *FixedClock) Now() time.Time { return c.Instant }
