package sweeper

import "time"

// Clock abstracts wall-clock time so sweeps can be driven by a fake clock in
// tests instead of cron-style scheduling.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func NewRealClock() Clock {
	return realClock{}
}

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	Current time.Time
}

func (c *FakeClock) Now() time.Time {
	return c.Current
}

func (c *FakeClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
