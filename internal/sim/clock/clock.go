package clock

import "time"

// Clock abstracts wall time so action timers can be driven by tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// Fake is a manually advanced clock. It is used by tests across the sim packages
// and by offline tooling that replays a save.
type Fake struct {
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	return f.now
}

func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// UnixMilli is the persisted timestamp form used by saves.
func UnixMilli(c Clock) int64 {
	return c.Now().UnixMilli()
}
