package clock

import "time"

// Clock supplies the current time to components that compute windows.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Useful for tests and replays.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }
