package domain

import "time"

// Clock abstracts wall-clock reads so time-window computations are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the ambient wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
