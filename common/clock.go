package common

import "time"

// Clock provides the current time. The coordinator takes its clock as a
// dependency so tests can drive lease expiry and claim windows
// deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by the wall clock, in UTC.
func SystemClock() Clock {
	return systemClock{}
}
