// Package clock is the single wall-clock source of the host side. Tests
// pin it with SetNowForTest.
package clock

import "time"

var nowFunc = time.Now

// Now returns the current time from the configured clock function.
func Now() time.Time {
	return nowFunc()
}

// Nanos returns Now as nanoseconds since the Unix epoch, the unit used for
// ingest timestamps.
func Nanos() int64 {
	return nowFunc().UnixNano()
}

// SetNowForTest overrides the clock source and returns a restore function.
func SetNowForTest(fn func() time.Time) func() {
	previous := nowFunc
	nowFunc = fn
	return func() {
		nowFunc = previous
	}
}
