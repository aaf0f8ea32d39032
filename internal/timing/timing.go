// Package timing measures how long a unit of work takes.
package timing

import "time"

var now = time.Now

// Measure runs fn and returns its result with the elapsed wall time.
func Measure[T any](fn func() T) (T, time.Duration) {
	start := now()
	result := fn()
	return result, now().Sub(start)
}

// MeasureErr runs fn and returns its result, the elapsed wall time, and its error.
// The duration is reported even when fn fails.
func MeasureErr[T any](fn func() (T, error)) (T, time.Duration, error) {
	start := now()
	result, err := fn()
	return result, now().Sub(start), err
}
