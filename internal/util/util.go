package util

import "time"

// Pointer simply returns a pointer to the supplied value
func Pointer[T any](v T) *T {
	return &v
}

// Seconds converts fractional seconds, as used in config files, to a Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
