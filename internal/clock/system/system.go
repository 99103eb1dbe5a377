// Package system provides the real clock used outside of tests.
package system

import "time"

// Clock implements rank.Clock using the system time.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
