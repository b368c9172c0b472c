// Package utils provides utility functions and types.
package utils

import "time"

// Clock abstracts wall-clock reads so traversal elapsed times and timer
// phases can be tested deterministically. The engine only ever stamps and
// diffs instants, so the interface stays small.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since the given time.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// NewRealClock creates a new RealClock instance.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the duration since the given time.
func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// MockClock implements Clock for testing. Time stands still until
// Advance or Set moves it, so phase durations come out exact.
type MockClock struct {
	currentTime time.Time
}

// NewMockClock creates a new MockClock instance with the given start time.
func NewMockClock(startTime time.Time) *MockClock {
	return &MockClock{currentTime: startTime}
}

// Now returns the mock current time.
func (c *MockClock) Now() time.Time {
	return c.currentTime
}

// Since returns the duration since the given time using mock time.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.currentTime.Sub(t)
}

// Advance advances the mock clock by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.currentTime = c.currentTime.Add(d)
}

// Set sets the mock clock to the given time.
func (c *MockClock) Set(t time.Time) {
	c.currentTime = t
}
