package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	clock := NewRealClock()

	before := time.Now()
	actual := clock.Now()
	after := time.Now()

	assert.True(t, actual.After(before) || actual.Equal(before))
	assert.True(t, actual.Before(after) || actual.Equal(after))
}

func TestRealClock_Since(t *testing.T) {
	clock := NewRealClock()

	past := time.Now().Add(-1 * time.Second)
	duration := clock.Since(past)

	assert.True(t, duration >= 1*time.Second)
}

func TestMockClock_Now(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(startTime)

	assert.Equal(t, startTime, clock.Now())
}

func TestMockClock_Advance(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(startTime)

	clock.Advance(25 * time.Millisecond)

	assert.Equal(t, startTime.Add(25*time.Millisecond), clock.Now())
}

func TestMockClock_Set(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(startTime)

	newTime := time.Date(2026, 6, 15, 8, 30, 0, 0, time.UTC)
	clock.Set(newTime)

	assert.Equal(t, newTime, clock.Now())
}

func TestMockClock_Since(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(startTime)

	start := clock.Now()
	clock.Advance(12 * time.Millisecond)

	assert.Equal(t, 12*time.Millisecond, clock.Since(start))
}

func TestClockInterface(t *testing.T) {
	var _ Clock = &RealClock{}
	var _ Clock = &MockClock{}
}

// Measuring a traversal iteration against a frozen clock gives exact
// elapsed values, which is how the timer tests use it.
func TestMockClock_MeasuresIterations(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(startTime)

	var elapsed []time.Duration
	for i := 0; i < 3; i++ {
		begin := clock.Now()
		clock.Advance(time.Duration(i+1) * time.Millisecond)
		elapsed = append(elapsed, clock.Since(begin))
	}

	assert.Equal(t, []time.Duration{
		1 * time.Millisecond,
		2 * time.Millisecond,
		3 * time.Millisecond,
	}, elapsed)
}
