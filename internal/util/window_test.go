package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetWindowMax(t *testing.T) {
	// GIVEN
	window := CreateRollingWindow(3)
	window.Append(1)
	window.Append(2)
	window.Append(3)

	// WHEN
	maximum := GetWindowMax(window)

	// THEN
	assert.Equal(t, 3.0, maximum)
}

func TestGetWindowAvg(t *testing.T) {
	// GIVEN
	window := CreateRollingWindow(2)
	window.Append(1)
	window.Append(2)
	window.Append(4)

	// WHEN
	avg := GetWindowAvg(window)

	// THEN
	assert.Equal(t, 3.0, avg)
}

func TestTimedWindow_ZeroWindowReturnsRaw(t *testing.T) {
	// GIVEN
	w := TimedWindow{}
	now := time.Unix(1000, 0)

	// WHEN
	result := w.Smooth(42.5, 0, now)

	// THEN
	assert.Equal(t, 42.5, result)
	assert.Equal(t, 0, w.Len())
}

func TestTimedWindow_MeanOfSamplesInWindow(t *testing.T) {
	// GIVEN
	w := TimedWindow{}
	start := time.Unix(1000, 0)
	window := 10 * time.Second

	// WHEN
	w.Smooth(10, window, start)
	w.Smooth(20, window, start.Add(4*time.Second))
	result := w.Smooth(30, window, start.Add(8*time.Second))

	// THEN
	assert.Equal(t, 20.0, result)
	assert.Equal(t, 3, w.Len())
}

func TestTimedWindow_EvictsOldSamples(t *testing.T) {
	// GIVEN
	w := TimedWindow{}
	start := time.Unix(1000, 0)
	window := 5 * time.Second

	// WHEN
	w.Smooth(100, window, start)
	w.Smooth(50, window, start.Add(3*time.Second))
	result := w.Smooth(30, window, start.Add(7*time.Second))

	// THEN
	assert.Equal(t, 40.0, result)
	assert.Equal(t, 2, w.Len())
}

func TestTimedWindow_SampleOnCutoffIsKept(t *testing.T) {
	// GIVEN
	w := TimedWindow{}
	start := time.Unix(1000, 0)
	window := 5 * time.Second

	// WHEN
	w.Smooth(10, window, start)
	result := w.Smooth(20, window, start.Add(window))

	// THEN
	assert.Equal(t, 15.0, result)
}

func TestTimedWindows_IndependentHistories(t *testing.T) {
	// GIVEN
	w := NewTimedWindows[int]()
	now := time.Unix(1000, 0)
	window := time.Minute

	// WHEN
	w.Smooth(1, 10, window, now)
	a := w.Smooth(1, 20, window, now.Add(time.Second))
	b := w.Smooth(2, 80, window, now.Add(time.Second))

	// THEN
	assert.Equal(t, 15.0, a)
	assert.Equal(t, 80.0, b)
}
