package util

import (
	"sync"
	"time"

	"github.com/asecurityteam/rolling"
)

func CreateRollingWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

// GetWindowMax returns the max value in the window
func GetWindowMax(window *rolling.PointPolicy) float64 {
	return window.Reduce(rolling.Max)
}

// GetWindowAvg returns the average of all values in the window
func GetWindowAvg(window *rolling.PointPolicy) float64 {
	return window.Reduce(rolling.Avg)
}

type timedSample struct {
	at    time.Time
	value float64
}

// TimedWindow keeps (timestamp, value) samples and averages those that
// are not older than a given window.
type TimedWindow struct {
	samples []timedSample
}

// Smooth records value at now and returns the mean of all samples within [now - window, now].
// A window <= 0 disables smoothing and returns value unchanged without recording it.
func (w *TimedWindow) Smooth(value float64, window time.Duration, now time.Time) float64 {
	if window <= 0 {
		return value
	}
	w.samples = append(w.samples, timedSample{at: now, value: value})

	cutoff := now.Add(-window)
	evict := 0
	for evict < len(w.samples) && w.samples[evict].at.Before(cutoff) {
		evict++
	}
	w.samples = w.samples[evict:]

	if len(w.samples) <= 0 {
		return value
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s.value
	}
	return sum / float64(len(w.samples))
}

// Len returns the number of samples currently held
func (w *TimedWindow) Len() int {
	return len(w.samples)
}

// TimedWindows is a set of independent TimedWindow histories, safe for concurrent use
type TimedWindows[K comparable] struct {
	mu      sync.Mutex
	windows map[K]*TimedWindow
}

func NewTimedWindows[K comparable]() *TimedWindows[K] {
	return &TimedWindows[K]{
		windows: map[K]*TimedWindow{},
	}
}

// Smooth applies TimedWindow.Smooth to the history identified by key
func (w *TimedWindows[K]) Smooth(key K, value float64, window time.Duration, now time.Time) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	history, ok := w.windows[key]
	if !ok {
		history = &TimedWindow{}
		w.windows[key] = history
	}
	return history.Smooth(value, window, now)
}
