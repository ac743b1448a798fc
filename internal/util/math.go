package util

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// Avg calculates the average of all values in the given array
func Avg(values []float64) float64 {
	if len(values) <= 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(values); i++ {
		sum += values[i]
	}
	return sum / (float64(len(values)))
}

// Ratio calculates the ration that target has in comparison to rangeMin and rangeMax
// Make sure that:
// rangeMin <= target <= rangeMax
// rangeMax - rangeMin != 0
func Ratio(target float64, rangeMin float64, rangeMax float64) float64 {
	return (target - rangeMin) / (rangeMax - rangeMin)
}

// Coerce returns a value that is at least min and at most max, otherwise value
func Coerce[T Number](value T, min T, max T) T {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// ClampPercent coerces the given value into [0..100]
func ClampPercent(value float64) float64 {
	return Coerce(value, 0, 100)
}

// RoundToInt rounds half away from zero
func RoundToInt(value float64) int {
	return int(math.Round(value))
}

// Abs returns the absolute value of the given number
func Abs[T Number](value T) T {
	if value < 0 {
		return -value
	}
	return value
}
