// Package curves maps a temperature to a percent value using piecewise linear curves.
package curves

import (
	"sort"

	"github.com/hydrox/hydrox/internal/util"
)

// Point is a single control point of a curve
type Point struct {
	Temp    float64 `json:"temp"`
	Percent float64 `json:"fan"`
}

// Curve is a list of points ordered by temperature ascending
type Curve struct {
	points []Point
}

// NewCurve creates a curve from the given points. Points are sorted by temperature,
// points sharing a temperature keep their relative order.
func NewCurve(points []Point) Curve {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Temp < sorted[j].Temp
	})
	return Curve{points: sorted}
}

// Points returns a copy of the sorted points of this curve
func (c Curve) Points() []Point {
	result := make([]Point, len(c.points))
	copy(result, c.points)
	return result
}

func (c Curve) IsEmpty() bool {
	return len(c.points) <= 0
}

// Evaluate returns the percent value of this curve at the given temperature.
// Returns false if the curve has no points.
func (c Curve) Evaluate(temp float64) (float64, bool) {
	points := c.points
	if len(points) <= 0 {
		return 0, false
	}

	first := points[0]
	last := points[len(points)-1]
	if temp <= first.Temp {
		return first.Percent, true
	}
	if temp >= last.Temp {
		return last.Percent, true
	}

	for i := 0; i < len(points)-1; i++ {
		lower := points[i]
		upper := points[i+1]
		if lower.Temp <= temp && temp <= upper.Temp {
			if upper.Temp == lower.Temp {
				return lower.Percent, true
			}
			ratio := util.Ratio(temp, lower.Temp, upper.Temp)
			return lower.Percent + ratio*(upper.Percent-lower.Percent), true
		}
	}

	return last.Percent, true
}

// Interpolate evaluates the given points as a curve at x
func Interpolate(points []Point, x float64) (float64, bool) {
	return NewCurve(points).Evaluate(x)
}

// ParsePoints converts loosely typed point data (as decoded from JSON) into points.
// Entries that are not objects, miss the "temp" or "fan" field or hold
// non-numeric values are dropped.
func ParsePoints(raw []interface{}) []Point {
	var result []Point
	for _, entry := range raw {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		rawTemp, hasTemp := fields["temp"]
		rawPercent, hasPercent := fields["fan"]
		if !hasTemp || !hasPercent {
			continue
		}
		temp, err := util.AnyToFloat(rawTemp)
		if err != nil {
			continue
		}
		percent, err := util.AnyToFloat(rawPercent)
		if err != nil {
			continue
		}
		result = append(result, Point{Temp: temp, Percent: percent})
	}
	return result
}
