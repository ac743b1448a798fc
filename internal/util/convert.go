package util

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AnyToFloat converts numeric and string values to float64.
// NaN and infinite values are rejected.
func AnyToFloat(v interface{}) (float64, error) {
	var result float64
	switch val := v.(type) {
	case float64:
		result = val
	case float32:
		result = float64(val)
	case int:
		result = float64(val)
	case int64:
		result = float64(val)
	case int32:
		result = float64(val)
	case uint:
		result = float64(val)
	case uint64:
		result = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number: %w", val, err)
		}
		result = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number: %w", val, err)
		}
		result = f
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("invalid number %v", result)
	}
	return result, nil
}

// AnyToInt converts numeric and string values to int, truncating fractions
func AnyToInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return n, nil
		}
	}
	f, err := AnyToFloat(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
