package profiles

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hydrox/hydrox/internal/fans"
	"github.com/looplab/tarjan"
)

// Validate checks a profile before it is stored. Decoding is lenient and
// drops broken entries, so this is where a user is told about them.
func Validate(profile Profile) error {
	if len(strings.TrimSpace(profile.Name)) <= 0 {
		return fmt.Errorf("profile has no name")
	}
	if len(profile.Rules) <= 0 {
		return fmt.Errorf("profile %s: no rules", profile.Name)
	}

	for i, rule := range profile.Rules {
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("profile %s: rule %d: %w", profile.Name, i+1, err)
		}
	}

	if err := validateSettings(profile.Settings); err != nil {
		return fmt.Errorf("profile %s: %w", profile.Name, err)
	}
	return nil
}

func validateRule(rule Rule) error {
	if len(rule.SensorId) <= 0 {
		return fmt.Errorf("missing sensor_id")
	}
	if len(rule.Channels) <= 0 {
		return fmt.Errorf("no fan_channels")
	}
	for _, channel := range rule.Channels {
		if channel < 1 {
			return fmt.Errorf("invalid channel %d", channel)
		}
	}
	if len(rule.Points) <= 0 {
		return fmt.Errorf("no points")
	}
	for _, point := range rule.Points {
		if point.Percent < fans.MinPercent || point.Percent > fans.MaxPercent {
			return fmt.Errorf("point at %.1f°C: percent %.1f is outside of [%d..%d]", point.Temp, point.Percent, fans.MinPercent, fans.MaxPercent)
		}
	}
	return nil
}

func validateSettings(settings Settings) error {
	values := map[string]int{
		"sensor_smoothing_sec": settings.SensorSmoothingSec,
		"fan_smoothing_sec":    settings.FanSmoothingSec,
		"pump_smoothing_sec":   settings.PumpSmoothingSec,
		"fan_rate_limit_rpm":   settings.FanRateLimitRpm,
		"pump_rate_limit_rpm":  settings.PumpRateLimitRpm,
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	if settings.SensorMinC != nil && settings.SensorMaxC != nil && *settings.SensorMinC > *settings.SensorMaxC {
		return fmt.Errorf("sensor_min_c (%.1f) is greater than sensor_max_c (%.1f)", *settings.SensorMinC, *settings.SensorMaxC)
	}

	return validateNoFallbackLoops(settings.FallbackMap)
}

// fallbacks are only followed one level deep, a cycle means the user mixed up two sensors
func validateNoFallbackLoops(fallbackMap map[string]string) error {
	graph := map[interface{}][]interface{}{}
	for from, to := range fallbackMap {
		if from == to {
			return fmt.Errorf("sensor %s falls back to itself", from)
		}
		graph[from] = append(graph[from], to)
		if _, ok := graph[to]; !ok {
			graph[to] = []interface{}{}
		}
	}

	output := tarjan.Connections(graph)
	for _, items := range output {
		if len(items) > 1 {
			return fmt.Errorf("fallback_map contains a cycle: %v", items)
		}
	}
	return nil
}
