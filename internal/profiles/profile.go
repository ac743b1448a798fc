package profiles

import (
	"time"

	"github.com/hydrox/hydrox/internal/curves"
	"github.com/hydrox/hydrox/internal/sensors"
)

const (
	VersionLegacy = 1
	VersionRules  = 2

	DefaultCadenceSec = 5
)

// Profile is a named set of rules plus tuning settings
type Profile struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Rules    []Rule   `json:"rules"`
	Settings Settings `json:"settings"`
}

// Rule maps the value of a single sensor onto a set of channels
type Rule struct {
	SensorId string         `json:"sensor_id"`
	Channels []int          `json:"fan_channels"`
	Points   []curves.Point `json:"points"`
}

func (r Rule) Curve() curves.Curve {
	return curves.NewCurve(r.Points)
}

func (r Rule) IsCpu() bool {
	return r.SensorId == sensors.CpuSensorId
}

type Settings struct {
	SensorSmoothingSec int               `json:"sensor_smoothing_sec"`
	FanSmoothingSec    int               `json:"fan_smoothing_sec"`
	PumpSmoothingSec   int               `json:"pump_smoothing_sec"`
	FanRateLimitRpm    int               `json:"fan_rate_limit_rpm"`
	PumpRateLimitRpm   int               `json:"pump_rate_limit_rpm"`
	SensorMinC         *float64          `json:"sensor_min_c,omitempty"`
	SensorMaxC         *float64          `json:"sensor_max_c,omitempty"`
	FallbackMap        map[string]string `json:"fallback_map,omitempty"`
}

func (s Settings) SensorWindow() time.Duration {
	return seconds(s.SensorSmoothingSec)
}

func (s Settings) FanWindow() time.Duration {
	return seconds(s.FanSmoothingSec)
}

func (s Settings) PumpWindow() time.Duration {
	return seconds(s.PumpSmoothingSec)
}

// Cadence is the interval between two control cycles, at least one second
func (s Settings) Cadence() time.Duration {
	sec := s.SensorSmoothingSec
	if sec == 0 {
		sec = DefaultCadenceSec
	}
	return seconds(max(1, sec))
}

// OutOfRange reports whether value lies outside the configured sensor bounds
func (s Settings) OutOfRange(value float64) bool {
	if s.SensorMinC != nil && value < *s.SensorMinC {
		return true
	}
	if s.SensorMaxC != nil && value > *s.SensorMaxC {
		return true
	}
	return false
}

// Fallback returns the sensor to use when sensorId has no current value
func (s Settings) Fallback(sensorId string) (string, bool) {
	fallback, ok := s.FallbackMap[sensorId]
	if !ok || len(fallback) <= 0 {
		return "", false
	}
	return fallback, true
}

func seconds(sec int) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}
