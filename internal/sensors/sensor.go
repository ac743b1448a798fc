package sensors

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	KindCpu       = "cpu"
	KindDs18b20   = "ds18b20"
	KindLiquidctl = "liquidctl"

	// CpuSensorId is the logical id rules use to reference the cpu temperature
	CpuSensorId = "cpu"

	UnitCelsius    = "C"
	UnitFahrenheit = "F"
)

// Sensor is a temperature sensor known to the system. Sensors are registered
// once discovered and are never removed automatically.
type Sensor struct {
	ID          int    `json:"id"`
	Kind        string `json:"kind"`
	SourceId    string `json:"sourceId"`
	Name        string `json:"name"`
	DefaultName string `json:"defaultName"`
	Unit        string `json:"unit"`
	Active      bool   `json:"active"`
}

// LogicalId returns the id used to reference this sensor from profile rules
func (s Sensor) LogicalId() string {
	return LogicalId(s.ID)
}

func LogicalId(id int) string {
	return strconv.Itoa(id)
}

// NormalizeUnit returns a supported unit, defaulting to celsius
func NormalizeUnit(unit string) string {
	normalized := strings.ToUpper(strings.TrimSpace(unit))
	if normalized != UnitCelsius && normalized != UnitFahrenheit {
		return UnitCelsius
	}
	return normalized
}

// FormatTemp renders a celsius value in the given unit
func FormatTemp(tempC float64, unit string) string {
	if NormalizeUnit(unit) == UnitFahrenheit {
		return fmt.Sprintf("%.1f°F", tempC*9/5+32)
	}
	return fmt.Sprintf("%.1f°C", tempC)
}
