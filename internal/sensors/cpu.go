package sensors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hydrox/hydrox/internal/util"
	psensors "github.com/shirou/gopsutil/v4/sensors"
)

const (
	DefaultCpuThermalZone = "/sys/class/thermal/thermal_zone0/temp"
)

var (
	vcgencmdTempPattern = regexp.MustCompile(`temp=(-?\d+(?:\.\d+)?)`)

	// host sensor keys that belong to the SoC, in order of preference
	cpuSensorKeys = []string{"cpu_thermal", "soc_thermal", "coretemp_package", "k10temp_tctl", "cpu"}
)

// CpuTemperatureReader reads the current cpu temperature in degrees celsius
type CpuTemperatureReader interface {
	GetCpuTemperature() (float64, error)
}

// CpuSensor reads the SoC temperature using vcgencmd, falling back to the
// thermal zone file and then to the temperature sensors of the host
type CpuSensor struct {
	Vcgencmd    string
	ThermalZone string
	Timeout     time.Duration
	// HostSensors lists all temperature sensors of the host, nil disables this source
	HostSensors func() ([]psensors.TemperatureStat, error)
}

func NewCpuSensor() *CpuSensor {
	return &CpuSensor{
		Vcgencmd:    "vcgencmd",
		ThermalZone: DefaultCpuThermalZone,
		Timeout:     2 * time.Second,
		HostSensors: psensors.SensorsTemperatures,
	}
}

func (s *CpuSensor) GetCpuTemperature() (float64, error) {
	if len(s.Vcgencmd) > 0 {
		output, err := util.SafeCmdExecution(s.Vcgencmd, []string{"measure_temp"}, s.Timeout)
		if err == nil {
			value, parseErr := ParseVcgencmdTemp(output)
			if parseErr == nil {
				return value, nil
			}
		}
	}

	text, err := util.ReadTextFromFile(s.ThermalZone)
	if err == nil {
		value, parseErr := ParseThermalZoneTemp(text)
		if parseErr == nil {
			return value, nil
		}
		err = parseErr
	}

	if s.HostSensors != nil {
		// partial results come with a warning error
		temps, _ := s.HostSensors()
		if value, ok := PickCpuTemp(temps); ok {
			return value, nil
		}
	}
	return 0, fmt.Errorf("cpu temperature unavailable: %w", err)
}

// PickCpuTemp selects the SoC temperature from a list of host sensors
func PickCpuTemp(temps []psensors.TemperatureStat) (float64, bool) {
	for _, key := range cpuSensorKeys {
		for _, temp := range temps {
			if strings.Contains(strings.ToLower(temp.SensorKey), key) && temp.Temperature > 0 {
				return temp.Temperature, true
			}
		}
	}
	return 0, false
}

// ParseVcgencmdTemp parses output like "temp=45.2'C"
func ParseVcgencmdTemp(output string) (float64, error) {
	match := vcgencmdTempPattern.FindStringSubmatch(output)
	if match == nil {
		return 0, fmt.Errorf("unexpected vcgencmd output: %q", output)
	}
	return strconv.ParseFloat(match[1], 64)
}

// ParseThermalZoneTemp parses a thermal zone value, which is usually
// milli-degrees but may already be whole degrees on some kernels.
func ParseThermalZoneTemp(text string) (float64, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse cpu temp %q: %w", text, err)
	}
	if n > 1000 {
		return float64(n) / 1000.0, nil
	}
	return float64(n), nil
}
