package fans

import (
	"errors"

	"github.com/hydrox/hydrox/internal/util"
)

var (
	ErrCpuFanNotFound = errors.New("cpu fan rpm not found in sysfs")

	DefaultCpuFanPatterns = []string{
		"/sys/devices/platform/cooling_fan/hwmon/*/fan1_input",
		"/sys/class/hwmon/hwmon*/fan1_input",
	}
)

// CpuFan reads the rpm of the board's own cooling fan from sysfs
type CpuFan struct {
	Patterns []string
}

func NewCpuFan() *CpuFan {
	return &CpuFan{Patterns: DefaultCpuFanPatterns}
}

// GetRpm returns the first readable rpm value of all matching fan inputs
func (fan *CpuFan) GetRpm() (int, error) {
	for _, path := range util.FindFilesMatchingGlob(fan.Patterns...) {
		rpm, err := util.ReadIntFromFile(path)
		if err != nil {
			continue
		}
		if rpm < 0 {
			rpm = 0
		}
		return rpm, nil
	}
	return 0, ErrCpuFanNotFound
}
