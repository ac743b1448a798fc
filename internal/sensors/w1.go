package sensors

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hydrox/hydrox/internal/util"
)

const (
	DefaultW1DevicePattern = "/sys/bus/w1/devices/28-*"
)

// Ds18b20Bus discovers and reads DS18B20 probes attached to the 1-wire bus
type Ds18b20Bus struct {
	Pattern string
}

func NewDs18b20Bus() *Ds18b20Bus {
	return &Ds18b20Bus{Pattern: DefaultW1DevicePattern}
}

// Discover returns the bus ids of all currently attached probes
func (b *Ds18b20Bus) Discover() []string {
	var ids []string
	for _, path := range util.FindFilesMatchingGlob(b.Pattern) {
		ids = append(ids, filepath.Base(path))
	}
	return ids
}

// ReadAll returns the temperature of every probe that could be read, keyed by bus id
func (b *Ds18b20Bus) ReadAll() map[string]float64 {
	result := map[string]float64{}
	for _, path := range util.FindFilesMatchingGlob(b.Pattern) {
		value, err := readDs18b20(path)
		if err != nil {
			continue
		}
		result[filepath.Base(path)] = value
	}
	return result
}

func readDs18b20(devicePath string) (float64, error) {
	data, err := os.ReadFile(filepath.Join(devicePath, "w1_slave"))
	if err != nil {
		return 0, err
	}
	return ParseW1Slave(string(data))
}

// ParseW1Slave extracts the temperature from the content of a w1_slave file:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func ParseW1Slave(content string) (float64, error) {
	for _, line := range strings.Split(content, "\n") {
		_, raw, found := strings.Cut(line, "t=")
		if !found {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid w1 temperature %q: %w", raw, err)
		}
		return value / 1000.0, nil
	}
	return 0, fmt.Errorf("no temperature in w1_slave output")
}

func Ds18b20DefaultName(busId string) string {
	return fmt.Sprintf("DS18B20 %s", busId)
}
