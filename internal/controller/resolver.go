package controller

import (
	"time"

	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

type ReadingSource interface {
	LatestReadings(kind string) (map[string]persistence.Reading, error)
}

// Resolver provides the (smoothed) current value of every logical sensor
type Resolver struct {
	cpu      sensors.CpuTemperatureReader
	readings ReadingSource
	maxAge   time.Duration
	history  *util.TimedWindows[string]
	errors   *ui.OnceLogger
	now      func() time.Time
}

// NewResolver creates a resolver reading the cpu temperature directly and
// all other sensors from their latest stored reading. Readings older than
// maxAge are ignored, maxAge <= 0 accepts readings of any age.
func NewResolver(cpu sensors.CpuTemperatureReader, readings ReadingSource, maxAge time.Duration) *Resolver {
	return &Resolver{
		cpu:      cpu,
		readings: readings,
		maxAge:   maxAge,
		history:  util.NewTimedWindows[string](),
		errors:   ui.NewOnceLogger(),
		now:      time.Now,
	}
}

// Values returns the current value of every sensor that has one,
// smoothed over the given window.
func (r *Resolver) Values(window time.Duration) map[string]float64 {
	now := r.now()
	values := map[string]float64{}

	cpuTemp, err := r.cpu.GetCpuTemperature()
	if err != nil {
		r.errors.Warning("cpu", "Unable to read cpu temperature: %v", err)
	} else {
		r.errors.Resolve("cpu", "CPU temperature available again")
		values[sensors.CpuSensorId] = r.history.Smooth(sensors.CpuSensorId, cpuTemp, window, now)
	}

	readings, err := r.readings.LatestReadings(persistence.KindSensor)
	if err != nil {
		r.errors.Warning("readings", "Unable to load sensor readings: %v", err)
		return values
	}
	r.errors.Resolve("readings", "")

	for _, id := range util.SortedKeys(readings) {
		reading := readings[id]
		if r.maxAge > 0 && now.Sub(reading.Timestamp) > r.maxAge {
			continue
		}
		values[id] = r.history.Smooth(id, reading.Value, window, now)
	}
	return values
}

// Resolve looks up the value of sensorId, consulting the fallback map of the
// settings once if the sensor has no current value.
func Resolve(sensorId string, values map[string]float64, settings profiles.Settings) (float64, bool) {
	if value, ok := values[sensorId]; ok {
		return value, true
	}
	fallback, ok := settings.Fallback(sensorId)
	if !ok {
		return 0, false
	}
	value, ok := values[fallback]
	return value, ok
}
