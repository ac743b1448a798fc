// Package sampler periodically records sensor and actuator telemetry.
package sampler

import (
	"context"
	"time"

	"github.com/hydrox/hydrox/internal/sensors"
)

const DefaultPollingRate = 5 * time.Second

type ReadingStore interface {
	InsertReading(kind string, id string, value float64) error
}

type SensorStore interface {
	ReadingStore
	RegisterSensor(kind string, sourceId string, defaultName string) (sensors.Sensor, bool, error)
	ListSensors() ([]sensors.Sensor, error)
}

// runPeriodic calls fn immediately and then once per rate until ctx is done
func runPeriodic(ctx context.Context, rate time.Duration, fn func()) error {
	if rate <= 0 {
		rate = DefaultPollingRate
	}
	fn()

	tick := time.NewTicker(rate)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			fn()
		}
	}
}
