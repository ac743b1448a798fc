package statistics

import (
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemSensor = "sensor"

type SensorSource interface {
	ListSensors() ([]sensors.Sensor, error)
	LatestReadings(kind string) (map[string]persistence.Reading, error)
}

type SensorCollector struct {
	store SensorSource
	value *prometheus.Desc
}

func NewSensorCollector(store SensorSource) *SensorCollector {
	return &SensorCollector{
		store: store,
		value: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "value"),
			"Latest temperature of the sensor in degrees celsius",
			[]string{"id", "kind", "name"}, nil,
		),
	}
}

func (collector *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.value
}

// Collect implements required collect function for all prometheus collectors
func (collector *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	if cpu, err := collector.store.LatestReadings(persistence.KindCpu); err == nil {
		if reading, ok := cpu[sensors.CpuSensorId]; ok {
			ch <- prometheus.MustNewConstMetric(collector.value, prometheus.GaugeValue, reading.Value, sensors.CpuSensorId, sensors.KindCpu, "CPU")
		}
	}

	known, err := collector.store.ListSensors()
	if err != nil {
		return
	}
	readings, err := collector.store.LatestReadings(persistence.KindSensor)
	if err != nil {
		return
	}
	for _, sensor := range known {
		reading, ok := readings[sensor.LogicalId()]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(collector.value, prometheus.GaugeValue, reading.Value, sensor.LogicalId(), sensor.Kind, sensor.Name)
	}
}
