package sampler

import (
	"context"
	"time"

	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

const DefaultDiscoveryEvery = 12

type ProbeBus interface {
	Discover() []string
	ReadAll() map[string]float64
}

type LiquidTempReader interface {
	ReadTemps() ([]float64, error)
}

// SensorSampler records the 1-wire probes and the liquid temperatures
// reported by the controller. New probes are picked up every
// discoveryEvery iterations.
type SensorSampler struct {
	bus            ProbeBus
	liquid         LiquidTempReader
	store          SensorStore
	rate           time.Duration
	discoveryEvery int
	errors         *ui.OnceLogger

	loops int
}

func NewSensorSampler(bus ProbeBus, liquid LiquidTempReader, store SensorStore, rate time.Duration, discoveryEvery int) *SensorSampler {
	if discoveryEvery <= 0 {
		discoveryEvery = DefaultDiscoveryEvery
	}
	return &SensorSampler{
		bus:            bus,
		liquid:         liquid,
		store:          store,
		rate:           rate,
		discoveryEvery: discoveryEvery,
		errors:         ui.NewOnceLogger(),
	}
}

// Seed registers the liquid probes and every currently attached 1-wire probe
func (s *SensorSampler) Seed() error {
	for i := 1; i <= sensors.MaxLiquidProbes; i++ {
		_, created, err := s.store.RegisterSensor(sensors.KindLiquidctl, sensors.LiquidSourceId(i), sensors.LiquidDefaultName(i))
		if err != nil {
			return err
		}
		if created {
			ui.Info("Registered sensor %s", sensors.LiquidDefaultName(i))
		}
	}
	return s.Discover()
}

// Discover registers 1-wire probes that are not known yet
func (s *SensorSampler) Discover() error {
	for _, busId := range s.bus.Discover() {
		_, created, err := s.store.RegisterSensor(sensors.KindDs18b20, busId, sensors.Ds18b20DefaultName(busId))
		if err != nil {
			return err
		}
		if created {
			ui.Info("Discovered new DS18B20 probe %s", busId)
		}
	}
	return nil
}

func (s *SensorSampler) Run(ctx context.Context) error {
	ui.Info("Starting sensor sampler")
	return runPeriodic(ctx, s.rate, s.Sample)
}

func (s *SensorSampler) Sample() {
	if s.loops%s.discoveryEvery == 0 {
		if err := s.Discover(); err != nil {
			s.errors.Error("discover", "Unable to register sensors: %v", err)
		} else {
			s.errors.Resolve("discover", "")
		}
	}
	s.loops++

	var liquid map[string]float64
	if s.liquid != nil {
		temps, err := s.liquid.ReadTemps()
		if err != nil {
			ui.Debug("No liquid temperatures: %v", err)
		}
		liquid = sensors.MapLiquidTemps(temps)
	}
	probes := s.bus.ReadAll()

	s.storeReadings(sensors.KindLiquidctl, liquid)
	s.storeReadings(sensors.KindDs18b20, probes)
}

func (s *SensorSampler) storeReadings(kind string, readings map[string]float64) {
	if len(readings) <= 0 {
		return
	}
	known, err := s.store.ListSensors()
	if err != nil {
		s.errors.Error("list", "Unable to list sensors: %v", err)
		return
	}
	ids := map[string]int{}
	for _, sensor := range known {
		if sensor.Kind == kind {
			ids[sensor.SourceId] = sensor.ID
		}
	}

	for _, sourceId := range util.SortedKeys(readings) {
		id, ok := ids[sourceId]
		if !ok {
			continue
		}
		if err := s.store.InsertReading(persistence.KindSensor, sensors.LogicalId(id), readings[sourceId]); err != nil {
			s.errors.Error("store", "Unable to store sensor reading: %v", err)
		}
	}
}
