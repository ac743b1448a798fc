package sampler

import (
	"context"
	"time"

	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
)

// CpuSampler records the cpu temperature
type CpuSampler struct {
	cpu    sensors.CpuTemperatureReader
	store  ReadingStore
	rate   time.Duration
	errors *ui.OnceLogger
}

func NewCpuSampler(cpu sensors.CpuTemperatureReader, store ReadingStore, rate time.Duration) *CpuSampler {
	return &CpuSampler{
		cpu:    cpu,
		store:  store,
		rate:   rate,
		errors: ui.NewOnceLogger(),
	}
}

func (s *CpuSampler) Run(ctx context.Context) error {
	ui.Info("Starting cpu sampler")
	return runPeriodic(ctx, s.rate, s.Sample)
}

func (s *CpuSampler) Sample() {
	temp, err := s.cpu.GetCpuTemperature()
	if err != nil {
		s.errors.Warning("read", "Unable to read cpu temperature: %v", err)
		return
	}
	s.errors.Resolve("read", "CPU temperature readable again")

	if err = s.store.InsertReading(persistence.KindCpu, sensors.CpuSensorId, temp); err != nil {
		s.errors.Error("store", "Unable to store cpu temperature: %v", err)
		return
	}
	s.errors.Resolve("store", "")
}
