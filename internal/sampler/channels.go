package sampler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

const (
	DefaultRpmRollingWindowSize = 10

	CpuFanId = "cpu_fan"
)

type RpmReader interface {
	ReadRpms() (map[int]int, error)
}

type CpuFanReader interface {
	GetRpm() (int, error)
}

// ChannelSampler records the measured rpm of all controller channels and
// the board's own cooling fan.
type ChannelSampler struct {
	rpms       RpmReader
	cpuFan     CpuFanReader
	store      ReadingStore
	rate       time.Duration
	windowSize int
	errors     *ui.OnceLogger

	mu      sync.RWMutex
	windows map[int]*rolling.PointPolicy
	cpuRpm  *int
}

func NewChannelSampler(rpms RpmReader, cpuFan CpuFanReader, store ReadingStore, rate time.Duration, windowSize int) *ChannelSampler {
	if windowSize <= 0 {
		windowSize = DefaultRpmRollingWindowSize
	}
	return &ChannelSampler{
		rpms:       rpms,
		cpuFan:     cpuFan,
		store:      store,
		rate:       rate,
		windowSize: windowSize,
		errors:     ui.NewOnceLogger(),
		windows:    map[int]*rolling.PointPolicy{},
	}
}

func (s *ChannelSampler) Run(ctx context.Context) error {
	ui.Info("Starting channel sampler")
	return runPeriodic(ctx, s.rate, s.Sample)
}

func (s *ChannelSampler) Sample() {
	rpms, err := s.rpms.ReadRpms()
	if err != nil {
		ui.Debug("Unable to read channel rpms: %v", err)
	}
	for _, channel := range util.SortedKeys(rpms) {
		rpm := rpms[channel]
		s.appendRpm(channel, rpm)
		if err := s.store.InsertReading(persistence.KindChannel, strconv.Itoa(channel), float64(rpm)); err != nil {
			s.errors.Error("store", "Unable to store channel rpm: %v", err)
		}
	}

	if s.cpuFan == nil {
		return
	}
	cpuRpm, err := s.cpuFan.GetRpm()
	if err != nil {
		s.errors.Error("cpu_fan", "%v", err)
		return
	}
	s.errors.Resolve("cpu_fan", "CPU fan rpm found")
	s.mu.Lock()
	s.cpuRpm = &cpuRpm
	s.mu.Unlock()
	if err := s.store.InsertReading(persistence.KindCpuFan, CpuFanId, float64(cpuRpm)); err != nil {
		s.errors.Error("store", "Unable to store cpu fan rpm: %v", err)
	}
}

func (s *ChannelSampler) appendRpm(channel int, rpm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window, ok := s.windows[channel]
	if !ok {
		window = util.CreateRollingWindow(s.windowSize)
		s.windows[channel] = window
	}
	window.Append(float64(rpm))
}

// AverageRpm returns the moving average of the measured rpm of a channel
func (s *ChannelSampler) AverageRpm(channel int) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window, ok := s.windows[channel]
	if !ok {
		return 0, false
	}
	return util.GetWindowAvg(window), true
}

// MaxRpm returns the highest rpm of a channel within the moving window
func (s *ChannelSampler) MaxRpm(channel int) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window, ok := s.windows[channel]
	if !ok {
		return 0, false
	}
	return util.GetWindowMax(window), true
}

// Channels returns all channels that reported an rpm so far
func (s *ChannelSampler) Channels() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return util.SortedKeys(s.windows)
}

// CpuFanRpm returns the last measured rpm of the board fan
func (s *ChannelSampler) CpuFanRpm() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cpuRpm == nil {
		return 0, false
	}
	return *s.cpuRpm, true
}
