package calibration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hydrox/hydrox/internal/controller"
	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCalibrating Phase = "calibrating"
	PhaseRestoring   Phase = "restoring"
	PhaseComplete    Phase = "complete"

	DefaultDuration        = 10 * time.Second
	DefaultGrace           = 5 * time.Second
	DefaultFallbackPercent = 20
)

type Status struct {
	Running          bool       `json:"running"`
	Phase            Phase      `json:"phase"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	RestoreStartedAt *time.Time `json:"restoreStartedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	RemainingSeconds int        `json:"remainingSeconds"`
}

type Store interface {
	controller.ProfileSource
	ListChannels() ([]fans.Channel, error)
	SaveChannelMaxRpm(index int, rpm int) error
}

type RpmReader interface {
	ReadRpms() (map[int]int, error)
}

// Commander runs batches of speed commands exclusively
type Commander interface {
	Exclusive(fn func(send controller.SendFunc))
}

type Config struct {
	Duration        time.Duration
	Grace           time.Duration
	FallbackPercent int
}

// Calibrator measures the maximum rpm of every active channel by running
// all of them at full speed, then hands control back to the active profile.
type Calibrator struct {
	config    Config
	store     Store
	rpms      RpmReader
	commander Commander
	engine    *controller.Engine
	cpu       sensors.CpuTemperatureReader

	now   func() time.Time
	sleep func(time.Duration)

	mu     sync.Mutex
	status Status
	done   chan struct{}
}

func NewCalibrator(config Config, store Store, rpms RpmReader, commander Commander, engine *controller.Engine, cpu sensors.CpuTemperatureReader) *Calibrator {
	if config.Duration <= 0 {
		config.Duration = DefaultDuration
	}
	if config.Grace < 0 {
		config.Grace = DefaultGrace
	}
	if config.FallbackPercent < fans.MinPercent || config.FallbackPercent > fans.MaxPercent {
		config.FallbackPercent = DefaultFallbackPercent
	}
	return &Calibrator{
		config:    config,
		store:     store,
		rpms:      rpms,
		commander: commander,
		engine:    engine,
		cpu:       cpu,
		now:       time.Now,
		sleep:     time.Sleep,
		status:    Status{Phase: PhaseIdle},
	}
}

// Start begins a calibration run. If a run is already in progress its
// status is returned and false indicates that no new run was started.
func (c *Calibrator) Start() (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Running {
		return c.statusLocked(), false
	}

	now := c.now()
	c.status = Status{
		Running:   true,
		Phase:     PhaseCalibrating,
		StartedAt: &now,
	}
	c.done = make(chan struct{})
	go c.run(c.done)

	return c.statusLocked(), true
}

// Status returns the state of the current or last calibration run
func (c *Calibrator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// IsRunning reports whether a calibration run is in progress
func (c *Calibrator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Running
}

// Wait blocks until the current run has finished or ctx is done
func (c *Calibrator) Wait(ctx context.Context) Status {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	return c.Status()
}

func (c *Calibrator) statusLocked() Status {
	status := c.status
	status.RemainingSeconds = 0
	if status.Running && status.StartedAt != nil {
		total := c.config.Duration + c.config.Grace
		remaining := total - c.now().Sub(*status.StartedAt)
		if remaining > 0 {
			status.RemainingSeconds = int(remaining / time.Second)
		}
	}
	return status
}

func (c *Calibrator) setPhase(phase Phase) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.status.Phase = phase
	switch phase {
	case PhaseRestoring:
		c.status.RestoreStartedAt = &now
	case PhaseComplete:
		c.status.CompletedAt = &now
		c.status.Running = false
	}
	return now
}

func (c *Calibrator) run(done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			ui.Error("Calibration failed: %v", r)
			c.setPhase(PhaseComplete)
		}
	}()

	channels, err := c.activeChannels()
	if err != nil {
		ui.Error("Unable to load channels for calibration: %v", err)
	}

	ui.Info("Calibrating %d channels...", len(channels))
	c.commander.Exclusive(func(send controller.SendFunc) {
		for _, channel := range channels {
			if err := send(channel.Index, fans.MaxPercent); err != nil {
				ui.Warning("Unable to set channel %d to full speed: %v", channel.Index, err)
			}
		}
	})
	c.sleep(c.config.Duration)

	c.measure(channels)

	c.setPhase(PhaseRestoring)
	c.restore(channels)
	c.sleep(c.config.Grace)

	c.setPhase(PhaseComplete)
	ui.Success("Calibration complete")
}

func (c *Calibrator) measure(channels []fans.Channel) {
	rpms, err := c.rpms.ReadRpms()
	if err != nil {
		ui.Error("Unable to read rpm after calibration: %v", err)
	}
	for _, channel := range channels {
		rpm, ok := rpms[channel.Index]
		if !ok || rpm <= 0 {
			ui.Warning("No rpm measured for channel %d, max rpm left unset", channel.Index)
			continue
		}
		if err := c.store.SaveChannelMaxRpm(channel.Index, rpm); err != nil {
			ui.Error("Unable to save max rpm of channel %d: %v", channel.Index, err)
			continue
		}
		ui.Info("Channel %d: max rpm %d", channel.Index, rpm)
	}
}

func (c *Calibrator) restore(channels []fans.Channel) {
	targets, err := c.profileTargets()
	if err != nil {
		ui.Warning("Restoring fallback speed of %d%%: %v", c.config.FallbackPercent, err)
		targets = map[int]int{}
		for _, channel := range channels {
			targets[channel.Index] = c.config.FallbackPercent
		}
	}

	c.commander.Exclusive(func(send controller.SendFunc) {
		for _, channel := range util.SortedKeys(targets) {
			if err := send(channel, targets[channel]); err != nil {
				ui.Warning("Unable to restore channel %d: %v", channel, err)
			}
		}
	})
}

func (c *Calibrator) profileTargets() (map[int]int, error) {
	profile, err := controller.LoadActiveProfile(c.store)
	if err != nil {
		return nil, err
	}
	if _, err := c.cpu.GetCpuTemperature(); err != nil {
		return nil, errors.New("cpu temperature unreadable")
	}
	return c.engine.ComputeTargets(profile)
}

func (c *Calibrator) activeChannels() ([]fans.Channel, error) {
	channels, err := c.store.ListChannels()
	if err != nil {
		return nil, err
	}
	var result []fans.Channel
	for _, channel := range channels {
		if channel.Active {
			result = append(result, channel)
		}
	}
	return result, nil
}
