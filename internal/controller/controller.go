package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

const DefaultNoProfileRetry = 5 * time.Second

// Inhibitor pauses the control loop, e.g. while a calibration is running
type Inhibitor interface {
	IsRunning() bool
}

// Statistics of the control loop since start
type Statistics struct {
	Cycles         int64     `json:"cycles"`
	FailedCycles   int64     `json:"failedCycles"`
	Commands       int64     `json:"commands"`
	FailedCommands int64     `json:"failedCommands"`
	SkippedCycles  int64     `json:"skippedCycles"`
	ActiveProfile  int       `json:"activeProfile"`
	LastCycle      time.Time `json:"lastCycle"`
}

// Loop periodically evaluates the active profile and commands the results
type Loop struct {
	store          ProfileSource
	engine         *Engine
	commander      *Commander
	inhibitor      Inhibitor
	noProfileRetry time.Duration
	errors         *ui.OnceLogger

	mu    sync.Mutex
	stats Statistics
}

func NewLoop(store ProfileSource, engine *Engine, commander *Commander, inhibitor Inhibitor, noProfileRetry time.Duration) *Loop {
	if noProfileRetry <= 0 {
		noProfileRetry = DefaultNoProfileRetry
	}
	return &Loop{
		store:          store,
		engine:         engine,
		commander:      commander,
		inhibitor:      inhibitor,
		noProfileRetry: noProfileRetry,
		errors:         ui.NewOnceLogger(),
	}
}

// Run executes control cycles until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	ui.Info("Starting control loop")
	for {
		delay := l.RunCycle()

		select {
		case <-ctx.Done():
			ui.Info("Stopping control loop")
			return nil
		case <-time.After(delay):
		}
	}
}

// RunCycle runs a single control cycle and returns the time to wait
// until the next one. It never panics.
func (l *Loop) RunCycle() (delay time.Duration) {
	delay = l.noProfileRetry

	if l.inhibited() {
		l.update(func(s *Statistics) { s.SkippedCycles++ })
		return delay
	}

	profile, err := LoadActiveProfile(l.store)
	if err != nil {
		if errors.Is(err, ErrNoActiveProfile) {
			l.errors.Warning("profile", "No active profile, waiting...")
		} else {
			l.errors.Error("profile", "Unable to load active profile: %v", err)
		}
		l.update(func(s *Statistics) { s.ActiveProfile = 0 })
		return delay
	}
	l.errors.Resolve("profile", "Using profile '%s'", profile.Name)

	delay = profile.Settings.Cadence()

	err = util.Recover(func() error {
		return l.apply(profile.ID, func() (map[int]int, error) {
			return l.engine.ComputeTargets(profile)
		})
	})
	l.update(func(s *Statistics) {
		s.Cycles++
		s.ActiveProfile = profile.ID
		s.LastCycle = time.Now()
		if err != nil {
			s.FailedCycles++
		}
	})
	if err != nil {
		ui.Error("Control cycle failed: %v", err)
	}
	return delay
}

// apply commands the computed targets under the actuation lock. A
// calibration started or an override set while the targets were computed
// is honored for every command not yet sent.
func (l *Loop) apply(profileId int, compute func() (map[int]int, error)) error {
	targets, err := compute()
	if err != nil {
		return fmt.Errorf("compute targets of profile %d: %w", profileId, err)
	}

	l.commander.Exclusive(func(send SendFunc) {
		for _, channel := range sortedChannels(targets) {
			if l.inhibited() {
				ui.Debug("Calibration started, dropping remaining commands of this cycle")
				l.update(func(s *Statistics) { s.SkippedCycles++ })
				return
			}
			if l.engine.isOverridden(channel) {
				continue
			}

			percent := targets[channel]
			key := fmt.Sprintf("channel:%d", channel)
			err := send(channel, percent)
			l.update(func(s *Statistics) {
				s.Commands++
				if err != nil {
					s.FailedCommands++
				}
			})
			if err != nil {
				l.errors.Error(key, "%v", err)
				continue
			}
			l.errors.Resolve(key, "")
			ui.Debug("Channel %d set to %d%%", channel, percent)
		}
	})
	return nil
}

func (l *Loop) inhibited() bool {
	return l.inhibitor != nil && l.inhibitor.IsRunning()
}

func (l *Loop) update(fn func(s *Statistics)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.stats)
}

func (l *Loop) Statistics() Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func sortedChannels(targets map[int]int) []int {
	return util.SortedKeys(targets)
}
