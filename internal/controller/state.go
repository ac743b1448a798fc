package controller

import (
	"fmt"
	"sync"

	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

type CommandedStore interface {
	LoadCommanded() (map[int]int, error)
	SaveCommanded(channel int, percent int) error
}

// ActuatorState is the last commanded percent per channel. The hardware
// only reports measured rpm, so this is what rate limiting is relative to.
type ActuatorState struct {
	mu        sync.RWMutex
	store     CommandedStore
	commanded map[int]int
}

// NewActuatorState loads the persisted commanded state, an unreadable
// state starts empty.
func NewActuatorState(store CommandedStore) *ActuatorState {
	commanded, err := store.LoadCommanded()
	if err != nil {
		ui.Warning("Unable to load last commanded speeds: %v", err)
		commanded = map[int]int{}
	}
	return &ActuatorState{
		store:     store,
		commanded: commanded,
	}
}

// LastCommanded returns the last percent successfully sent to the channel
func (s *ActuatorState) LastCommanded(channel int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	percent, ok := s.commanded[channel]
	return percent, ok
}

// Record stores percent as the new commanded value of the channel
func (s *ActuatorState) Record(channel int, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commanded[channel] = percent
	return s.store.SaveCommanded(channel, percent)
}

func (s *ActuatorState) Snapshot() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[int]int, len(s.commanded))
	for channel, percent := range s.commanded {
		result[channel] = percent
	}
	return result
}

type SpeedSetter interface {
	SetSpeed(channel int, percent int) error
}

// SendFunc commands a single channel while the actuation lock is held
type SendFunc func(channel int, percent int) error

// Commander sends speed commands to the hardware and records every
// successful command in the actuator state. Batches of commands are
// serialised by the actuation lock, so a control cycle, a calibration
// and a manual command never interleave.
type Commander struct {
	client SpeedSetter
	state  *ActuatorState

	actuation sync.Mutex
}

func NewCommander(client SpeedSetter, state *ActuatorState) *Commander {
	return &Commander{
		client: client,
		state:  state,
	}
}

// Exclusive runs fn while holding the actuation lock. fn must only
// command through send, calling Command from within fn deadlocks.
func (c *Commander) Exclusive(fn func(send SendFunc)) {
	c.actuation.Lock()
	defer c.actuation.Unlock()
	fn(c.send)
}

// Command sends a single command
func (c *Commander) Command(channel int, percent int) (err error) {
	c.Exclusive(func(send SendFunc) {
		err = send(channel, percent)
	})
	return err
}

func (c *Commander) send(channel int, percent int) error {
	percent = util.Coerce(percent, fans.MinPercent, fans.MaxPercent)
	if err := c.client.SetSpeed(channel, percent); err != nil {
		return fmt.Errorf("set speed of channel %d to %d%%: %w", channel, percent, err)
	}
	if err := c.state.Record(channel, percent); err != nil {
		ui.Warning("Unable to persist commanded speed of channel %d: %v", channel, err)
	}
	return nil
}

func (c *Commander) State() *ActuatorState {
	return c.state
}
