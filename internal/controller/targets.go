package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

type ChannelSource interface {
	ListChannels() ([]fans.Channel, error)
	LoadSystemSettings() (persistence.SystemSettings, error)
}

type ProfileSource interface {
	LoadSystemSettings() (persistence.SystemSettings, error)
	LoadProfile(id int) (persistence.ProfileRecord, error)
}

type Overrides interface {
	IsOverridden(channel int) bool
}

// ErrNoActiveProfile is returned when no profile is selected
var ErrNoActiveProfile = errors.New("no active profile")

// Engine evaluates a profile into per channel speed targets
type Engine struct {
	resolver       *Resolver
	channels       ChannelSource
	overrides      Overrides
	state          *ActuatorState
	pump           fans.PumpCurve
	outputs        *util.TimedWindows[int]
	boundsCheckCpu bool
	now            func() time.Time
}

func NewEngine(resolver *Resolver, channels ChannelSource, overrides Overrides, state *ActuatorState, boundsCheckCpu bool) *Engine {
	return &Engine{
		resolver:       resolver,
		channels:       channels,
		overrides:      overrides,
		state:          state,
		pump:           fans.DefaultPumpCurve,
		outputs:        util.NewTimedWindows[int](),
		boundsCheckCpu: boundsCheckCpu,
		now:            time.Now,
	}
}

type channelInfo struct {
	channel fans.Channel
	isPump  bool
}

// ComputeTargets returns the percent to command for every channel that
// should be changed this cycle. Channels without a target are absent.
func (e *Engine) ComputeTargets(profile profiles.Profile) (map[int]int, error) {
	settings := profile.Settings

	channels, err := e.activeChannels()
	if err != nil {
		return nil, err
	}

	values := e.resolver.Values(settings.SensorWindow())
	now := e.now()

	targets := map[int]int{}
	for _, rule := range profile.Rules {
		value, ok := Resolve(rule.SensorId, values, settings)
		if !ok {
			ui.Debug("No value for sensor %s, skipping rule", rule.SensorId)
			continue
		}
		if (!rule.IsCpu() || e.boundsCheckCpu) && settings.OutOfRange(value) {
			ui.Debug("Sensor %s value %.1f is out of range, skipping rule", rule.SensorId, value)
			continue
		}
		percent, ok := rule.Curve().Evaluate(value)
		if !ok {
			continue
		}

		for _, index := range rule.Channels {
			info, ok := channels[index]
			if !ok {
				continue
			}
			if e.isOverridden(index) {
				continue
			}

			var target int
			if info.isPump {
				target, ok = e.pumpTarget(index, percent, settings, now)
			} else {
				target, ok = e.fanTarget(info.channel, percent, settings, now)
			}
			if ok {
				targets[index] = target
			} else {
				delete(targets, index)
			}
		}
	}
	return targets, nil
}

// TargetFor computes the target of a single channel for the given profile
func (e *Engine) TargetFor(profile profiles.Profile, channel int) (int, bool, error) {
	targets, err := e.ComputeTargets(profile)
	if err != nil {
		return 0, false, err
	}
	target, ok := targets[channel]
	return target, ok, nil
}

func (e *Engine) isOverridden(channel int) bool {
	return e.overrides != nil && e.overrides.IsOverridden(channel)
}

func (e *Engine) activeChannels() (map[int]channelInfo, error) {
	settings, err := e.channels.LoadSystemSettings()
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("load system settings: %w", err)
	}
	channels, err := e.channels.ListChannels()
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}

	result := map[int]channelInfo{}
	for _, channel := range channels {
		if !channel.Active {
			continue
		}
		result[channel.Index] = channelInfo{
			channel: channel,
			isPump:  settings.IsPump(channel.Index),
		}
	}
	return result, nil
}

func (e *Engine) fanTarget(channel fans.Channel, percent float64, settings profiles.Settings, now time.Time) (int, bool) {
	if !channel.HasMaxRpm() {
		return 0, false
	}
	maxRpm := *channel.MaxRpm

	smoothed := e.outputs.Smooth(channel.Index, util.ClampPercent(percent), settings.FanWindow(), now)
	desiredRpm := fans.FanRpmForPercent(smoothed, maxRpm)

	lastPercent, _ := e.state.LastCommanded(channel.Index)
	currentRpm := fans.FanRpmForPercent(float64(lastPercent), maxRpm)

	limitedRpm := util.RateLimit(currentRpm, desiredRpm, settings.FanRateLimitRpm)
	return fans.FanPercentForRpm(limitedRpm, maxRpm), true
}

func (e *Engine) pumpTarget(index int, percent float64, settings profiles.Settings, now time.Time) (int, bool) {
	smoothed := e.outputs.Smooth(index, util.ClampPercent(percent), settings.PumpWindow(), now)
	desiredRpm := fans.PercentToRpm(util.RoundToInt(smoothed), fans.PumpMaxRpm, fans.PumpMinRpm)

	lastPwm, _ := e.state.LastCommanded(index)
	currentRpm, ok := e.pump.RpmForPwm(lastPwm)
	if !ok {
		currentRpm = 0
	}

	limitedRpm := util.RateLimit(currentRpm, desiredRpm, settings.PumpRateLimitRpm)
	pwm, ok := e.pump.PwmForRpm(limitedRpm)
	if !ok {
		return 0, false
	}
	return util.Coerce(pwm, fans.MinPercent, fans.MaxPercent), true
}

// LoadActiveProfile returns the currently selected profile
func LoadActiveProfile(store ProfileSource) (profiles.Profile, error) {
	settings, err := store.LoadSystemSettings()
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return profiles.Profile{}, fmt.Errorf("load system settings: %w", err)
	}
	if settings.ActiveProfileId == nil {
		return profiles.Profile{}, ErrNoActiveProfile
	}
	record, err := store.LoadProfile(*settings.ActiveProfileId)
	if err != nil {
		return profiles.Profile{}, fmt.Errorf("load profile %d: %w", *settings.ActiveProfileId, err)
	}
	profile, err := profiles.Decode(record.Document)
	if err != nil {
		return profiles.Profile{}, fmt.Errorf("decode profile %d: %w", record.ID, err)
	}
	profile.ID = record.ID
	profile.Name = record.Name
	return profile, nil
}
