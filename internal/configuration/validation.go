package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hydrox/hydrox/internal/fans"
)

func Validate(config *Configuration) error {
	if len(strings.TrimSpace(config.DbPath)) <= 0 {
		return errors.New("dbPath must not be empty")
	}
	if config.FanCount < 1 {
		return fmt.Errorf("fanCount must be at least 1, was %d", config.FanCount)
	}
	if config.PumpChannel < 0 || config.PumpChannel > config.FanCount {
		return fmt.Errorf("pumpChannel %d is not within 0..%d", config.PumpChannel, config.FanCount)
	}
	if config.Liquidctl.Timeout <= 0 {
		return errors.New("liquidctl.timeout must be positive")
	}

	if config.Sensors.PollingRate <= 0 {
		return errors.New("sensors.pollingRate must be positive")
	}
	if config.Sensors.DiscoveryEvery < 1 {
		return errors.New("sensors.discoveryEvery must be at least 1")
	}
	if config.Channels.PollingRate <= 0 {
		return errors.New("channels.pollingRate must be positive")
	}
	if config.Channels.RpmRollingWindowSize < 1 {
		return errors.New("channels.rpmRollingWindowSize must be at least 1")
	}

	if config.Controller.NoProfileRetry <= 0 {
		return errors.New("controller.noProfileRetry must be positive")
	}
	if config.Controller.MaxReadingAge < 0 {
		return errors.New("controller.maxReadingAge must not be negative")
	}

	if config.Calibration.Duration <= 0 {
		return errors.New("calibration.duration must be positive")
	}
	if config.Calibration.Grace < 0 {
		return errors.New("calibration.grace must not be negative")
	}
	if config.Calibration.FallbackPercent < fans.MinPercent || config.Calibration.FallbackPercent > fans.MaxPercent {
		return fmt.Errorf("calibration.fallbackPercent %d is not within %d..%d", config.Calibration.FallbackPercent, fans.MinPercent, fans.MaxPercent)
	}

	if config.Persistence.Retention < 1 {
		return errors.New("persistence.retention must be at least 1")
	}

	if config.Api.Enabled && (config.Api.Port <= 0 || config.Api.Port > 65535) {
		return fmt.Errorf("api.port %d is invalid", config.Api.Port)
	}
	if config.Statistics.Enabled && (config.Statistics.Port <= 0 || config.Statistics.Port > 65535) {
		return fmt.Errorf("statistics.port %d is invalid", config.Statistics.Port)
	}
	if config.Api.Enabled && config.Statistics.Enabled && config.Api.Port == config.Statistics.Port {
		return fmt.Errorf("api and statistics cannot share port %d", config.Api.Port)
	}
	return nil
}

// PumpChannelPtr returns the configured pump channel, nil if there is none
func (c Configuration) PumpChannelPtr() *int {
	if c.PumpChannel <= 0 {
		return nil
	}
	pump := c.PumpChannel
	return &pump
}
