package configuration

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) Configuration {
	viper.Reset()
	setDefaultValues()
	var config Configuration
	require.NoError(t, viper.Unmarshal(&config))
	return config
}

func TestDefaults(t *testing.T) {
	// WHEN
	config := defaultConfig(t)

	// THEN
	assert.Equal(t, "/data/hydrox.db", config.DbPath)
	assert.Equal(t, 7, config.FanCount)
	assert.Equal(t, 5*time.Second, config.Liquidctl.Timeout)
	assert.Equal(t, 12, config.Sensors.DiscoveryEvery)
	assert.Equal(t, 10, config.Channels.RpmRollingWindowSize)
	assert.Equal(t, 30*time.Second, config.Controller.MaxReadingAge)
	assert.Equal(t, 10*time.Second, config.Calibration.Duration)
	assert.Equal(t, 5*time.Second, config.Calibration.Grace)
	assert.Equal(t, 20, config.Calibration.FallbackPercent)
	assert.Equal(t, 20000, config.Persistence.Retention)
	assert.True(t, config.Api.Enabled)
	assert.Equal(t, 8080, config.Api.Port)
	assert.Nil(t, config.PumpChannelPtr())
	assert.NoError(t, Validate(&config))
}

func TestValidate_PumpChannel(t *testing.T) {
	// GIVEN
	config := defaultConfig(t)
	config.PumpChannel = 8

	// WHEN
	err := Validate(&config)

	// THEN
	assert.EqualError(t, err, "pumpChannel 8 is not within 0..7")

	config.PumpChannel = 2
	assert.NoError(t, Validate(&config))
	assert.Equal(t, 2, *config.PumpChannelPtr())
}

func TestValidate_Invalid(t *testing.T) {
	for name, modify := range map[string]func(c *Configuration){
		"empty db path":     func(c *Configuration) { c.DbPath = "" },
		"no fans":           func(c *Configuration) { c.FanCount = 0 },
		"no timeout":        func(c *Configuration) { c.Liquidctl.Timeout = 0 },
		"sensor rate":       func(c *Configuration) { c.Sensors.PollingRate = 0 },
		"discovery":         func(c *Configuration) { c.Sensors.DiscoveryEvery = 0 },
		"channel rate":      func(c *Configuration) { c.Channels.PollingRate = -time.Second },
		"rolling window":    func(c *Configuration) { c.Channels.RpmRollingWindowSize = 0 },
		"retry":             func(c *Configuration) { c.Controller.NoProfileRetry = 0 },
		"reading age":       func(c *Configuration) { c.Controller.MaxReadingAge = -1 },
		"calibration":       func(c *Configuration) { c.Calibration.Duration = 0 },
		"grace":             func(c *Configuration) { c.Calibration.Grace = -time.Second },
		"fallback percent":  func(c *Configuration) { c.Calibration.FallbackPercent = 101 },
		"retention":         func(c *Configuration) { c.Persistence.Retention = 0 },
		"api port":          func(c *Configuration) { c.Api.Port = 70000 },
		"statistics port":   func(c *Configuration) { c.Statistics.Enabled = true; c.Statistics.Port = 0 },
		"shared ports":      func(c *Configuration) { c.Statistics.Enabled = true; c.Statistics.Port = c.Api.Port },
	} {
		t.Run(name, func(t *testing.T) {
			// GIVEN
			config := defaultConfig(t)
			modify(&config)

			// WHEN
			err := Validate(&config)

			// THEN
			assert.Error(t, err)
		})
	}
}
