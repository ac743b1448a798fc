package configuration

import "time"

type LiquidctlConfig struct {
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

type SensorsConfig struct {
	PollingRate time.Duration `json:"pollingRate"`
	// DiscoveryEvery is the number of sampler iterations between two 1-wire bus scans
	DiscoveryEvery int `json:"discoveryEvery"`
}

type ChannelsConfig struct {
	PollingRate          time.Duration `json:"pollingRate"`
	RpmRollingWindowSize int           `json:"rpmRollingWindowSize"`
}

type ControllerConfig struct {
	NoProfileRetry time.Duration `json:"noProfileRetry"`
	// MaxReadingAge is the age after which a stored sensor reading no longer counts as current
	MaxReadingAge time.Duration `json:"maxReadingAge"`
	// BoundsCheckCpu applies sensor_min_c/sensor_max_c to cpu rules as well
	BoundsCheckCpu bool `json:"boundsCheckCpu"`
}

type CalibrationConfig struct {
	Duration        time.Duration `json:"duration"`
	Grace           time.Duration `json:"grace"`
	FallbackPercent int           `json:"fallbackPercent"`
}

type PersistenceConfig struct {
	Retention int `json:"retention"`
}
