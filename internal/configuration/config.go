package configuration

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hydrox/hydrox/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

type Configuration struct {
	DbPath string `json:"dbPath"`

	// FanCount is the number of active channels, applied to the store on every start
	FanCount int `json:"fanCount"`
	// PumpChannel designates the channel driving the pump, 0 means no pump
	PumpChannel int `json:"pumpChannel"`

	Liquidctl   LiquidctlConfig   `json:"liquidctl"`
	Sensors     SensorsConfig     `json:"sensors"`
	Channels    ChannelsConfig    `json:"channels"`
	Controller  ControllerConfig  `json:"controller"`
	Calibration CalibrationConfig `json:"calibration"`
	Persistence PersistenceConfig `json:"persistence"`

	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("hydrox")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/hydrox/")
	}

	viper.SetEnvPrefix("hydrox")
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbPath", "/data/hydrox.db")
	viper.SetDefault("fanCount", 7)
	viper.SetDefault("pumpChannel", 0)

	viper.SetDefault("liquidctl.path", "/root/.local/bin/liquidctl")
	viper.SetDefault("liquidctl.timeout", 5*time.Second)

	viper.SetDefault("sensors.pollingRate", 5*time.Second)
	viper.SetDefault("sensors.discoveryEvery", 12)

	viper.SetDefault("channels.pollingRate", 5*time.Second)
	viper.SetDefault("channels.rpmRollingWindowSize", 10)

	viper.SetDefault("controller.noProfileRetry", 5*time.Second)
	viper.SetDefault("controller.maxReadingAge", 30*time.Second)
	viper.SetDefault("controller.boundsCheckCpu", false)

	viper.SetDefault("calibration.duration", 10*time.Second)
	viper.SetDefault("calibration.grace", 5*time.Second)
	viper.SetDefault("calibration.fallbackPercent", 20)

	viper.SetDefault("persistence.retention", 20000)

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)
}

// ReadConfigFile loads the config file if there is one, defaults apply otherwise.
// An invalid configuration is fatal.
func ReadConfigFile() {
	if err := ReadAndValidate(); err != nil {
		ui.Fatal("Invalid configuration: %v", err)
	}
}

// ReadAndValidate loads the config file like ReadConfigFile, but returns validation errors
func ReadAndValidate() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		ui.Info("No configuration file found, using defaults")
	} else {
		// this is only populated _after_ ReadInConfig()
		ui.Info("Using configuration file at: %s", viper.ConfigFileUsed())
	}

	LoadConfig()
	return Validate(&CurrentConfig)
}

func LoadConfig() {
	err := viper.Unmarshal(&CurrentConfig)
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
