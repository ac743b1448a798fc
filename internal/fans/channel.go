package fans

import (
	"fmt"

	"github.com/hydrox/hydrox/internal/util"
)

const (
	MinPercent = 0
	MaxPercent = 100

	DefaultChannelCount = 7
)

// Channel is a single fan (or pump) output of the hardware controller
type Channel struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	DefaultName string `json:"defaultName"`
	Active      bool   `json:"active"`
	// MaxRpm is the rpm measured at 100% during calibration, nil if never calibrated
	MaxRpm *int `json:"maxRpm,omitempty"`
}

func DefaultChannelName(index int) string {
	return fmt.Sprintf("Fan %d", index)
}

// HasMaxRpm indicates whether the channel has been calibrated
func (c Channel) HasMaxRpm() bool {
	return c.MaxRpm != nil && *c.MaxRpm > 0
}

// FanRpmForPercent maps a percent value linearly onto [0, maxRpm]
func FanRpmForPercent(percent float64, maxRpm int) int {
	return util.RoundToInt(float64(maxRpm) * percent / 100)
}

// FanPercentForRpm is the inverse of FanRpmForPercent, clamped to [0..100]
func FanPercentForRpm(rpm int, maxRpm int) int {
	if maxRpm <= 0 {
		return MinPercent
	}
	return util.RoundToInt(util.ClampPercent(float64(rpm) / float64(maxRpm) * 100))
}
