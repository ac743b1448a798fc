package fans

import (
	"sort"

	"github.com/hydrox/hydrox/internal/util"
)

const (
	PumpMinRpm = 800
	PumpMaxRpm = 4800
)

// PumpAnchor is a measured (pwm, rpm) pair of the pump response
type PumpAnchor struct {
	Pwm int
	Rpm int
}

// PumpCurve converts between commanded PWM percent and expected RPM of the pump,
// whose response is not linear.
type PumpCurve struct {
	byPwm []PumpAnchor
	byRpm []PumpAnchor
}

var DefaultPumpCurve = NewPumpCurve([]PumpAnchor{
	{Pwm: 40, Rpm: 1304},
	{Pwm: 50, Rpm: 1820},
	{Pwm: 59, Rpm: 2350},
	{Pwm: 60, Rpm: 2400},
	{Pwm: 70, Rpm: 3020},
	{Pwm: 80, Rpm: 3720},
	{Pwm: 90, Rpm: 4520},
	{Pwm: 100, Rpm: 4790},
})

func NewPumpCurve(anchors []PumpAnchor) PumpCurve {
	byPwm := make([]PumpAnchor, len(anchors))
	copy(byPwm, anchors)
	sort.SliceStable(byPwm, func(i, j int) bool {
		return byPwm[i].Pwm < byPwm[j].Pwm
	})

	byRpm := make([]PumpAnchor, len(anchors))
	copy(byRpm, anchors)
	sort.SliceStable(byRpm, func(i, j int) bool {
		return byRpm[i].Rpm < byRpm[j].Rpm
	})

	return PumpCurve{byPwm: byPwm, byRpm: byRpm}
}

// PwmForRpm returns the PWM percent expected to yield the given RPM.
// Returns false if the curve has no anchors.
func (c PumpCurve) PwmForRpm(targetRpm int) (int, bool) {
	if targetRpm <= 0 {
		return 0, true
	}
	points := c.byRpm
	if len(points) <= 0 {
		return 0, false
	}
	if targetRpm <= points[0].Rpm {
		return points[0].Pwm, true
	}
	last := points[len(points)-1]
	if targetRpm >= last.Rpm {
		return last.Pwm, true
	}
	for i := 0; i < len(points)-1; i++ {
		low := points[i]
		high := points[i+1]
		if low.Rpm <= targetRpm && targetRpm <= high.Rpm {
			if high.Rpm <= low.Rpm {
				return low.Pwm, true
			}
			ratio := util.Ratio(float64(targetRpm), float64(low.Rpm), float64(high.Rpm))
			pwm := float64(low.Pwm) + ratio*float64(high.Pwm-low.Pwm)
			return util.RoundToInt(util.ClampPercent(pwm)), true
		}
	}
	return last.Pwm, true
}

// RpmForPwm returns the RPM the pump is expected to reach at the given PWM percent.
// Returns false if the curve has no anchors.
func (c PumpCurve) RpmForPwm(pwm int) (int, bool) {
	if pwm <= 0 {
		return 0, true
	}
	points := c.byPwm
	if len(points) <= 0 {
		return 0, false
	}
	if pwm <= points[0].Pwm {
		return points[0].Rpm, true
	}
	last := points[len(points)-1]
	if pwm >= last.Pwm {
		return last.Rpm, true
	}
	for i := 0; i < len(points)-1; i++ {
		low := points[i]
		high := points[i+1]
		if low.Pwm <= pwm && pwm <= high.Pwm {
			if high.Pwm <= low.Pwm {
				return low.Rpm, true
			}
			ratio := util.Ratio(float64(pwm), float64(low.Pwm), float64(high.Pwm))
			return util.RoundToInt(float64(low.Rpm) + ratio*float64(high.Rpm-low.Rpm)), true
		}
	}
	return last.Rpm, true
}

// PwmRange returns the lowest and highest PWM anchor of this curve
func (c PumpCurve) PwmRange() (int, int) {
	if len(c.byPwm) <= 0 {
		return 0, 0
	}
	return c.byPwm[0].Pwm, c.byPwm[len(c.byPwm)-1].Pwm
}

// PercentToRpm maps a logical percent to an rpm target within [minRpm, maxRpm].
// 0 percent always maps to 0 rpm, so a pump commanded off does not idle at minRpm.
func PercentToRpm(percent int, maxRpm int, minRpm int) int {
	if percent <= 0 {
		return 0
	}
	rpm := util.RoundToInt(float64(maxRpm) * float64(percent) / 100)
	if rpm < minRpm {
		return minRpm
	}
	return rpm
}
