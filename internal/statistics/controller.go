package statistics

import (
	"github.com/hydrox/hydrox/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const controllerSubsystem = "controller"

type LoopStatistics interface {
	Statistics() controller.Statistics
}

type ControllerCollector struct {
	loop        LoopStatistics
	calibration controller.Inhibitor

	cycles         *prometheus.Desc
	failedCycles   *prometheus.Desc
	skippedCycles  *prometheus.Desc
	commands       *prometheus.Desc
	failedCommands *prometheus.Desc
	activeProfile  *prometheus.Desc
	calibrating    *prometheus.Desc
}

func NewControllerCollector(loop LoopStatistics, calibration controller.Inhibitor) *ControllerCollector {
	return &ControllerCollector{
		loop:        loop,
		calibration: calibration,
		cycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "cycles_total"),
			"Number of control cycles run",
			nil, nil,
		),
		failedCycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "failed_cycles_total"),
			"Number of control cycles that failed",
			nil, nil,
		),
		skippedCycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "skipped_cycles_total"),
			"Number of control cycles skipped during calibration",
			nil, nil,
		),
		commands: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "commands_total"),
			"Number of speed commands sent",
			nil, nil,
		),
		failedCommands: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "failed_commands_total"),
			"Number of speed commands the hardware rejected",
			nil, nil,
		),
		activeProfile: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "active_profile"),
			"Id of the profile used by the last cycle, 0 if none",
			nil, nil,
		),
		calibrating: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "calibrating"),
			"1 while a calibration is running",
			nil, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.cycles
	ch <- collector.failedCycles
	ch <- collector.skippedCycles
	ch <- collector.commands
	ch <- collector.failedCommands
	ch <- collector.activeProfile
	ch <- collector.calibrating
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	stats := collector.loop.Statistics()
	ch <- prometheus.MustNewConstMetric(collector.cycles, prometheus.CounterValue, float64(stats.Cycles))
	ch <- prometheus.MustNewConstMetric(collector.failedCycles, prometheus.CounterValue, float64(stats.FailedCycles))
	ch <- prometheus.MustNewConstMetric(collector.skippedCycles, prometheus.CounterValue, float64(stats.SkippedCycles))
	ch <- prometheus.MustNewConstMetric(collector.commands, prometheus.CounterValue, float64(stats.Commands))
	ch <- prometheus.MustNewConstMetric(collector.failedCommands, prometheus.CounterValue, float64(stats.FailedCommands))
	ch <- prometheus.MustNewConstMetric(collector.activeProfile, prometheus.GaugeValue, float64(stats.ActiveProfile))

	calibrating := 0.0
	if collector.calibration != nil && collector.calibration.IsRunning() {
		calibrating = 1
	}
	ch <- prometheus.MustNewConstMetric(collector.calibrating, prometheus.GaugeValue, calibrating)
}
