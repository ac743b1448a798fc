package statistics

import (
	"strconv"

	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
)

const channelSubsystem = "channel"

type ChannelSource interface {
	ListChannels() ([]fans.Channel, error)
}

type CommandedSource interface {
	Snapshot() map[int]int
}

type RpmSource interface {
	AverageRpm(channel int) (float64, bool)
	CpuFanRpm() (int, bool)
}

type OverrideSource interface {
	IsOverridden(channel int) bool
}

type ChannelCollector struct {
	channels  ChannelSource
	commanded CommandedSource
	rpms      RpmSource
	overrides OverrideSource

	percent    *prometheus.Desc
	rpm        *prometheus.Desc
	maxRpm     *prometheus.Desc
	overridden *prometheus.Desc
	cpuFanRpm  *prometheus.Desc
}

func NewChannelCollector(channels ChannelSource, commanded CommandedSource, rpms RpmSource, overrides OverrideSource) *ChannelCollector {
	labels := []string{"channel", "name"}
	return &ChannelCollector{
		channels:  channels,
		commanded: commanded,
		rpms:      rpms,
		overrides: overrides,
		percent: prometheus.NewDesc(prometheus.BuildFQName(namespace, channelSubsystem, "percent"),
			"Last commanded speed of the channel in percent",
			labels, nil,
		),
		rpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, channelSubsystem, "rpm"),
			"Moving average of the measured RPM of the channel",
			labels, nil,
		),
		maxRpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, channelSubsystem, "max_rpm"),
			"Calibrated maximum RPM of the channel",
			labels, nil,
		),
		overridden: prometheus.NewDesc(prometheus.BuildFQName(namespace, channelSubsystem, "overridden"),
			"1 if the channel is under manual control",
			labels, nil,
		),
		cpuFanRpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cpu_fan", "rpm"),
			"Measured RPM of the board cooling fan",
			nil, nil,
		),
	}
}

func (collector *ChannelCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.percent
	ch <- collector.rpm
	ch <- collector.maxRpm
	ch <- collector.overridden
	ch <- collector.cpuFanRpm
}

// Collect implements required collect function for all prometheus collectors
func (collector *ChannelCollector) Collect(ch chan<- prometheus.Metric) {
	channels, err := collector.channels.ListChannels()
	if err != nil {
		ui.Warning("Unable to collect channel metrics: %v", err)
		return
	}
	commanded := collector.commanded.Snapshot()

	for _, channel := range channels {
		if !channel.Active {
			continue
		}
		labels := []string{strconv.Itoa(channel.Index), channel.Name}

		if percent, ok := commanded[channel.Index]; ok {
			ch <- prometheus.MustNewConstMetric(collector.percent, prometheus.GaugeValue, float64(percent), labels...)
		}
		if rpm, ok := collector.rpms.AverageRpm(channel.Index); ok {
			ch <- prometheus.MustNewConstMetric(collector.rpm, prometheus.GaugeValue, rpm, labels...)
		}
		if channel.HasMaxRpm() {
			ch <- prometheus.MustNewConstMetric(collector.maxRpm, prometheus.GaugeValue, float64(*channel.MaxRpm), labels...)
		}
		overridden := 0.0
		if collector.overrides.IsOverridden(channel.Index) {
			overridden = 1
		}
		ch <- prometheus.MustNewConstMetric(collector.overridden, prometheus.GaugeValue, overridden, labels...)
	}

	if rpm, ok := collector.rpms.CpuFanRpm(); ok {
		ch <- prometheus.MustNewConstMetric(collector.cpuFanRpm, prometheus.GaugeValue, float64(rpm))
	}
}
