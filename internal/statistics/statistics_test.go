package statistics

import (
	"strings"
	"testing"
	"time"

	"github.com/hydrox/hydrox/internal/controller"
	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type mockChannels []fans.Channel

func (m mockChannels) ListChannels() ([]fans.Channel, error) {
	return m, nil
}

type mockCommanded map[int]int

func (m mockCommanded) Snapshot() map[int]int {
	return m
}

type mockRpms map[int]float64

func (m mockRpms) AverageRpm(channel int) (float64, bool) {
	v, ok := m[channel]
	return v, ok
}

func (m mockRpms) CpuFanRpm() (int, bool) {
	return 0, false
}

type mockOverrides map[int]bool

func (m mockOverrides) IsOverridden(channel int) bool {
	return m[channel]
}

type mockLoop controller.Statistics

func (m mockLoop) Statistics() controller.Statistics {
	return controller.Statistics(m)
}

type mockCalibration bool

func (m mockCalibration) IsRunning() bool {
	return bool(m)
}

type mockSensors struct {
	sensors  []sensors.Sensor
	readings map[string]map[string]persistence.Reading
}

func (m mockSensors) ListSensors() ([]sensors.Sensor, error) {
	return m.sensors, nil
}

func (m mockSensors) LatestReadings(kind string) (map[string]persistence.Reading, error) {
	return m.readings[kind], nil
}

func TestChannelCollector(t *testing.T) {
	// GIVEN
	maxRpm := 2000
	inactive := fans.Channel{Index: 3, Name: "Fan 3"}
	collector := NewChannelCollector(
		mockChannels{
			{Index: 1, Name: "Fan 1", Active: true, MaxRpm: &maxRpm},
			{Index: 2, Name: "Fan 2", Active: true},
			inactive,
		},
		mockCommanded{1: 40},
		mockRpms{1: 810},
		mockOverrides{2: true},
	)

	// WHEN
	count := testutil.CollectAndCount(collector)

	// THEN
	// channel 1: percent, rpm, max_rpm, overridden; channel 2: overridden
	assert.Equal(t, 5, count)

	expected := `
# HELP hydrox_channel_overridden 1 if the channel is under manual control
# TYPE hydrox_channel_overridden gauge
hydrox_channel_overridden{channel="1",name="Fan 1"} 0
hydrox_channel_overridden{channel="2",name="Fan 2"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected), "hydrox_channel_overridden"))
}

func TestSensorCollector(t *testing.T) {
	// GIVEN
	now := time.Now()
	collector := NewSensorCollector(mockSensors{
		sensors: []sensors.Sensor{
			{ID: 1, Kind: sensors.KindLiquidctl, Name: "Liquid Temp 1"},
			{ID: 2, Kind: sensors.KindDs18b20, Name: "Probe"},
		},
		readings: map[string]map[string]persistence.Reading{
			persistence.KindCpu:    {sensors.CpuSensorId: {Value: 51, Timestamp: now}},
			persistence.KindSensor: {"1": {Value: 29.5, Timestamp: now}},
		},
	})

	// WHEN
	expected := `
# HELP hydrox_sensor_value Latest temperature of the sensor in degrees celsius
# TYPE hydrox_sensor_value gauge
hydrox_sensor_value{id="1",kind="liquidctl",name="Liquid Temp 1"} 29.5
hydrox_sensor_value{id="cpu",kind="cpu",name="CPU"} 51
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected))

	// THEN
	assert.NoError(t, err)
}

func TestControllerCollector(t *testing.T) {
	// GIVEN
	collector := NewControllerCollector(mockLoop{Cycles: 4, FailedCommands: 1, ActiveProfile: 2}, mockCalibration(true))

	// WHEN
	expected := `
# HELP hydrox_controller_calibrating 1 while a calibration is running
# TYPE hydrox_controller_calibrating gauge
hydrox_controller_calibrating 1
# HELP hydrox_controller_cycles_total Number of control cycles run
# TYPE hydrox_controller_cycles_total counter
hydrox_controller_cycles_total 4
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected), "hydrox_controller_calibrating", "hydrox_controller_cycles_total")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 7, testutil.CollectAndCount(collector))
}
