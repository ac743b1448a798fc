package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hydrox/hydrox/internal/configuration"
	"github.com/hydrox/hydrox/internal/curves"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/hydrox/hydrox/internal/testingutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockCpu struct {
	Temp float64
}

func (c MockCpu) GetCpuTemperature() (float64, error) {
	return c.Temp, nil
}

type MockProbes struct {
	Probes map[string]float64
}

func (b MockProbes) Discover() []string {
	var ids []string
	for id := range b.Probes {
		ids = append(ids, id)
	}
	return ids
}

func (b MockProbes) ReadAll() map[string]float64 {
	return b.Probes
}

type MockCpuFan struct{}

func (MockCpuFan) GetRpm() (int, error) {
	return 3000, nil
}

func testConfig() configuration.Configuration {
	return configuration.Configuration{
		FanCount:    7,
		PumpChannel: 7,
		Sensors:     configuration.SensorsConfig{PollingRate: 10 * time.Millisecond, DiscoveryEvery: 12},
		Channels:    configuration.ChannelsConfig{PollingRate: 10 * time.Millisecond, RpmRollingWindowSize: 10},
		Controller:  configuration.ControllerConfig{NoProfileRetry: 10 * time.Millisecond},
	}
}

func testHardware(hub *testingutils.MockLiquidctl) Hardware {
	return Hardware{
		Hub:    hub,
		Cpu:    MockCpu{Temp: 50},
		Probes: MockProbes{Probes: map[string]float64{"28-0001": 30}},
		CpuFan: MockCpuFan{},
	}
}

func saveProfile(t *testing.T, store persistence.Persistence, percent float64) int {
	document, err := profiles.Encode(profiles.Profile{
		Rules: []profiles.Rule{
			{SensorId: "cpu", Channels: []int{1}, Points: []curves.Point{{Temp: 0, Percent: percent}}},
		},
	})
	require.NoError(t, err)
	record, err := store.SaveProfile(persistence.ProfileRecord{Name: "test", Document: document})
	require.NoError(t, err)
	return record.ID
}

func TestNewDaemon_PreparesStore(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)

	// WHEN
	_, err := NewDaemon(testConfig(), store, testHardware(&testingutils.MockLiquidctl{}))

	// THEN
	require.NoError(t, err)

	settings, err := store.LoadSystemSettings()
	require.NoError(t, err)
	assert.Equal(t, 7, settings.FanCount)
	require.NotNil(t, settings.PumpChannel)
	assert.Equal(t, 7, *settings.PumpChannel)
	assert.Nil(t, settings.ActiveProfileId)

	channels, err := store.ListChannels()
	require.NoError(t, err)
	assert.Len(t, channels, 7)

	known, err := store.ListSensors()
	require.NoError(t, err)
	// two liquid probes and one DS18B20
	assert.Len(t, known, 3)
}

func TestNewDaemon_ActivatesDefaultProfile(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)
	id := saveProfile(t, store, 40)
	require.NoError(t, store.SaveSystemSettings(persistence.SystemSettings{FanCount: 3, DefaultProfileId: &id}))

	// WHEN
	_, err := NewDaemon(testConfig(), store, testHardware(&testingutils.MockLiquidctl{}))

	// THEN
	require.NoError(t, err)
	settings, err := store.LoadSystemSettings()
	require.NoError(t, err)
	require.NotNil(t, settings.ActiveProfileId)
	assert.Equal(t, id, *settings.ActiveProfileId)
	// the configuration wins over stored settings
	assert.Equal(t, 7, settings.FanCount)
}

func TestNewDaemon_AppliesChangedChannelConfig(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)
	id := saveProfile(t, store, 40)
	_, err := NewDaemon(testConfig(), store, testHardware(&testingutils.MockLiquidctl{}))
	require.NoError(t, err)
	_, err = store.UpdateSystemSettings(func(settings *persistence.SystemSettings) error {
		settings.ActiveProfileId = &id
		settings.DefaultProfileId = &id
		return nil
	})
	require.NoError(t, err)

	config := testConfig()
	config.FanCount = 4
	config.PumpChannel = 3

	// WHEN
	_, err = NewDaemon(config, store, testHardware(&testingutils.MockLiquidctl{}))

	// THEN
	require.NoError(t, err)
	settings, err := store.LoadSystemSettings()
	require.NoError(t, err)
	assert.Equal(t, 4, settings.FanCount)
	assert.True(t, settings.IsPump(3))
	assert.False(t, settings.IsPump(7))
	require.NotNil(t, settings.ActiveProfileId)
	assert.Equal(t, id, *settings.ActiveProfileId)
	require.NotNil(t, settings.DefaultProfileId)
	assert.Equal(t, id, *settings.DefaultProfileId)

	channels, err := store.ListChannels()
	require.NoError(t, err)
	active := 0
	for _, channel := range channels {
		if channel.Active {
			active++
		}
	}
	assert.Equal(t, 4, active)
}

func TestNewDaemon_RemovesPump(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)
	_, err := NewDaemon(testConfig(), store, testHardware(&testingutils.MockLiquidctl{}))
	require.NoError(t, err)

	config := testConfig()
	config.PumpChannel = 0

	// WHEN
	_, err = NewDaemon(config, store, testHardware(&testingutils.MockLiquidctl{}))

	// THEN
	require.NoError(t, err)
	settings, err := store.LoadSystemSettings()
	require.NoError(t, err)
	assert.Nil(t, settings.PumpChannel)
}

func TestDaemon_Run(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)
	hub := &testingutils.MockLiquidctl{MaxRpm: map[int]int{1: 2000}, Temps: []float64{28.5}}
	daemon, err := NewDaemon(testConfig(), store, testHardware(hub))
	require.NoError(t, err)
	require.NoError(t, store.SaveChannelMaxRpm(1, 2000))

	id := saveProfile(t, store, 50)
	settings, err := store.LoadSystemSettings()
	require.NoError(t, err)
	settings.ActiveProfileId = &id
	require.NoError(t, store.SaveSystemSettings(settings))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// WHEN
	err = daemon.Run(ctx)

	// THEN
	assert.NoError(t, err)
	percent, ok := hub.Speed(1)
	assert.True(t, ok)
	assert.Equal(t, 50, percent)

	cpu, err := store.LatestReadings(persistence.KindCpu)
	require.NoError(t, err)
	assert.Contains(t, cpu, "cpu")

	rpm, ok := daemon.channelSampler.AverageRpm(1)
	assert.True(t, ok)
	assert.Greater(t, rpm, 0.0)

	stats := daemon.loop.Statistics()
	assert.GreaterOrEqual(t, stats.Cycles, int64(1))
	assert.Equal(t, id, stats.ActiveProfile)
}

func TestDaemon_Collectors(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)
	daemon, err := NewDaemon(testConfig(), store, testHardware(&testingutils.MockLiquidctl{}))
	require.NoError(t, err)
	registry := prometheus.NewRegistry()

	// WHEN
	for _, collector := range daemon.Collectors() {
		require.NoError(t, registry.Register(collector))
	}

	// THEN
	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestDaemon_RestService(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)
	daemon, err := NewDaemon(testConfig(), store, testHardware(&testingutils.MockLiquidctl{}))
	require.NoError(t, err)
	handler := daemon.RestService(prometheus.NewRegistry())

	// WHEN
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channel/", nil))

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDaemon_Calibrate(t *testing.T) {
	// GIVEN
	store := testingutils.NewPersistence(t)
	hub := &testingutils.MockLiquidctl{MaxRpm: map[int]int{1: 1800, 2: 2400}}
	config := testConfig()
	config.FanCount = 2
	config.PumpChannel = 0
	config.Calibration = configuration.CalibrationConfig{Duration: 20 * time.Millisecond, Grace: 0, FallbackPercent: 20}
	daemon, err := NewDaemon(config, store, testHardware(hub))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// WHEN
	status, err := daemon.Calibrate(ctx)

	// THEN
	require.NoError(t, err)
	assert.False(t, status.Running)

	channels, err := store.ListChannels()
	require.NoError(t, err)
	require.NotNil(t, channels[0].MaxRpm)
	assert.Equal(t, 1800, *channels[0].MaxRpm)
	require.NotNil(t, channels[1].MaxRpm)
	assert.Equal(t, 2400, *channels[1].MaxRpm)

	// no profile is active, so the fallback speed is restored
	percent, _ := hub.Speed(1)
	assert.Equal(t, 20, percent)
}
