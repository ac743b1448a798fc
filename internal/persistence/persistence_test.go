package persistence

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T, retention int) *persistence {
	p := NewPersistence(filepath.Join(t.TempDir(), "sub", "test.db"), retention).(*persistence)
	require.NoError(t, p.Init())
	t.Cleanup(func() {
		_ = p.Close()
	})
	return p
}

func TestPersistence_InitCreatesDirectory(t *testing.T) {
	// GIVEN
	dbPath := filepath.Join(t.TempDir(), "a", "b", "hydrox.db")
	p := NewPersistence(dbPath, 0)

	// WHEN
	err := p.Init()

	// THEN
	assert.NoError(t, err)
	assert.FileExists(t, dbPath)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

func TestPersistence_NotInitialized(t *testing.T) {
	// GIVEN
	p := NewPersistence(filepath.Join(t.TempDir(), "x.db"), 0)

	// WHEN
	err := p.InsertReading(KindCpu, sensors.CpuSensorId, 40)

	// THEN
	assert.Error(t, err)
}

func TestPersistence_LatestReadings(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.InsertReading(KindSensor, "1", 20))
	require.NoError(t, p.InsertReading(KindSensor, "2", 30))
	now = now.Add(time.Second)
	require.NoError(t, p.InsertReading(KindSensor, "1", 21.5))

	// WHEN
	latest, err := p.LatestReadings(KindSensor)

	// THEN
	assert.NoError(t, err)
	assert.Len(t, latest, 2)
	assert.Equal(t, 21.5, latest["1"].Value)
	assert.True(t, now.Equal(latest["1"].Timestamp))
	assert.Equal(t, 30.0, latest["2"].Value)
}

func TestPersistence_LatestReadings_UnknownKind(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)

	// WHEN
	latest, err := p.LatestReadings("nope")

	// THEN
	assert.NoError(t, err)
	assert.Empty(t, latest)
}

func TestPersistence_RecentReadings_NewestFirst(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	for i := 1; i <= 5; i++ {
		require.NoError(t, p.InsertReading(KindCpu, sensors.CpuSensorId, float64(i)))
	}

	// WHEN
	recent, err := p.RecentReadings(KindCpu, 3)

	// THEN
	assert.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Equal(t, 5.0, recent[0].Value)
	assert.Equal(t, 4.0, recent[1].Value)
	assert.Equal(t, 3.0, recent[2].Value)
}

func TestPersistence_Retention(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 3)

	// WHEN
	for i := 1; i <= 10; i++ {
		require.NoError(t, p.InsertReading(KindChannel, "1", float64(i)))
	}

	// THEN
	recent, err := p.RecentReadings(KindChannel, 0)
	assert.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Equal(t, 10.0, recent[0].Value)
	assert.Equal(t, 8.0, recent[2].Value)
}

func TestPersistence_Settings(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)

	// WHEN
	_, err := p.GetSetting("unit")

	// THEN
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.SetSetting("unit", "F"))
	value, err := p.GetSetting("unit")
	assert.NoError(t, err)
	assert.Equal(t, "F", value)
}

func TestPersistence_UpdateSystemSettings(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	pump := 1

	// WHEN
	settings, err := p.UpdateSystemSettings(func(settings *SystemSettings) error {
		settings.FanCount = 3
		settings.PumpChannel = &pump
		return nil
	})

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 3, settings.FanCount)
	assert.True(t, settings.IsPump(1))
	assert.False(t, settings.IsPump(2))

	stored, err := p.LoadSystemSettings()
	assert.NoError(t, err)
	assert.Equal(t, settings, stored)
}

func TestPersistence_UpdateSystemSettings_KeepsOtherFields(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	active := 4
	require.NoError(t, p.SaveSystemSettings(SystemSettings{FanCount: 7, ActiveProfileId: &active}))

	// WHEN
	settings, err := p.UpdateSystemSettings(func(settings *SystemSettings) error {
		settings.FanCount = 5
		return nil
	})

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 5, settings.FanCount)
	require.NotNil(t, settings.ActiveProfileId)
	assert.Equal(t, 4, *settings.ActiveProfileId)
}

func TestPersistence_UpdateSystemSettings_ErrorDiscardsChange(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	require.NoError(t, p.SaveSystemSettings(SystemSettings{FanCount: 7}))

	// WHEN
	_, err := p.UpdateSystemSettings(func(settings *SystemSettings) error {
		settings.FanCount = 1
		return errors.New("rejected")
	})

	// THEN
	assert.Error(t, err)
	stored, err := p.LoadSystemSettings()
	assert.NoError(t, err)
	assert.Equal(t, 7, stored.FanCount)
}

func TestPersistence_UpdateSystemSettings_Concurrent(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	const workers = 20

	// WHEN
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.UpdateSystemSettings(func(settings *SystemSettings) error {
				settings.FanCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// THEN
	stored, err := p.LoadSystemSettings()
	assert.NoError(t, err)
	assert.Equal(t, workers, stored.FanCount)
}

func TestPersistence_Profiles(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	doc := json.RawMessage(`{"rules":[]}`)

	// WHEN
	first, err := p.SaveProfile(ProfileRecord{Name: "quiet", Document: doc})
	require.NoError(t, err)
	second, err := p.SaveProfile(ProfileRecord{Name: "loud", Document: doc})
	require.NoError(t, err)

	// THEN
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	loaded, err := p.LoadProfile(2)
	assert.NoError(t, err)
	assert.Equal(t, "loud", loaded.Name)
	assert.JSONEq(t, string(doc), string(loaded.Document))

	all, err := p.ListProfiles()
	assert.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "quiet", all[0].Name)

	assert.NoError(t, p.DeleteProfile(1))
	_, err = p.LoadProfile(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, p.DeleteProfile(1), ErrNotFound)
	_, err = p.LoadProfile(0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistence_RegisterSensor_Idempotent(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)

	// WHEN
	first, created, err := p.RegisterSensor(sensors.KindDs18b20, "28-000001", "Probe 28-000001")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := p.RegisterSensor(sensors.KindDs18b20, "28-000001", "other")
	require.NoError(t, err)

	// THEN
	assert.False(t, created)
	assert.Equal(t, first, again)
	assert.Equal(t, "Probe 28-000001", again.Name)

	list, err := p.ListSensors()
	assert.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPersistence_SaveSensor(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	sensor, _, err := p.RegisterSensor(sensors.KindLiquidctl, "liquid_temp_1", "Liquid Temp 1")
	require.NoError(t, err)

	// WHEN
	sensor.Name = "Loop"
	sensor.Unit = "kelvin"
	err = p.SaveSensor(sensor)

	// THEN
	assert.NoError(t, err)
	list, _ := p.ListSensors()
	assert.Equal(t, "Loop", list[0].Name)
	assert.Equal(t, sensors.UnitCelsius, list[0].Unit)
	assert.ErrorIs(t, p.SaveSensor(sensors.Sensor{ID: 42}), ErrNotFound)
}

func TestPersistence_Channels(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)
	require.NoError(t, p.SaveSystemSettings(SystemSettings{FanCount: 2}))

	// WHEN
	require.NoError(t, p.SeedChannels(4))
	require.NoError(t, p.SaveChannelMaxRpm(2, 1800))
	// seeding again does not reset state
	require.NoError(t, p.SeedChannels(4))

	// THEN
	channels, err := p.ListChannels()
	assert.NoError(t, err)
	assert.Len(t, channels, 4)
	assert.Equal(t, "Fan 1", channels[0].Name)
	assert.True(t, channels[0].Active)
	assert.True(t, channels[1].Active)
	assert.False(t, channels[2].Active)
	assert.False(t, channels[0].HasMaxRpm())
	assert.Equal(t, 1800, *channels[1].MaxRpm)

	assert.Error(t, p.SaveChannelMaxRpm(1, 0))
	assert.ErrorIs(t, p.SaveChannelMaxRpm(9, 100), ErrNotFound)
}

func TestPersistence_Commanded(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t, 0)

	// WHEN
	require.NoError(t, p.SaveCommanded(1, 40))
	require.NoError(t, p.SaveCommanded(3, 100))
	require.NoError(t, p.SaveCommanded(1, 55))

	// THEN
	commanded, err := p.LoadCommanded()
	assert.NoError(t, err)
	assert.Equal(t, map[int]int{1: 55, 3: 100}, commanded)
}
