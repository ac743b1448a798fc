package testingutils

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/stretchr/testify/require"
)

// NewPersistence creates an initialized store in a temporary directory,
// closed automatically at the end of the test.
func NewPersistence(t *testing.T) persistence.Persistence {
	t.Helper()
	store := persistence.NewPersistence(filepath.Join(t.TempDir(), "hydrox.db"), 100)
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var ErrDeviceBusy = errors.New("device busy")

// MockLiquidctl is an in-memory hub. Commanded speeds are reported back
// as rpm scaled by MaxRpm.
type MockLiquidctl struct {
	mu     sync.Mutex
	Speeds map[int]int
	MaxRpm map[int]int
	Temps  []float64
	Busy   bool
}

func (m *MockLiquidctl) SetSpeed(channel int, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Busy {
		return ErrDeviceBusy
	}
	if m.Speeds == nil {
		m.Speeds = map[int]int{}
	}
	m.Speeds[channel] = percent
	return nil
}

func (m *MockLiquidctl) Speed(channel int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	percent, ok := m.Speeds[channel]
	return percent, ok
}

func (m *MockLiquidctl) ReadRpms() (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Busy {
		return nil, ErrDeviceBusy
	}
	result := map[int]int{}
	for channel, maxRpm := range m.MaxRpm {
		result[channel] = maxRpm * m.Speeds[channel] / 100
	}
	return result, nil
}

func (m *MockLiquidctl) ReadTemps() ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Temps, nil
}

func (m *MockLiquidctl) HasDevices() bool {
	return true
}
