package liquidctl

import (
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hydrox/hydrox/internal/util"
	"github.com/stretchr/testify/assert"
)

const statusOutput = `Corsair Commander Core (experimental)
├── Pump speed         2400  rpm
├── Fan speed 1         1180  rpm
├── Fan speed 2          954  rpm
├── Fan speed 3            0  rpm
├── Temperature probe 1   31.2  °C
└── Temperature probe 2   29.8  °C
`

type call struct {
	path string
	args []string
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	missing map[string]bool
	outputs map[string]string
	err     error
}

func (f *fakeRunner) run(executable string, args []string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{path: executable, args: args})
	if f.missing[executable] {
		return "", &fs.PathError{Op: "fork/exec", Path: executable, Err: fs.ErrNotExist}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.outputs[args[0]], nil
}

func TestParseRpms(t *testing.T) {
	// WHEN
	rpms := ParseRpms("Fan 1 speed  1180 rpm\nfan2 speed 954 RPM\nFan 3 duty 40 %\n")

	// THEN
	assert.Equal(t, map[int]int{1: 1180, 2: 954}, rpms)
}

func TestParseRpms_StatusTree(t *testing.T) {
	// GIVEN
	output := strings.ReplaceAll(statusOutput, "Fan speed ", "Fan ")

	// WHEN
	rpms := ParseRpms(output)

	// THEN
	assert.Equal(t, map[int]int{1: 1180, 2: 954, 3: 0}, rpms)
}

func TestParseTemps(t *testing.T) {
	// WHEN
	temps := ParseTemps(statusOutput)

	// THEN
	assert.Equal(t, []float64{31.2, 29.8}, temps)
}

func TestParseTemps_None(t *testing.T) {
	assert.Empty(t, ParseTemps("Fan 1 speed 1180 rpm"))
}

func TestClient_SetSpeed(t *testing.T) {
	// GIVEN
	runner := &fakeRunner{}
	c := newClient("/opt/liquidctl", time.Second, runner.run)

	// WHEN
	err := c.SetSpeed(3, 140)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, []call{{path: "/opt/liquidctl", args: []string{"set", "fan3", "speed", "100"}}}, runner.calls)
}

func TestClient_TriesCandidatePaths(t *testing.T) {
	// GIVEN
	runner := &fakeRunner{
		missing: map[string]bool{
			"/opt/liquidctl":             true,
			"/root/.local/bin/liquidctl": true,
		},
		outputs: map[string]string{"status": "Fan 1 speed 1000 rpm"},
	}
	c := newClient("/opt/liquidctl", time.Second, runner.run)

	// WHEN
	rpms, err := c.ReadRpms()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1000}, rpms)
	assert.Len(t, runner.calls, 3)
	assert.Equal(t, "/usr/local/bin/liquidctl", runner.calls[2].path)
}

func TestClient_NotFound(t *testing.T) {
	// GIVEN
	runner := &fakeRunner{
		missing: map[string]bool{
			DefaultPath:                true,
			"/usr/local/bin/liquidctl": true,
			"/usr/bin/liquidctl":       true,
		},
	}
	c := newClient(DefaultPath, time.Second, runner.run)

	// WHEN
	err := c.SetSpeed(1, 50)

	// THEN
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, runner.calls, 3)
}

func TestClient_CommandFailure(t *testing.T) {
	// GIVEN
	runner := &fakeRunner{
		err: &util.CmdError{Executable: DefaultPath, ExitCode: 1, Stderr: "no devices"},
	}
	c := newClient(DefaultPath, time.Second, runner.run)

	// WHEN
	_, err := c.ReadTemps()

	// THEN
	var cmdErr *util.CmdError
	assert.True(t, errors.As(err, &cmdErr))
	assert.Len(t, runner.calls, 1)
	assert.True(t, c.errors.IsActive("cmd:status"))
}

func TestClient_NoRpms(t *testing.T) {
	// GIVEN
	runner := &fakeRunner{outputs: map[string]string{"status": "nothing"}}
	c := newClient(DefaultPath, time.Second, runner.run)

	// WHEN
	rpms, err := c.ReadRpms()

	// THEN
	assert.ErrorIs(t, err, ErrNoRpms)
	assert.Empty(t, rpms)
}

func TestClient_HasDevices(t *testing.T) {
	// GIVEN
	runner := &fakeRunner{outputs: map[string]string{"list": "Device #0: Corsair Commander Core"}}
	c := newClient(DefaultPath, time.Second, runner.run)

	// THEN
	assert.True(t, c.HasDevices())

	runner.outputs["list"] = ""
	assert.False(t, c.HasDevices())
}
