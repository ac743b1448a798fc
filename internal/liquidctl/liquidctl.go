// Package liquidctl drives the fan/pump hub through the liquidctl command line tool.
package liquidctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
)

const (
	DefaultPath    = "/root/.local/bin/liquidctl"
	DefaultTimeout = 5 * time.Second
)

var (
	ErrNotFound         = errors.New("liquidctl not found")
	ErrPermissionDenied = errors.New("liquidctl permission denied")
	ErrNoRpms           = errors.New("liquidctl status returned no fan RPMs")
	ErrNoTemps          = errors.New("liquidctl status returned no temperatures")

	fallbackPaths = []string{
		"/root/.local/bin/liquidctl",
		"/usr/local/bin/liquidctl",
		"/usr/bin/liquidctl",
	}

	rpmLinePattern  = regexp.MustCompile(`(?i)fan\s*(\d+).*?(\d+)\s*rpm`)
	tempLinePattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?C`)
)

// Client is the hardware controller of all fan and pump channels
type Client interface {
	// SetSpeed commands the given channel to the given duty cycle in percent
	SetSpeed(channel int, percent int) error
	// ReadRpms returns the measured rpm of every channel reporting one
	ReadRpms() (map[int]int, error)
	// ReadTemps returns the liquid temperatures reported by the controller, in probe order
	ReadTemps() ([]float64, error)
	// HasDevices indicates whether liquidctl sees at least one device
	HasDevices() bool
}

// Runner executes liquidctl with the given arguments and returns its stdout
type Runner func(executable string, args []string, timeout time.Duration) (string, error)

type client struct {
	paths   []string
	timeout time.Duration
	run     Runner
	errors  *ui.OnceLogger

	// all commands are serialized, the hub only has a single command channel
	mu sync.Mutex
}

func NewClient(path string, timeout time.Duration) Client {
	return newClient(path, timeout, util.SafeCmdExecution)
}

func newClient(path string, timeout time.Duration, runner Runner) *client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &client{
		paths:   util.Dedup(append([]string{path}, fallbackPaths...)),
		timeout: timeout,
		run:     runner,
		errors:  ui.NewOnceLogger(),
	}
}

func (c *client) SetSpeed(channel int, percent int) error {
	percent = util.Coerce(percent, 0, 100)
	_, err := c.exec("set", fmt.Sprintf("fan%d", channel), "speed", strconv.Itoa(percent))
	if err != nil {
		return fmt.Errorf("set fan%d to %d%%: %w", channel, percent, err)
	}
	return nil
}

func (c *client) ReadRpms() (map[int]int, error) {
	output, err := c.exec("status")
	if err != nil {
		return map[int]int{}, err
	}
	rpms := ParseRpms(output)
	if len(rpms) <= 0 {
		c.errors.Error("no-rpms", "%v", ErrNoRpms)
		return rpms, ErrNoRpms
	}
	c.errors.Resolve("no-rpms", "liquidctl status reports fan RPMs again")
	return rpms, nil
}

func (c *client) ReadTemps() ([]float64, error) {
	output, err := c.exec("status")
	if err != nil {
		return nil, err
	}
	temps := ParseTemps(output)
	if len(temps) <= 0 {
		c.errors.Error("no-temps", "%v", ErrNoTemps)
		return temps, ErrNoTemps
	}
	c.errors.Resolve("no-temps", "liquidctl status reports temperatures again")
	return temps, nil
}

func (c *client) HasDevices() bool {
	output, err := c.exec("list")
	if err != nil {
		return false
	}
	return strings.Contains(output, "Device #")
}

// exec runs liquidctl, trying all candidate paths until one can be started
func (c *client) exec(args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lastErr := ErrNotFound
	for _, path := range c.paths {
		output, err := c.run(path, args, c.timeout)
		if err == nil {
			c.errors.Resolve("path:"+path, "")
			c.errors.Resolve("cmd:"+args[0], "liquidctl %s works again", args[0])
			return output, nil
		}

		switch {
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, exec.ErrNotFound):
			c.errors.Error("path:"+path, "liquidctl not found at %s", path)
			lastErr = ErrNotFound
			continue
		case errors.Is(err, fs.ErrPermission):
			c.errors.Error("path:"+path, "liquidctl permission denied at %s", path)
			lastErr = ErrPermissionDenied
			continue
		}

		c.errors.Error("cmd:"+args[0], "liquidctl command failed: %s %s | %v", path, strings.Join(args, " "), err)
		return output, err
	}
	return "", lastErr
}

// ParseRpms extracts "fan<N> ... <rpm> rpm" lines of a status output
func ParseRpms(output string) map[int]int {
	rpms := map[int]int{}
	for _, line := range strings.Split(output, "\n") {
		match := rpmLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		channel, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		rpm, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		rpms[channel] = rpm
	}
	return rpms
}

// ParseTemps extracts the values of all temperature lines of a status output, in order
func ParseTemps(output string) []float64 {
	var temps []float64
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(strings.ToLower(line), "temp") {
			continue
		}
		match := tempLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		temps = append(temps, value)
	}
	return temps
}
