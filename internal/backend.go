package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hydrox/hydrox/internal/api"
	"github.com/hydrox/hydrox/internal/calibration"
	"github.com/hydrox/hydrox/internal/configuration"
	"github.com/hydrox/hydrox/internal/controller"
	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/liquidctl"
	"github.com/hydrox/hydrox/internal/override"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/sampler"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/statistics"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	restartDelay    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Hardware bundles everything the daemon reads from or writes to
type Hardware struct {
	Hub    liquidctl.Client
	Cpu    sensors.CpuTemperatureReader
	Probes sampler.ProbeBus
	CpuFan sampler.CpuFanReader
}

func NewHardware(config configuration.Configuration) Hardware {
	return Hardware{
		Hub:    liquidctl.NewClient(config.Liquidctl.Path, config.Liquidctl.Timeout),
		Cpu:    sensors.NewCpuSensor(),
		Probes: sensors.NewDs18b20Bus(),
		CpuFan: fans.NewCpuFan(),
	}
}

// Daemon is the fully wired controller, ready to run
type Daemon struct {
	config configuration.Configuration
	store  persistence.Persistence

	overrides  *override.Registry
	commander  *controller.Commander
	engine     *controller.Engine
	loop       *controller.Loop
	calibrator *calibration.Calibrator

	cpuSampler     *sampler.CpuSampler
	channelSampler *sampler.ChannelSampler
	sensorSampler  *sampler.SensorSampler
}

// NewDaemon prepares the store (settings, channels, sensors) and wires
// all components. Fan count and pump channel are taken from the
// configuration on every start. The store must already be initialized.
func NewDaemon(config configuration.Configuration, store persistence.Persistence, hardware Hardware) (*Daemon, error) {
	_, err := store.UpdateSystemSettings(func(settings *persistence.SystemSettings) error {
		settings.FanCount = config.FanCount
		settings.PumpChannel = config.PumpChannelPtr()
		if settings.ActiveProfileId == nil && settings.DefaultProfileId != nil {
			ui.Info("Activating default profile %d", *settings.DefaultProfileId)
			settings.ActiveProfileId = settings.DefaultProfileId
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("initialize system settings: %w", err)
	}
	if err := store.SeedChannels(fans.DefaultChannelCount); err != nil {
		return nil, fmt.Errorf("seed channels: %w", err)
	}

	d := &Daemon{
		config:    config,
		store:     store,
		overrides: override.NewRegistry(),
	}

	state := controller.NewActuatorState(store)
	d.commander = controller.NewCommander(hardware.Hub, state)
	resolver := controller.NewResolver(hardware.Cpu, store, config.Controller.MaxReadingAge)
	d.engine = controller.NewEngine(resolver, store, d.overrides, state, config.Controller.BoundsCheckCpu)

	d.calibrator = calibration.NewCalibrator(calibration.Config{
		Duration:        config.Calibration.Duration,
		Grace:           config.Calibration.Grace,
		FallbackPercent: config.Calibration.FallbackPercent,
	}, store, hardware.Hub, d.commander, d.engine, hardware.Cpu)
	d.loop = controller.NewLoop(store, d.engine, d.commander, d.calibrator, config.Controller.NoProfileRetry)

	d.cpuSampler = sampler.NewCpuSampler(hardware.Cpu, store, config.Sensors.PollingRate)
	d.channelSampler = sampler.NewChannelSampler(hardware.Hub, hardware.CpuFan, store, config.Channels.PollingRate, config.Channels.RpmRollingWindowSize)
	d.sensorSampler = sampler.NewSensorSampler(hardware.Probes, hardware.Hub, store, config.Sensors.PollingRate, config.Sensors.DiscoveryEvery)
	if err := d.sensorSampler.Seed(); err != nil {
		return nil, fmt.Errorf("seed sensors: %w", err)
	}

	return d, nil
}

// Collectors returns the prometheus collectors of all components
func (d *Daemon) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		statistics.NewChannelCollector(d.store, d.commander.State(), d.channelSampler, d.overrides),
		statistics.NewSensorCollector(d.store),
		statistics.NewControllerCollector(d.loop, d.calibrator),
	}
}

// RestService creates the admin api of this daemon
func (d *Daemon) RestService(registerer prometheus.Registerer) http.Handler {
	return api.CreateRestService(api.Dependencies{
		Store:       d.store,
		Overrides:   d.overrides,
		Calibration: d.calibrator,
		Commander:   d.commander,
		Engine:      d.engine,
		Rpms:        d.channelSampler,
		Loop:        d.loop,
		Registerer:  registerer,
	})
}

// Calibrate runs a calibration and blocks until it has completed
func (d *Daemon) Calibrate(ctx context.Context) (calibration.Status, error) {
	if _, started := d.calibrator.Start(); !started {
		return d.calibrator.Status(), errors.New("calibration already running")
	}
	status := d.calibrator.Wait(ctx)
	if status.Running {
		return status, ctx.Err()
	}
	return status, nil
}

// tasks returns the long running components, keyed by name
func (d *Daemon) tasks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"CPU sampler":     d.cpuSampler.Run,
		"Channel sampler": d.channelSampler.Run,
		"Sensor sampler":  d.sensorSampler.Run,
		"Control loop":    d.loop.Run,
	}
}

// Run executes all components until ctx is cancelled. A failing component
// is restarted without affecting the others.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group
	{
		if d.config.Statistics.Enabled {
			// === Prometheus Exporter
			addr := fmt.Sprintf(":%d", d.config.Statistics.Port)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addServer(&g, ctx, "statistics server", &http.Server{Addr: addr, Handler: mux})
		}
	}
	{
		if d.config.Api.Enabled {
			// === REST API
			addr := fmt.Sprintf("%s:%d", d.config.Api.Host, d.config.Api.Port)
			addServer(&g, ctx, "REST API", &http.Server{Addr: addr, Handler: d.RestService(prometheus.DefaultRegisterer)})
		}
	}
	{
		tasks := d.tasks()
		for _, name := range util.SortedKeys(tasks) {
			name, task := name, tasks[name]
			g.Add(func() error {
				err := util.Supervise(ctx, name, restartDelay, task)
				ui.Info("%s stopped.", name)
				return err
			}, func(err error) {
				cancel()
			})
		}
	}
	{
		g.Add(func() error {
			<-ctx.Done()
			return nil
		}, func(err error) {
			cancel()
		})
	}

	return g.Run()
}

func addServer(g *run.Group, ctx context.Context, name string, server *http.Server) {
	g.Add(func() error {
		ui.Info("Starting %s on %s", name, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ui.Error("Cannot start %s (%v)", name, err)
			<-ctx.Done()
		}
		return nil
	}, func(err error) {
		timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer timeoutCancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			ui.Warning("Error stopping %s: %v", name, err)
		} else {
			ui.Info("%s stopped.", name)
		}
	})
}

func RunDaemon() {
	if os.Geteuid() != 0 {
		ui.Warning("hydrox is not running as root, liquidctl may not be able to access the controller")
	}

	config := configuration.CurrentConfig
	pers := persistence.NewPersistence(config.DbPath, config.Persistence.Retention)
	if err := pers.Init(); err != nil {
		ui.Fatal("Unable to open database %s: %v", config.DbPath, err)
	}

	daemon, err := NewDaemon(config, pers, NewHardware(config))
	if err != nil {
		_ = pers.Close()
		ui.Fatal("Unable to initialize: %v", err)
	}
	for _, collector := range daemon.Collectors() {
		statistics.Register(collector)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = daemon.Run(ctx)
	if closeErr := pers.Close(); closeErr != nil {
		ui.Warning("Error closing database: %v", closeErr)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ui.Info("Done.")
}
