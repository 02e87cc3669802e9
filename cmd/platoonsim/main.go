package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gdamore/tcell/v2"

	"github.com/zkplatoon/platoon/internal/config"
	"github.com/zkplatoon/platoon/internal/console"
	"github.com/zkplatoon/platoon/internal/dispatcher"
	"github.com/zkplatoon/platoon/internal/logging"
	"github.com/zkplatoon/platoon/internal/monitor"
	intOtel "github.com/zkplatoon/platoon/internal/otel"
	"github.com/zkplatoon/platoon/internal/recorder"
	"github.com/zkplatoon/platoon/internal/simulation"
	"github.com/zkplatoon/platoon/internal/view"
	"github.com/zkplatoon/platoon/pkg/core"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "platoonsim"
)

var (
	SessionStartTime = time.Now()

	LogFilePath string
	LogFile     *os.File

	SlogManager  = logging.NewSlogManager()
	Logger       = SlogManager.Logger()
	OTelProvider *intOtel.Provider

	state = newStateTracker()
)

const usage = `usage: platoonsim <command> [args]

commands:
  run [configDir]      headless simulation, commands on stdin
  watch [configDir]    terminal view
  inspect <file>       summarize an exported run
  version              print version`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Println(usage)
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "run", "watch":
		configDir := "."
		if len(args) > 1 {
			configDir = args[1]
		}
		err = runSimulation(strings.ToLower(args[0]), configDir)
	case "inspect":
		if len(args) < 2 {
			fmt.Println("No export file provided.")
			os.Exit(2)
		}
		err = inspectExport(os.Stdout, args[1])
	case "version":
		fmt.Printf("%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
	default:
		fmt.Println(usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runSimulation(mode, configDir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgErr := config.Load(configDir)

	if err := initLogging(mode); err != nil {
		return err
	}
	if cfgErr != nil {
		Logger.Warn("Using default configuration", "configDir", configDir, "error", cfgErr)
	}
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate, "mode", mode)
	defer shutdownTelemetry()

	store, closeStore, err := createNeighborStore(config.GetNeighborsConfig())
	if err != nil {
		return fmt.Errorf("failed to create neighbor store: %w", err)
	}
	defer closeStore()

	simCfg := config.GetSimulationConfig()
	ctrl, err := createController(simCfg, config.GetNeighborsConfig().Key, store)
	if err != nil {
		return err
	}
	ctrl.Subscribe(state)

	backend, err := createRecorderBackend(config.GetRecorderConfig(), config.GetInfluxConfig())
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize recorder: %w", err)
	}
	pump := recorder.NewPump(backend, Logger.With("component", "recorder"))
	ctrl.Subscribe(pump)

	defer func() {
		if err := ctrl.Stop(); err != nil {
			Logger.Warn("Failed to stop simulation", "error", err)
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pump.Close(closeCtx); err != nil {
			Logger.Warn("Recorder did not drain", "error", err)
		}
		if exp, ok := backend.(recorder.Exporter); ok && exp.ExportedFilePath() != "" {
			Logger.Info("Run exported", "path", exp.ExportedFilePath())
		}
		if err := backend.Close(); err != nil {
			Logger.Warn("Failed to close recorder", "error", err)
		}
	}()

	if mon := config.GetMonitorConfig(); mon.Enabled {
		statusMonitor := monitor.NewService(monitor.Dependencies{
			Snapshot:   ctrl.Snapshot,
			Pending:    pump.Pending,
			StatusPath: filepath.Join(config.GetString("logsDir"), "status.json"),
			Interval:   mon.Interval,
			Logger:     Logger.With("component", "monitor"),
		})
		if err := statusMonitor.Start(); err != nil {
			Logger.Warn("Status monitor disabled", "error", err)
		} else {
			defer statusMonitor.Stop()
		}
	}

	d, err := newCommandDispatcher(ctrl)
	if err != nil {
		return err
	}

	config.Watch(func(e fsnotify.Event) {
		applyConfigChange(ctrl, e)
	})

	switch mode {
	case "watch":
		return runView(ctx, ctrl, simCfg.FrameInterval)
	default:
		fmt.Println("Type 'help' for commands.")
		return console.Run(ctx, os.Stdin, os.Stdout, d)
	}
}

func newCommandDispatcher(ctrl *simulation.Controller) (*dispatcher.Dispatcher, error) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(SlogManager.Zerolog("dispatcher")))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	console.RegisterCommands(d, ctrl)
	Logger.Info("Commands registered", "count", len(d.Commands()))
	return d, nil
}

func applyConfigChange(ctrl *simulation.Controller, e fsnotify.Event) {
	Logger.Info("Config file changed", "file", e.Name, "op", e.Op.String())

	SlogManager.SetLevel(config.GetString("logLevel"))

	interval := config.GetDuration("simulation.tickInterval")
	if interval == ctrl.Interval() {
		return
	}
	if err := ctrl.SetInterval(interval); err != nil {
		Logger.Warn("Ignoring tick interval", "interval", interval, "error", err)
		return
	}
	Logger.Info("Tick interval updated", "interval", interval)
}

func runView(ctx context.Context, ctrl *simulation.Controller, frame time.Duration) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	return view.New(screen, ctrl, frame, Logger.With("component", "view")).Run(ctx)
}

// stateTracker mirrors the run state for log records. Log calls happen
// under the controller lock, so it must not read from the controller.
type stateTracker struct {
	simulation.ObserverFuncs
	run  atomic.Uint64
	tick atomic.Uint64
}

func newStateTracker() *stateTracker {
	t := &stateTracker{}
	t.ObserverFuncs = simulation.ObserverFuncs{
		Start: func(run core.Run, snap core.Snapshot) {
			t.tick.Store(snap.Tick)
			t.run.Store(uint64(run.ID))
		},
		Tick: func(snap core.Snapshot) { t.tick.Store(snap.Tick) },
		Stop: func(_ core.Run, _ core.Snapshot) {
			t.run.Store(0)
			t.tick.Store(0)
		},
	}
	return t
}

func (t *stateTracker) RunState() string {
	if t.run.Load() != 0 {
		return string(core.StateRunning)
	}
	return string(core.StateStopped)
}

func (t *stateTracker) RunID() uint         { return uint(t.run.Load()) }
func (t *stateTracker) CurrentTick() uint64 { return t.tick.Load() }
