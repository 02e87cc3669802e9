// Package simulation wires the platoon registry, tick scheduler, fault
// injector and shuffler into a start/stop lifecycle.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zkplatoon/platoon/internal/fault"
	"github.com/zkplatoon/platoon/internal/fleet"
	"github.com/zkplatoon/platoon/internal/queue"
	"github.com/zkplatoon/platoon/internal/scheduler"
	"github.com/zkplatoon/platoon/internal/shuffle"
	"github.com/zkplatoon/platoon/pkg/core"
)

var (
	// ErrAlreadyRunning is returned by Start on a running simulation.
	ErrAlreadyRunning = errors.New("simulation already running")
	// ErrNotRunning is returned for triggers raised while stopped.
	ErrNotRunning = errors.New("simulation not running")
)

// Dependencies holds the collaborators of a Controller. Nil fields get defaults.
type Dependencies struct {
	Registry *fleet.Registry
	Clock    scheduler.Clock
	Injector *fault.Injector
	Shuffler *shuffle.Shuffler
	Logger   *slog.Logger
	// Seed is only reported on Run. Seed the Shuffler separately.
	Seed uint64
}

// Controller owns the simulation lifecycle. Ticks, faults and shuffles
// are applied under one lock, so each observes a consistent platoon.
type Controller struct {
	lifecycle sync.Mutex // serializes Start, Stop and SetInterval

	mu       sync.Mutex
	state    core.RunState
	counter  int
	tick     uint64
	gen      uint64
	run      core.Run
	runs     uint
	interval time.Duration
	seed     uint64

	registry  *fleet.Registry
	clock     scheduler.Clock
	scheduler *scheduler.Scheduler
	injector  *fault.Injector
	shuffler  *shuffle.Shuffler
	commands  *queue.Queue[Command]
	metrics   *metrics
	log       *slog.Logger

	obsMu     sync.RWMutex
	observers []Observer
}

// New creates a stopped controller ticking every interval.
func New(deps Dependencies, interval time.Duration) (*Controller, error) {
	if interval <= 0 {
		interval = scheduler.DefaultInterval
	}
	if deps.Registry == nil {
		deps.Registry = fleet.New()
	}
	if deps.Clock == nil {
		deps.Clock = scheduler.RealClock{}
	}
	if deps.Injector == nil {
		deps.Injector = fault.NewInjector(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Shuffler == nil {
		deps.Shuffler = shuffle.New(nil, shuffle.WithLogger(deps.Logger))
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	return &Controller{
		state:     core.StateStopped,
		interval:  interval,
		seed:      deps.Seed,
		registry:  deps.Registry,
		clock:     deps.Clock,
		scheduler: scheduler.New(deps.Clock),
		injector:  deps.Injector,
		shuffler:  deps.Shuffler,
		commands:  queue.New[Command](),
		metrics:   m,
		log:       deps.Logger,
	}, nil
}

// Subscribe registers an observer for all future events.
func (c *Controller) Subscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Controller) notify(fn func(Observer)) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, o := range c.observers {
		fn(o)
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() core.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Counter returns the number of fault triggers consumed in this run.
func (c *Controller) Counter() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

// Interval returns the tick period.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Start moves the simulation from stopped to running.
func (c *Controller) Start() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state == core.StateRunning {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.state = core.StateRunning
	c.counter = 0
	c.tick = 0
	c.gen++
	c.runs++
	gen := c.gen
	interval := c.interval
	c.run = core.Run{ID: c.runs, StartTime: c.clock.Now(), TickInterval: interval, Seed: c.seed}
	run := c.run
	snap := c.snapshotLocked()
	c.notify(func(o Observer) { o.OnStart(run, snap) })
	c.mu.Unlock()

	if err := c.scheduler.Start(interval, c.onTick(gen)); err != nil {
		c.mu.Lock()
		c.state = core.StateStopped
		c.gen++
		c.mu.Unlock()
		return fmt.Errorf("start simulation: %w", err)
	}

	c.log.Info("Simulation started", "run", run.ID, "interval", interval)
	return nil
}

// Stop halts the simulation and resets the platoon to its canonical
// state. Stopping a stopped simulation is a no-op.
func (c *Controller) Stop() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state == core.StateStopped {
		c.mu.Unlock()
		return nil
	}
	c.state = core.StateStopped
	c.gen++
	c.mu.Unlock()

	// outside c.mu: an in-flight tick may be waiting for it
	c.scheduler.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	final := c.snapshotLocked()
	run := c.run
	c.registry.Reset()
	c.counter = 0
	c.tick = 0
	c.notify(func(o Observer) { o.OnStop(run, final) })

	c.log.Info("Simulation stopped", "run", run.ID, "ticks", final.Tick)
	return nil
}

// SetInterval changes the tick period, restarting the timer if running.
func (c *Controller) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("set interval %s: %w", d, scheduler.ErrInvalidInterval)
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	c.interval = d
	running := c.state == core.StateRunning
	gen := c.gen
	c.mu.Unlock()

	if !running {
		return nil
	}
	c.log.Info("Tick interval changed", "interval", d)
	return c.scheduler.Start(d, c.onTick(gen))
}

func (c *Controller) onTick(gen uint64) scheduler.TickFunc {
	return func(at time.Time) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen || c.state != core.StateRunning {
			return
		}

		c.registry.AdvanceAll()
		c.tick++
		c.metrics.ticks.Add(context.Background(), 1)

		snap := c.snapshotLocked()
		snap.Time = at
		c.notify(func(o Observer) { o.OnTick(snap) })
	}
}

// TriggerFault consumes one fault trigger.
func (c *Controller) TriggerFault(ctx context.Context) error {
	return c.submit(ctx, CommandFault)
}

// TriggerShuffle relabels the healthy trucks once.
func (c *Controller) TriggerShuffle(ctx context.Context) error {
	return c.submit(ctx, CommandShuffle)
}

func (c *Controller) submit(ctx context.Context, t CommandType) error {
	cmd := Command{Type: t, Queued: c.clock.Now(), resultCh: make(chan error, 1)}
	c.commands.Push(cmd)
	c.drain(ctx)
	return <-cmd.resultCh
}

// drain applies every pending command. A command queued concurrently is
// applied by whichever drain takes the lock first.
func (c *Controller) drain(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cmd := range c.commands.GetAndEmpty() {
		cmd.resultCh <- c.applyLocked(ctx, cmd)
	}
}

func (c *Controller) applyLocked(ctx context.Context, cmd Command) error {
	if c.state != core.StateRunning {
		c.metrics.drop(cmd.Type)
		c.log.Debug("Dropping command while stopped", "command", cmd.Type)
		return ErrNotRunning
	}

	switch cmd.Type {
	case CommandFault:
		return c.faultLocked()
	case CommandShuffle:
		return c.shuffleLocked(ctx)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Type)
	}
}

func (c *Controller) faultLocked() error {
	res, err := c.injector.ApplyTo(c.registry, true, c.counter)
	if err != nil {
		return fmt.Errorf("inject fault: %w", err)
	}
	c.counter = res.Counter
	if !res.Consumed {
		c.log.Debug("Fault schedule exhausted", "counter", c.counter)
		return nil
	}

	c.metrics.fault(res.Injected)
	ev := core.FaultEvent{
		Time:     c.clock.Now(),
		Tick:     c.tick,
		Counter:  res.Counter,
		Target:   res.Target,
		Injected: res.Injected,
	}
	c.notify(func(o Observer) { o.OnFault(ev) })
	c.log.Info("Fault injected", "target", res.Target.Name(), "counter", res.Counter, "injected", res.Injected)
	return nil
}

func (c *Controller) shuffleLocked(ctx context.Context) error {
	res, err := c.shuffler.Shuffle(ctx, c.registry)
	if err != nil && !errors.Is(err, shuffle.ErrPersist) {
		return fmt.Errorf("shuffle: %w", err)
	}

	c.metrics.shuffles.Add(context.Background(), 1)
	ev := core.ShuffleEvent{
		Time:      c.clock.Now(),
		Tick:      c.tick,
		Before:    res.Before,
		After:     res.After,
		Neighbors: res.Neighbors,
		Digest:    res.Digest,
	}
	c.notify(func(o Observer) { o.OnShuffle(ev) })

	if err != nil {
		c.log.Error("Shuffle applied but neighbors not persisted", "error", err)
		return fmt.Errorf("shuffle: %w", err)
	}
	c.log.Info("Platoon shuffled", "labels", res.After, "digest", res.Digest)
	return nil
}

// Snapshot returns a consistent copy of the simulation for renderers.
func (c *Controller) Snapshot() core.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() core.Snapshot {
	return core.Snapshot{
		Tick:     c.tick,
		State:    c.state,
		Counter:  c.counter,
		Time:     c.clock.Now(),
		Entities: c.registry.Snapshot(),
	}
}

// Neighbors loads the persisted neighbor map.
func (c *Controller) Neighbors(ctx context.Context) (core.NeighborMap, error) {
	return c.shuffler.Load(ctx)
}
