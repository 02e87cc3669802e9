// Package console exposes the simulation controls as line commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zkplatoon/platoon/internal/dispatcher"
	"github.com/zkplatoon/platoon/internal/neighbors"
	"github.com/zkplatoon/platoon/pkg/core"
)

// Simulation is the part of the controller the commands drive.
type Simulation interface {
	Start() error
	Stop() error
	SetInterval(d time.Duration) error
	TriggerFault(ctx context.Context) error
	TriggerShuffle(ctx context.Context) error
	Snapshot() core.Snapshot
	Neighbors(ctx context.Context) (core.NeighborMap, error)
}

// RegisterCommands registers every simulation command on d.
func RegisterCommands(d *dispatcher.Dispatcher, sim Simulation) {
	d.Register("start", func(ctx context.Context, e dispatcher.Event) (any, error) {
		if err := sim.Start(); err != nil {
			return nil, err
		}
		return "simulation started", nil
	}, dispatcher.Logged(), dispatcher.Help("start ticking"))

	d.Register("stop", func(ctx context.Context, e dispatcher.Event) (any, error) {
		if err := sim.Stop(); err != nil {
			return nil, err
		}
		return "simulation stopped, platoon reset", nil
	}, dispatcher.Logged(), dispatcher.Help("stop and reset the platoon"))

	d.Register("fault", func(ctx context.Context, e dispatcher.Event) (any, error) {
		if err := sim.TriggerFault(ctx); err != nil {
			return nil, err
		}
		snap := sim.Snapshot()
		return fmt.Sprintf("fault counter %d, faulty: %s", snap.Counter, faultyNames(snap)), nil
	}, dispatcher.Logged(), dispatcher.Help("inject the next scheduled fault"))

	d.Register("shuffle", func(ctx context.Context, e dispatcher.Event) (any, error) {
		if err := sim.TriggerShuffle(ctx); err != nil {
			return nil, err
		}
		return FormatSnapshot(sim.Snapshot()), nil
	}, dispatcher.Logged(), dispatcher.Timeout(5*time.Second), dispatcher.Help("relabel the healthy trucks"))

	d.Register("status", func(ctx context.Context, e dispatcher.Event) (any, error) {
		return FormatSnapshot(sim.Snapshot()), nil
	}, dispatcher.Help("show the platoon"))

	d.Register("neighbors", func(ctx context.Context, e dispatcher.Event) (any, error) {
		m, err := sim.Neighbors(ctx)
		if errors.Is(err, neighbors.ErrNotFound) {
			return FormatNeighbors(nil), nil
		}
		if err != nil {
			return nil, err
		}
		return FormatNeighbors(m), nil
	}, dispatcher.Timeout(5*time.Second), dispatcher.Help("show the persisted neighbor map"))

	d.Register("interval", func(ctx context.Context, e dispatcher.Event) (any, error) {
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("usage: interval <duration>")
		}
		dur, err := time.ParseDuration(e.Args[0])
		if err != nil {
			return nil, fmt.Errorf("parse interval: %w", err)
		}
		if err := sim.SetInterval(dur); err != nil {
			return nil, err
		}
		return "tick interval " + dur.String(), nil
	}, dispatcher.Logged(), dispatcher.Help("set the tick interval, e.g. interval 500ms"))
}

// FormatSnapshot renders the platoon on one line per truck.
func FormatSnapshot(snap core.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "state=%s tick=%d faults=%d\n", snap.State, snap.Tick, snap.Counter)
	for _, e := range snap.Entities {
		status := "ok"
		if e.Faulty {
			status = "FAULTY"
		}
		fmt.Fprintf(&sb, "  %s label=%s pos=%d %s\n", e.ID.Name(), e.Label, e.Position, status)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatNeighbors renders a neighbor map sorted by name.
func FormatNeighbors(m core.NeighborMap) string {
	if len(m) == 0 {
		return "no neighbors stored"
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		pair := m[name]
		lines = append(lines, fmt.Sprintf("%s: front=%s rear=%s", name, pair[0], pair[1]))
	}
	return strings.Join(lines, "\n")
}

func faultyNames(snap core.Snapshot) string {
	var names []string
	for _, e := range snap.Entities {
		if e.Faulty {
			names = append(names, e.ID.Name())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
