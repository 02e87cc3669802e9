// Package view draws the platoon in a terminal and maps keys to
// simulation commands.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zkplatoon/platoon/pkg/core"
)

const (
	roadRow    = 4
	truckWidth = 4
	leftMargin = 2
	panelRow   = 7
	statusRow  = 10
)

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleRoad    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTruck   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleFaulty  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHelp    = tcell.StyleDefault.Foreground(tcell.ColorTeal)
)

// Simulation is what the view reads and controls.
type Simulation interface {
	Start() error
	Stop() error
	TriggerFault(ctx context.Context) error
	TriggerShuffle(ctx context.Context) error
	Snapshot() core.Snapshot
}

// View renders frames of a Simulation on a tcell screen.
type View struct {
	screen tcell.Screen
	sim    Simulation
	frame  time.Duration
	log    *slog.Logger

	status    string
	statusErr bool
}

// New creates a view. The screen must already be initialized.
func New(screen tcell.Screen, sim Simulation, frame time.Duration, logger *slog.Logger) *View {
	if frame <= 0 {
		frame = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &View{
		screen: screen,
		sim:    sim,
		frame:  frame,
		log:    logger,
		status: "press s to start",
	}
}

// Run redraws every frame until q is pressed or ctx is done.
func (v *View) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(v.frame)
	defer ticker.Stop()

	v.Draw(v.sim.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.HandleKey(ctx, ev) {
					return nil
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}
			v.Draw(v.sim.Snapshot())
		case <-ticker.C:
			v.Draw(v.sim.Snapshot())
		}
	}
}

// HandleKey applies a key press. It returns false when the view should exit.
func (v *View) HandleKey(ctx context.Context, ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if ev.Key() != tcell.KeyRune {
		return true
	}

	var (
		name string
		err  error
	)
	switch ev.Rune() {
	case 'q':
		return false
	case 's':
		name, err = "start", v.sim.Start()
	case 'x':
		name, err = "stop", v.sim.Stop()
	case 'f':
		name, err = "fault", v.sim.TriggerFault(ctx)
	case 'w':
		name, err = "shuffle", v.sim.TriggerShuffle(ctx)
	default:
		return true
	}

	if err != nil {
		v.log.Debug("View command failed", "command", name, "error", err)
		v.setStatus(fmt.Sprintf("%s: %v", name, err), true)
	} else {
		v.setStatus(name+" ok", false)
	}
	return true
}

func (v *View) setStatus(msg string, isErr bool) {
	v.status = msg
	v.statusErr = isErr
}

// Status returns the last command outcome shown on screen.
func (v *View) Status() string {
	return v.status
}

// Draw renders one frame.
func (v *View) Draw(snap core.Snapshot) {
	v.screen.Clear()
	width, _ := v.screen.Size()

	v.text(0, 0, "PLATOON", styleTitle)
	v.text(9, 0, fmt.Sprintf("%s  tick %d  faults %d", snap.State, snap.Tick, snap.Counter), styleDefault)

	v.drawRoad(snap, width)
	v.drawFaultPanel(snap)

	style := styleDefault
	if v.statusErr {
		style = styleError
	}
	v.text(0, statusRow, v.status, style)
	v.text(0, statusRow+2, "[s]tart  [x] stop  [f]ault  [w] shuffle  [q]uit", styleHelp)

	v.screen.Show()
}

// drawRoad places healthy trucks by position. The window starts at the
// rearmost healthy truck so the platoon stays on screen as it advances.
func (v *View) drawRoad(snap core.Snapshot, width int) {
	for x := 0; x < width; x++ {
		v.screen.SetContent(x, roadRow-1, '─', nil, styleRoad)
		v.screen.SetContent(x, roadRow+1, '─', nil, styleRoad)
	}

	healthy := make([]core.Entity, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		if !e.Faulty {
			healthy = append(healthy, e)
		}
	}
	if len(healthy) == 0 {
		return
	}
	sort.Slice(healthy, func(i, j int) bool { return healthy[i].Position < healthy[j].Position })

	base := healthy[0].Position
	v.text(0, roadRow+2, fmt.Sprintf("km %d", base), styleRoad)
	for _, e := range healthy {
		x := leftMargin + int(e.Position-base)*truckWidth
		if x+3 > width {
			continue
		}
		v.text(x, roadRow, "["+e.Label+"]", styleTruck)
	}
}

func (v *View) drawFaultPanel(snap core.Snapshot) {
	var parts []string
	for _, e := range snap.Entities {
		if e.Faulty {
			parts = append(parts, fmt.Sprintf("%s@%d", e.Label, e.Position))
		}
	}
	if len(parts) == 0 {
		v.text(0, panelRow, "faulty: none", styleDefault)
		return
	}
	v.text(0, panelRow, "faulty: "+strings.Join(parts, " "), styleFaulty)
}

func (v *View) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
