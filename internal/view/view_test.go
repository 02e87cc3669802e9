package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkplatoon/platoon/pkg/core"
)

type fakeSim struct {
	mu    sync.Mutex
	calls []string
	err   error
	snap  core.Snapshot
}

func (f *fakeSim) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeSim) Start() error                         { return f.call("start") }
func (f *fakeSim) Stop() error                          { return f.call("stop") }
func (f *fakeSim) TriggerFault(context.Context) error   { return f.call("fault") }
func (f *fakeSim) TriggerShuffle(context.Context) error { return f.call("shuffle") }
func (f *fakeSim) Snapshot() core.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSim) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return screen
}

func row(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var sb strings.Builder
	for x := 0; x < w; x++ {
		mainc, _, _, _ := screen.GetContent(x, y)
		if mainc == 0 {
			mainc = ' '
		}
		sb.WriteRune(mainc)
	}
	return strings.TrimRight(sb.String(), " ")
}

func snapshot(offset int64) core.Snapshot {
	s := core.Snapshot{State: core.StateRunning, Tick: uint64(offset)}
	for i, l := range core.CanonicalLabels {
		s.Entities = append(s.Entities, core.Entity{ID: core.EntityID(i), Label: l, Position: int64(i) + offset})
	}
	return s
}

func TestDraw_HealthyTrucksOnRoad(t *testing.T) {
	screen := newScreen(t)
	v := New(screen, &fakeSim{}, 0, nil)

	v.Draw(snapshot(0))

	assert.Equal(t, "PLATOON  running  tick 0  faults 0", row(screen, 0))
	assert.Equal(t, "  [A] [B] [C] [D] [E] [F]", row(screen, roadRow))
	assert.Equal(t, "faulty: none", row(screen, panelRow))
}

func TestDraw_WindowFollowsPlatoon(t *testing.T) {
	screen := newScreen(t)
	v := New(screen, &fakeSim{}, 0, nil)

	v.Draw(snapshot(1000))

	assert.Equal(t, "  [A] [B] [C] [D] [E] [F]", row(screen, roadRow))
	assert.Equal(t, "km 1000", row(screen, roadRow+2))
}

func TestDraw_FaultyTrucksInPanel(t *testing.T) {
	screen := newScreen(t)
	v := New(screen, &fakeSim{}, 0, nil)

	snap := snapshot(2)
	snap.Entities[3].Faulty = true
	snap.Entities[4].Faulty = true
	snap.Counter = 2
	v.Draw(snap)

	assert.Equal(t, "  [A] [B] [C]         [F]", row(screen, roadRow))
	assert.Equal(t, "faulty: D@5 E@6", row(screen, panelRow))

	_, _, style, _ := screen.GetContent(8, panelRow)
	fg, _, _ := style.Decompose()
	assert.Equal(t, tcell.ColorRed, fg)
}

func TestHandleKey(t *testing.T) {
	sim := &fakeSim{}
	v := New(newScreen(t), sim, 0, nil)
	ctx := context.Background()

	for _, r := range "sfwxz" {
		assert.True(t, v.HandleKey(ctx, tcell.NewEventKey(tcell.KeyRune, r, 0)))
	}
	assert.Equal(t, []string{"start", "fault", "shuffle", "stop"}, sim.Calls())
	assert.Equal(t, "stop ok", v.Status())

	assert.False(t, v.HandleKey(ctx, tcell.NewEventKey(tcell.KeyRune, 'q', 0)))
	assert.False(t, v.HandleKey(ctx, tcell.NewEventKey(tcell.KeyEscape, 0, 0)))
	assert.False(t, v.HandleKey(ctx, tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))
}

func TestHandleKey_ErrorShownInStatus(t *testing.T) {
	sim := &fakeSim{err: errors.New("simulation not running")}
	screen := newScreen(t)
	v := New(screen, sim, 0, nil)

	v.HandleKey(context.Background(), tcell.NewEventKey(tcell.KeyRune, 'f', 0))
	v.Draw(snapshot(0))

	assert.Equal(t, "fault: simulation not running", row(screen, statusRow))
}

func TestRun_QuitKey(t *testing.T) {
	sim := &fakeSim{snap: snapshot(0)}
	screen := newScreen(t)
	v := New(screen, sim, 5*time.Millisecond, nil)

	done := make(chan error, 1)
	go func() { done <- v.Run(context.Background()) }()

	screen.InjectKey(tcell.KeyRune, 's', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("view did not exit on q")
	}
	assert.Equal(t, []string{"start"}, sim.Calls())
}

func TestRun_ContextCancel(t *testing.T) {
	screen := newScreen(t)
	v := New(screen, &fakeSim{snap: snapshot(0)}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("view did not exit on cancel")
	}
}
