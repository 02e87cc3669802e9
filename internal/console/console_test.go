package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkplatoon/platoon/internal/dispatcher"
	"github.com/zkplatoon/platoon/internal/logging"
	"github.com/zkplatoon/platoon/internal/neighbors"
	"github.com/zkplatoon/platoon/internal/scheduler"
	"github.com/zkplatoon/platoon/internal/shuffle"
	"github.com/zkplatoon/platoon/internal/simulation"
	"github.com/zkplatoon/platoon/pkg/core"
)

func newConsole(t *testing.T) (*dispatcher.Dispatcher, *simulation.Controller, *scheduler.ManualClock) {
	t.Helper()
	clock := scheduler.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := neighbors.NewMemoryStore()
	sh := shuffle.New(store, shuffle.WithRand(rand.New(rand.NewPCG(7, 7))))
	ctrl, err := simulation.New(simulation.Dependencies{Clock: clock, Shuffler: sh}, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Stop() })

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	RegisterCommands(d, ctrl)
	return d, ctrl, clock
}

func run(t *testing.T, d *dispatcher.Dispatcher, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), strings.NewReader(input), &out, d))
	return out.String()
}

func TestRun_Session(t *testing.T) {
	d, ctrl, _ := newConsole(t)

	out := run(t, d, "start\nfault\nfault\nfault\nstatus\nstop\n")

	assert.Contains(t, out, "simulation started")
	assert.Contains(t, out, "fault counter 1, faulty: D")
	assert.Contains(t, out, "fault counter 2, faulty: D,E")
	assert.Contains(t, out, "state=running tick=0 faults=2")
	assert.Contains(t, out, "  E label=E pos=4 FAULTY")
	assert.Contains(t, out, "simulation stopped, platoon reset")
	assert.Equal(t, core.StateStopped, ctrl.State())
}

func TestRun_TriggersWhileStopped(t *testing.T) {
	d, _, _ := newConsole(t)

	out := run(t, d, "fault\nshuffle\n")

	assert.Equal(t, 2, strings.Count(out, "error: "+simulation.ErrNotRunning.Error()))
}

func TestRun_ShuffleAndNeighbors(t *testing.T) {
	d, _, _ := newConsole(t)

	out := run(t, d, "neighbors\nstart\nshuffle\nneighbors\n")

	assert.Equal(t, 2, strings.Count(out, "no neighbors stored"))
	assert.Contains(t, out, "state=running")
}

func TestRun_QuitStopsReading(t *testing.T) {
	d, ctrl, _ := newConsole(t)

	run(t, d, "quit\nstart\n")
	assert.Equal(t, core.StateStopped, ctrl.State())
}

func TestRun_HelpAndUnknown(t *testing.T) {
	d, _, _ := newConsole(t)

	out := run(t, d, "help\n\nwarp 9\n")

	for _, name := range []string{"start", "stop", "fault", "shuffle", "status", "neighbors", "interval"} {
		assert.Contains(t, out, "  "+name)
	}
	assert.Contains(t, out, "error: unknown command: warp")
}

func TestRun_Interval(t *testing.T) {
	d, ctrl, _ := newConsole(t)

	out := run(t, d, "interval 250ms\ninterval\ninterval soon\ninterval -1s\n")

	assert.Contains(t, out, "tick interval 250ms")
	assert.Contains(t, out, "usage: interval <duration>")
	assert.Contains(t, out, "parse interval")
	assert.Contains(t, out, scheduler.ErrInvalidInterval.Error())
	assert.Equal(t, 250*time.Millisecond, ctrl.Interval())
}

func TestRun_TicksVisibleInStatus(t *testing.T) {
	d, ctrl, clock := newConsole(t)
	require.NoError(t, ctrl.Start())

	clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool { return ctrl.Snapshot().Tick == 3 }, time.Second, 5*time.Millisecond)

	out := run(t, d, "status\n")
	assert.Contains(t, out, "  A label=A pos=3 ok")
}

func TestRun_ContextCancel(t *testing.T) {
	d, _, _ := newConsole(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, pr, io.Discard, d) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestRun_ReaderError(t *testing.T) {
	d, _, _ := newConsole(t)
	err := Run(context.Background(), errReader{}, io.Discard, d)
	assert.ErrorContains(t, err, "tty gone")
}

func TestFormatNeighbors(t *testing.T) {
	assert.Equal(t, "no neighbors stored", FormatNeighbors(nil))
	assert.Equal(t,
		"A: front=0 rear=B\nB: front=A rear=1",
		FormatNeighbors(core.NeighborMap{"B": {"A", core.NoRear}, "A": {core.NoFront, "B"}}),
	)
}
