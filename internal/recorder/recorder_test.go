package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkplatoon/platoon/internal/config"
	"github.com/zkplatoon/platoon/internal/influx"
	"github.com/zkplatoon/platoon/internal/recorder/memory"
	"github.com/zkplatoon/platoon/internal/recorder/websocket"
	"github.com/zkplatoon/platoon/internal/simulation"
	"github.com/zkplatoon/platoon/pkg/core"
)

// Compile-time interface checks.
var (
	_ Backend             = (*memory.Backend)(nil)
	_ Backend             = (*websocket.Backend)(nil)
	_ Backend             = (*InfluxBackend)(nil)
	_ Backend             = Multi(nil)
	_ Backend             = Nop{}
	_ Exporter            = (*memory.Backend)(nil)
	_ simulation.Observer = (*Pump)(nil)
)

// spyBackend records call names in order.
type spyBackend struct {
	mu    sync.Mutex
	calls []string
	err   error
	delay time.Duration
}

func (s *spyBackend) record(name string) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.err
}

func (s *spyBackend) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *spyBackend) Init() error                              { return s.record("init") }
func (s *spyBackend) Close() error                             { return s.record("close") }
func (s *spyBackend) StartRun(*core.Run, *core.Snapshot) error { return s.record("start") }
func (s *spyBackend) EndRun(*core.Snapshot) error              { return s.record("end") }
func (s *spyBackend) RecordTick(*core.Snapshot) error          { return s.record("tick") }
func (s *spyBackend) RecordFault(*core.FaultEvent) error       { return s.record("fault") }
func (s *spyBackend) RecordShuffle(*core.ShuffleEvent) error   { return s.record("shuffle") }

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RecorderConfig
		wantErr bool
		check   func(t *testing.T, b Backend)
	}{
		{"memory", config.RecorderConfig{Type: "memory"}, false, func(t *testing.T, b Backend) {
			assert.IsType(t, &memory.Backend{}, b)
		}},
		{"default is memory", config.RecorderConfig{}, false, func(t *testing.T, b Backend) {
			assert.IsType(t, &memory.Backend{}, b)
		}},
		{"websocket", config.RecorderConfig{Type: "websocket", WebSocket: config.WebSocketConfig{URL: "ws://localhost:1"}}, false, func(t *testing.T, b Backend) {
			assert.IsType(t, &websocket.Backend{}, b)
		}},
		{"websocket without url", config.RecorderConfig{Type: "websocket"}, true, nil},
		{"none", config.RecorderConfig{Type: "none"}, false, func(t *testing.T, b Backend) {
			assert.Equal(t, Nop{}, b)
		}},
		{"unknown", config.RecorderConfig{Type: "tape"}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, b)
		})
	}
}

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &spyBackend{err: boom}
	b := &spyBackend{}
	m := Multi{a, b}

	err := m.RecordTick(&core.Snapshot{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"tick"}, a.Calls())
	assert.Equal(t, []string{"tick"}, b.Calls())

	require.NoError(t, Multi{b}.RecordShuffle(&core.ShuffleEvent{}))
	assert.Equal(t, []string{"tick", "shuffle"}, b.Calls())
}

func TestMulti_ExportedFilePath(t *testing.T) {
	dir := t.TempDir()
	mem := memory.New(config.MemoryConfig{OutputDir: dir})
	m := Multi{&spyBackend{}, mem}
	assert.Empty(t, m.ExportedFilePath())

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, m.StartRun(&core.Run{ID: 2, StartTime: start}, &core.Snapshot{}))
	require.NoError(t, m.EndRun(&core.Snapshot{}))
	assert.Equal(t, filepath.Join(dir, "run_002_20240102_030405.json"), m.ExportedFilePath())
}

func TestPump_PreservesOrderAndSyncs(t *testing.T) {
	spy := &spyBackend{delay: time.Millisecond}
	p := NewPump(spy, nil)

	p.OnStart(core.Run{ID: 1}, core.Snapshot{})
	for i := 0; i < 5; i++ {
		p.OnTick(core.Snapshot{Tick: uint64(i + 1)})
	}
	p.OnFault(core.FaultEvent{})
	p.OnShuffle(core.ShuffleEvent{})
	p.OnStop(core.Run{ID: 1}, core.Snapshot{})
	p.Sync()
	assert.Zero(t, p.Pending())

	assert.Equal(t, []string{"start", "tick", "tick", "tick", "tick", "tick", "fault", "shuffle", "end"}, spy.Calls())
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}

func TestPump_ErrorsDoNotStopDelivery(t *testing.T) {
	spy := &spyBackend{err: errors.New("down")}
	p := NewPump(spy, nil)

	p.OnTick(core.Snapshot{Tick: 1})
	p.OnTick(core.Snapshot{Tick: 2})
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, []string{"tick", "tick"}, spy.Calls())
}

func TestPump_CloseTimesOut(t *testing.T) {
	spy := &spyBackend{delay: 200 * time.Millisecond}
	p := NewPump(spy, nil)
	p.OnTick(core.Snapshot{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
	require.NoError(t, p.Close(context.Background()))
}

func TestInfluxBackend_Backup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx.lp.gz")
	m := influx.NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: "1",
		Org: "platoon", Bucket: "positions", BackupPath: backup,
	})
	b := NewInfluxBackend(m)
	require.NoError(t, b.Init())

	snap := &core.Snapshot{Entities: []core.Entity{{ID: 0, Label: "A"}}}
	require.NoError(t, b.StartRun(&core.Run{ID: 4}, snap))
	require.NoError(t, b.RecordTick(snap))
	require.NoError(t, b.RecordFault(&core.FaultEvent{Target: 3, Injected: true}))
	require.NoError(t, b.RecordShuffle(&core.ShuffleEvent{Digest: "d"}))
	require.NoError(t, b.EndRun(snap))
	require.NoError(t, b.Close())

	assert.FileExists(t, backup)
}
