package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestSlogManager_LoggerBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Same(t, slog.Default(), m.Logger())
}

func TestSlogManager_FileOnly(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info"})

	m.Logger().Info("truck advanced", "id", 3)

	out := file.String()
	assert.Contains(t, out, "Logging initialized")
	assert.Contains(t, out, "truck advanced")
	assert.Contains(t, out, "id=3")
}

func TestSlogManager_LevelFilterAndSetLevel(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "warn"})

	m.Logger().Info("hidden")
	assert.NotContains(t, file.String(), "hidden")

	m.SetLevel("debug")
	m.Logger().Debug("visible")
	assert.Contains(t, file.String(), "visible")
}

func TestSlogManager_GelfSinkGetsJSON(t *testing.T) {
	var file, gelf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Gelf: &gelf, Level: "info"})

	m.Logger().Warn("fault injected", "target", "D")

	lines := strings.Split(strings.TrimSpace(gelf.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "fault injected", rec["msg"])
	assert.Equal(t, "D", rec["target"])
	assert.Equal(t, "WARN", rec["level"])
}

type fakeRun struct {
	state string
	id    uint
	tick  uint64
}

func (f *fakeRun) RunState() string    { return f.state }
func (f *fakeRun) RunID() uint         { return f.id }
func (f *fakeRun) CurrentTick() uint64 { f.tick++; return f.tick }

func TestSlogManager_RunContext(t *testing.T) {
	var file bytes.Buffer
	run := &fakeRun{state: "running", id: 4}
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info", Run: run})

	m.Logger().Info("frame")

	out := file.String()
	assert.Contains(t, out, "state=running")
	assert.Contains(t, out, "run=4")
	assert.Contains(t, out, "tick=2")
}

func TestSlogManager_RunContextStopped(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info", Run: &fakeRun{state: "stopped"}})

	m.Logger().With("component", "view").WithGroup("g").Info("idle", "k", 1)

	out := file.String()
	assert.Contains(t, out, "state=stopped")
	assert.Contains(t, out, "component=view")
	assert.NotContains(t, out, "tick=")
	assert.NotContains(t, out, "run=")
}

func TestSlogManager_Zerolog(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()

	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	// Before Setup the zerolog logger discards.
	nop := m.Zerolog("database")
	nop.Info().Msg("dropped")
	assert.Empty(t, file.String())

	m.Setup(Options{File: &file, Level: "info"})
	zl := m.Zerolog("database")
	zl.Info().Msg("connected")
	assert.Contains(t, file.String(), `"component":"database"`)
	assert.Contains(t, file.String(), `"message":"connected"`)
}

func TestSlogManager_SetLevelReachesZerolog(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	m.Setup(Options{File: &file, Level: "info"})
	zl := m.Zerolog("influx")

	zl.Debug().Msg("hidden")
	assert.NotContains(t, file.String(), "hidden")

	m.SetLevel("debug")
	zl.Debug().Msg("visible")
	assert.Contains(t, file.String(), "visible")

	m.SetLevel("error")
	zl.Warn().Msg("muted")
	assert.NotContains(t, file.String(), "muted")
}

func TestSlogManager_FlushWithoutProvider(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandler(t *testing.T) {
	t.Run("nil handlers filtered", func(t *testing.T) {
		h := NewMultiHandler(nil, nil)
		assert.False(t, h.Enabled(context.Background(), slog.LevelError))
	})

	t.Run("failing sink does not block others", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewMultiHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))
		err := slog.New(h).Handler().Handle(context.Background(),
			slog.NewRecord(timeZero, slog.LevelInfo, "still delivered", 0))
		assert.ErrorContains(t, err, "sink down")
		assert.Contains(t, buf.String(), "still delivered")
	})

	t.Run("attrs and groups propagate", func(t *testing.T) {
		var a, b bytes.Buffer
		h := NewMultiHandler(slog.NewTextHandler(&a, nil), slog.NewTextHandler(&b, nil))
		slog.New(h).WithGroup("truck").With("id", 4).Info("moved")
		assert.Contains(t, a.String(), "truck.id=4")
		assert.Contains(t, b.String(), "truck.id=4")
	})

	t.Run("per-handler level", func(t *testing.T) {
		var info, errs bytes.Buffer
		h := NewMultiHandler(
			slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
			slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
		)
		slog.New(h).Info("tick")
		assert.Contains(t, info.String(), "tick")
		assert.Empty(t, errs.String())
	})
}
