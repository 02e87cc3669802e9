package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timeZero time.Time

func TestLogFilePath(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name string
		dir  string
		app  string
		want string
	}{
		{"relative dir", "platoonlogs", "platoonsim", filepath.Join("platoonlogs", "platoonsim.20240309_140507.log")},
		{"absolute dir", filepath.Join(string(filepath.Separator), "var", "log"), "sim", filepath.Join(string(filepath.Separator), "var", "log", "sim.20240309_140507.log")},
		{"empty dir", "", "platoonsim", "platoonsim.20240309_140507.log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.dir, tt.app, ts))
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	f, err := OpenLogFile(dir, "platoonsim", ts)
	require.NoError(t, err)
	_, err = f.WriteString("hello\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(LogFilePath(dir, "platoonsim", ts))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestNewGelfWriter_BadAddress(t *testing.T) {
	_, err := NewGelfWriter("not-an-address", "platoonsim")
	assert.Error(t, err)
}

func TestNewGelfWriter(t *testing.T) {
	w, err := NewGelfWriter("127.0.0.1:12201", "platoonsim")
	require.NoError(t, err)
	assert.Equal(t, "platoonsim", w.Facility)
	require.NoError(t, w.Close())
}

func TestToFields(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1, "b": nil}, toFields([]any{"a", 1, 42, "x", "b"}))
}
