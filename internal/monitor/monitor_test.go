package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkplatoon/platoon/pkg/core"
)

func snapshot() core.Snapshot {
	s := core.Snapshot{Tick: 4, State: core.StateRunning, Counter: 1}
	for i, l := range core.CanonicalLabels {
		s.Entities = append(s.Entities, core.Entity{ID: core.EntityID(i), Label: l, Position: int64(i + 4)})
	}
	s.Entities[3].Faulty = true
	return s
}

func TestGetStatus(t *testing.T) {
	svc := NewService(Dependencies{
		Snapshot: snapshot,
		Pending:  func() int { return 3 },
	})

	st := svc.GetStatus()
	assert.Equal(t, core.StateRunning, st.State)
	assert.Equal(t, uint64(4), st.Tick)
	assert.Equal(t, 1, st.FaultCounter)
	assert.Equal(t, []string{"D"}, st.Faulty)
	assert.Equal(t, core.CanonicalLabels[:], st.Labels)
	assert.Equal(t, 3, st.PendingWrites)
}

func TestWriteStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "status.json")
	svc := NewService(Dependencies{Snapshot: snapshot, StatusPath: path})

	require.NoError(t, svc.WriteStatus())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, uint64(4), st.Tick)
	assert.Zero(t, st.PendingWrites)
	assert.NoFileExists(t, path+".tmp")
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{Snapshot: snapshot, StatusPath: path, Interval: 10 * time.Millisecond})

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	svc.Stop()
	svc.Stop()
	assert.False(t, svc.IsRunning())
}

func TestStartWithoutPath(t *testing.T) {
	svc := NewService(Dependencies{Snapshot: snapshot})
	assert.Error(t, svc.Start())
	assert.False(t, svc.IsRunning())
}
