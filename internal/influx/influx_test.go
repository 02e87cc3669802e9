package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkplatoon/platoon/internal/config"
	"github.com/zkplatoon/platoon/pkg/core"
)

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		Tick:  7,
		State: core.StateRunning,
		Time:  time.Unix(1700000000, 0).UTC(),
		Entities: []core.Entity{
			{ID: 0, Label: "C", Position: 7},
			{ID: 3, Label: "D", Position: 10, Faulty: true},
		},
	}
}

func TestPositionPoints(t *testing.T) {
	points := PositionPoints(2, testSnapshot())
	require.Len(t, points, 2)

	p := points[1]
	assert.Equal(t, MeasurementPosition, p.Name())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"run": "2", "id": "D", "label": "D", "faulty": "true"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(10), fields["position"])
	assert.Equal(t, int64(7), fields["tick"])
}

func TestFaultAndShufflePoints(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	fp := FaultPoint(1, core.FaultEvent{Time: ts, Tick: 3, Counter: 1, Target: 4, Injected: true})
	assert.Equal(t, MeasurementEvent, fp.Name())
	assert.Equal(t, ts, fp.Time())

	sp := ShufflePoint(1, core.ShuffleEvent{Time: ts, Digest: "abc"})
	var digest any
	for _, f := range sp.FieldList() {
		if f.Key == "digest" {
			digest = f.Value
		}
	}
	assert.Equal(t, "abc", digest)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.Error(t, m.Connect(context.Background()))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.Error(t, m.WritePoint(PositionPoints(1, testSnapshot())[0]))
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx", "backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "platoon",
		Bucket:     "positions",
		BackupPath: backup,
	})
	assert.Equal(t, "http://127.0.0.1:1", m.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	require.NoError(t, m.WriteSnapshot(1, testSnapshot()))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "truck_position,"))
	assert.Contains(t, lines[1], "id=D")
	assert.Contains(t, lines[1], "position=10i")
	assert.True(t, strings.HasSuffix(lines[1], "1700000000000000000"))
}
