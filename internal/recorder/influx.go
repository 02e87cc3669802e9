package recorder

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/zkplatoon/platoon/internal/influx"
	"github.com/zkplatoon/platoon/pkg/core"
)

// InfluxBackend writes positions and events as InfluxDB points.
type InfluxBackend struct {
	manager     *influx.Manager
	connTimeout time.Duration
	runID       atomic.Uint64
}

// NewInfluxBackend wraps a not yet connected manager.
func NewInfluxBackend(m *influx.Manager) *InfluxBackend {
	return &InfluxBackend{manager: m, connTimeout: 10 * time.Second}
}

// Init connects the manager, falling back to its backup file.
func (b *InfluxBackend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), b.connTimeout)
	defer cancel()
	return b.manager.Connect(ctx)
}

func (b *InfluxBackend) Close() error {
	return b.manager.Close()
}

func (b *InfluxBackend) StartRun(run *core.Run, snap *core.Snapshot) error {
	if run == nil {
		return errors.New("nil run")
	}
	b.runID.Store(uint64(run.ID))
	return b.manager.WriteSnapshot(run.ID, *snap)
}

func (b *InfluxBackend) EndRun(final *core.Snapshot) error {
	return b.manager.WriteSnapshot(b.run(), *final)
}

func (b *InfluxBackend) RecordTick(snap *core.Snapshot) error {
	return b.manager.WriteSnapshot(b.run(), *snap)
}

func (b *InfluxBackend) RecordFault(ev *core.FaultEvent) error {
	return b.manager.WritePoint(influx.FaultPoint(b.run(), *ev))
}

func (b *InfluxBackend) RecordShuffle(ev *core.ShuffleEvent) error {
	return b.manager.WritePoint(influx.ShufflePoint(b.run(), *ev))
}

func (b *InfluxBackend) run() uint {
	return uint(b.runID.Load())
}
