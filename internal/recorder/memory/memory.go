// internal/recorder/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/zkplatoon/platoon/internal/config"
	"github.com/zkplatoon/platoon/pkg/core"
)

// LabelChange records the display label a truck carried from Tick on.
type LabelChange struct {
	Tick  uint64 `json:"tick"`
	Label string `json:"label"`
}

// TrackRecord groups a truck with its per-tick positions
type TrackRecord struct {
	ID        core.EntityID
	Positions []int64
	Labels    []LabelChange
	FaultTick *uint64
}

// Backend keeps a run in memory and exports it to JSON when it ends.
type Backend struct {
	cfg   config.MemoryConfig
	run   *core.Run
	final *core.Snapshot

	tracks   map[core.EntityID]*TrackRecord
	order    []core.EntityID
	faults   []core.FaultEvent
	shuffles []core.ShuffleEvent
	lastTick uint64

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		tracks: make(map[core.EntityID]*TrackRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run from its initial snapshot.
func (b *Backend) StartRun(run *core.Run, snap *core.Snapshot) error {
	if run == nil || snap == nil {
		return errors.New("start run: nil run or snapshot")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r := *run
	b.run = &r
	b.final = nil
	b.tracks = make(map[core.EntityID]*TrackRecord, len(snap.Entities))
	b.order = b.order[:0]
	b.faults = nil
	b.shuffles = nil
	b.lastTick = snap.Tick

	for _, e := range snap.Entities {
		b.tracks[e.ID] = &TrackRecord{
			ID:        e.ID,
			Positions: []int64{e.Position},
			Labels:    []LabelChange{{Tick: snap.Tick, Label: e.Label}},
		}
		b.order = append(b.order, e.ID)
	}
	return nil
}

// EndRun keeps the final snapshot and exports the run.
func (b *Backend) EndRun(final *core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return errors.New("end run: no run started")
	}
	if final != nil {
		f := *final
		b.final = &f
	}
	err := b.exportJSON()
	b.run = nil
	return err
}

// RecordTick appends one position per truck.
func (b *Backend) RecordTick(snap *core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return errors.New("record tick: no run started")
	}
	b.lastTick = snap.Tick
	for _, e := range snap.Entities {
		t, ok := b.tracks[e.ID]
		if !ok {
			continue
		}
		t.Positions = append(t.Positions, e.Position)
		t.relabel(snap.Tick, e.Label)
	}
	return nil
}

func (t *TrackRecord) relabel(tick uint64, label string) {
	if t.Labels[len(t.Labels)-1].Label != label {
		t.Labels = append(t.Labels, LabelChange{Tick: tick, Label: label})
	}
}

// RecordFault stores the event and marks the target's track.
func (b *Backend) RecordFault(ev *core.FaultEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return errors.New("record fault: no run started")
	}
	b.faults = append(b.faults, *ev)
	if t, ok := b.tracks[ev.Target]; ok && ev.Injected && t.FaultTick == nil {
		tick := ev.Tick
		t.FaultTick = &tick
	}
	return nil
}

// RecordShuffle stores the event and relabels the healthy tracks, in
// identity order, from ev.After.
func (b *Backend) RecordShuffle(ev *core.ShuffleEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return errors.New("record shuffle: no run started")
	}
	cp := *ev
	cp.Neighbors = ev.Neighbors.Clone()
	b.shuffles = append(b.shuffles, cp)

	healthy := make([]*TrackRecord, 0, len(b.order))
	for _, id := range b.order {
		if t := b.tracks[id]; t.FaultTick == nil {
			healthy = append(healthy, t)
		}
	}
	// a count mismatch means a fault was not recorded; the next tick
	// corrects the labels instead
	if len(healthy) != len(ev.After) {
		return nil
	}
	for i, t := range healthy {
		t.relabel(ev.Tick, ev.After[i])
	}
	return nil
}

// Tracks returns copies of the recorded tracks in identity order.
func (b *Backend) Tracks() []TrackRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]TrackRecord, 0, len(b.order))
	for _, id := range b.order {
		t := b.tracks[id]
		cp := TrackRecord{
			ID:        t.ID,
			Positions: append([]int64(nil), t.Positions...),
			Labels:    append([]LabelChange(nil), t.Labels...),
		}
		if t.FaultTick != nil {
			ft := *t.FaultTick
			cp.FaultTick = &ft
		}
		out = append(out, cp)
	}
	return out
}

// Faults returns the recorded fault events.
func (b *Backend) Faults() []core.FaultEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.FaultEvent(nil), b.faults...)
}

// Shuffles returns the recorded shuffle events.
func (b *Backend) Shuffles() []core.ShuffleEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.ShuffleEvent(nil), b.shuffles...)
}
