// internal/recorder/recorder.go
package recorder

import "github.com/zkplatoon/platoon/pkg/core"

// Backend is the interface all run recorders must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run, snap *core.Snapshot) error
	EndRun(final *core.Snapshot) error

	// Recording
	RecordTick(snap *core.Snapshot) error
	RecordFault(ev *core.FaultEvent) error
	RecordShuffle(ev *core.ShuffleEvent) error
}

// Exporter is an optional interface for backends that write a replay
// file when a run ends.
type Exporter interface {
	ExportedFilePath() string
}

// Nop discards everything. Used for recorder.type "none".
type Nop struct{}

func (Nop) Init() error                              { return nil }
func (Nop) Close() error                             { return nil }
func (Nop) StartRun(*core.Run, *core.Snapshot) error { return nil }
func (Nop) EndRun(*core.Snapshot) error              { return nil }
func (Nop) RecordTick(*core.Snapshot) error          { return nil }
func (Nop) RecordFault(*core.FaultEvent) error       { return nil }
func (Nop) RecordShuffle(*core.ShuffleEvent) error   { return nil }
