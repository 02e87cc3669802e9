// pkg/core/truck.go
package core

import "time"

// EntityID is the stable identity of a truck. It never changes for the
// lifetime of a run, unlike the display label.
type EntityID uint8

// CanonicalLabels are the display labels trucks carry after a reset,
// indexed by EntityID.
var CanonicalLabels = []string{"A", "B", "C", "D", "E", "F"}

// FleetSize is the number of trucks in the platoon.
const FleetSize = 6

// Name returns the canonical label of the identity ("A".."F").
// Neighbor maps and fault schedules are keyed by this name, never by
// the current display label.
func (id EntityID) Name() string {
	if int(id) < len(CanonicalLabels) {
		return CanonicalLabels[id]
	}
	return "?"
}

// ParseEntityID resolves a canonical name back to its identity.
func ParseEntityID(name string) (EntityID, bool) {
	for i, l := range CanonicalLabels {
		if l == name {
			return EntityID(i), true
		}
	}
	return 0, false
}

// Entity is a single simulated truck.
type Entity struct {
	ID       EntityID `json:"id"`
	Label    string   `json:"label"`
	Position int64    `json:"position"`
	Faulty   bool     `json:"faulty"`
}

// RunState is the lifecycle state of the simulation.
type RunState string

const (
	StateStopped RunState = "stopped"
	StateRunning RunState = "running"
)

// Snapshot is a read-only copy of the simulation handed to renderers
// and recorders.
type Snapshot struct {
	Tick     uint64    `json:"tick"`
	State    RunState  `json:"state"`
	Counter  int       `json:"faultCounter"`
	Time     time.Time `json:"time"`
	Entities []Entity  `json:"entities"`
}
