package neighbors

import (
	"fmt"

	"github.com/zkplatoon/platoon/pkg/core"
)

// Func computes the neighbor map to persist after a shuffle from the
// previously stored map and the current platoon.
type Func func(prev core.NeighborMap, entities []core.Entity) core.NeighborMap

// Carry writes the previous map back unchanged.
func Carry(prev core.NeighborMap, _ []core.Entity) core.NeighborMap {
	return prev.Clone()
}

// ByOrder links every healthy truck to the healthy trucks directly ahead
// of and behind it. Entities must be in platoon order; the last entity is
// the front of the platoon. Faulty trucks get no entry.
func ByOrder(_ core.NeighborMap, entities []core.Entity) core.NeighborMap {
	healthy := make([]core.Entity, 0, len(entities))
	for _, e := range entities {
		if !e.Faulty {
			healthy = append(healthy, e)
		}
	}

	out := make(core.NeighborMap, len(healthy))
	for i, e := range healthy {
		front, rear := core.NoFront, core.NoRear
		if i+1 < len(healthy) {
			front = healthy[i+1].ID.Name()
		}
		if i > 0 {
			rear = healthy[i-1].ID.Name()
		}
		out[e.ID.Name()] = [2]string{front, rear}
	}
	return out
}

// Strategy resolves a configured strategy name.
func Strategy(name string) (Func, error) {
	switch name {
	case "", "carry":
		return Carry, nil
	case "order":
		return ByOrder, nil
	default:
		return nil, fmt.Errorf("unknown neighbor strategy: %s", name)
	}
}
