// pkg/core/neighbors.go
package core

// Sentinels used in neighbor pairs for the ends of the platoon.
const (
	NoFront = "0"
	NoRear  = "1"
)

// NeighborMap maps an entity name to its [front, rear] neighbor names.
type NeighborMap map[string][2]string

// Clone returns an independent copy of the map.
func (m NeighborMap) Clone() NeighborMap {
	if m == nil {
		return NeighborMap{}
	}
	out := make(NeighborMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
