// Package fleet holds the fixed set of simulated trucks.
package fleet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zkplatoon/platoon/pkg/core"
)

var (
	// ErrInvalidIdentity is returned when an unknown entity is referenced.
	ErrInvalidIdentity = errors.New("invalid entity identity")
	// ErrInvalidLabelCount is returned when a relabel does not cover every healthy truck.
	ErrInvalidLabelCount = errors.New("label count does not match non-faulty entities")
)

// Registry holds the platoon. All mutations go through one lock so that
// readers never observe a half-applied tick or shuffle.
type Registry struct {
	mu       sync.RWMutex
	entities []core.Entity
}

// New creates a registry in canonical state.
func New() *Registry {
	r := &Registry{}
	r.entities = canonical()
	return r
}

func canonical() []core.Entity {
	out := make([]core.Entity, core.FleetSize)
	for i := range out {
		out[i] = core.Entity{
			ID:       core.EntityID(i),
			Label:    core.CanonicalLabels[i],
			Position: int64(i),
		}
	}
	return out
}

// Reset restores trucks A-F at positions 0..5 with faults cleared.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = canonical()
}

// AdvanceAll moves every truck forward by one, faulty ones included.
func (r *Registry) AdvanceAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	(&Tx{r: r}).AdvanceAll()
}

// SetFaulty marks the entity faulty. Marking an already faulty entity is a no-op.
func (r *Registry) SetFaulty(id core.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (&Tx{r: r}).SetFaulty(id)
}

// RenameNonFaulty assigns labels to the healthy trucks in iteration order.
func (r *Registry) RenameNonFaulty(labels []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (&Tx{r: r}).RenameNonFaulty(labels)
}

// Update runs fn with exclusive access. Mutations made through tx are
// applied atomically with respect to every other registry call.
func (r *Registry) Update(fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&Tx{r: r})
}

// Snapshot returns a copy of all entities in iteration order.
func (r *Registry) Snapshot() []core.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// Get returns a copy of a single entity.
func (r *Registry) Get(id core.EntityID) (core.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.entities) {
		return core.Entity{}, false
	}
	return r.entities[id], true
}

// NonFaulty returns copies of the healthy trucks in iteration order.
func (r *Registry) NonFaulty() []core.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return (&Tx{r: r}).NonFaulty()
}

// NonFaultyCount returns the number of healthy trucks.
func (r *Registry) NonFaultyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len((&Tx{r: r}).NonFaulty())
}

// Len returns the total number of trucks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Tx is a handle to a locked registry, valid only inside Update.
type Tx struct {
	r *Registry
}

// AdvanceAll moves every truck forward by one.
func (tx *Tx) AdvanceAll() {
	for i := range tx.r.entities {
		tx.r.entities[i].Position++
	}
}

// SetFaulty marks the entity faulty.
func (tx *Tx) SetFaulty(id core.EntityID) error {
	if int(id) >= len(tx.r.entities) {
		return fmt.Errorf("set faulty %d: %w", id, ErrInvalidIdentity)
	}
	tx.r.entities[id].Faulty = true
	return nil
}

// Get returns a copy of a single entity.
func (tx *Tx) Get(id core.EntityID) (core.Entity, bool) {
	if int(id) >= len(tx.r.entities) {
		return core.Entity{}, false
	}
	return tx.r.entities[id], true
}

// NonFaulty returns copies of the healthy trucks in iteration order.
func (tx *Tx) NonFaulty() []core.Entity {
	out := make([]core.Entity, 0, len(tx.r.entities))
	for _, e := range tx.r.entities {
		if !e.Faulty {
			out = append(out, e)
		}
	}
	return out
}

// RenameNonFaulty assigns labels[i] to the i-th healthy truck.
// Faulty trucks keep their label.
func (tx *Tx) RenameNonFaulty(labels []string) error {
	healthy := 0
	for _, e := range tx.r.entities {
		if !e.Faulty {
			healthy++
		}
	}
	if len(labels) != healthy {
		return fmt.Errorf("rename %d labels for %d trucks: %w", len(labels), healthy, ErrInvalidLabelCount)
	}

	next := 0
	for i := range tx.r.entities {
		if tx.r.entities[i].Faulty {
			continue
		}
		tx.r.entities[i].Label = labels[next]
		next++
	}
	return nil
}

// Snapshot returns a copy of all entities.
func (tx *Tx) Snapshot() []core.Entity {
	out := make([]core.Entity, len(tx.r.entities))
	copy(out, tx.r.entities)
	return out
}
