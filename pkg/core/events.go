// pkg/core/events.go
package core

import "time"

// Run describes one start..stop cycle of the simulation.
type Run struct {
	ID           uint          `json:"id"`
	StartTime    time.Time     `json:"startTime"`
	TickInterval time.Duration `json:"tickInterval"`
	Seed         uint64        `json:"seed,omitempty"`
}

// FaultEvent records a consumed fault trigger.
// Injected is false when the target was already faulty.
type FaultEvent struct {
	Time     time.Time `json:"time"`
	Tick     uint64    `json:"tick"`
	Counter  int       `json:"counter"`
	Target   EntityID  `json:"target"`
	Injected bool      `json:"injected"`
}

// ShuffleEvent records a single relabeling of the healthy trucks.
type ShuffleEvent struct {
	Time      time.Time   `json:"time"`
	Tick      uint64      `json:"tick"`
	Before    []string    `json:"before"`
	After     []string    `json:"after"`
	Neighbors NeighborMap `json:"neighbors"`
	Digest    string      `json:"digest"`
}
