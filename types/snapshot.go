package types

import "time"

// SnapshotMetadata describes a snapshot without containing it.
type SnapshotMetadata struct {
	TickID        uint64    `json:"tick_id"`
	ComponentType string    `json:"component_type"`
	EntityCount   int       `json:"entity_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// Snapshot is the per-tick view of all component data: component type to
// entity to an independent copy of that entity's payload. It is built once
// at the start of a tick and shared read-only by every system in that tick.
// Systems must not mutate it; all state changes go through the write buffer.
type Snapshot map[string]map[EntityID]ComponentData

// Types returns the component types present in the snapshot.
func (s Snapshot) Types() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

// EntityCount returns the number of distinct entities across all types.
func (s Snapshot) EntityCount() int {
	seen := make(map[EntityID]struct{})
	for _, byEntity := range s {
		for id := range byEntity {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
