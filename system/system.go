// Package system defines the contract between logic units and the tick
// coordinator. A system declares the component signature it processes and
// its ordering dependencies; each tick it receives the shared snapshot and
// the tick's write buffer, and expresses every intended state change as
// buffered writes.
package system

import (
	"context"

	"github.com/meridian-games/shardcore/buffer"
	"github.com/meridian-games/shardcore/types"
)

// System is one logic unit driven by the tick coordinator.
type System interface {
	// Definition declares the system's name, component signature,
	// dependencies, and priority. It must be stable across calls.
	Definition() types.SystemDefinition

	// ProcessTick runs the system for one tick. The snapshot is shared
	// read-only by every system in the tick and must not be mutated; all
	// state changes go through the write buffer. Returns the number of
	// entities processed.
	ProcessTick(ctx context.Context, tickID uint64, snap types.Snapshot, buf *buffer.WriteBuffer) (int, error)
}

// MatchedEntity is one entity selected by a system's component signature,
// with its required data and whatever optional data was present.
type MatchedEntity struct {
	Entity   types.EntityID
	Required map[string]types.ComponentData
	Optional map[string]types.ComponentData
}

// Processor is the per-tick logic a Base system delegates to after
// matching.
type Processor func(ctx context.Context, matched []MatchedEntity, buf *buffer.WriteBuffer) (int, error)

// Base provides the default ProcessTick: join the snapshot on the required
// types, attach optional data, delegate to the processor. Concrete systems
// supply only their definition and processor.
type Base struct {
	def  types.SystemDefinition
	proc Processor
}

func New(def types.SystemDefinition, proc Processor) *Base {
	return &Base{def: def, proc: proc}
}

func (b *Base) Definition() types.SystemDefinition { return b.def }

func (b *Base) ProcessTick(
	ctx context.Context, _ uint64, snap types.Snapshot, buf *buffer.WriteBuffer,
) (int, error) {
	matched := Match(snap, b.def.Required, b.def.Optional)
	if len(matched) == 0 {
		return 0, nil
	}
	return b.proc(ctx, matched, buf)
}

// Match performs the snapshot join locally: an entity is selected when it
// appears under every required type. Optional types never exclude an
// entity; their data is attached when present. The same intersection the
// entity index computes, evaluated against the in-memory snapshot instead
// of the live index. Results are sorted by entity for stable reporting.
func Match(snap types.Snapshot, required, optional []string) []MatchedEntity {
	if len(required) == 0 {
		return nil
	}

	// Seed from the smallest required map.
	seedType := required[0]
	for _, t := range required[1:] {
		if len(snap[t]) < len(snap[seedType]) {
			seedType = t
		}
	}
	seed := snap[seedType]
	if len(seed) == 0 {
		return nil
	}

	ids := make([]types.EntityID, 0, len(seed))
outer:
	for id := range seed {
		for _, t := range required {
			if t == seedType {
				continue
			}
			if _, ok := snap[t][id]; !ok {
				continue outer
			}
		}
		ids = append(ids, id)
	}
	types.SortEntityIDs(ids)

	matched := make([]MatchedEntity, 0, len(ids))
	for _, id := range ids {
		m := MatchedEntity{
			Entity:   id,
			Required: make(map[string]types.ComponentData, len(required)),
			Optional: make(map[string]types.ComponentData),
		}
		for _, t := range required {
			m.Required[t] = snap[t][id]
		}
		for _, t := range optional {
			if data, ok := snap[t][id]; ok {
				m.Optional[t] = data
			}
		}
		matched = append(matched, m)
	}
	return matched
}
