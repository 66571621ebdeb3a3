// Package index maintains the bidirectional entity/component map: which
// component types each entity has, and which entities hold each type. It
// answers join, union, difference, and exact-match queries without touching
// any store. Both directions are kept mutually consistent under one lock.
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/types"
)

type Index struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	byEntity map[types.EntityID]map[string]struct{}
	byType   map[string]map[types.EntityID]struct{}
}

func New() *Index {
	return &Index{
		logger:   log.With().Str("module", "index").Logger(),
		byEntity: make(map[types.EntityID]map[string]struct{}),
		byType:   make(map[string]map[types.EntityID]struct{}),
	}
}

// Register records that the entity holds the component type, updating both
// directions together. Idempotent.
func (x *Index) Register(id types.EntityID, componentType string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.register(id, componentType)
}

func (x *Index) register(id types.EntityID, componentType string) {
	if _, ok := x.byEntity[id]; !ok {
		x.byEntity[id] = make(map[string]struct{})
	}
	x.byEntity[id][componentType] = struct{}{}

	if _, ok := x.byType[componentType]; !ok {
		x.byType[componentType] = make(map[types.EntityID]struct{})
	}
	x.byType[componentType][id] = struct{}{}
}

// Unregister removes the pairing. When the last component type is removed
// the entity's forward entry goes away entirely: an entity with no
// components is no longer known to the index. Reports whether the pairing
// existed.
func (x *Index) Unregister(id types.EntityID, componentType string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.unregister(id, componentType)
}

func (x *Index) unregister(id types.EntityID, componentType string) bool {
	typeSet, ok := x.byEntity[id]
	if !ok {
		return false
	}
	if _, ok := typeSet[componentType]; !ok {
		return false
	}
	delete(typeSet, componentType)
	if len(typeSet) == 0 {
		delete(x.byEntity, id)
	}

	if entitySet, ok := x.byType[componentType]; ok {
		delete(entitySet, id)
		if len(entitySet) == 0 {
			delete(x.byType, componentType)
		}
	}
	return true
}

// Has reports whether the entity holds the component type.
func (x *Index) Has(id types.EntityID, componentType string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.byEntity[id][componentType]
	return ok
}

// TypesFor returns a sorted copy of the entity's component type set.
func (x *Index) TypesFor(id types.EntityID) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.byEntity[id]))
	for t := range x.byEntity[id] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// EntitiesFor returns a sorted copy of the entities holding the type.
func (x *Index) EntitiesFor(componentType string) []types.EntityID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return sortedSet(x.byType[componentType])
}

// EntityCount returns how many entities the index knows about.
func (x *Index) EntityCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byEntity)
}

// SyncFromStores rebuilds the whole index from store contents: the
// designated recovery path after index corruption or a process restart. It
// clears all state first, so a rebuild racing a concurrent commit's index
// update can lose that commit's pairings; schedule rebuilds away from
// active ticking.
func (x *Index) SyncFromStores(ctx context.Context, reg *registry.Registry) error {
	componentTypes := reg.Types()

	entities := make(map[string][]types.EntityID, len(componentTypes))
	for _, componentType := range componentTypes {
		s, err := reg.Get(componentType)
		if err != nil {
			return err
		}
		ids, err := s.Entities(ctx)
		if err != nil {
			return err
		}
		entities[componentType] = ids
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.byEntity = make(map[types.EntityID]map[string]struct{})
	x.byType = make(map[string]map[types.EntityID]struct{})
	total := 0
	for componentType, ids := range entities {
		for _, id := range ids {
			x.register(id, componentType)
			total++
		}
	}
	x.logger.Info().
		Int("component_types", len(componentTypes)).
		Int("pairs", total).
		Msg("index rebuilt from stores")
	return nil
}

func sortedSet(set map[types.EntityID]struct{}) []types.EntityID {
	out := make([]types.EntityID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	types.SortEntityIDs(out)
	return out
}
