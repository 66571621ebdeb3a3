package index

import (
	"github.com/meridian-games/shardcore/types"
)

// QueryJoin returns entities having all of the listed component types.
// An empty type list matches nothing. The intersection short-circuits as
// soon as it becomes empty.
func (x *Index) QueryJoin(componentTypes []string) []types.EntityID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return sortedSet(x.join(componentTypes))
}

func (x *Index) join(componentTypes []string) map[types.EntityID]struct{} {
	if len(componentTypes) == 0 {
		return nil
	}

	// Seed from the smallest set so the scan work is bounded by it.
	smallest := componentTypes[0]
	for _, t := range componentTypes[1:] {
		if len(x.byType[t]) < len(x.byType[smallest]) {
			smallest = t
		}
	}
	seed, ok := x.byType[smallest]
	if !ok || len(seed) == 0 {
		return nil
	}

	result := make(map[types.EntityID]struct{}, len(seed))
	for id := range seed {
		result[id] = struct{}{}
	}
	for _, t := range componentTypes {
		if t == smallest {
			continue
		}
		set, ok := x.byType[t]
		if !ok {
			return nil
		}
		for id := range result {
			if _, ok := set[id]; !ok {
				delete(result, id)
			}
		}
		if len(result) == 0 {
			return nil
		}
	}
	return result
}

// QueryAny returns entities having at least one of the listed types.
func (x *Index) QueryAny(componentTypes []string) []types.EntityID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return sortedSet(x.union(componentTypes))
}

func (x *Index) union(componentTypes []string) map[types.EntityID]struct{} {
	result := make(map[types.EntityID]struct{})
	for _, t := range componentTypes {
		for id := range x.byType[t] {
			result[id] = struct{}{}
		}
	}
	return result
}

// QueryExactly returns entities whose component type set equals the given
// set exactly: supersets do not match.
func (x *Index) QueryExactly(componentTypes []string) []types.EntityID {
	x.mu.RLock()
	defer x.mu.RUnlock()

	want := make(map[string]struct{}, len(componentTypes))
	for _, t := range componentTypes {
		want[t] = struct{}{}
	}

	candidates := x.join(componentTypes)
	result := make(map[types.EntityID]struct{}, len(candidates))
	for id := range candidates {
		if len(x.byEntity[id]) == len(want) {
			result[id] = struct{}{}
		}
	}
	return sortedSet(result)
}

// QueryWithout returns join(required) minus union(excluded).
func (x *Index) QueryWithout(required, excluded []string) []types.EntityID {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := x.join(required)
	for _, t := range excluded {
		for id := range x.byType[t] {
			delete(result, id)
		}
	}
	return sortedSet(result)
}

// QueryByKind filters known entities by their entity kind tag, optionally
// intersected with a component join.
func (x *Index) QueryByKind(kind string, componentTypes []string) []types.EntityID {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var candidates map[types.EntityID]struct{}
	if len(componentTypes) > 0 {
		candidates = x.join(componentTypes)
	} else {
		candidates = make(map[types.EntityID]struct{}, len(x.byEntity))
		for id := range x.byEntity {
			candidates[id] = struct{}{}
		}
	}

	result := make(map[types.EntityID]struct{})
	for id := range candidates {
		if id.Kind == kind {
			result[id] = struct{}{}
		}
	}
	return sortedSet(result)
}
