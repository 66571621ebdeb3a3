// Package query is the read API for callers outside the tick loop:
// operator tooling, the HTTP surface, and offline jobs. Queries combine
// the entity index's membership joins with predicate reads against the
// live stores, so results reflect committed state, never in-flight buffers.
package query

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/meridian-games/shardcore/index"
	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/types"
)

// Result holds one matched entity's component data, keyed by type.
type Result map[string]types.ComponentData

// Engine evaluates reads against a registry and its entity index.
type Engine struct {
	reg *registry.Registry
	idx *index.Index
}

func NewEngine(reg *registry.Registry, idx *index.Index) *Engine {
	return &Engine{reg: reg, idx: idx}
}

// Find returns entities holding every required type whose data passes all
// the given per-type predicates, together with their component data.
// Predicates are optional; a nil map means membership alone decides.
// Entities that disappear between the index join and the store read are
// quietly dropped.
func (e *Engine) Find(
	ctx context.Context, required []string, preds map[string]types.Predicate,
) (map[types.EntityID]Result, error) {
	for componentType := range preds {
		if !e.reg.Has(componentType) {
			return nil, eris.Errorf("predicate references unregistered component type %q", componentType)
		}
	}

	ids := e.idx.QueryJoin(required)
	if len(ids) == 0 {
		return map[types.EntityID]Result{}, nil
	}

	// Read each required type once for the whole candidate set.
	byType := make(map[string]map[types.EntityID]types.ComponentData, len(required))
	for _, componentType := range required {
		s, err := e.reg.Get(componentType)
		if err != nil {
			return nil, err
		}
		data, err := s.GetMany(ctx, ids)
		if err != nil {
			return nil, eris.Wrapf(err, "read %q for query", componentType)
		}
		byType[componentType] = data
	}

	out := make(map[types.EntityID]Result)
candidates:
	for _, id := range ids {
		res := make(Result, len(required))
		for _, componentType := range required {
			data, ok := byType[componentType][id]
			if !ok {
				continue candidates
			}
			if pred, hasPred := preds[componentType]; hasPred && !pred(data) {
				continue candidates
			}
			res[componentType] = data
		}
		out[id] = res
	}
	return out, nil
}

// FindIDs is Find without materializing component data in the result.
func (e *Engine) FindIDs(
	ctx context.Context, required []string, preds map[string]types.Predicate,
) ([]types.EntityID, error) {
	if len(preds) == 0 {
		return e.idx.QueryJoin(required), nil
	}
	matched, err := e.Find(ctx, required, preds)
	if err != nil {
		return nil, err
	}
	ids := make([]types.EntityID, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	types.SortEntityIDs(ids)
	return ids, nil
}

// Count reports how many entities hold every required type.
func (e *Engine) Count(required []string) int {
	return len(e.idx.QueryJoin(required))
}
