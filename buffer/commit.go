package buffer

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-games/shardcore/types"
)

// CommitResult reports what a commit actually applied. Stats holds one
// entry per component type whose store commit succeeded; Errors holds one
// marker per type that failed. The buffer never retries a failed type.
type CommitResult struct {
	Stats  map[string]types.CommitStats
	Errors []string
}

// Commit dispatches one ApplyCommit call per touched component type
// concurrently, awaits them all, then updates the entity index: created and
// written pairs are registered, deleted pairs unregistered. The index
// update runs strictly after the store commits and is applied for every
// type that committed, even when sibling types failed; commit is atomic per
// component type only, not across types.
//
// The returned error reports a misused buffer (already committed or
// discarded); per-type store failures are reported in CommitResult.Errors,
// not as an error.
func (b *WriteBuffer) Commit(ctx context.Context) (CommitResult, error) {
	b.mu.Lock()
	if err := b.checkOpen(); err != nil {
		b.mu.Unlock()
		return CommitResult{}, err
	}
	b.state = stateCommitted
	ops := b.ops
	b.ops = nil
	b.mu.Unlock()

	result := CommitResult{Stats: make(map[string]types.CommitStats, len(ops))}

	var (
		resMu     sync.Mutex
		committed = make(map[string]bool, len(ops))
	)
	g := new(errgroup.Group)
	for componentType, byEntity := range ops {
		componentType := componentType
		flat := flatten(byEntity)
		g.Go(func() error {
			s, err := b.reg.Get(componentType)
			if err == nil {
				var stats types.CommitStats
				stats, err = s.ApplyCommit(ctx, flat)
				if err == nil {
					resMu.Lock()
					result.Stats[componentType] = stats
					committed[componentType] = true
					resMu.Unlock()
					return nil
				}
			}
			resMu.Lock()
			result.Errors = append(result.Errors, eris.Wrapf(err, "commit %s", componentType).Error())
			resMu.Unlock()
			// Absorbed: sibling types still commit.
			return nil
		})
	}
	_ = g.Wait()

	// Index update, after all store commits have settled. Only types that
	// actually committed are reflected; a failed type's pairings are left
	// for the next SyncFromStores to reconcile.
	// Mirrors the store's category order: creations and writes register
	// first, deletions unregister last, so a delete always wins within one
	// buffer regardless of queue order.
	registered, unregistered := 0, 0
	for componentType, byEntity := range ops {
		if !committed[componentType] {
			continue
		}
		for id, queue := range byEntity {
			for _, op := range queue {
				if op.Kind == types.OpCreate || op.Kind == types.OpWrite {
					b.idx.Register(id, componentType)
					registered++
				}
			}
		}
		for id, queue := range byEntity {
			for _, op := range queue {
				if op.Kind == types.OpDelete {
					b.idx.Unregister(id, componentType)
					unregistered++
				}
			}
		}
	}

	b.logger.Info().
		Int("types", len(ops)).
		Int("registered", registered).
		Int("unregistered", unregistered).
		Int("failed_types", len(result.Errors)).
		Msg("buffer committed")
	return result, nil
}

// flatten orders one entity map's queues into a single op slice. Per-entity
// call order is preserved; cross-entity order is irrelevant because
// ApplyCommit groups by category anyway.
func flatten(byEntity map[types.EntityID][]types.WriteOperation) []types.WriteOperation {
	total := 0
	for _, queue := range byEntity {
		total += len(queue)
	}
	flat := make([]types.WriteOperation, 0, total)
	ids := make([]types.EntityID, 0, len(byEntity))
	for id := range byEntity {
		ids = append(ids, id)
	}
	types.SortEntityIDs(ids)
	for _, id := range ids {
		flat = append(flat, byEntity[id]...)
	}
	return flat
}
