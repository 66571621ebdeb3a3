package registry

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/meridian-games/shardcore/store"
	"github.com/meridian-games/shardcore/types"
)

type snapshotResult struct {
	meta types.SnapshotMetadata
	data map[types.EntityID]types.ComponentData
	err  error
}

// PendingSnapshot is one in-flight snapshot request. The registry hands
// back a pending result per component type so the caller can await them
// together instead of serially.
type PendingSnapshot struct {
	ComponentType string
	ch            chan snapshotResult
}

// Await blocks until the snapshot arrives or ctx expires.
func (p *PendingSnapshot) Await(ctx context.Context) (types.SnapshotMetadata, map[types.EntityID]types.ComponentData, error) {
	select {
	case res := <-p.ch:
		return res.meta, res.data, res.err
	case <-ctx.Done():
		return types.SnapshotMetadata{}, nil, eris.Wrapf(ctx.Err(), "snapshot %s", p.ComponentType)
	}
}

// AllSnapshots issues a snapshot request to every registered store
// concurrently. Each pending result resolves independently, so one slow
// store cannot hold up its siblings.
func (r *Registry) AllSnapshots(ctx context.Context, tickID uint64) map[string]*PendingSnapshot {
	r.mu.RLock()
	stores := make(map[string]*store.Store, len(r.stores))
	for name, s := range r.stores {
		stores[name] = s
	}
	r.mu.RUnlock()

	pending := make(map[string]*PendingSnapshot, len(stores))
	for name, s := range stores {
		p := &PendingSnapshot{
			ComponentType: name,
			ch:            make(chan snapshotResult, 1),
		}
		pending[name] = p
		go func(s *store.Store, p *PendingSnapshot) {
			meta, data, err := s.Snapshot(ctx, tickID)
			p.ch <- snapshotResult{meta: meta, data: data, err: err}
		}(s, p)
	}
	return pending
}
