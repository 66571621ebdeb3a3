// Package store implements the per-component-type store. Each store owns
// every instance of one component type, keyed by entity, and runs as a
// single goroutine behind a mailbox: calls are serialized against each
// other, bounded by the caller's context, and always return value copies.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-games/shardcore/types"
)

var (
	ErrComponentExists = eris.New("entity already has this component")
	ErrStoreClosed     = eris.New("store is closed")
)

const defaultMailboxSize = 64

// Store holds entity -> payload for one component type.
type Store struct {
	meta    types.ComponentMetadata
	address string
	logger  zerolog.Logger

	mailbox chan func()
	quit    chan struct{}
	stopped sync.Once

	// Owned by the mailbox goroutine. Never touched from outside it.
	data     map[types.EntityID]types.Component
	lastTick uint64
}

// New creates the store and starts its goroutine.
func New(meta types.ComponentMetadata, address string) *Store {
	s := &Store{
		meta:    meta,
		address: address,
		logger:  log.With().Str("store", meta.Name()).Logger(),
		mailbox: make(chan func(), defaultMailboxSize),
		quit:    make(chan struct{}),
		data:    make(map[types.EntityID]types.Component),
	}
	go s.run()
	return s
}

func (s *Store) ComponentType() string { return s.meta.Name() }
func (s *Store) Address() string       { return s.address }
func (s *Store) Metadata() types.ComponentMetadata {
	return s.meta
}

// Close stops the store goroutine. Calls in flight finish; later calls
// fail with ErrStoreClosed.
func (s *Store) Close() {
	s.stopped.Do(func() {
		close(s.quit)
	})
}

func (s *Store) run() {
	for {
		select {
		case fn := <-s.mailbox:
			fn()
		case <-s.quit:
			// Drain whatever was enqueued before the close so no caller
			// is left waiting on a closure that never runs.
			for {
				select {
				case fn := <-s.mailbox:
					fn()
				default:
					return
				}
			}
		}
	}
}

// call enqueues fn on the mailbox and waits for it to finish, bounded by
// ctx. If ctx expires first the caller unblocks; fn may still run later but
// its results are never read.
func (s *Store) call(ctx context.Context, fn func()) error {
	select {
	case <-s.quit:
		return eris.Wrap(ErrStoreClosed, s.meta.Name())
	default:
	}

	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}

	select {
	case s.mailbox <- wrapped:
	case <-s.quit:
		return eris.Wrap(ErrStoreClosed, s.meta.Name())
	case <-ctx.Done():
		return eris.Wrapf(ctx.Err(), "store %s", s.meta.Name())
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrapf(ctx.Err(), "store %s", s.meta.Name())
	}
}

// copyOf assembles an owned value copy of the stored payload. Runs on the
// mailbox goroutine.
func (s *Store) copyOf(id types.EntityID, c types.Component) (types.ComponentData, error) {
	cp, err := s.meta.Copy(c)
	if err != nil {
		return types.ComponentData{}, err
	}
	return types.NewComponentData(id, cp)
}

// Create adds this component to the entity, running the optional
// initializer before storing. It is the one operation for which "already
// exists" is a caller-visible failure.
func (s *Store) Create(ctx context.Context, id types.EntityID, init types.Mutator) error {
	var opErr error
	err := s.call(ctx, func() {
		if _, ok := s.data[id]; ok {
			opErr = eris.Wrapf(ErrComponentExists, "%s on %s", s.meta.Name(), id)
			return
		}
		fresh, err := s.meta.New(id)
		if err != nil {
			opErr = err
			return
		}
		if init != nil {
			init(fresh)
		}
		s.data[id] = fresh
	})
	if err != nil {
		return err
	}
	return opErr
}

// Get returns a copy of the entity's payload, or ok=false if absent.
func (s *Store) Get(ctx context.Context, id types.EntityID) (types.ComponentData, bool, error) {
	var (
		out   types.ComponentData
		ok    bool
		opErr error
	)
	err := s.call(ctx, func() {
		c, found := s.data[id]
		if !found {
			return
		}
		out, opErr = s.copyOf(id, c)
		ok = opErr == nil
	})
	if err != nil {
		return types.ComponentData{}, false, err
	}
	return out, ok, opErr
}

// GetMany returns copies for the requested entities. Absent entities are
// simply missing from the result, never an error.
func (s *Store) GetMany(ctx context.Context, ids []types.EntityID) (map[types.EntityID]types.ComponentData, error) {
	var (
		out   map[types.EntityID]types.ComponentData
		opErr error
	)
	err := s.call(ctx, func() {
		out = make(map[types.EntityID]types.ComponentData, len(ids))
		for _, id := range ids {
			c, found := s.data[id]
			if !found {
				continue
			}
			cp, err := s.copyOf(id, c)
			if err != nil {
				opErr = err
				return
			}
			out[id] = cp
		}
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

// GetAll returns copies of every payload in the store.
func (s *Store) GetAll(ctx context.Context) (map[types.EntityID]types.ComponentData, error) {
	var (
		out   map[types.EntityID]types.ComponentData
		opErr error
	)
	err := s.call(ctx, func() {
		out, opErr = s.copyAll()
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

// copyAll runs on the mailbox goroutine.
func (s *Store) copyAll() (map[types.EntityID]types.ComponentData, error) {
	out := make(map[types.EntityID]types.ComponentData, len(s.data))
	for id, c := range s.data {
		cp, err := s.copyOf(id, c)
		if err != nil {
			return nil, err
		}
		out[id] = cp
	}
	return out, nil
}

// Apply runs the mutator in place against the entity's stored payload.
// Returns false (not an error) if the entity has no such component.
func (s *Store) Apply(ctx context.Context, id types.EntityID, m types.Mutator) (bool, error) {
	var ok bool
	err := s.call(ctx, func() {
		c, found := s.data[id]
		if !found {
			return
		}
		m(c)
		ok = true
	})
	return ok, err
}

// ApplyAll runs the mutator against each listed entity that has the
// component. An empty entity list means every entity in the store. Returns
// the number of payloads actually mutated.
func (s *Store) ApplyAll(ctx context.Context, ids []types.EntityID, m types.Mutator) (int, error) {
	var count int
	err := s.call(ctx, func() {
		if len(ids) == 0 {
			for _, c := range s.data {
				m(c)
				count++
			}
			return
		}
		for _, id := range ids {
			if c, found := s.data[id]; found {
				m(c)
				count++
			}
		}
	})
	return count, err
}

// GetWhere returns copies of every payload matching the predicate. The
// predicate runs in-process against a copy, so it cannot mutate store state.
func (s *Store) GetWhere(ctx context.Context, pred types.Predicate) (map[types.EntityID]types.ComponentData, error) {
	var (
		out   map[types.EntityID]types.ComponentData
		opErr error
	)
	err := s.call(ctx, func() {
		out = make(map[types.EntityID]types.ComponentData)
		for id, c := range s.data {
			cp, err := s.copyOf(id, c)
			if err != nil {
				opErr = err
				return
			}
			if pred(cp) {
				out[id] = cp
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

// GetEntitiesWhere is GetWhere returning only identities, which is cheaper
// to hand across unit boundaries.
func (s *Store) GetEntitiesWhere(ctx context.Context, pred types.Predicate) ([]types.EntityID, error) {
	matched, err := s.GetWhere(ctx, pred)
	if err != nil {
		return nil, err
	}
	out := make([]types.EntityID, 0, len(matched))
	for id := range matched {
		out = append(out, id)
	}
	types.SortEntityIDs(out)
	return out, nil
}

// Delete removes the component. Reports whether the entity actually had it;
// deleting an absent component is not an error.
func (s *Store) Delete(ctx context.Context, id types.EntityID) (bool, error) {
	var had bool
	err := s.call(ctx, func() {
		_, had = s.data[id]
		delete(s.data, id)
	})
	return had, err
}

// DeleteMany removes the component from each entity, reporting per entity
// whether anything was removed.
func (s *Store) DeleteMany(ctx context.Context, ids []types.EntityID) (map[types.EntityID]bool, error) {
	var out map[types.EntityID]bool
	err := s.call(ctx, func() {
		out = make(map[types.EntityID]bool, len(ids))
		for _, id := range ids {
			_, had := s.data[id]
			delete(s.data, id)
			out[id] = had
		}
	})
	return out, err
}

// Snapshot returns metadata plus a full value-copied view of the store and
// records tickID as the last tick this store has seen. The recorded tick is
// informational; it is not enforced to be monotonic.
func (s *Store) Snapshot(ctx context.Context, tickID uint64) (types.SnapshotMetadata, map[types.EntityID]types.ComponentData, error) {
	var (
		meta  types.SnapshotMetadata
		out   map[types.EntityID]types.ComponentData
		opErr error
	)
	err := s.call(ctx, func() {
		s.lastTick = tickID
		out, opErr = s.copyAll()
		meta = types.SnapshotMetadata{
			TickID:        tickID,
			ComponentType: s.meta.Name(),
			EntityCount:   len(out),
			Timestamp:     time.Now(),
		}
	})
	if err != nil {
		return types.SnapshotMetadata{}, nil, err
	}
	return meta, out, opErr
}

// SnapshotForEntities is Snapshot restricted to the given entities.
func (s *Store) SnapshotForEntities(
	ctx context.Context, tickID uint64, ids []types.EntityID,
) (types.SnapshotMetadata, map[types.EntityID]types.ComponentData, error) {
	var (
		meta  types.SnapshotMetadata
		out   map[types.EntityID]types.ComponentData
		opErr error
	)
	err := s.call(ctx, func() {
		s.lastTick = tickID
		out = make(map[types.EntityID]types.ComponentData, len(ids))
		for _, id := range ids {
			c, found := s.data[id]
			if !found {
				continue
			}
			cp, err := s.copyOf(id, c)
			if err != nil {
				opErr = err
				return
			}
			out[id] = cp
		}
		meta = types.SnapshotMetadata{
			TickID:        tickID,
			ComponentType: s.meta.Name(),
			EntityCount:   len(out),
			Timestamp:     time.Now(),
		}
	})
	if err != nil {
		return types.SnapshotMetadata{}, nil, err
	}
	return meta, out, opErr
}

// ApplyBatch runs multiple per-entity mutations in one call, skipping
// entities without the component. Returns the number applied.
func (s *Store) ApplyBatch(ctx context.Context, updates map[types.EntityID]types.Mutator) (int, error) {
	var count int
	err := s.call(ctx, func() {
		for id, m := range updates {
			if c, found := s.data[id]; found {
				m(c)
				count++
			}
		}
	})
	return count, err
}

// SetMany unconditionally overwrites payloads for the given entities. The
// incoming values are copied, so the caller keeps ownership of what it
// passed in. Used by commit application; not a general-purpose API.
func (s *Store) SetMany(ctx context.Context, data map[types.EntityID]types.Component) error {
	var opErr error
	err := s.call(ctx, func() {
		for id, c := range data {
			cp, err := s.meta.Copy(c)
			if err != nil {
				opErr = err
				return
			}
			s.data[id] = cp
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// Entities returns the identities of every entity in the store, sorted.
func (s *Store) Entities(ctx context.Context) ([]types.EntityID, error) {
	var out []types.EntityID
	err := s.call(ctx, func() {
		out = make([]types.EntityID, 0, len(s.data))
		for id := range s.data {
			out = append(out, id)
		}
	})
	if err != nil {
		return nil, err
	}
	types.SortEntityIDs(out)
	return out, nil
}

// Len returns the number of entities holding this component.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.call(ctx, func() { n = len(s.data) })
	return n, err
}

// LastTick returns the last tick ID recorded by a snapshot request.
func (s *Store) LastTick(ctx context.Context) (uint64, error) {
	var t uint64
	err := s.call(ctx, func() { t = s.lastTick })
	return t, err
}
