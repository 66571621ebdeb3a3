package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-games/shardcore/types"
)

type health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func (health) Name() string { return "health" }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(types.NewComponentMetadata[health](), "store.health")
	t.Cleanup(s.Close)
	return s
}

func setHealth(current, max int) types.Mutator {
	return func(c types.Component) {
		h := c.(*health)
		h.Current = current
		h.Max = max
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := types.NewEntityID(1, "player")

	require.NoError(t, s.Create(ctx, id, setHealth(80, 100)))

	data, found, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, data.Owner)
	assert.Equal(t, &health{Current: 80, Max: 100}, data.Data)
}

func TestStore_CreateDuplicateFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := types.NewEntityID(1, "player")

	require.NoError(t, s.Create(ctx, id, nil))
	err := s.Create(ctx, id, nil)
	require.ErrorIs(t, err, ErrComponentExists)
}

func TestStore_GetReturnsIndependentCopy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := types.NewEntityID(1, "player")
	require.NoError(t, s.Create(ctx, id, setHealth(50, 100)))

	data, _, err := s.Get(ctx, id)
	require.NoError(t, err)
	data.Data.(*health).Current = 0

	again, _, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 50, again.Data.(*health).Current)
}

func TestStore_Apply(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := types.NewEntityID(1, "player")
	require.NoError(t, s.Create(ctx, id, setHealth(50, 100)))

	applied, err := s.Apply(ctx, id, func(c types.Component) {
		c.(*health).Current += 10
	})
	require.NoError(t, err)
	require.True(t, applied)

	data, _, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 60, data.Data.(*health).Current)

	applied, err = s.Apply(ctx, types.NewEntityID(99, "player"), setHealth(1, 1))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := types.NewEntityID(1, "player")
	require.NoError(t, s.Create(ctx, id, nil))

	had, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, had)

	had, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, had)
}

func TestStore_GetWhere(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Create(ctx, types.NewEntityID(uint64(i), "npc"), setHealth(i*10, 100)))
	}

	wounded, err := s.GetWhere(ctx, func(d types.ComponentData) bool {
		return d.Data.(*health).Current < 30
	})
	require.NoError(t, err)
	assert.Len(t, wounded, 2)
}

func TestStore_SnapshotRecordsTickAndCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := types.NewEntityID(1, "player")
	require.NoError(t, s.Create(ctx, id, setHealth(50, 100)))

	meta, data, err := s.Snapshot(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), meta.TickID)
	assert.Equal(t, "health", meta.ComponentType)
	assert.Equal(t, 1, meta.EntityCount)

	// Snapshot data is detached from the store.
	data[id].Data.(*health).Current = 0
	live, _, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 50, live.Data.(*health).Current)

	tick, err := s.LastTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tick)
}

func TestStore_ApplyCommitCategoryOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := types.NewEntityID(1, "player")

	// A mutation queued before the create still lands, because creates are
	// applied first regardless of queue position.
	stats, err := s.ApplyCommit(ctx, []types.WriteOperation{
		{Kind: types.OpMutate, ComponentType: "health", Entity: created, Mutator: func(c types.Component) {
			c.(*health).Current += 5
		}},
		{Kind: types.OpCreate, ComponentType: "health", Entity: created, Mutator: setHealth(10, 100)},
	})
	require.NoError(t, err)
	assert.Equal(t, types.CommitStats{Created: 1, Mutated: 1}, stats)

	data, _, err := s.Get(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 15, data.Data.(*health).Current)
}

func TestStore_ApplyCommitSkips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	existing := types.NewEntityID(1, "player")
	absent := types.NewEntityID(2, "player")
	require.NoError(t, s.Create(ctx, existing, setHealth(50, 100)))

	stats, err := s.ApplyCommit(ctx, []types.WriteOperation{
		// Create against an existing entity is skipped, not overwritten.
		{Kind: types.OpCreate, ComponentType: "health", Entity: existing, Mutator: setHealth(1, 1)},
		// Mutate and delete against an absent entity are no-ops.
		{Kind: types.OpMutate, ComponentType: "health", Entity: absent, Mutator: setHealth(1, 1)},
		{Kind: types.OpDelete, ComponentType: "health", Entity: absent},
	})
	require.NoError(t, err)
	assert.Equal(t, types.CommitStats{Skipped: 2}, stats)

	data, _, err := s.Get(ctx, existing)
	require.NoError(t, err)
	assert.Equal(t, 50, data.Data.(*health).Current)
}

func TestStore_ApplyCommitWriteOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := types.NewEntityID(1, "player")
	require.NoError(t, s.Create(ctx, id, setHealth(50, 100)))

	payload := &health{Current: 1, Max: 1}
	stats, err := s.ApplyCommit(ctx, []types.WriteOperation{
		{Kind: types.OpWrite, ComponentType: "health", Entity: id, Payload: payload},
	})
	require.NoError(t, err)
	assert.Equal(t, types.CommitStats{Written: 1}, stats)

	// The store keeps its own copy of the payload.
	payload.Current = 99
	data, _, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Data.(*health).Current)
}

func TestStore_ClosedStoreRejectsCalls(t *testing.T) {
	s := New(types.NewComponentMetadata[health](), "store.health")
	s.Close()

	err := s.Create(context.Background(), types.NewEntityID(1, "player"), nil)
	require.ErrorIs(t, err, ErrStoreClosed)
}
