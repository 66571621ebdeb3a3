package buffer

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-games/shardcore/index"
	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/types"
)

type gold struct {
	Amount int `json:"amount"`
}

func (gold) Name() string { return "gold" }

type level struct {
	Value int `json:"value"`
}

func (level) Name() string { return "level" }

func newTestWorld(t *testing.T) (*registry.Registry, *index.Index) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reg := registry.New(registry.NewNamespace(client, "test"))
	t.Cleanup(func() { reg.Shutdown(context.Background()) })
	return reg, index.New()
}

func TestWriteBuffer_CommitUpdatesStoreAndIndex(t *testing.T) {
	reg, idx := newTestWorld(t)
	ctx := context.Background()
	_, err := reg.Register(ctx, types.NewComponentMetadata[gold]())
	require.NoError(t, err)

	id := types.NewEntityID(1, "player")
	buf := New(1, reg, idx)
	require.NoError(t, buf.QueueCreate("gold", id, func(c types.Component) {
		c.(*gold).Amount = 100
	}))
	require.NoError(t, buf.QueueMutate("gold", id, func(c types.Component) {
		c.(*gold).Amount += 50
	}))

	res, err := buf.Commit(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, types.CommitStats{Created: 1, Mutated: 1}, res.Stats["gold"])

	s, err := reg.Get("gold")
	require.NoError(t, err)
	data, found, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 150, data.Data.(*gold).Amount)

	assert.True(t, idx.Has(id, "gold"))
}

func TestWriteBuffer_CommitDeleteUnregisters(t *testing.T) {
	reg, idx := newTestWorld(t)
	ctx := context.Background()
	s, err := reg.Register(ctx, types.NewComponentMetadata[gold]())
	require.NoError(t, err)

	id := types.NewEntityID(1, "player")
	require.NoError(t, s.Create(ctx, id, nil))
	idx.Register(id, "gold")

	buf := New(2, reg, idx)
	require.NoError(t, buf.QueueDelete("gold", id))

	res, err := buf.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.CommitStats{Deleted: 1}, res.Stats["gold"])
	assert.False(t, idx.Has(id, "gold"))

	_, found, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteBuffer_PartialCommitFailure(t *testing.T) {
	reg, idx := newTestWorld(t)
	ctx := context.Background()
	_, err := reg.Register(ctx, types.NewComponentMetadata[gold]())
	require.NoError(t, err)

	id := types.NewEntityID(1, "player")
	buf := New(3, reg, idx)
	require.NoError(t, buf.QueueCreate("gold", id, nil))
	// No store exists for this type; its commit fails while gold's lands.
	require.NoError(t, buf.QueueCreate("phantom", id, nil))

	res, err := buf.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "phantom")

	// The surviving type committed and its index entry exists; the failed
	// type produced neither stats nor an index entry.
	assert.Equal(t, types.CommitStats{Created: 1}, res.Stats["gold"])
	assert.True(t, idx.Has(id, "gold"))
	assert.False(t, idx.Has(id, "phantom"))
}

func TestWriteBuffer_RejectsOpsAfterCommit(t *testing.T) {
	reg, idx := newTestWorld(t)
	ctx := context.Background()
	_, err := reg.Register(ctx, types.NewComponentMetadata[gold]())
	require.NoError(t, err)

	buf := New(4, reg, idx)
	_, err = buf.Commit(ctx)
	require.NoError(t, err)

	id := types.NewEntityID(1, "player")
	require.ErrorIs(t, buf.QueueCreate("gold", id, nil), ErrBufferCommitted)

	_, err = buf.Commit(ctx)
	require.ErrorIs(t, err, ErrBufferCommitted)
}

func TestWriteBuffer_RejectsOpsAfterDiscard(t *testing.T) {
	reg, idx := newTestWorld(t)
	buf := New(5, reg, idx)

	id := types.NewEntityID(1, "player")
	require.NoError(t, buf.QueueWrite("gold", id, &gold{Amount: 1}))
	require.NoError(t, buf.Discard())

	require.ErrorIs(t, buf.QueueDelete("gold", id), ErrBufferDiscarded)
	_, err := buf.Commit(context.Background())
	require.ErrorIs(t, err, ErrBufferDiscarded)
	assert.Equal(t, 0, buf.OpCount())
}

func TestWriteBuffer_TouchedTypesAndOpCount(t *testing.T) {
	reg, idx := newTestWorld(t)
	buf := New(6, reg, idx)

	id := types.NewEntityID(1, "player")
	require.NoError(t, buf.QueueCreate("level", id, nil))
	require.NoError(t, buf.QueueCreate("gold", id, nil))
	require.NoError(t, buf.QueueMutate("gold", id, func(types.Component) {}))

	assert.Equal(t, []string{"gold", "level"}, buf.TouchedTypes())
	assert.Equal(t, 3, buf.OpCount())
}

func TestWriteBuffer_IndexTracksStoresAcrossCommits(t *testing.T) {
	reg, idx := newTestWorld(t)
	ctx := context.Background()
	_, err := reg.Register(ctx, types.NewComponentMetadata[gold]())
	require.NoError(t, err)
	_, err = reg.Register(ctx, types.NewComponentMetadata[level]())
	require.NoError(t, err)

	id := types.NewEntityID(1, "player")
	buf := New(1, reg, idx)
	require.NoError(t, buf.QueueCreate("gold", id, nil))
	require.NoError(t, buf.QueueCreate("level", id, nil))
	_, err = buf.Commit(ctx)
	require.NoError(t, err)

	assert.Equal(t, []types.EntityID{id}, idx.QueryJoin([]string{"gold", "level"}))

	buf = New(2, reg, idx)
	require.NoError(t, buf.QueueDelete("gold", id))
	_, err = buf.Commit(ctx)
	require.NoError(t, err)

	assert.Empty(t, idx.QueryJoin([]string{"gold", "level"}))
	assert.Equal(t, []types.EntityID{id}, idx.QueryJoin([]string{"level"}))

	// The index's view of the entity matches what the stores hold.
	assert.Equal(t, []string{"level"}, idx.TypesFor(id))
	goldStore, err := reg.Get("gold")
	require.NoError(t, err)
	_, found, err := goldStore.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteBuffer_DistinctIdentityPerBuffer(t *testing.T) {
	reg, idx := newTestWorld(t)
	a := New(7, reg, idx)
	b := New(7, reg, idx)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, uint64(7), a.TickID())
}
