package index

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/types"
)

var (
	player1 = types.NewEntityID(1, "player")
	player2 = types.NewEntityID(2, "player")
	npc1    = types.NewEntityID(1, "npc")
)

func TestIndex_RegisterAndLookup(t *testing.T) {
	x := New()
	x.Register(player1, "position")
	x.Register(player1, "health")
	x.Register(npc1, "position")

	assert.True(t, x.Has(player1, "position"))
	assert.False(t, x.Has(player1, "inventory"))
	assert.Equal(t, []string{"health", "position"}, x.TypesFor(player1))
	assert.Equal(t, []types.EntityID{npc1, player1}, x.EntitiesFor("position"))
	assert.Equal(t, 2, x.EntityCount())
}

func TestIndex_UnregisterLastTypeRemovesEntity(t *testing.T) {
	x := New()
	x.Register(player1, "position")
	x.Register(player1, "health")

	assert.True(t, x.Unregister(player1, "health"))
	assert.Equal(t, 1, x.EntityCount())

	assert.True(t, x.Unregister(player1, "position"))
	assert.Equal(t, 0, x.EntityCount())
	assert.Empty(t, x.TypesFor(player1))

	// Already gone.
	assert.False(t, x.Unregister(player1, "position"))
}

func TestIndex_QueryJoin(t *testing.T) {
	x := New()
	x.Register(player1, "position")
	x.Register(player1, "health")
	x.Register(player2, "position")
	x.Register(npc1, "health")

	assert.Equal(t, []types.EntityID{player1}, x.QueryJoin([]string{"position", "health"}))
	assert.Equal(t, []types.EntityID{npc1, player1}, x.QueryJoin([]string{"health"}))

	// Empty input joins nothing.
	assert.Empty(t, x.QueryJoin(nil))
	// An unknown type empties the whole intersection.
	assert.Empty(t, x.QueryJoin([]string{"position", "missing"}))
}

func TestIndex_QueryAny(t *testing.T) {
	x := New()
	x.Register(player1, "position")
	x.Register(player2, "health")
	x.Register(npc1, "inventory")

	got := x.QueryAny([]string{"position", "health"})
	assert.Equal(t, []types.EntityID{player1, player2}, got)
	assert.Empty(t, x.QueryAny(nil))
}

func TestIndex_QueryExactly(t *testing.T) {
	x := New()
	x.Register(player1, "position")
	x.Register(player1, "health")
	x.Register(player2, "position")
	x.Register(player2, "health")
	x.Register(player2, "inventory")

	// player2 has an extra type, so only player1 matches exactly.
	assert.Equal(t, []types.EntityID{player1}, x.QueryExactly([]string{"position", "health"}))
}

func TestIndex_QueryWithout(t *testing.T) {
	x := New()
	x.Register(player1, "position")
	x.Register(player2, "position")
	x.Register(player2, "frozen")

	assert.Equal(t, []types.EntityID{player1}, x.QueryWithout([]string{"position"}, []string{"frozen"}))
}

func TestIndex_QueryByKind(t *testing.T) {
	x := New()
	x.Register(player1, "position")
	x.Register(player2, "position")
	x.Register(player2, "health")
	x.Register(npc1, "position")

	assert.Equal(t, []types.EntityID{player1, player2}, x.QueryByKind("player", nil))
	assert.Equal(t, []types.EntityID{player2}, x.QueryByKind("player", []string{"health"}))
	assert.Empty(t, x.QueryByKind("item", nil))
}

type tag struct {
	Label string `json:"label"`
}

func (tag) Name() string { return "tag" }

func TestIndex_SyncFromStores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	reg := registry.New(registry.NewNamespace(client, "test"))
	defer reg.Shutdown(ctx)

	s, err := reg.Register(ctx, types.NewComponentMetadata[tag]())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, player1, nil))
	require.NoError(t, s.Create(ctx, npc1, nil))

	x := New()
	// Stale entry that no store backs anymore.
	x.Register(player2, "tag")

	require.NoError(t, x.SyncFromStores(ctx, reg))

	assert.Equal(t, []types.EntityID{npc1, player1}, x.EntitiesFor("tag"))
	assert.False(t, x.Has(player2, "tag"))
}
