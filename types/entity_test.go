package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityID_StringRoundTrip(t *testing.T) {
	id := NewEntityID(42, "player")
	require.Equal(t, "player:42", id.String())

	parsed, err := ParseEntityID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestEntityID_ParseKeepsColonsInKind(t *testing.T) {
	parsed, err := ParseEntityID("region:overworld:7")
	require.NoError(t, err)
	assert.Equal(t, "region:overworld", parsed.Kind)
	assert.Equal(t, uint64(7), parsed.ID)
}

func TestEntityID_ParseRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "player", "player:", "player:abc", ":-1"} {
		_, err := ParseEntityID(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestEntityID_IsZero(t *testing.T) {
	assert.True(t, EntityID{}.IsZero())
	assert.False(t, NewEntityID(1, "npc").IsZero())
	// A kind alone is enough to be non-zero.
	assert.False(t, EntityID{Kind: "npc"}.IsZero())
}

func TestSortEntityIDs(t *testing.T) {
	ids := []EntityID{
		NewEntityID(2, "npc"),
		NewEntityID(9, "item"),
		NewEntityID(1, "npc"),
		NewEntityID(3, "item"),
	}
	SortEntityIDs(ids)
	require.Equal(t, []EntityID{
		NewEntityID(3, "item"),
		NewEntityID(9, "item"),
		NewEntityID(1, "npc"),
		NewEntityID(2, "npc"),
	}, ids)
}
