package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTile_BlockSolidReflectsGroundItemsAndCreatures(t *testing.T) {
	tile := NewTile(Position{X: 1, Y: 1, Z: 7})
	assert.True(t, tile.IsWalkable())

	solidGround := &ItemType{ServerID: 100, Flags: ItemBlocksSolid}
	tile.SetGround(NewItem(1, solidGround))
	assert.False(t, tile.IsWalkable(), "ground blocking solid must set BlockSolid")

	walkableGround := &ItemType{ServerID: 101}
	tile.SetGround(NewItem(2, walkableGround))
	assert.True(t, tile.IsWalkable())

	tile.AddCreature(42)
	assert.False(t, tile.IsWalkable(), "creature on tile must imply BlockSolid")

	tile.RemoveCreature(42)
	assert.True(t, tile.IsWalkable())
}

func TestTile_AddItem_RespectsMaxThings(t *testing.T) {
	tile := NewTile(Position{})
	kind := &ItemType{ServerID: 1}
	for i := 0; i < MaxThings; i++ {
		require.NoError(t, tile.AddItem(NewItem(uint32(i+1), kind)))
	}
	err := tile.AddItem(NewItem(999, kind))
	require.Error(t, err)
}

func TestTile_AddItem_AlwaysOnTopOrdering(t *testing.T) {
	tile := NewTile(Position{})
	mobile := &ItemType{ServerID: 1}
	aot := &ItemType{ServerID: 2, Flags: ItemAlwaysOnTop}

	require.NoError(t, tile.AddItem(NewItem(1, mobile)))
	require.NoError(t, tile.AddItem(NewItem(2, aot)))
	require.NoError(t, tile.AddItem(NewItem(3, mobile)))

	require.Len(t, tile.Items, 3)
	assert.Equal(t, uint32(2), tile.Items[0].UniqueID, "always-on-top item must be first")
}

func TestTile_StackPosition_Ordering(t *testing.T) {
	tile := NewTile(Position{})
	ground := &ItemType{ServerID: 1}
	aot := &ItemType{ServerID: 2, Flags: ItemAlwaysOnTop}
	mobile := &ItemType{ServerID: 3}

	tile.SetGround(NewItem(1, ground))
	require.NoError(t, tile.AddItem(NewItem(2, aot)))
	tile.AddCreature(77)
	require.NoError(t, tile.AddItem(NewItem(3, mobile)))

	pos, ok := tile.StackPosition(GroundRef())
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	pos, ok = tile.StackPosition(ItemRef(2))
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	pos, ok = tile.StackPosition(CreatureRef(77))
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	pos, ok = tile.StackPosition(ItemRef(3))
	require.True(t, ok)
	assert.Equal(t, 3, pos)
}
