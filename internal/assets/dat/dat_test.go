package dat

import (
	"testing"

	"github.com/shadowot/realm/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildThing encodes one thing's flag list (new-generation tag layout) plus
// a single 1x1x1x1x1 frame group with the given sprite ids.
func buildThing(w *protocol.Writer, groundSpeed uint16, spriteIDs []uint32) {
	w.PutU8(0x00) // ground
	w.PutU16(groundSpeed)
	w.PutU8(0x01) // blocks solid
	w.PutU8(flagTerminator)

	w.PutU8(1) // width
	w.PutU8(1) // height
	w.PutU8(1) // layers
	w.PutU8(1) // pattern x
	w.PutU8(1) // pattern y
	w.PutU8(1) // pattern z
	w.PutU8(uint8(len(spriteIDs)))
	for _, id := range spriteIDs {
		w.PutU32(id)
	}
}

func buildDat(itemSpriteIDs []uint32) []byte {
	w := protocol.NewWriter()
	w.PutU32(1) // signature
	w.PutU16(1) // items
	w.PutU16(0) // creatures
	w.PutU16(0) // effects
	w.PutU16(0) // distance effects

	buildThing(w, 150, itemSpriteIDs)
	return w.Bytes()
}

func TestLoad_DecodesSingleItemWithFrameGroup(t *testing.T) {
	buf := buildDat([]uint32{42, 43})
	cat, err := Load(buf, 1098)
	require.NoError(t, err)

	thing, err := cat.Thing(CategoryItem, 100)
	require.NoError(t, err)
	assert.True(t, thing.Flags[FlagGround])
	assert.True(t, thing.Flags[FlagBlocksSolid])
	assert.Equal(t, uint16(150), thing.Speed)

	require.Len(t, thing.Groups, 1)
	assert.Equal(t, []uint32{42, 43}, thing.Groups[0].SpriteIDs)
}

func TestLoad_UnknownThingIDReturnsError(t *testing.T) {
	buf := buildDat([]uint32{1})
	cat, err := Load(buf, 1098)
	require.NoError(t, err)

	_, err = cat.Thing(CategoryItem, 999)
	require.Error(t, err)
}

func TestSpecFor_SelectsOlderLayoutBelowThreshold(t *testing.T) {
	spec := specFor(740)
	assert.Equal(t, FlagGround, spec.tagToFlag[0x00])
	assert.Equal(t, FlagStackable, spec.tagToFlag[0x07])
}

func TestSpecFor_SelectsNewerLayoutAtThreshold(t *testing.T) {
	spec := specFor(1098)
	assert.Equal(t, FlagStackable, spec.tagToFlag[0x09])
}
