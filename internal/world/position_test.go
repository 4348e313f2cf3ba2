package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosition_DistanceToSelfIsZero(t *testing.T) {
	p := Position{X: 100, Y: 200, Z: 7}
	assert.Zero(t, p.DistanceTo(p))
}

func TestPosition_DistanceIsSymmetric(t *testing.T) {
	a := Position{X: 100, Y: 100, Z: 7}
	b := Position{X: 105, Y: 90, Z: 7}
	assert.Equal(t, a.DistanceTo(b), b.DistanceTo(a))
}

func TestPosition_ChebyshevLessOrEqualManhattan(t *testing.T) {
	a := Position{X: 10, Y: 10}
	b := Position{X: 17, Y: 13}
	chebyshev := a.DistanceTo(b)
	manhattan := absInt(int(a.X)-int(b.X)) + absInt(int(a.Y)-int(b.Y))
	assert.LessOrEqual(t, chebyshev, manhattan)
}

func TestPosition_SlotEncoding(t *testing.T) {
	inventorySlot := Position{X: 0xFFFF, Y: 5}
	assert.True(t, inventorySlot.IsSlot())
	assert.False(t, inventorySlot.IsContainerSlot())
	assert.Equal(t, uint16(5), inventorySlot.InventorySlot())

	containerSlot := Position{X: 0xFFFF, Y: 0x40 | 2, Z: 3}
	assert.True(t, containerSlot.IsContainerSlot())
	assert.Equal(t, uint8(2), containerSlot.ContainerID())
	assert.Equal(t, uint8(3), containerSlot.ContainerSlot())
}
