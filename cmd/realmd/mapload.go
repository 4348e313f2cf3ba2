package main

import (
	"math/rand"

	"github.com/shadowot/realm/internal/assets/otbm"
	"github.com/shadowot/realm/internal/store"
	"github.com/shadowot/realm/internal/world"
)

// buildWorldMap materializes a runtime world.Map from a parsed OTBM document,
// resolving each tile's ground/stack items against the item catalog (§4.6,
// §6 OTBM map file).
func buildWorldMap(doc *otbm.Map, catalog store.ItemCatalog) (*world.Map, error) {
	width := doc.Header.Width
	height := doc.Header.Height
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	m := world.NewMap(width, height)

	var nextUniqueID uint32 = 1
	for _, td := range doc.Tiles {
		pos := world.Position{X: td.X, Y: td.Y, Z: td.Z}
		tile, err := m.EnsureTile(pos)
		if err != nil {
			continue
		}
		if td.GroundID != 0 {
			if kind, err := catalog.ByServerID(td.GroundID); err == nil {
				tile.SetGround(world.NewItem(nextUniqueID, kind))
				nextUniqueID++
			}
		}
		for _, inst := range td.Items {
			kind, err := catalog.ByServerID(inst.ServerID)
			if err != nil {
				continue
			}
			item := world.NewItem(nextUniqueID, kind)
			nextUniqueID++
			item.Count = inst.Count
			_ = tile.AddItem(item)
		}
	}
	return m, nil
}

// mapWalkableAdapter exposes a world.Map as a spawn.WalkableChecker, whose
// interface is expressed in raw coordinates so the scheduler never imports
// package world (§4.12).
type mapWalkableAdapter struct {
	m *world.Map
}

func (a mapWalkableAdapter) IsWalkable(x, y, z int) bool {
	if x < 0 || y < 0 || z < 0 || z > 255 {
		return false
	}
	return a.m.IsWalkable(world.Position{X: uint16(x), Y: uint16(y), Z: uint8(z)})
}

// randomOffsetInDisc returns a uniformly distributed (dx, dy) within radius,
// satisfying spawn.RandomInDisc (§4.12).
func randomOffsetInDisc(radius int) (int, int) {
	if radius <= 0 {
		return 0, 0
	}
	for {
		dx, dy := rand.Intn(2*radius+1)-radius, rand.Intn(2*radius+1)-radius
		if dx*dx+dy*dy <= radius*radius {
			return dx, dy
		}
	}
}
