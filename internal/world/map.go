package world

import (
	"sync"

	"github.com/shadowot/realm/internal/apperr"
)

// Map is a sparse collection of tiles keyed by floor then coordinate (§4.6).
// Unloaded floors/areas simply have no entries, keeping memory proportional
// to explored space rather than world bounds.
type Map struct {
	mu     sync.RWMutex
	width  uint16
	height uint16
	floors [16]map[uint32]*Tile
}

// NewMap constructs an empty map with the given bounds (used for bounds
// checking only; storage remains sparse).
func NewMap(width, height uint16) *Map {
	m := &Map{width: width, height: height}
	for i := range m.floors {
		m.floors[i] = make(map[uint32]*Tile)
	}
	return m
}

func tileKey(x, y uint16) uint32 { return uint32(x)<<16 | uint32(y) }

// InBounds reports whether pos falls within the map's configured bounds.
func (m *Map) InBounds(pos Position) bool {
	return int(pos.Z) < len(m.floors) && pos.X < m.width && pos.Y < m.height
}

// Tile returns the tile at pos, or nil if unloaded/out of bounds.
func (m *Map) Tile(pos Position) *Tile {
	if int(pos.Z) >= len(m.floors) {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.floors[pos.Z][tileKey(pos.X, pos.Y)]
}

// EnsureTile returns the tile at pos, creating an empty one if absent.
func (m *Map) EnsureTile(pos Position) (*Tile, error) {
	if !m.InBounds(pos) {
		return nil, apperr.PositionOutOfBounds()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tileKey(pos.X, pos.Y)
	tile, ok := m.floors[pos.Z][key]
	if !ok {
		tile = NewTile(pos)
		m.floors[pos.Z][key] = tile
	}
	return tile, nil
}

// IsWalkable reports whether pos can be stepped onto: in bounds, and either
// unloaded (treated as walkable blank floor) or not flagged BlockSolid.
func (m *Map) IsWalkable(pos Position) bool {
	if !m.InBounds(pos) {
		return false
	}
	tile := m.Tile(pos)
	if tile == nil {
		return true
	}
	return tile.IsWalkable()
}

// BlocksProjectile reports whether pos blocks line of sight.
func (m *Map) BlocksProjectile(pos Position) bool {
	tile := m.Tile(pos)
	return tile != nil && tile.BlocksProjectile()
}

// BlocksPathfind reports whether pos should be avoided by pathfinding.
func (m *Map) BlocksPathfind(pos Position) bool {
	tile := m.Tile(pos)
	return tile != nil && tile.BlocksPathfind()
}
