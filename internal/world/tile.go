package world

import "github.com/shadowot/realm/internal/apperr"

// MaxThings is the maximum number of items a tile may hold besides its
// ground item (§3 Tile invariant).
const MaxThings = 16

// TileFlags are aggregated from the tile's ground item, items and creatures
// on every mutation (§3 Tile).
type TileFlags uint32

const (
	TileBlockSolid TileFlags = 1 << iota
	TileBlockProjectile
	TileBlockPathfind
	TileProtectionZone
	TileNoPvP
	TilePvP
	TileHouse
	TileNoLogout
	TileNoSummon
	TileNoMonster
)

// Tile is the atomic cell of the map (§3 Tile, §4.6). It owns at most one
// ground item, a stack of items, and a list of creature ids standing on it.
type Tile struct {
	Position Position

	Ground     *Item
	Items      []*Item
	CreatureIDs []uint32

	Flags TileFlags

	// Static flags configured by the map (house/PZ/PvP zoning) persist
	// across recomputeFlags calls; they are ORed with the dynamic flags.
	staticFlags TileFlags
}

// NewTile constructs an empty tile at pos.
func NewTile(pos Position) *Tile {
	return &Tile{Position: pos}
}

// SetStaticFlags configures the zone flags carried by the map file (house,
// protection zone, pvp) that are independent of tile contents.
func (t *Tile) SetStaticFlags(flags TileFlags) {
	t.staticFlags = flags
	t.recomputeFlags()
}

// SetGround sets the tile's single ground item, replacing any previous one.
func (t *Tile) SetGround(item *Item) {
	t.Ground = item
	t.recomputeFlags()
}

// AddItem pushes an item onto the tile's stack, respecting always-on-top
// ordering (§4.6): always-on-top items are inserted before mobile items,
// each class preserving first-added-first-drawn order.
func (t *Tile) AddItem(item *Item) error {
	if len(t.Items) >= MaxThings {
		return apperr.TileFull()
	}
	if item.Type() != nil && item.Type().IsAlwaysOnTop() {
		insertAt := 0
		for insertAt < len(t.Items) && t.Items[insertAt].Type() != nil && t.Items[insertAt].Type().IsAlwaysOnTop() {
			insertAt++
		}
		t.Items = append(t.Items, nil)
		copy(t.Items[insertAt+1:], t.Items[insertAt:])
		t.Items[insertAt] = item
	} else {
		t.Items = append(t.Items, item)
	}
	t.recomputeFlags()
	return nil
}

// RemoveItem removes the item with the given unique id from the stack.
func (t *Tile) RemoveItem(uniqueID uint32) *Item {
	for i, it := range t.Items {
		if it.UniqueID == uniqueID {
			t.Items = append(t.Items[:i], t.Items[i+1:]...)
			t.recomputeFlags()
			return it
		}
	}
	return nil
}

// AddCreature registers a creature id as standing on this tile.
func (t *Tile) AddCreature(id uint32) {
	t.CreatureIDs = append(t.CreatureIDs, id)
	t.recomputeFlags()
}

// RemoveCreature unregisters a creature id from this tile.
func (t *Tile) RemoveCreature(id uint32) {
	for i, cid := range t.CreatureIDs {
		if cid == id {
			t.CreatureIDs = append(t.CreatureIDs[:i], t.CreatureIDs[i+1:]...)
			break
		}
	}
	t.recomputeFlags()
}

// recomputeFlags rebuilds the dynamic flag set from ground+items+creatures
// (§8 invariant: BlockSolid ⇔ ground.blocks_solid ∨ ∃ item.blocks_solid ∨
// creatures.non_empty).
func (t *Tile) recomputeFlags() {
	flags := t.staticFlags

	if t.Ground != nil && t.Ground.Type() != nil {
		if t.Ground.Type().BlocksSolid() {
			flags |= TileBlockSolid
		}
		if t.Ground.Type().BlocksProjectile() {
			flags |= TileBlockProjectile
		}
		if t.Ground.Type().BlocksPathfind() {
			flags |= TileBlockPathfind
		}
	}

	for _, item := range t.Items {
		if item.Type() == nil {
			continue
		}
		if item.Type().BlocksSolid() {
			flags |= TileBlockSolid
		}
		if item.Type().BlocksProjectile() {
			flags |= TileBlockProjectile
		}
		if item.Type().BlocksPathfind() {
			flags |= TileBlockPathfind
		}
	}

	if len(t.CreatureIDs) > 0 {
		flags |= TileBlockSolid
	}

	t.Flags = flags
}

// IsWalkable reports whether the tile can be stepped onto.
func (t *Tile) IsWalkable() bool { return t.Flags&TileBlockSolid == 0 }

// BlocksProjectile reports whether the tile blocks line of sight / projectiles.
func (t *Tile) BlocksProjectile() bool { return t.Flags&TileBlockProjectile != 0 }

// BlocksPathfind reports whether pathfinding should treat the tile as blocked.
func (t *Tile) BlocksPathfind() bool { return t.Flags&TileBlockPathfind != 0 }

// StackRef identifies a specific thing on a tile for stack-position
// resolution: exactly one of Ground/ItemUniqueID/CreatureID applies.
type StackRef struct {
	Ground        bool
	ItemUniqueID  uint32
	CreatureID    uint32
	IsCreatureRef bool
}

// GroundRef identifies the tile's ground item.
func GroundRef() StackRef { return StackRef{Ground: true} }

// ItemRef identifies an item by its unique id.
func ItemRef(uniqueID uint32) StackRef { return StackRef{ItemUniqueID: uniqueID} }

// CreatureRef identifies a creature by id.
func CreatureRef(id uint32) StackRef { return StackRef{CreatureID: id, IsCreatureRef: true} }

func (t *Tile) alwaysOnTopCount() int {
	n := 0
	for _, item := range t.Items {
		if item.Type() != nil && item.Type().IsAlwaysOnTop() {
			n++
		} else {
			break
		}
	}
	return n
}

// StackPosition resolves the wire stack-position of a thing on this tile,
// following ground → always-on-top → creatures → items ordering (§4.6).
func (t *Tile) StackPosition(ref StackRef) (int, bool) {
	pos := 0
	if t.Ground != nil {
		if ref.Ground {
			return pos, true
		}
		pos++
	}

	alwaysOnTopEnd := t.alwaysOnTopCount()

	for i := 0; i < alwaysOnTopEnd; i++ {
		if ref.ItemUniqueID != 0 && t.Items[i].UniqueID == ref.ItemUniqueID {
			return pos, true
		}
		pos++
	}

	for i := len(t.CreatureIDs) - 1; i >= 0; i-- {
		if ref.IsCreatureRef && t.CreatureIDs[i] == ref.CreatureID {
			return pos, true
		}
		pos++
	}

	for i := alwaysOnTopEnd; i < len(t.Items); i++ {
		if ref.ItemUniqueID != 0 && t.Items[i].UniqueID == ref.ItemUniqueID {
			return pos, true
		}
		pos++
	}

	return 0, false
}
