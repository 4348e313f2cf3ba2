package world

// ItemFlags are the behavior flags carried by an ItemType, loaded from the
// OTB catalog (§3 Item, §4.5).
type ItemFlags uint32

const (
	ItemBlocksSolid ItemFlags = 1 << iota
	ItemBlocksProjectile
	ItemBlocksPathfind
	ItemAlwaysOnTop
	ItemStackable
	ItemContainer
	ItemIsField
	ItemMovable
	ItemPickupable
)

// Has reports whether all bits in want are set.
func (f ItemFlags) Has(want ItemFlags) bool { return f&want == want }

// ItemType is a catalog entry describing the static behavior of an item
// server id, loaded once from OTB at startup (§4.5).
type ItemType struct {
	ServerID    uint16
	ClientID    uint16
	Name        string
	Description string
	Flags       ItemFlags
	Speed       int16
	LightLevel  uint8
	LightColor  uint8
	TopOrder    uint8
	WareID      uint16
}

func (t *ItemType) BlocksSolid() bool      { return t.Flags.Has(ItemBlocksSolid) }
func (t *ItemType) BlocksProjectile() bool { return t.Flags.Has(ItemBlocksProjectile) }
func (t *ItemType) BlocksPathfind() bool   { return t.Flags.Has(ItemBlocksPathfind) }
func (t *ItemType) IsAlwaysOnTop() bool    { return t.Flags.Has(ItemAlwaysOnTop) }
func (t *ItemType) IsStackable() bool      { return t.Flags.Has(ItemStackable) }
func (t *ItemType) IsContainer() bool      { return t.Flags.Has(ItemContainer) }
func (t *ItemType) IsField() bool          { return t.Flags.Has(ItemIsField) }

// MaxStackCount is the maximum number of stackable items a single Item slot
// can hold (§3 Item).
const MaxStackCount = 100

// Item is a live instance of an ItemType on a tile, in a container, or in an
// inventory slot (§3 Item).
type Item struct {
	UniqueID       uint32
	TypeID         uint16
	Count          uint8
	ActionID       uint16
	UniqueActionID uint16
	Text           string
	Charges        uint16
	DurationMs     uint32
	DecayElapsed   bool
	Attributes     map[string]any

	kind *ItemType
}

// NewItem constructs an Item of the given catalog type with a fresh unique id.
func NewItem(uniqueID uint32, kind *ItemType) *Item {
	count := uint8(1)
	return &Item{UniqueID: uniqueID, TypeID: kind.ServerID, Count: count, kind: kind}
}

// Type returns the catalog entry backing this item.
func (it *Item) Type() *ItemType { return it.kind }

// CanStackWith reports whether it and other can be merged into one slot
// (§3 Item: same type_id, stackable flag, sum ≤ 100).
func (it *Item) CanStackWith(other *Item) bool {
	if it.TypeID != other.TypeID {
		return false
	}
	if it.kind == nil || !it.kind.IsStackable() {
		return false
	}
	return int(it.Count)+int(other.Count) <= MaxStackCount
}
