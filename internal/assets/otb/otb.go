package otb

import (
	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/shadowot/realm/internal/world"
)

// attrType enumerates the OTB item attribute tags (§4.5).
type attrType uint8

const (
	attrServerID    attrType = 0x10
	attrClientID    attrType = 0x11
	attrName        attrType = 0x12
	attrDescription attrType = 0x13
	attrSpeed       attrType = 0x14
	attrLight       attrType = 0x15
	attrTopOrder    attrType = 0x16
	attrWareID      attrType = 0x17
	// Deprecated aliases retained for older OTB revisions (§4.5).
	attrServerIDLegacy attrType = 0x01
	attrClientIDLegacy attrType = 0x02
)

// Version is the OTB root's version attribute (§4.5).
type Version struct {
	Major uint32
	Minor uint32
	Build uint32
}

// Catalog is the parsed OTB item catalog (§4.5 Output): item lookup by
// server id, and an auxiliary client-id -> server-id index.
type Catalog struct {
	Version       Version
	byServerID    map[uint16]*world.ItemType
	clientToServer map[uint16]uint16
}

// ByServerID looks up an item type by its server id.
func (c *Catalog) ByServerID(id uint16) (*world.ItemType, error) {
	t, ok := c.byServerID[id]
	if !ok {
		return nil, apperr.ItemNotFound(id)
	}
	return t, nil
}

// ByClientID looks up an item type by its client id via the auxiliary index.
func (c *Catalog) ByClientID(clientID uint16) (*world.ItemType, error) {
	serverID, ok := c.clientToServer[clientID]
	if !ok {
		return nil, apperr.ItemNotFound(clientID)
	}
	return c.ByServerID(serverID)
}

// Len returns the number of item types in the catalog.
func (c *Catalog) Len() int { return len(c.byServerID) }

// Load parses a complete OTB file buffer into a Catalog (§4.5).
func Load(data []byte) (*Catalog, error) {
	root, err := ParseTree(data)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		Version:        parseRootVersion(root.Data),
		byServerID:     make(map[uint16]*world.ItemType),
		clientToServer: make(map[uint16]uint16),
	}

	for _, child := range root.Children {
		itemType, err := parseItemNode(child)
		if err != nil {
			return nil, err
		}
		if itemType == nil {
			continue
		}
		cat.byServerID[itemType.ServerID] = itemType
		if itemType.ClientID != 0 {
			cat.clientToServer[itemType.ClientID] = itemType.ServerID
		}
	}

	return cat, nil
}

// rootAttrVersion is the OTB root's version attribute tag.
const rootAttrVersion attrType = 0x01

// parseRootVersion extracts the (major, minor, build) triplet from the root
// node payload: u32 flags, then one attribute (tag, u16 size, major u32,
// minor u32, build u32, trailing description bytes) (§4.5). Returns the
// zero Version if the root carries no recognizable version attribute.
func parseRootVersion(data []byte) Version {
	r := protocol.NewReader(data)
	if _, err := r.U32(); err != nil { // flags
		return Version{}
	}
	tag, err := r.U8()
	if err != nil || attrType(tag) != rootAttrVersion {
		return Version{}
	}
	if _, err := r.U16(); err != nil { // attribute size
		return Version{}
	}
	major, err1 := r.U32()
	minor, err2 := r.U32()
	build, err3 := r.U32()
	if err1 != nil || err2 != nil || err3 != nil {
		return Version{}
	}
	return Version{Major: major, Minor: minor, Build: build}
}

func parseItemNode(node *Node) (*world.ItemType, error) {
	if len(node.Data) < 5 {
		return nil, apperr.InvalidAssetFormat("otb: item node too short")
	}

	r := protocol.NewReader(node.Data)
	// group byte is the item's base group classification (ignored here; full
	// behavior lives in Flags + attributes).
	if _, err := r.U8(); err != nil {
		return nil, err
	}
	flagsRaw, err := r.U32()
	if err != nil {
		return nil, err
	}

	it := &world.ItemType{Flags: mapFlags(flagsRaw)}

	for r.Len() > 0 {
		tag, err := r.U8()
		if err != nil {
			return nil, err
		}
		size, err := r.U16()
		if err != nil {
			return nil, err
		}
		raw, err := r.Bytes(int(size))
		if err != nil {
			return nil, apperr.InvalidAssetFormat("otb: attribute size exceeds node payload")
		}

		if err := applyAttr(it, attrType(tag), raw); err != nil {
			return nil, err
		}
	}

	return it, nil
}

func applyAttr(it *world.ItemType, tag attrType, raw []byte) error {
	ar := protocol.NewReader(raw)
	switch tag {
	case attrServerID, attrServerIDLegacy:
		v, err := ar.U16()
		if err != nil {
			return err
		}
		it.ServerID = v
	case attrClientID, attrClientIDLegacy:
		v, err := ar.U16()
		if err != nil {
			return err
		}
		it.ClientID = v
	case attrName:
		it.Name = string(raw)
	case attrDescription:
		it.Description = string(raw)
	case attrSpeed:
		v, err := ar.U16()
		if err != nil {
			return err
		}
		it.Speed = int16(v)
	case attrLight:
		level, err := ar.U8()
		if err != nil {
			return err
		}
		color, err := ar.U8()
		if err != nil {
			return err
		}
		it.LightLevel = level
		it.LightColor = color
	case attrTopOrder:
		v, err := ar.U8()
		if err != nil {
			return err
		}
		it.TopOrder = v
	case attrWareID:
		v, err := ar.U16()
		if err != nil {
			return err
		}
		it.WareID = v
	}
	return nil
}

// mapFlags translates the raw OTB flags bitmask into the world package's
// ItemFlags representation. The OTB bit layout and the engine's internal
// ItemFlags are deliberately kept distinct so wire-format churn across client
// generations never leaks into world semantics.
func mapFlags(raw uint32) world.ItemFlags {
	const (
		otbBlockSolid      = 1 << 0
		otbBlockProjectile = 1 << 1
		otbBlockPathfind   = 1 << 2
		otbAlwaysOnTop     = 1 << 3
		otbStackable       = 1 << 4
		otbContainer       = 1 << 5
		otbIsField         = 1 << 6
		otbMovable         = 1 << 7
		otbPickupable      = 1 << 8
	)

	var flags world.ItemFlags
	if raw&otbBlockSolid != 0 {
		flags |= world.ItemBlocksSolid
	}
	if raw&otbBlockProjectile != 0 {
		flags |= world.ItemBlocksProjectile
	}
	if raw&otbBlockPathfind != 0 {
		flags |= world.ItemBlocksPathfind
	}
	if raw&otbAlwaysOnTop != 0 {
		flags |= world.ItemAlwaysOnTop
	}
	if raw&otbStackable != 0 {
		flags |= world.ItemStackable
	}
	if raw&otbContainer != 0 {
		flags |= world.ItemContainer
	}
	if raw&otbIsField != 0 {
		flags |= world.ItemIsField
	}
	if raw&otbMovable != 0 {
		flags |= world.ItemMovable
	}
	if raw&otbPickupable != 0 {
		flags |= world.ItemPickupable
	}
	return flags
}
