// Package dat reads the thing-definition table: per-category records (items,
// creatures, effects, distance effects) describing each thing's render
// attributes and the frame-group block referencing its sprites. The
// attribute tag layout changes across client generations, so decoding is
// dispatched on ClientVersion through a small table (§4.4 DAT reader).
package dat

import (
	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/protocol"
)

// Category partitions the thing id space (§4.4).
type Category int

const (
	CategoryItem Category = iota
	CategoryCreature
	CategoryEffect
	CategoryDistanceEffect
)

// flagTerminator ends a thing's attribute list in every version (§4.4).
const flagTerminator = 0xFF

// FrameGroup is one animation block referencing a thing's sprite ids (§4.4).
type FrameGroup struct {
	Width, Height uint8
	Layers        uint8
	PatternX      uint8
	PatternY      uint8
	PatternZ      uint8
	Frames        uint8
	SpriteIDs     []uint32
}

// Thing is one fully decoded record from any of the four categories.
type Thing struct {
	ID          uint16
	Category    Category
	Flags       map[FlagID]bool
	Speed       uint16
	LightLevel  uint8
	LightColor  uint8
	MinimapColor uint16
	Groups      []FrameGroup
}

// FlagID names a boolean or value-carrying attribute. Only the ones the
// engine cares about are named; anything else round-trips as an opaque
// flag presence without a decoded payload.
type FlagID uint8

const (
	FlagGround FlagID = iota
	FlagBlocksSolid
	FlagBlocksProjectile
	FlagBlocksPathfind
	FlagContainer
	FlagStackable
	FlagMultiUse
	FlagLight
	FlagSpeed
	FlagWalkable
	FlagUnknown
)

// versionSpec describes which raw byte tag maps to which FlagID, and which
// tags carry extra payload bytes, for a given ClientVersion range.
type versionSpec struct {
	minVersion int
	tagToFlag  map[byte]FlagID
	hasPayload map[byte]bool
}

// specTable is ordered newest-first; Decode picks the first entry whose
// minVersion is <= the requested ClientVersion (§4.4 table-driven decoder).
var specTable = []versionSpec{
	{
		minVersion: 960,
		tagToFlag: map[byte]FlagID{
			0x00: FlagGround,
			0x01: FlagBlocksSolid,
			0x02: FlagBlocksProjectile,
			0x03: FlagBlocksPathfind,
			0x05: FlagMultiUse,
			0x08: FlagContainer,
			0x09: FlagStackable,
			0x0C: FlagLight,
			0x1C: FlagSpeed,
			0x1D: FlagWalkable,
		},
		hasPayload: map[byte]bool{0x00: true, 0x0C: true, 0x1C: true},
	},
	{
		minVersion: 0,
		tagToFlag: map[byte]FlagID{
			0x00: FlagGround,
			0x01: FlagBlocksSolid,
			0x02: FlagBlocksProjectile,
			0x03: FlagBlocksPathfind,
			0x04: FlagMultiUse,
			0x06: FlagContainer,
			0x07: FlagStackable,
			0x09: FlagLight,
			0x19: FlagSpeed,
			0x1A: FlagWalkable,
		},
		hasPayload: map[byte]bool{0x00: true, 0x09: true, 0x19: true},
	},
}

func specFor(clientVersion int) versionSpec {
	for _, s := range specTable {
		if clientVersion >= s.minVersion {
			return s
		}
	}
	return specTable[len(specTable)-1]
}

// Catalog holds decoded things keyed by (category, id).
type Catalog struct {
	ClientVersion int
	things        map[Category]map[uint16]*Thing
}

// Thing looks up a decoded record by category and id.
func (c *Catalog) Thing(cat Category, id uint16) (*Thing, error) {
	m, ok := c.things[cat]
	if !ok {
		return nil, apperr.InvalidAssetFormat("dat: unknown category")
	}
	t, ok := m[id]
	if !ok {
		return nil, apperr.ItemNotFound(id)
	}
	return t, nil
}

// counts is the four per-category record counts from the DAT header.
type counts struct {
	items, creatures, effects, distanceEffects uint16
}

// Load parses a complete DAT file buffer for the given client version.
func Load(data []byte, clientVersion int) (*Catalog, error) {
	r := protocol.NewReader(data)
	if _, err := r.U32(); err != nil { // signature, unused: dispatch uses clientVersion
		return nil, apperr.InvalidAssetFormat("dat: missing signature")
	}

	var c counts
	var err error
	if c.items, err = r.U16(); err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing item count")
	}
	if c.creatures, err = r.U16(); err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing creature count")
	}
	if c.effects, err = r.U16(); err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing effect count")
	}
	if c.distanceEffects, err = r.U16(); err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing distance effect count")
	}

	spec := specFor(clientVersion)
	cat := &Catalog{
		ClientVersion: clientVersion,
		things:        make(map[Category]map[uint16]*Thing),
	}

	// Item ids conventionally start at 100 in the legacy client id space;
	// creatures/effects/distance-effects start at 1.
	ranges := []struct {
		cat   Category
		start uint16
		count uint16
	}{
		{CategoryItem, 100, c.items},
		{CategoryCreature, 1, c.creatures},
		{CategoryEffect, 1, c.effects},
		{CategoryDistanceEffect, 1, c.distanceEffects},
	}

	for _, rg := range ranges {
		m := make(map[uint16]*Thing, rg.count)
		for i := uint16(0); i < rg.count; i++ {
			id := rg.start + i
			thing, err := decodeThing(r, id, rg.cat, spec)
			if err != nil {
				return nil, err
			}
			m[id] = thing
		}
		cat.things[rg.cat] = m
	}

	return cat, nil
}

func decodeThing(r *protocol.Reader, id uint16, category Category, spec versionSpec) (*Thing, error) {
	thing := &Thing{ID: id, Category: category, Flags: make(map[FlagID]bool)}

	for {
		tag, err := r.U8()
		if err != nil {
			return nil, apperr.InvalidAssetFormat("dat: truncated flag list")
		}
		if tag == flagTerminator {
			break
		}

		flag, known := spec.tagToFlag[tag]
		if !known {
			flag = FlagUnknown
		}
		thing.Flags[flag] = true

		if spec.hasPayload[tag] {
			if err := consumeFlagPayload(r, flag, thing); err != nil {
				return nil, err
			}
		}
	}

	groups, err := decodeFrameGroups(r)
	if err != nil {
		return nil, err
	}
	thing.Groups = groups

	return thing, nil
}

func consumeFlagPayload(r *protocol.Reader, flag FlagID, thing *Thing) error {
	switch flag {
	case FlagGround:
		speed, err := r.U16()
		if err != nil {
			return apperr.InvalidAssetFormat("dat: truncated ground speed")
		}
		thing.Speed = speed
	case FlagLight:
		level, err := r.U16()
		if err != nil {
			return apperr.InvalidAssetFormat("dat: truncated light level")
		}
		color, err := r.U16()
		if err != nil {
			return apperr.InvalidAssetFormat("dat: truncated light color")
		}
		thing.LightLevel = uint8(level)
		thing.LightColor = uint8(color)
	case FlagSpeed:
		speed, err := r.U16()
		if err != nil {
			return apperr.InvalidAssetFormat("dat: truncated speed")
		}
		thing.Speed = speed
	default:
		// Unrecognized payload-bearing tags are skipped as a single u16, the
		// common width for this format's extra fields.
		if _, err := r.U16(); err != nil {
			return apperr.InvalidAssetFormat("dat: truncated flag payload")
		}
	}
	return nil
}

func decodeFrameGroups(r *protocol.Reader) ([]FrameGroup, error) {
	width, err := r.U8()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing frame group width")
	}
	height, err := r.U8()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing frame group height")
	}
	if width > 1 || height > 1 {
		if _, err := r.U8(); err != nil { // exact size, unused beyond rendering
			return nil, apperr.InvalidAssetFormat("dat: missing exact size")
		}
	}

	layers, err := r.U8()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing layers")
	}
	patternX, err := r.U8()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing pattern x")
	}
	patternY, err := r.U8()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing pattern y")
	}
	patternZ, err := r.U8()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing pattern z")
	}
	frames, err := r.U8()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("dat: missing frame count")
	}

	spriteCount := int(width) * int(height) * int(layers) * int(patternX) * int(patternY) * int(patternZ) * int(frames)
	spriteIDs := make([]uint32, spriteCount)
	for i := range spriteIDs {
		id, err := r.U32()
		if err != nil {
			return nil, apperr.InvalidAssetFormat("dat: truncated sprite id list")
		}
		spriteIDs[i] = id
	}

	return []FrameGroup{{
		Width:     width,
		Height:    height,
		Layers:    layers,
		PatternX:  patternX,
		PatternY:  patternY,
		PatternZ:  patternZ,
		Frames:    frames,
		SpriteIDs: spriteIDs,
	}}, nil
}
