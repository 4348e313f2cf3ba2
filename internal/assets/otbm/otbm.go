// Package otbm reads the binary map file format: a tagged-node tree using
// the same escape protocol as OTB, encoding the header, towns, houses,
// waypoints and per-tile-area item blocks (§6 OTBM map file, glossary OTBM).
package otbm

import (
	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/assets/otb"
	"github.com/shadowot/realm/internal/protocol"
)

// nodeType tags the first byte of every OTBM node's payload.
type nodeType uint8

const (
	nodeMapData   nodeType = 0x02
	nodeTileArea  nodeType = 0x04
	nodeTile      nodeType = 0x05
	nodeItem      nodeType = 0x06
	nodeTowns     nodeType = 0x0C
	nodeTown      nodeType = 0x0D
	nodeHouses    nodeType = 0x0E
	nodeHouse     nodeType = 0x0F
	nodeWaypoints nodeType = 0x10
	nodeWaypoint  nodeType = 0x11
)

// Header describes the map's global properties (§6).
type Header struct {
	Version    uint32
	Width      uint16
	Height     uint16
	MinFloor   uint8
	MaxFloor   uint8
}

// Town is a named spawn/respawn anchor (§6).
type Town struct {
	ID   uint32
	Name string
	X, Y uint16
	Z    uint8
}

// House is a purchasable house definition (§6).
type House struct {
	ID      uint32
	Name    string
	EntryX  uint16
	EntryY  uint16
	EntryZ  uint8
	TownID  uint32
	RentGP  uint32
	TileIDs []uint32
}

// Waypoint is a named navigation point (§6).
type Waypoint struct {
	Name string
	X, Y uint16
	Z    uint8
}

// ItemInstance is one item placed on a tile, as stored in the map file.
type ItemInstance struct {
	ServerID uint16
	Count    uint8
}

// TileData is one tile's persisted contents (§6: per-tile-area blocks of
// x-offset, y-offset, z, ground, items[]).
type TileData struct {
	X, Y     uint16
	Z        uint8
	HouseID  uint32
	GroundID uint16
	Items    []ItemInstance
}

// Map is the fully parsed OTBM document.
type Map struct {
	Header    Header
	Towns     []Town
	Houses    []House
	Waypoints []Waypoint
	Tiles     []TileData
}

// Load parses a complete OTBM file buffer (§6).
func Load(data []byte) (*Map, error) {
	root, err := otb.ParseTree(data)
	if err != nil {
		return nil, err
	}
	if len(root.Children) == 0 {
		return nil, apperr.InvalidAssetFormat("otbm: root has no map-data child")
	}

	result := &Map{}
	r := protocol.NewReader(root.Data)
	version, err := r.U32()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("otbm: missing version")
	}
	result.Header.Version = version

	mapData := root.Children[0]
	if len(mapData.Data) == 0 || nodeType(mapData.Data[0]) != nodeMapData {
		return nil, apperr.InvalidAssetFormat("otbm: expected map-data node")
	}
	if err := parseMapDataAttrs(mapData.Data[1:], &result.Header); err != nil {
		return nil, err
	}

	for _, child := range mapData.Children {
		if len(child.Data) == 0 {
			continue
		}
		switch nodeType(child.Data[0]) {
		case nodeTileArea:
			tiles, err := parseTileArea(child)
			if err != nil {
				return nil, err
			}
			result.Tiles = append(result.Tiles, tiles...)
		case nodeTowns:
			towns, err := parseTowns(child)
			if err != nil {
				return nil, err
			}
			result.Towns = towns
		case nodeHouses:
			houses, err := parseHouses(child)
			if err != nil {
				return nil, err
			}
			result.Houses = houses
		case nodeWaypoints:
			waypoints, err := parseWaypoints(child)
			if err != nil {
				return nil, err
			}
			result.Waypoints = waypoints
		}
	}

	return result, nil
}

func parseMapDataAttrs(data []byte, header *Header) error {
	r := protocol.NewReader(data)
	w, err := r.U16()
	if err != nil {
		return err
	}
	h, err := r.U16()
	if err != nil {
		return err
	}
	header.Width = w
	header.Height = h
	header.MinFloor = 0
	header.MaxFloor = 15
	return nil
}

func parseTileArea(node *otb.Node) ([]TileData, error) {
	r := protocol.NewReader(node.Data[1:])
	baseX, err := r.U16()
	if err != nil {
		return nil, err
	}
	baseY, err := r.U16()
	if err != nil {
		return nil, err
	}
	baseZ, err := r.U8()
	if err != nil {
		return nil, err
	}

	var tiles []TileData
	for _, child := range node.Children {
		if len(child.Data) == 0 || nodeType(child.Data[0]) != nodeTile {
			continue
		}
		tile, err := parseTile(child, baseX, baseY, baseZ)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, tile)
	}
	return tiles, nil
}

func parseTile(node *otb.Node, baseX, baseY uint16, baseZ uint8) (TileData, error) {
	r := protocol.NewReader(node.Data[1:])
	offX, err := r.U8()
	if err != nil {
		return TileData{}, err
	}
	offY, err := r.U8()
	if err != nil {
		return TileData{}, err
	}

	tile := TileData{X: baseX + uint16(offX), Y: baseY + uint16(offY), Z: baseZ}

	if r.Len() >= 2 {
		if groundID, err := r.U16(); err == nil {
			tile.GroundID = groundID
		}
	}

	for _, child := range node.Children {
		if len(child.Data) == 0 || nodeType(child.Data[0]) != nodeItem {
			continue
		}
		item, err := parseItem(child)
		if err != nil {
			return TileData{}, err
		}
		tile.Items = append(tile.Items, item)
	}

	return tile, nil
}

func parseItem(node *otb.Node) (ItemInstance, error) {
	r := protocol.NewReader(node.Data[1:])
	serverID, err := r.U16()
	if err != nil {
		return ItemInstance{}, err
	}
	count := uint8(1)
	if r.Len() > 0 {
		if c, err := r.U8(); err == nil {
			count = c
		}
	}
	return ItemInstance{ServerID: serverID, Count: count}, nil
}

func parseTowns(node *otb.Node) ([]Town, error) {
	var towns []Town
	for _, child := range node.Children {
		if len(child.Data) == 0 || nodeType(child.Data[0]) != nodeTown {
			continue
		}
		r := protocol.NewReader(child.Data[1:])
		id, err := r.U32()
		if err != nil {
			return nil, err
		}
		name, err := r.String()
		if err != nil {
			return nil, err
		}
		x, err := r.U16()
		if err != nil {
			return nil, err
		}
		y, err := r.U16()
		if err != nil {
			return nil, err
		}
		z, err := r.U8()
		if err != nil {
			return nil, err
		}
		towns = append(towns, Town{ID: id, Name: name, X: x, Y: y, Z: z})
	}
	return towns, nil
}

func parseHouses(node *otb.Node) ([]House, error) {
	var houses []House
	for _, child := range node.Children {
		if len(child.Data) == 0 || nodeType(child.Data[0]) != nodeHouse {
			continue
		}
		r := protocol.NewReader(child.Data[1:])
		id, err := r.U32()
		if err != nil {
			return nil, err
		}
		name, err := r.String()
		if err != nil {
			return nil, err
		}
		townID, err := r.U32()
		if err != nil {
			return nil, err
		}
		rent, err := r.U32()
		if err != nil {
			return nil, err
		}
		x, err := r.U16()
		if err != nil {
			return nil, err
		}
		y, err := r.U16()
		if err != nil {
			return nil, err
		}
		z, err := r.U8()
		if err != nil {
			return nil, err
		}
		houses = append(houses, House{ID: id, Name: name, TownID: townID, RentGP: rent, EntryX: x, EntryY: y, EntryZ: z})
	}
	return houses, nil
}

func parseWaypoints(node *otb.Node) ([]Waypoint, error) {
	var waypoints []Waypoint
	for _, child := range node.Children {
		if len(child.Data) == 0 || nodeType(child.Data[0]) != nodeWaypoint {
			continue
		}
		r := protocol.NewReader(child.Data[1:])
		name, err := r.String()
		if err != nil {
			return nil, err
		}
		x, err := r.U16()
		if err != nil {
			return nil, err
		}
		y, err := r.U16()
		if err != nil {
			return nil, err
		}
		z, err := r.U8()
		if err != nil {
			return nil, err
		}
		waypoints = append(waypoints, Waypoint{Name: name, X: x, Y: y, Z: z})
	}
	return waypoints, nil
}
