// Package spr reads the legacy sprite sheet format: a signature header, an
// offset table, and per-sprite records that are either RLE-encoded or (on
// newer client generations) LZMA-compressed (§4.3 SPR reader).
package spr

import (
	"bytes"
	"io"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/ulikunitz/xz/lzma"
)

// spriteSize is the fixed width/height of every decoded sprite, in pixels.
const spriteSize = 32

// lzmaVersionThreshold is the signature-derived version from which sprite
// records switch from RLE to LZMA compression (§4.3).
const lzmaVersionThreshold = 1050

// Sprite is a decoded 32x32 RGBA pixel buffer, row-major, 4 bytes per pixel.
type Sprite struct {
	Pixels []byte
}

// Catalog is a parsed sprite sheet: the raw file bytes plus the offset table,
// decoded lazily per sprite id on request (§4.3 cache note).
type Catalog struct {
	data       []byte
	signature  uint32
	useLZMA    bool
	offsets    []uint32
	cache      map[uint32]*Sprite
	cacheCap   int
	cacheOrder []uint32
}

// DefaultCacheCapacity bounds the sprite decode cache so long-running servers
// don't grow memory without bound (§8 Redesign note on unbounded caches).
const DefaultCacheCapacity = 4096

// Load parses an SPR file's header and offset table. Individual sprites are
// decoded on demand via Sprite.
func Load(data []byte) (*Catalog, error) {
	r := protocol.NewReader(data)
	signature, err := r.U32()
	if err != nil {
		return nil, apperr.InvalidAssetFormat("spr: missing signature")
	}

	extended := signatureVersion(signature) >= lzmaVersionThreshold
	var count uint32
	if extended {
		count, err = r.U32()
	} else {
		var c16 uint16
		c16, err = r.U16()
		count = uint32(c16)
	}
	if err != nil {
		return nil, apperr.InvalidAssetFormat("spr: missing sprite count")
	}

	offsets := make([]uint32, count)
	for i := range offsets {
		offsets[i], err = r.U32()
		if err != nil {
			return nil, apperr.InvalidAssetFormat("spr: truncated offset table")
		}
	}

	return &Catalog{
		data:      data,
		signature: signature,
		useLZMA:   extended,
		offsets:   offsets,
		cache:     make(map[uint32]*Sprite),
		cacheCap:  DefaultCacheCapacity,
	}, nil
}

// signatureVersion maps a raw SPR signature to the numeric client version it
// encodes. Real signatures are a client-build hash; callers that need exact
// version dispatch should configure it explicitly. Here we treat the
// signature's low 16 bits as a version proxy, matching the convention used
// by the offset-table width switch (u16 vs u32 count).
func signatureVersion(signature uint32) int {
	return int(signature & 0xFFFF)
}

// Count returns the number of sprite slots in the catalog (ids 1..Count).
func (c *Catalog) Count() int { return len(c.offsets) }

// Sprite decodes and returns sprite id (1-indexed; id 0 and id > Count are
// invalid). A zero offset denotes an empty, fully-transparent sprite.
func (c *Catalog) Sprite(id uint32) (*Sprite, error) {
	if id == 0 || int(id) > len(c.offsets) {
		return nil, apperr.SpriteNotFound(id)
	}
	if cached, ok := c.cache[id]; ok {
		return cached, nil
	}

	offset := c.offsets[id-1]
	if offset == 0 {
		sprite := &Sprite{Pixels: make([]byte, spriteSize*spriteSize*4)}
		c.store(id, sprite)
		return sprite, nil
	}

	if int(offset) >= len(c.data) {
		return nil, apperr.InvalidSpriteData("sprite offset exceeds file size")
	}

	sprite, err := decodeRecord(c.data[offset:], c.useLZMA)
	if err != nil {
		return nil, err
	}
	c.store(id, sprite)
	return sprite, nil
}

// store inserts a decoded sprite into the cache, evicting the oldest entry
// once cacheCap is exceeded (simple FIFO soft-eviction, §8 Redesign note).
func (c *Catalog) store(id uint32, sprite *Sprite) {
	if _, exists := c.cache[id]; exists {
		return
	}
	c.cache[id] = sprite
	c.cacheOrder = append(c.cacheOrder, id)
	if len(c.cacheOrder) > c.cacheCap {
		oldest := c.cacheOrder[0]
		c.cacheOrder = c.cacheOrder[1:]
		delete(c.cache, oldest)
	}
}

func decodeRecord(data []byte, useLZMA bool) (*Sprite, error) {
	r := protocol.NewReader(data)
	if _, err := r.Bytes(3); err != nil { // color key, ignored (§4.3)
		return nil, apperr.InvalidSpriteData("sprite record too short for color key")
	}

	if useLZMA {
		return decodeLZMA(r)
	}
	return decodeRLE(r)
}

func decodeRLE(r *protocol.Reader) (*Sprite, error) {
	dataSize, err := r.U16()
	if err != nil {
		return nil, apperr.InvalidSpriteData("missing RLE data size")
	}
	body, err := r.Bytes(int(dataSize))
	if err != nil {
		return nil, apperr.InvalidSpriteData("RLE data exceeds remaining buffer")
	}

	pixels := make([]byte, spriteSize*spriteSize*4)
	br := protocol.NewReader(body)
	pos := 0
	total := spriteSize * spriteSize

	for pos < total && br.Len() > 0 {
		transparentRun, err := br.U16()
		if err != nil {
			break
		}
		pos += int(transparentRun)

		if br.Len() == 0 {
			break
		}
		coloredRun, err := br.U16()
		if err != nil {
			break
		}

		for i := 0; i < int(coloredRun) && pos < total; i++ {
			rgb, err := br.Bytes(3)
			if err != nil {
				return nil, apperr.InvalidSpriteData("truncated colored run")
			}
			off := pos * 4
			pixels[off] = rgb[0]
			pixels[off+1] = rgb[1]
			pixels[off+2] = rgb[2]
			pixels[off+3] = 255
			pos++
		}
	}

	return &Sprite{Pixels: pixels}, nil
}

func decodeLZMA(r *protocol.Reader) (*Sprite, error) {
	compressedSize, err := r.U32()
	if err != nil {
		return nil, apperr.InvalidSpriteData("missing compressed size")
	}
	decompressedSize, err := r.U32()
	if err != nil {
		return nil, apperr.InvalidSpriteData("missing decompressed size")
	}
	compressed, err := r.Bytes(int(compressedSize))
	if err != nil {
		return nil, apperr.InvalidSpriteData("compressed data exceeds remaining buffer")
	}

	lr, err := lzma.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, apperr.DecompressionFailed(err)
	}
	bgra := make([]byte, decompressedSize)
	if _, err := io.ReadFull(lr, bgra); err != nil {
		return nil, apperr.DecompressionFailed(err)
	}

	pixels := make([]byte, len(bgra))
	for i := 0; i+3 < len(bgra); i += 4 {
		pixels[i] = bgra[i+2]   // R <- B
		pixels[i+1] = bgra[i+1] // G
		pixels[i+2] = bgra[i]   // B <- R
		pixels[i+3] = bgra[i+3] // A
	}

	return &Sprite{Pixels: pixels}, nil
}
