// Package area computes the set of tiles affected by a spell or effect, and
// the per-tile damage percentage for shapes whose intensity falls off with
// distance (§4.8).
package area

import (
	"math"

	"github.com/shadowot/realm/internal/world"
)

// ShapeKind enumerates the area shapes a spell can declare (§4.8).
type ShapeKind uint8

const (
	ShapeSingle ShapeKind = iota
	ShapeCircle
	ShapeSquare
	ShapeBeam
	ShapeWave
	ShapeRing
	ShapeCross
	ShapeCustom
)

// Shape parameterizes one of the ShapeKind variants. Only the fields
// relevant to Kind are consulted.
type Shape struct {
	Kind ShapeKind

	Radius      int // Circle
	Size        int // Square, Cross (length)
	Length      int // Beam, Wave
	Width       int // Beam
	Spread      int // Wave
	InnerRadius int // Ring
	OuterRadius int // Ring

	// Custom is a matrix where cell value 3 marks the center and any
	// nonzero cell is affected, relative to the matrix's own (0,0).
	Custom [][]int
}

// AffectedTile is one tile hit by an area effect, carrying the damage
// percentage to apply there (§4.8).
type AffectedTile struct {
	Position      world.Position
	DamagePercent int
}

// Enumerate computes the tiles affected by shape anchored at origin, facing
// direction (used by Beam/Wave/Custom), and centered at target for
// Single/Circle/Square/Ring/Cross (§4.8). Positions with negative coordinates after
// offset clamping are excluded.
func Enumerate(shape Shape, origin, target world.Position, direction world.Direction) []AffectedTile {
	switch shape.Kind {
	case ShapeSingle:
		return []AffectedTile{{Position: target, DamagePercent: 100}}
	case ShapeCircle:
		return circle(target, shape.Radius)
	case ShapeSquare:
		return square(target, shape.Size)
	case ShapeBeam:
		return beam(origin, direction, shape.Length, shape.Width)
	case ShapeWave:
		return wave(origin, direction, shape.Length, shape.Spread)
	case ShapeRing:
		return ring(target, shape.InnerRadius, shape.OuterRadius)
	case ShapeCross:
		return cross(target, shape.Size)
	case ShapeCustom:
		return custom(origin, direction, shape.Custom)
	default:
		return nil
	}
}

func inBounds(x, y int) bool { return x >= 0 && y >= 0 }

func circle(center world.Position, radius int) []AffectedTile {
	var out []AffectedTile
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist > float64(radius) {
				continue
			}
			x := int(center.X) + dx
			y := int(center.Y) + dy
			if !inBounds(x, y) {
				continue
			}
			pct := 100
			if radius > 0 {
				pct = int(100 - 30*(dist/float64(radius)))
			}
			out = append(out, AffectedTile{
				Position:      world.Position{X: uint16(x), Y: uint16(y), Z: center.Z},
				DamagePercent: pct,
			})
		}
	}
	return out
}

func square(center world.Position, size int) []AffectedTile {
	var out []AffectedTile
	for dy := -size; dy <= size; dy++ {
		for dx := -size; dx <= size; dx++ {
			x := int(center.X) + dx
			y := int(center.Y) + dy
			if !inBounds(x, y) {
				continue
			}
			out = append(out, AffectedTile{
				Position:      world.Position{X: uint16(x), Y: uint16(y), Z: center.Z},
				DamagePercent: 100,
			})
		}
	}
	return out
}

func beam(origin world.Position, direction world.Direction, length, width int) []AffectedTile {
	dx, dy := direction.Offset()
	px, py := -dy, dx

	var out []AffectedTile
	for k := 1; k <= length; k++ {
		for w := -width / 2; w <= width/2; w++ {
			x := int(origin.X) + dx*k + px*w
			y := int(origin.Y) + dy*k + py*w
			if !inBounds(x, y) {
				continue
			}
			out = append(out, AffectedTile{
				Position:      world.Position{X: uint16(x), Y: uint16(y), Z: origin.Z},
				DamagePercent: 100,
			})
		}
	}
	return out
}

func wave(origin world.Position, direction world.Direction, length, spread int) []AffectedTile {
	dx, dy := direction.Offset()
	px, py := -dy, dx

	var out []AffectedTile
	for k := 1; k <= length; k++ {
		maxOffset := int(math.Ceil(float64(k*spread) / float64(length)))
		for off := -maxOffset; off <= maxOffset; off++ {
			x := int(origin.X) + dx*k + px*off
			y := int(origin.Y) + dy*k + py*off
			if !inBounds(x, y) {
				continue
			}
			pct := 100
			if length > 0 {
				pct = int(100 - 30*(float64(k)/float64(length)))
			}
			out = append(out, AffectedTile{
				Position:      world.Position{X: uint16(x), Y: uint16(y), Z: origin.Z},
				DamagePercent: pct,
			})
		}
	}
	return out
}

func ring(center world.Position, innerRadius, outerRadius int) []AffectedTile {
	var out []AffectedTile
	for dy := -outerRadius; dy <= outerRadius; dy++ {
		for dx := -outerRadius; dx <= outerRadius; dx++ {
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist < float64(innerRadius) || dist > float64(outerRadius) {
				continue
			}
			x := int(center.X) + dx
			y := int(center.Y) + dy
			if !inBounds(x, y) {
				continue
			}
			out = append(out, AffectedTile{
				Position:      world.Position{X: uint16(x), Y: uint16(y), Z: center.Z},
				DamagePercent: 100,
			})
		}
	}
	return out
}

func cross(center world.Position, length int) []AffectedTile {
	var out []AffectedTile
	for d := -length; d <= length; d++ {
		for _, off := range [][2]int{{d, 0}, {0, d}} {
			x := int(center.X) + off[0]
			y := int(center.Y) + off[1]
			if !inBounds(x, y) {
				continue
			}
			p := world.Position{X: uint16(x), Y: uint16(y), Z: center.Z}
			out = append(out, AffectedTile{Position: p, DamagePercent: 100})
		}
	}
	return out
}

func custom(origin world.Position, direction world.Direction, matrix [][]int) []AffectedTile {
	centerRow, centerCol := -1, -1
	for r, row := range matrix {
		for c, v := range row {
			if v == 3 {
				centerRow, centerCol = r, c
			}
		}
	}
	if centerRow < 0 {
		return nil
	}

	dx, dy := direction.Offset()
	px, py := -dy, dx

	var out []AffectedTile
	for r, row := range matrix {
		for c, v := range row {
			if v == 0 {
				continue
			}
			rr := r - centerRow
			cc := c - centerCol
			x := int(origin.X) + dx*rr + px*cc
			y := int(origin.Y) + dy*rr + py*cc
			if !inBounds(x, y) {
				continue
			}
			out = append(out, AffectedTile{
				Position:      world.Position{X: uint16(x), Y: uint16(y), Z: origin.Z},
				DamagePercent: 100,
			})
		}
	}
	return out
}
