package pathfind

import (
	"math"

	"github.com/shadowot/realm/internal/world"
)

// ProjectileBlockChecker reports whether a position blocks projectiles/LoS.
type ProjectileBlockChecker interface {
	BlocksProjectile(pos world.Position) bool
}

// HasLineOfSight walks Bresenham's line between a and b on their common
// floor and reports false if any tile on the line other than the start,
// b itself included, blocks projectiles (§4.7). Positions on different floors have no LoS.
func HasLineOfSight(checker ProjectileBlockChecker, a, b world.Position) bool {
	if a.Z != b.Z {
		return false
	}

	for _, p := range bresenhamLine(a, b) {
		if p == a {
			continue
		}
		if checker.BlocksProjectile(p) {
			return false
		}
	}
	return true
}

func bresenhamLine(a, b world.Position) []world.Position {
	x0, y0 := int(a.X), int(a.Y)
	x1, y1 := int(b.X), int(b.Y)

	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	var points []world.Position
	x, y := x0, y0
	for {
		points = append(points, world.Position{X: uint16(x), Y: uint16(y), Z: a.Z})
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return points
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ConeOffsets returns the set of positions reachable by walking from origin
// along direction up to range tiles, where at distance k the permitted
// perpendicular offset spans −⌈k·spread/range⌉..=+⌈k·spread/range⌉ (§4.7).
func ConeOffsets(origin world.Position, direction world.Direction, rng, spread int) []world.Position {
	if rng <= 0 {
		return nil
	}
	dx, dy := direction.Offset()
	px, py := perpendicular(dx, dy)

	var out []world.Position
	for k := 1; k <= rng; k++ {
		maxOffset := int(math.Ceil(float64(k*spread) / float64(rng)))
		for off := -maxOffset; off <= maxOffset; off++ {
			x := int(origin.X) + dx*k + px*off
			y := int(origin.Y) + dy*k + py*off
			if x < 0 || y < 0 {
				continue
			}
			out = append(out, world.Position{X: uint16(x), Y: uint16(y), Z: origin.Z})
		}
	}
	return out
}

// perpendicular returns a unit-ish perpendicular vector to (dx,dy) on the
// grid, used to fan the cone outward from the walked centerline.
func perpendicular(dx, dy int) (int, int) {
	return -dy, dx
}
