// Package pathfind implements A* pathing over the tile grid and Bresenham
// line-of-sight checks used by melee range checks and projectile spells
// (§4.7).
package pathfind

import (
	"container/heap"

	"github.com/shadowot/realm/internal/world"
)

const (
	maxPathLength  = 128
	maxExploredNodes = 5000
	cardinalCost   = 1
	diagonalCost   = 3
)

// WalkChecker is the subset of Map behavior pathing needs, so callers can
// substitute a stub in tests without building a full Map.
type WalkChecker interface {
	IsWalkable(pos world.Position) bool
}

// Options tunes a single Find call.
type Options struct {
	AllowDiagonal bool
	Avoid         map[world.Position]bool
}

type node struct {
	pos      world.Position
	g        int
	f        int
	parent   *node
	index    int
}

type openSet []*node

func (s openSet) Len() int            { return len(s) }
func (s openSet) Less(i, j int) bool  { return s[i].f < s[j].f }
func (s openSet) Swap(i, j int)       { s[i], s[j] = s[j], s[i]; s[i].index = i; s[j].index = j }
func (s *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*s)
	*s = append(*s, n)
}
func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return item
}

// Find runs A* from start to goal over the 8- or 4-neighborhood (per
// opts.AllowDiagonal), with Chebyshev heuristic and cardinal/diagonal step
// costs of 1/3 (§4.7). Cross-floor pathing is not performed: if start and
// goal are on different floors, Find reports not-found immediately.
//
// Returns the path of adjacent positions from start to goal inclusive, the
// total cost, and whether a path was found.
func Find(walker WalkChecker, start, goal world.Position, opts Options) ([]world.Position, int, bool) {
	if start.Z != goal.Z {
		return nil, 0, false
	}
	if start == goal {
		return []world.Position{start}, 0, true
	}

	open := &openSet{}
	heap.Init(open)
	startNode := &node{pos: start, g: 0, f: heuristic(start, goal)}
	heap.Push(open, startNode)

	bestG := map[world.Position]int{start: 0}
	explored := 0

	for open.Len() > 0 {
		explored++
		if explored > maxExploredNodes {
			return nil, 0, false
		}

		current := heap.Pop(open).(*node)
		if current.pos == goal {
			path := reconstruct(current)
			if path == nil {
				return nil, 0, false
			}
			return path, current.g, true
		}

		for _, step := range neighbors(current.pos, opts.AllowDiagonal) {
			if step.pos == goal {
				// goal is always reachable as a destination even if occupied
				// by the creature target (§4.7: "except the goal").
			} else {
				if opts.Avoid != nil && opts.Avoid[step.pos] {
					continue
				}
				if !walker.IsWalkable(step.pos) {
					continue
				}
			}

			g := current.g + step.cost
			if g > maxPathLength*diagonalCost {
				continue
			}
			if existing, ok := bestG[step.pos]; ok && existing <= g {
				continue
			}
			bestG[step.pos] = g
			heap.Push(open, &node{
				pos:    step.pos,
				g:      g,
				f:      g + heuristic(step.pos, goal),
				parent: current,
			})
		}
	}

	return nil, 0, false
}

type stepCandidate struct {
	pos  world.Position
	cost int
}

func neighbors(pos world.Position, allowDiagonal bool) []stepCandidate {
	dirs := []world.Direction{world.North, world.South, world.East, world.West}
	if allowDiagonal {
		dirs = append(dirs, world.NorthEast, world.NorthWest, world.SouthEast, world.SouthWest)
	}

	out := make([]stepCandidate, 0, len(dirs))
	for _, d := range dirs {
		dx, dy := d.Offset()
		cost := cardinalCost
		if d.IsDiagonal() {
			cost = diagonalCost
		}
		out = append(out, stepCandidate{pos: pos.Add(dx, dy, 0), cost: cost})
	}
	return out
}

func heuristic(a, b world.Position) int {
	return a.DistanceTo(b)
}

func reconstruct(n *node) []world.Position {
	var path []world.Position
	for cur := n; cur != nil; cur = cur.parent {
		path = append([]world.Position{cur.pos}, path...)
	}
	if len(path) > maxPathLength {
		return nil
	}
	return path
}
