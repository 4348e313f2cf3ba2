package gameserver

import (
	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/world"
	"github.com/shadowot/realm/internal/world/pathfind"
)

// DefaultAIAdvancer drives one monster think step: chase its current target
// by stepping along an A* path, or attack once adjacent (§4.13 step 4, §4.7).
// It is the AIAdvancer wired into engine.Options by cmd/realmd.
func DefaultAIAdvancer(e *engine.Engine, creatureID uint32) {
	c, ok := e.Creatures[creatureID]
	if !ok || c.IsDead() {
		return
	}
	if c.TargetID == 0 {
		return
	}
	target, ok := e.Creatures[c.TargetID]
	if !ok || target.IsDead() {
		c.TargetID = 0
		return
	}

	if c.Position.DistanceTo(target.Position) <= 1 {
		attack(e, c)
		return
	}

	path, _, found := pathfind.Find(e.Map, c.Position, target.Position, pathfind.Options{AllowDiagonal: true})
	if !found || len(path) < 2 {
		return
	}
	next := path[1]
	dir := directionTo(c.Position, next)
	move(e, c, dir)
}

// directionTo returns the single-step direction from a to an adjacent tile b.
func directionTo(a, b world.Position) world.Direction {
	dx := int(b.X) - int(a.X)
	dy := int(b.Y) - int(a.Y)
	switch {
	case dx == 0 && dy < 0:
		return world.North
	case dx == 0 && dy > 0:
		return world.South
	case dx > 0 && dy == 0:
		return world.East
	case dx < 0 && dy == 0:
		return world.West
	case dx > 0 && dy < 0:
		return world.NorthEast
	case dx < 0 && dy < 0:
		return world.NorthWest
	case dx > 0 && dy > 0:
		return world.SouthEast
	default:
		return world.SouthWest
	}
}
