package gameserver

import (
	"github.com/shadowot/realm/internal/combat/formula"
	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/world"
)

// DefaultCommandHandler executes one drained command against the engine's
// world, implementing the client-facing actions named in §6 (movement,
// turning, chat, melee attack, following). It is the CommandHandler wired
// into engine.Options by cmd/realmd.
func DefaultCommandHandler(e *engine.Engine, cmd engine.Command) {
	c, ok := e.Creatures[cmd.CreatureID]
	if !ok {
		return
	}

	switch cmd.Kind {
	case engine.CommandMove:
		payload, ok := cmd.Payload.(MovePayload)
		if !ok {
			return
		}
		move(e, c, payload.Direction)
	case engine.CommandTurn:
		payload, ok := cmd.Payload.(TurnPayload)
		if !ok {
			return
		}
		c.Direction = payload.Direction
	case engine.CommandAttack:
		payload, ok := cmd.Payload.(AttackPayload)
		if !ok {
			return
		}
		c.TargetID = payload.TargetID
		attack(e, c)
	case engine.CommandFollow:
		payload, ok := cmd.Payload.(FollowPayload)
		if !ok {
			return
		}
		c.TargetID = payload.TargetID
	case engine.CommandSay:
		payload, ok := cmd.Payload.(SayPayload)
		if !ok {
			return
		}
		e.Publish(engine.GameEvent{Kind: engine.EventGuildAction, CreatureID: c.ID, Tick: e.TickCount(), Detail: payload.Text})
	case engine.CommandLogout:
		e.RemoveCreature(c.ID)
	}
}

// move applies one step in direction, refusing the step when the
// destination tile is out of bounds or not walkable (§4.6, §8 invariant:
// creatures never occupy a non-walkable tile).
func move(e *engine.Engine, c *world.Creature, dir world.Direction) {
	c.Direction = dir
	dx, dy := dir.Offset()
	dest := world.Position{
		X: uint16(int(c.Position.X) + dx),
		Y: uint16(int(c.Position.Y) + dy),
		Z: c.Position.Z,
	}
	if !e.Map.InBounds(dest) || !e.Map.IsWalkable(dest) {
		return
	}
	if from := e.Map.Tile(c.Position); from != nil {
		from.RemoveCreature(c.ID)
	}
	to, err := e.Map.EnsureTile(dest)
	if err != nil {
		return
	}
	to.AddCreature(c.ID)
	c.Position = dest
}

// attack resolves one melee swing against the creature's current target
// using the weapon-skill formula (§4.9).
func attack(e *engine.Engine, c *world.Creature) {
	if c.TargetID == 0 {
		return
	}
	target, ok := e.Creatures[c.TargetID]
	if !ok || target.IsDead() {
		return
	}
	if c.Position.DistanceTo(target.Position) > 1 {
		return
	}

	dmgRange := formula.MeleeDamage(int(c.Skills.Sword), int(c.Skills.Sword), int(c.Level), formula.ModeOffensive)
	dmg := dmgRange.Max
	applied := target.ApplyDamage(int32(dmg))

	e.Publish(engine.GameEvent{Kind: engine.EventCombatDamage, CreatureID: target.ID, Tick: e.TickCount(), Detail: applied})
	if target.IsDead() {
		e.Publish(engine.GameEvent{Kind: engine.EventDeath, CreatureID: target.ID, Tick: e.TickCount()})
	}
}
