package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/world"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	m := world.NewMap(50, 50)
	for x := uint16(0); x < 50; x++ {
		for y := uint16(0); y < 50; y++ {
			_, err := m.EnsureTile(world.Position{X: x, Y: y, Z: 7})
			require.NoError(t, err)
		}
	}
	return engine.New(engine.Options{Map: m})
}

func TestDefaultCommandHandler_MoveStepsIntoWalkableTile(t *testing.T) {
	e := newTestEngine(t)
	c := &world.Creature{ID: 1, Kind: world.KindPlayer, Position: world.Position{X: 10, Y: 10, Z: 7}, Health: 100}
	e.AddCreature(c)

	DefaultCommandHandler(e, engine.Command{CreatureID: 1, Kind: engine.CommandMove, Payload: MovePayload{Direction: world.East}})

	assert.Equal(t, world.Position{X: 11, Y: 10, Z: 7}, c.Position)
}

func TestDefaultCommandHandler_MoveRefusedOutOfBounds(t *testing.T) {
	e := newTestEngine(t)
	c := &world.Creature{ID: 1, Kind: world.KindPlayer, Position: world.Position{X: 0, Y: 0, Z: 7}, Health: 100}
	e.AddCreature(c)

	DefaultCommandHandler(e, engine.Command{CreatureID: 1, Kind: engine.CommandMove, Payload: MovePayload{Direction: world.West}})

	assert.Equal(t, world.Position{X: 0, Y: 0, Z: 7}, c.Position, "moving off the map must leave the creature in place")
}

func TestDefaultCommandHandler_TurnChangesDirectionWithoutMoving(t *testing.T) {
	e := newTestEngine(t)
	c := &world.Creature{ID: 1, Kind: world.KindPlayer, Position: world.Position{X: 10, Y: 10, Z: 7}, Health: 100}
	e.AddCreature(c)

	DefaultCommandHandler(e, engine.Command{CreatureID: 1, Kind: engine.CommandTurn, Payload: TurnPayload{Direction: world.South}})

	assert.Equal(t, world.South, c.Direction)
	assert.Equal(t, world.Position{X: 10, Y: 10, Z: 7}, c.Position)
}

func TestDefaultCommandHandler_AttackDamagesAdjacentTarget(t *testing.T) {
	e := newTestEngine(t)
	attacker := &world.Creature{ID: 1, Kind: world.KindPlayer, Position: world.Position{X: 10, Y: 10, Z: 7}, Health: 100, Level: 20}
	attacker.Skills.Sword = 40
	target := &world.Creature{ID: 2, Kind: world.KindMonster, Position: world.Position{X: 11, Y: 10, Z: 7}, Health: 100, MaxHealth: 100}
	e.AddCreature(attacker)
	e.AddCreature(target)

	DefaultCommandHandler(e, engine.Command{CreatureID: 1, Kind: engine.CommandAttack, Payload: AttackPayload{TargetID: 2}})

	assert.Equal(t, uint32(2), attacker.TargetID)
	assert.Less(t, target.Health, int32(100))
}

func TestDefaultCommandHandler_AttackRefusedBeyondRange(t *testing.T) {
	e := newTestEngine(t)
	attacker := &world.Creature{ID: 1, Kind: world.KindPlayer, Position: world.Position{X: 10, Y: 10, Z: 7}, Health: 100, Level: 20}
	target := &world.Creature{ID: 2, Kind: world.KindMonster, Position: world.Position{X: 20, Y: 20, Z: 7}, Health: 100, MaxHealth: 100}
	e.AddCreature(attacker)
	e.AddCreature(target)

	DefaultCommandHandler(e, engine.Command{CreatureID: 1, Kind: engine.CommandAttack, Payload: AttackPayload{TargetID: 2}})

	assert.Equal(t, int32(100), target.Health, "an out-of-range attack must not apply damage")
}

func TestDefaultCommandHandler_LogoutRemovesCreature(t *testing.T) {
	e := newTestEngine(t)
	c := &world.Creature{ID: 1, Kind: world.KindPlayer, Position: world.Position{X: 10, Y: 10, Z: 7}, Health: 100}
	e.AddCreature(c)

	DefaultCommandHandler(e, engine.Command{CreatureID: 1, Kind: engine.CommandLogout})

	_, ok := e.Creatures[1]
	assert.False(t, ok)
}
