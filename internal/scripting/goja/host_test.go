package goja

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowot/realm/internal/scripting"
	"github.com/shadowot/realm/internal/world"
)

func TestOnItemUse_ReturnsDeclaredEffects(t *testing.T) {
	h := NewHost()
	err := h.Load(scripting.HookItemUse, "lever.js", `
		function main() {
			return [{kind: effects.damage, target: player.id, amount: 5}];
		}
	`)
	require.NoError(t, err)

	player := &world.Creature{ID: 7, Name: "Knightly"}
	got, err := h.OnItemUse(context.Background(), scripting.ItemUseContext{Player: player})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scripting.EffectDamage, got[0].Kind)
	assert.Equal(t, uint32(7), got[0].Target)
	assert.Equal(t, int32(5), got[0].Amount)
}

func TestOnNPCSay_SeesPlayerMessage(t *testing.T) {
	h := NewHost()
	err := h.Load(scripting.HookNPCSay, "greeter.js", `
		function main() {
			if (message.indexOf("hi") >= 0) {
				return [{kind: effects.say, text: "Hello, " + player.name}];
			}
			return [];
		}
	`)
	require.NoError(t, err)

	npc := &world.Creature{ID: 1, Name: "Greeter"}
	player := &world.Creature{ID: 2, Name: "Knightly"}
	got, err := h.OnNPCSay(context.Background(), npc, player, "hi there")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hello, Knightly", got[0].Text)
}

func TestLoad_RejectsSyntaxError(t *testing.T) {
	h := NewHost()
	err := h.Load(scripting.HookItemUse, "broken.js", `function main( { return`)
	assert.Error(t, err)
}

func TestRun_ReportsTimeoutOnInfiniteLoop(t *testing.T) {
	h := NewHost(WithTimeout(20 * time.Millisecond))
	err := h.Load(scripting.HookStepIn, "loop.js", `
		function main() {
			while (true) {}
		}
	`)
	require.NoError(t, err)

	_, err = h.OnStepIn(context.Background(), &world.Creature{ID: 1}, &world.Tile{Position: world.Position{X: 1, Y: 1, Z: 7}})
	require.Error(t, err)
}

func TestOnItemUse_NoScriptsRegisteredReturnsNil(t *testing.T) {
	h := NewHost()
	got, err := h.OnItemUse(context.Background(), scripting.ItemUseContext{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOnCreatureDeath_MissingMainReportsFailure(t *testing.T) {
	h := NewHost()
	err := h.Load(scripting.HookCreatureDeath, "noop.js", `var x = 1;`)
	require.NoError(t, err)

	_, err = h.OnCreatureDeath(context.Background(), &world.Creature{ID: 1}, nil)
	assert.Error(t, err)
}
