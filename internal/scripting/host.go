// Package scripting declares the ScriptHost boundary the engine calls into on
// well-defined hooks (on-use, on-step, on-kill, on-say). The engine never
// embeds a JavaScript runtime directly; internal/scripting/goja provides the
// reference implementation.
package scripting

import (
	"context"

	"github.com/shadowot/realm/internal/world"
)

// Hook names the event that triggered a script invocation, used both for
// dispatch (ScriptHost implementations route on it) and for error reporting.
type Hook string

const (
	HookItemUse      Hook = "item_use"
	HookItemUseWith  Hook = "item_use_with"
	HookStepIn       Hook = "step_in"
	HookCreatureDeath Hook = "creature_death"
	HookNPCSay       Hook = "npc_say"
)

// Effect is one side effect a script hook requested the engine apply after
// the script returns. Scripts never mutate world state directly: they
// describe what should happen and the caller (gameserver/engine command
// handler) applies it under the tick loop's exclusive ownership.
type Effect struct {
	Kind    EffectKind
	Target  uint32
	Amount  int32
	Text    string
	ItemID  uint16
}

// EffectKind enumerates the small set of effects a script hook can request.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectDamage
	EffectHeal
	EffectTeleport
	EffectSay
	EffectTransformItem
	EffectRemoveItem
)

// ItemUseContext carries the item, its user, and an optional target position
// or creature for an on-use hook (§6 ScriptHost.on_item_use/on_item_use_with).
type ItemUseContext struct {
	Player       *world.Creature
	Item         *world.Item
	TargetItem   *world.Item
	TargetCreature *world.Creature
	TargetTile   *world.Tile
}

// ScriptHost is the engine's single entry point into scripted content. Every
// method takes the minimal read-only view a script needs and returns the
// effects it requested; implementations must never block the calling
// goroutine beyond their configured time budget.
type ScriptHost interface {
	// OnItemUse fires when a player uses an item with no target (§6).
	OnItemUse(ctx context.Context, actx ItemUseContext) ([]Effect, error)
	// OnItemUseWith fires when a player uses an item on another item, a
	// creature, or a tile (§6).
	OnItemUseWith(ctx context.Context, actx ItemUseContext) ([]Effect, error)
	// OnStepIn fires when a creature steps onto a tile carrying a scripted
	// item (teleports, traps, triggers) (§6).
	OnStepIn(ctx context.Context, creature *world.Creature, tile *world.Tile) ([]Effect, error)
	// OnCreatureDeath fires once a creature's health reaches zero (§6).
	OnCreatureDeath(ctx context.Context, creature *world.Creature, killer *world.Creature) ([]Effect, error)
	// OnNPCSay fires when a player speaks within earshot of an NPC running a
	// dialogue script (§6).
	OnNPCSay(ctx context.Context, npc *world.Creature, player *world.Creature, message string) ([]Effect, error)

	// Load compiles and registers the script bound to name for hook.
	Load(hook Hook, name string, source string) error
	// Close releases any runtime resources held by the host.
	Close() error
}
