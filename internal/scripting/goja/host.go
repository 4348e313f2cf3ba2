// Package goja implements scripting.ScriptHost using dop251/goja, a pure Go
// JavaScript runtime. It is the reference implementation for NPC dialogue
// trees and item/tile scripts: a fresh VM per invocation keeps one script's
// globals from leaking into the next.
package goja

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/obs/log"
	"github.com/shadowot/realm/internal/scripting"
	"github.com/shadowot/realm/internal/world"
)

// DefaultTimeout bounds a single hook invocation; a script that runs longer
// is interrupted and the hook reports a timeout error rather than stalling
// the caller indefinitely.
const DefaultTimeout = 50 * time.Millisecond

// compiled is one registered script bound to a hook and name.
type compiled struct {
	program *goja.Program
	source  string
}

// Host is the goja-backed ScriptHost. It is safe for concurrent use: each
// call to a hook method builds its own goja.Runtime so scripts cannot share
// mutable state across calls.
type Host struct {
	mu      sync.RWMutex
	scripts map[scripting.Hook]map[string]*compiled
	timeout time.Duration
	logger  *log.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) { h.timeout = d }
}

// WithLogger attaches a logger for interrupted/failed script warnings.
func WithLogger(logger *log.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// NewHost constructs an empty Host ready to Load scripts into.
func NewHost(opts ...Option) *Host {
	h := &Host{
		scripts: make(map[scripting.Hook]map[string]*compiled),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Load compiles source and registers it under hook/name, replacing any
// previous script at that key.
func (h *Host) Load(hook scripting.Hook, name string, source string) error {
	program, err := goja.Compile(name, source, false)
	if err != nil {
		return apperr.ScriptInvalid(err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scripts[hook] == nil {
		h.scripts[hook] = make(map[string]*compiled)
	}
	h.scripts[hook][name] = &compiled{program: program, source: source}
	return nil
}

// Close releases Host resources. goja.Runtime instances are per-call and
// already garbage; Close exists to satisfy scripting.ScriptHost.
func (h *Host) Close() error { return nil }

func (h *Host) lookup(hook scripting.Hook, name string) (*compiled, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.scripts[hook][name]
	return c, ok
}

// run executes every script registered for hook with the given binder
// populating the VM's globals, collecting effects from a `main` entry point
// that returns an array of {kind, target, amount, text, itemId} objects.
func (h *Host) run(ctx context.Context, hook scripting.Hook, bind func(vm *goja.Runtime)) ([]scripting.Effect, error) {
	h.mu.RLock()
	byName := h.scripts[hook]
	h.mu.RUnlock()
	if len(byName) == 0 {
		return nil, nil
	}

	var effects []scripting.Effect
	for name, c := range byName {
		got, err := h.runOne(hook, name, c, bind)
		if err != nil {
			if h.logger != nil {
				h.logger.WithError(err).WithField("script", name).Warn("script hook failed")
			}
			return effects, err
		}
		effects = append(effects, got...)
	}
	return effects, nil
}

func (h *Host) runOne(hook scripting.Hook, name string, c *compiled, bind func(vm *goja.Runtime)) ([]scripting.Effect, error) {
	vm := goja.New()
	logs := make([]string, 0)
	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			logs = append(logs, arg.String())
		}
		return goja.Undefined()
	})
	_ = vm.Set("console", console)
	_ = vm.Set("effects", map[string]any{
		"none": int(scripting.EffectNone), "damage": int(scripting.EffectDamage),
		"heal": int(scripting.EffectHeal), "teleport": int(scripting.EffectTeleport),
		"say": int(scripting.EffectSay), "transformItem": int(scripting.EffectTransformItem),
		"removeItem": int(scripting.EffectRemoveItem),
	})

	bind(vm)

	done := make(chan struct{})
	timer := time.AfterFunc(h.timeout, func() {
		vm.Interrupt("timeout")
	})
	defer timer.Stop()

	var runErr error
	var result goja.Value
	go func() {
		defer close(done)
		if _, err := vm.RunProgram(c.program); err != nil {
			runErr = err
			return
		}
		entry, ok := goja.AssertFunction(vm.Get("main"))
		if !ok {
			runErr = fmt.Errorf("script %q has no main() entry point", name)
			return
		}
		result, runErr = entry(goja.Undefined())
	}()

	select {
	case <-done:
	case <-ctx.Done():
		vm.Interrupt("canceled")
		<-done
		return nil, apperr.ScriptFailed(string(hook), ctx.Err())
	}

	if runErr != nil {
		if _, ok := runErr.(*goja.InterruptedError); ok {
			return nil, apperr.ScriptTimeout(string(hook))
		}
		return nil, apperr.ScriptFailed(string(hook), runErr)
	}
	return decodeEffects(result), nil
}

func decodeEffects(v goja.Value) []scripting.Effect {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	raw, ok := v.Export().([]any)
	if !ok {
		return nil
	}
	effects := make([]scripting.Effect, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		e := scripting.Effect{
			Kind:   scripting.EffectKind(asInt(m["kind"])),
			Target: uint32(asInt(m["target"])),
			Amount: int32(asInt(m["amount"])),
			ItemID: uint16(asInt(m["itemId"])),
		}
		if s, ok := m["text"].(string); ok {
			e.Text = s
		}
		effects = append(effects, e)
	}
	return effects
}

// asInt coerces a JS-exported numeric value to int64 regardless of whether
// goja chose an int64 or float64 Go representation for it.
func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func bindCreature(vm *goja.Runtime, key string, c *world.Creature) {
	if c == nil {
		_ = vm.Set(key, goja.Null())
		return
	}
	_ = vm.Set(key, map[string]any{
		"id":     c.ID,
		"name":   c.Name,
		"health": c.Health,
		"maxHealth": c.MaxHealth,
		"level":  c.Level,
		"x":      c.Position.X,
		"y":      c.Position.Y,
		"z":      c.Position.Z,
	})
}

func bindItem(vm *goja.Runtime, key string, item *world.Item) {
	if item == nil {
		_ = vm.Set(key, goja.Null())
		return
	}
	_ = vm.Set(key, map[string]any{
		"uniqueId": item.UniqueID,
		"typeId":   item.TypeID,
		"count":    item.Count,
		"actionId": item.ActionID,
	})
}

// OnItemUse runs every script registered for HookItemUse.
func (h *Host) OnItemUse(ctx context.Context, actx scripting.ItemUseContext) ([]scripting.Effect, error) {
	return h.run(ctx, scripting.HookItemUse, func(vm *goja.Runtime) {
		bindCreature(vm, "player", actx.Player)
		bindItem(vm, "item", actx.Item)
	})
}

// OnItemUseWith runs every script registered for HookItemUseWith.
func (h *Host) OnItemUseWith(ctx context.Context, actx scripting.ItemUseContext) ([]scripting.Effect, error) {
	return h.run(ctx, scripting.HookItemUseWith, func(vm *goja.Runtime) {
		bindCreature(vm, "player", actx.Player)
		bindItem(vm, "item", actx.Item)
		bindItem(vm, "targetItem", actx.TargetItem)
		bindCreature(vm, "targetCreature", actx.TargetCreature)
	})
}

// OnStepIn runs every script registered for HookStepIn.
func (h *Host) OnStepIn(ctx context.Context, creature *world.Creature, tile *world.Tile) ([]scripting.Effect, error) {
	return h.run(ctx, scripting.HookStepIn, func(vm *goja.Runtime) {
		bindCreature(vm, "creature", creature)
		if tile != nil {
			_ = vm.Set("tile", map[string]any{"x": tile.Position.X, "y": tile.Position.Y, "z": tile.Position.Z})
		}
	})
}

// OnCreatureDeath runs every script registered for HookCreatureDeath.
func (h *Host) OnCreatureDeath(ctx context.Context, creature *world.Creature, killer *world.Creature) ([]scripting.Effect, error) {
	return h.run(ctx, scripting.HookCreatureDeath, func(vm *goja.Runtime) {
		bindCreature(vm, "creature", creature)
		bindCreature(vm, "killer", killer)
	})
}

// OnNPCSay runs every script registered for HookNPCSay.
func (h *Host) OnNPCSay(ctx context.Context, npc *world.Creature, player *world.Creature, message string) ([]scripting.Effect, error) {
	return h.run(ctx, scripting.HookNPCSay, func(vm *goja.Runtime) {
		bindCreature(vm, "npc", npc)
		bindCreature(vm, "player", player)
		_ = vm.Set("message", message)
	})
}
