// Package engine implements the single authoritative tick loop that owns the
// world exclusively: map, creatures, spawners, conditions and cooldowns
// (§4.13 Engine tick, §5 Concurrency & resource model).
package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shadowot/realm/internal/combat/condition"
	"github.com/shadowot/realm/internal/obs/log"
	"github.com/shadowot/realm/internal/obs/metrics"
	"github.com/shadowot/realm/internal/store"
	"github.com/shadowot/realm/internal/world"
	"github.com/shadowot/realm/internal/world/spawn"
)

// TickRate is the fixed engine cadence (§4.13: ≈50ms, 20Hz).
const TickRate = 50 * time.Millisecond

// Cadence multipliers, expressed in ticks (§4.13).
const (
	regenEveryTicks   = 20   // ≈1s
	aiEveryTicks      = 100  // ≈5s
	respawnEveryTicks = 1200 // ≈60s
)

// metricsServerLabel identifies this process to the shared Metrics gauges;
// the engine only ever runs the game-world side of a realm.
const metricsServerLabel = "game"

// CommandHandler executes one drained Command against the world. Wiring the
// actual per-opcode behavior (movement, combat, containers, ...) lives in
// the gameserver package; the engine only guarantees ordering and exclusive
// access.
type CommandHandler func(e *Engine, cmd Command)

// AIAdvancer drives one monster/NPC's think step (pathfind toward target,
// pick a special ability). The engine calls it on the AI cadence for every
// live monster.
type AIAdvancer func(e *Engine, creatureID uint32)

// Engine is the single authoritative world owner and tick driver.
type Engine struct {
	mu sync.Mutex // guards Creatures/Map only against non-tick readers (admin inspection); the tick goroutine itself never contends on it

	RealmName string

	Map       *world.Map
	Creatures map[uint32]*world.Creature
	Spawns    []*spawn.Point

	commands CommandQueue
	events   *EventBroadcaster
	metrics  *metrics.Metrics
	logger   *log.Logger

	characters store.CharacterStore

	commandHandler CommandHandler
	aiAdvancer     AIAdvancer
	walker         spawn.WalkableChecker
	randomInDisc   spawn.RandomInDisc

	saveInterval time.Duration
	tickBudget   time.Duration

	tickCount    uint64
	sinceSaveMs  int64
	running      bool
	stopOnce     sync.Once
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// Options configures a new Engine.
type Options struct {
	RealmName      string
	Map            *world.Map
	CommandQueue   CommandQueue
	Events         *EventBroadcaster
	Metrics        *metrics.Metrics
	Logger         *log.Logger
	Characters     store.CharacterStore
	CommandHandler CommandHandler
	AIAdvancer     AIAdvancer
	Walker         spawn.WalkableChecker
	RandomInDisc   spawn.RandomInDisc
	SaveInterval   time.Duration
}

// New constructs an Engine ready to Run.
func New(opts Options) *Engine {
	return &Engine{
		RealmName:      opts.RealmName,
		Map:            opts.Map,
		Creatures:      make(map[uint32]*world.Creature),
		commands:       opts.CommandQueue,
		events:         opts.Events,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		characters:     opts.Characters,
		commandHandler: opts.CommandHandler,
		aiAdvancer:     opts.AIAdvancer,
		walker:         opts.Walker,
		randomInDisc:   opts.RandomInDisc,
		saveInterval:   opts.SaveInterval,
		tickBudget:     TickRate,
		stopCh:         make(chan struct{}),
	}
}

// AddSpawn registers a spawn point the respawn cadence will service.
func (e *Engine) AddSpawn(p *spawn.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Spawns = append(e.Spawns, p)
}

// AddCreature inserts a live creature under engine ownership.
func (e *Engine) AddCreature(c *world.Creature) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Creatures[c.ID] = c
}

// RemoveCreature drops a creature from engine ownership.
func (e *Engine) RemoveCreature(id uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.Creatures, id)
}

// Run executes the fixed-rate tick loop until ctx is canceled or Stop is
// called. Run is meant to be the engine's single long-lived goroutine; it
// never returns concurrently with another Run call on the same Engine.
func (e *Engine) Run(ctx context.Context) {
	e.running = true
	ticker := time.NewTicker(TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown(ctx)
			return
		case <-e.stopCh:
			e.shutdown(ctx)
			return
		case now := <-ticker.C:
			_ = now
			e.tick(ctx)
		}
	}
}

// Stop requests the tick loop to exit after completing any in-flight tick.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Engine) shutdown(ctx context.Context) {
	e.running = false
	if e.events != nil {
		e.events.Publish(GameEvent{Kind: EventLogout, Tick: e.tickCount, Detail: "server shutdown"})
	}
	e.saveAll(ctx)
}

// tick runs one full fixed-rate cycle (§4.13 steps 1-6).
func (e *Engine) tick(ctx context.Context) {
	start := time.Now()
	e.tickCount++

	e.drainCommands(ctx)

	if e.tickCount%regenEveryTicks == 0 {
		e.processRegeneration()
	}
	if e.tickCount%aiEveryTicks == 0 {
		e.advanceAI(ctx)
	}
	if e.tickCount%respawnEveryTicks == 0 {
		e.processRespawns()
		e.updateMetrics()
	}

	elapsedMs := time.Since(start).Milliseconds()
	e.sinceSaveMs += int64(TickRate.Milliseconds())
	if e.saveInterval > 0 && time.Duration(e.sinceSaveMs)*time.Millisecond >= e.saveInterval {
		e.saveAll(ctx)
		e.sinceSaveMs = 0
	}

	if e.metrics != nil {
		e.metrics.RecordTick(time.Since(start), e.tickBudget)
	}
	_ = elapsedMs
}

// drainCommands executes every command currently queued, in arrival order,
// without blocking on new arrivals (§4.13 step 1, §5 ordering guarantees).
func (e *Engine) drainCommands(ctx context.Context) {
	if e.commands == nil || e.commandHandler == nil {
		return
	}
	for {
		select {
		case cmd := <-e.commands:
			e.commandHandler(e, cmd)
		default:
			return
		}
	}
}

// processRegeneration runs on the regeneration cadence for every living
// creature: it removes expired conditions, applies the damage of conditions
// that are due, and drains one stamina minute from players (§4.13 step 3).
// Health, mana and soul are not regenerated here.
func (e *Engine) processRegeneration() {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowMs := int64(e.tickCount) * int64(TickRate.Milliseconds())
	for _, c := range e.Creatures {
		if c.IsDead() {
			continue
		}
		c.RemoveExpiredConditions(nowMs)
		for _, cond := range c.Conditions {
			dmg, expired := condition.Tick(cond, nowMs)
			if dmg > 0 {
				c.ApplyDamage(int32(dmg))
				if e.events != nil {
					e.events.Publish(GameEvent{Kind: EventCombatDamage, CreatureID: c.ID, Tick: e.tickCount, Detail: dmg})
				}
			}
			if expired && e.events != nil {
				e.events.Publish(GameEvent{Kind: EventCombatDamage, CreatureID: c.ID, Tick: e.tickCount, Detail: "condition expired"})
			}
		}
		if c.Kind == world.KindPlayer && c.StaminaMinutes > 0 {
			c.StaminaMinutes--
		}
		if c.IsDead() && e.events != nil {
			e.events.Publish(GameEvent{Kind: EventDeath, CreatureID: c.ID, Tick: e.tickCount})
		}
	}
}

// advanceAI drives one think step for every live monster/NPC (§4.13 step 4).
func (e *Engine) advanceAI(ctx context.Context) {
	if e.aiAdvancer == nil {
		return
	}
	e.mu.Lock()
	ids := make([]uint32, 0, len(e.Creatures))
	for id, c := range e.Creatures {
		if c.Kind == world.KindMonster && !c.IsDead() {
			ids = append(ids, id)
		}
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.aiAdvancer(e, id)
	}
}

// processRespawns ticks every registered spawn point and publishes one
// EventSpawn event per spawn request (the request is the event's Detail).
// The engine itself only computes what should be spawned; it constructs no
// monsters (§4.13 step 5, §4.12 Spawn scheduler).
func (e *Engine) processRespawns() {
	if e.walker == nil || e.randomInDisc == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	nowSec := int64(e.tickCount) * int64(TickRate.Milliseconds()) / 1000
	for _, p := range e.Spawns {
		requests := spawn.Tick(p, nowSec, e.walker, e.randomInDisc, 10)
		for _, req := range requests {
			if e.events != nil {
				e.events.Publish(GameEvent{Kind: EventSpawn, Tick: e.tickCount, Detail: req})
			}
		}
	}
}

// updateMetrics refreshes the gauges that only make sense on the slow
// cadence (players in the world, reported as open game connections, and
// spawn counts) (§4.13 step 5).
func (e *Engine) updateMetrics() {
	if e.metrics == nil {
		return
	}
	e.mu.Lock()
	online := 0
	for _, c := range e.Creatures {
		if c.Kind == world.KindPlayer {
			online++
		}
	}
	aliveByGroup := make(map[string]int)
	for _, p := range e.Spawns {
		for _, q := range p.Quotas {
			aliveByGroup[q.MonsterType] += q.Current
		}
	}
	e.mu.Unlock()

	e.metrics.SetConnectionsOpen(e.RealmName, metricsServerLabel, online)
	for group, count := range aliveByGroup {
		e.metrics.SetSpawnsAlive(e.RealmName, group, count)
	}
}

// saveAll persists every online player's state via the character store
// (§4.13 step 6, §5 save-on-shutdown guarantee).
func (e *Engine) saveAll(ctx context.Context) {
	if e.characters == nil {
		return
	}
	e.mu.Lock()
	players := make([]*world.Creature, 0)
	for _, c := range e.Creatures {
		if c.Kind == world.KindPlayer {
			players = append(players, c)
		}
	}
	e.mu.Unlock()

	for _, p := range players {
		rec := &store.CharacterRecord{
			ID:             p.Name,
			AccountID:      strconv.FormatUint(uint64(p.AccountID), 10),
			Name:           p.Name,
			Level:          int(p.Level),
			Position:       p.Position,
			Health:         int(p.Health),
			MaxHealth:      int(p.MaxHealth),
			Mana:           int(p.Mana),
			MaxMana:        int(p.MaxMana),
			SoulPoints:     int(p.SoulPoints),
			StaminaMinutes: p.StaminaMinutes,
		}
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := e.characters.Update(saveCtx, rec); err != nil && e.logger != nil {
			e.logger.WithError(err).WithField("character", p.Name).Warn("failed to persist player state")
		}
		cancel()
	}
}

// Publish fans ev out to the engine's event subscribers; it does nothing
// when the engine has no broadcaster.
func (e *Engine) Publish(ev GameEvent) {
	if e.events != nil {
		e.events.Publish(ev)
	}
}

// Subscribe registers a new GameEvent receive channel on the engine's
// broadcaster, for network tasks that need to forward world events to a
// connected client (§4.15, §5 multi-subscriber event channel).
func (e *Engine) Subscribe(bufferSize int) <-chan GameEvent {
	if e.events == nil {
		e.events = NewEventBroadcaster()
	}
	return e.events.Subscribe(bufferSize)
}

// Commands returns the single-producer command queue network tasks submit
// to (§5).
func (e *Engine) Commands() CommandQueue {
	return e.commands
}

// TickCount returns the number of ticks executed so far.
func (e *Engine) TickCount() uint64 { return e.tickCount }
