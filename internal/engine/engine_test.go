package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowot/realm/internal/store"
	"github.com/shadowot/realm/internal/world"
	"github.com/shadowot/realm/internal/world/spawn"
)

type fakeCharacterStore struct {
	mu      sync.Mutex
	updated []*store.CharacterRecord
}

func (f *fakeCharacterStore) FindByID(ctx context.Context, id string) (*store.CharacterRecord, error) {
	return nil, store.ErrCharacterNotFound
}

func (f *fakeCharacterStore) FindByAccount(ctx context.Context, accountID string) ([]*store.CharacterRecord, error) {
	return nil, nil
}

func (f *fakeCharacterStore) Create(ctx context.Context, rec *store.CharacterRecord) error { return nil }

func (f *fakeCharacterStore) Update(ctx context.Context, rec *store.CharacterRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, rec)
	return nil
}

func (f *fakeCharacterStore) SoftDelete(ctx context.Context, id string, delay time.Duration) error {
	return nil
}

func (f *fakeCharacterStore) Restore(ctx context.Context, id string) error { return nil }

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.CommandQueue == nil {
		opts.CommandQueue = NewCommandQueue(16)
	}
	if opts.Events == nil {
		opts.Events = NewEventBroadcaster()
	}
	return New(opts)
}

func TestTick_RegenRunsOnlyOnRegenCadence(t *testing.T) {
	e := newTestEngine(t, Options{})
	c := &world.Creature{ID: 1, Kind: world.KindPlayer, Health: 100, MaxHealth: 100, StaminaMinutes: 10}
	e.AddCreature(c)

	for i := 0; i < regenEveryTicks-1; i++ {
		e.tick(context.Background())
	}
	assert.Equal(t, 10, c.StaminaMinutes, "stamina should not drain before the regen cadence is reached")

	e.tick(context.Background())
	assert.Equal(t, 9, c.StaminaMinutes, "stamina should drain exactly on the regen cadence tick")
}

func TestTick_AIAdvancerCalledOnlyForLiveMonsters(t *testing.T) {
	var advanced []uint32
	var mu sync.Mutex
	e := newTestEngine(t, Options{
		AIAdvancer: func(e *Engine, creatureID uint32) {
			mu.Lock()
			defer mu.Unlock()
			advanced = append(advanced, creatureID)
		},
	})
	e.AddCreature(&world.Creature{ID: 1, Kind: world.KindMonster, Health: 10})
	e.AddCreature(&world.Creature{ID: 2, Kind: world.KindMonster, Health: 0})
	e.AddCreature(&world.Creature{ID: 3, Kind: world.KindPlayer, Health: 10})

	for i := 0; i < aiEveryTicks; i++ {
		e.tick(context.Background())
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint32{1}, advanced)
}

func TestDrainCommands_ExecutesAllQueuedCommandsInOrder(t *testing.T) {
	var order []uint64
	var mu sync.Mutex
	queue := NewCommandQueue(4)
	e := newTestEngine(t, Options{
		CommandQueue: queue,
		CommandHandler: func(e *Engine, cmd Command) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, cmd.ConnectionID)
		},
	})

	queue <- Command{ConnectionID: 1, Kind: CommandMove}
	queue <- Command{ConnectionID: 2, Kind: CommandSay}
	queue <- Command{ConnectionID: 3, Kind: CommandLogout}

	e.tick(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2, 3}, order)
}

func TestProcessRegeneration_PublishesDeathEvent(t *testing.T) {
	events := NewEventBroadcaster()
	sub := events.Subscribe(4)
	e := newTestEngine(t, Options{Events: events})
	// A due constant-damage condition deals 50 to a creature with 10 health,
	// so this regeneration pass kills it.
	c := &world.Creature{ID: 7, Kind: world.KindMonster, Health: 10, MaxHealth: 10, Conditions: []*world.Condition{{
		Kind:         world.ConditionBleeding,
		EndTS:        10000,
		TickInterval: 2000,
		LastTickTS:   -2000,
		Damage:       &world.DamageDescriptor{ConstantTick: 50},
	}}}
	e.AddCreature(c)

	e.processRegeneration()

	// The condition's damage event is published first; the death event follows.
	var ev GameEvent
	for len(sub) > 0 {
		ev = <-sub
		if ev.Kind == EventDeath {
			break
		}
	}
	if ev.Kind != EventDeath {
		t.Fatal("expected a death event to be published")
	}
	assert.Equal(t, EventDeath, ev.Kind)
	assert.Equal(t, uint32(7), ev.CreatureID)
}

func TestProcessRespawns_PublishesSpawnEventsForDeficits(t *testing.T) {
	events := NewEventBroadcaster()
	sub := events.Subscribe(4)
	point := spawn.NewPoint(1, 100, 100, 7, 3, 60)
	point.AddQuota("rat", 2)

	e := newTestEngine(t, Options{
		Events: events,
		Walker: walkableAlwaysTrue{},
		RandomInDisc: func(radius int) (int, int) {
			return 0, 0
		},
	})
	e.AddSpawn(point)

	e.tickCount = respawnEveryTicks
	e.processRespawns()

	found := false
	for i := 0; i < 2; i++ {
		select {
		case ev := <-sub:
			if ev.Kind == EventSpawn {
				found = true
			}
		default:
		}
	}
	assert.True(t, found, "expected at least one spawn event for an empty spawn point")
}

type walkableAlwaysTrue struct{}

func (walkableAlwaysTrue) IsWalkable(x, y, z int) bool { return true }

func TestSaveAll_PersistsOnlyPlayerCreatures(t *testing.T) {
	chars := &fakeCharacterStore{}
	e := newTestEngine(t, Options{Characters: chars})
	e.AddCreature(&world.Creature{ID: 1, Kind: world.KindPlayer, Name: "Knightly", AccountID: 42, Health: 80, MaxHealth: 100})
	e.AddCreature(&world.Creature{ID: 2, Kind: world.KindMonster, Name: "Rat"})

	e.saveAll(context.Background())

	require.Len(t, chars.updated, 1)
	assert.Equal(t, "Knightly", chars.updated[0].Name)
	assert.Equal(t, "42", chars.updated[0].AccountID)
}

func TestShutdown_SavesAndPublishesLogoutEvent(t *testing.T) {
	events := NewEventBroadcaster()
	sub := events.Subscribe(4)
	chars := &fakeCharacterStore{}
	e := newTestEngine(t, Options{Events: events, Characters: chars})
	e.AddCreature(&world.Creature{ID: 1, Kind: world.KindPlayer, Name: "Solo"})

	e.shutdown(context.Background())

	require.Len(t, chars.updated, 1)
	select {
	case ev := <-sub:
		assert.Equal(t, EventLogout, ev.Kind)
	default:
		t.Fatal("expected a logout event on shutdown")
	}
}

func TestRun_StopsPromptlyOnStopCall(t *testing.T) {
	e := newTestEngine(t, Options{})
	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	e.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}
