// Package condition implements tick-driven damage-over-time and speed
// conditions afflicting creatures (§3 Condition, §4.10).
package condition

import (
	"github.com/shadowot/realm/internal/world"
)

// TickIntervalMs is the standard interval used by the prebuilt elemental
// damage-over-time conditions (§4.10: "2 s interval").
const TickIntervalMs = 2000

// New constructs a condition that expires at nowMs + rounds*interval.
func New(kind world.ConditionKind, nowMs int64, intervalMs int64, damage *world.DamageDescriptor, speedDelta int32) *world.Condition {
	rounds := int64(1)
	if damage != nil && damage.Decreasing {
		rounds = int64(damage.TotalRounds)
	}
	return &world.Condition{
		Kind:  kind,
		EndTS: nowMs + rounds*intervalMs,
		// LastTickTS is backdated by a full interval so the first round is
		// due immediately at application time, not one interval later.
		TickInterval: intervalMs,
		LastTickTS:   nowMs - intervalMs,
		Damage:       damage,
		SpeedDelta:   speedDelta,
	}
}

// Poison builds a poison condition: decreasing damage over N rounds at the
// standard 2s interval (§4.10).
func Poison(nowMs int64, startDamage, rounds int) *world.Condition {
	return New(world.ConditionPoison, nowMs, TickIntervalMs, &world.DamageDescriptor{
		Decreasing:  true,
		StartDamage: startDamage,
		TotalRounds: rounds,
	}, 0)
}

// Fire builds a fire condition: decreasing damage, same schedule as poison
// but a distinct damage type at the combat-dispatch layer (§4.10).
func Fire(nowMs int64, startDamage, rounds int) *world.Condition {
	return New(world.ConditionFire, nowMs, TickIntervalMs, &world.DamageDescriptor{
		Decreasing:  true,
		StartDamage: startDamage,
		TotalRounds: rounds,
	}, 0)
}

// Energy builds an energy condition: decreasing damage (§4.10).
func Energy(nowMs int64, startDamage, rounds int) *world.Condition {
	return New(world.ConditionEnergy, nowMs, TickIntervalMs, &world.DamageDescriptor{
		Decreasing:  true,
		StartDamage: startDamage,
		TotalRounds: rounds,
	}, 0)
}

// Bleeding builds a constant-per-tick physical bleed condition (§4.10).
func Bleeding(nowMs int64, perTick int, intervalMs int64, rounds int) *world.Condition {
	c := New(world.ConditionBleeding, nowMs, intervalMs, &world.DamageDescriptor{
		ConstantTick: perTick,
	}, 0)
	c.EndTS = nowMs + int64(rounds)*intervalMs
	return c
}

// Paralyze builds a no-damage speed-reducing condition (§4.10).
func Paralyze(nowMs int64, durationMs int64, speedDelta int32) *world.Condition {
	c := New(world.ConditionParalyze, nowMs, durationMs, nil, speedDelta)
	c.EndTS = nowMs + durationMs
	return c
}

// DamageAtRound computes the per-tick damage for round k of a decreasing
// descriptor: max(1, start·(1 − k/total)) (§3 Condition, §4.10, §8).
func DamageAtRound(startDamage, totalRounds, k int) int {
	if totalRounds <= 0 {
		return startDamage
	}
	d := int(float64(startDamage) * (1.0 - float64(k)/float64(totalRounds)))
	if d < 1 {
		d = 1
	}
	return d
}

// Tick advances cond by one tick if due, returning the damage dealt this
// tick (0 if not yet due or no damage descriptor) and whether the condition
// has now expired. The N scheduled rounds (k=0..N-1) land at
// EndTS-N*TickInterval, ..., EndTS-TickInterval — always strictly before
// EndTS — so the expiry check below never preempts the final round.
func Tick(cond *world.Condition, nowMs int64) (damage int, expired bool) {
	if nowMs >= cond.EndTS {
		return 0, true
	}
	if nowMs-cond.LastTickTS < cond.TickInterval {
		return 0, false
	}

	cond.LastTickTS = nowMs

	if cond.Damage == nil {
		return 0, false
	}
	if cond.Damage.Decreasing {
		damage = DamageAtRound(cond.Damage.StartDamage, cond.Damage.TotalRounds, cond.Damage.RoundsDone)
		cond.Damage.RoundsDone++
	} else {
		damage = cond.Damage.ConstantTick
	}
	return damage, false
}
