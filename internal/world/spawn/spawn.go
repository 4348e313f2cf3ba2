// Package spawn implements the per-area respawn scheduler that materializes
// monsters around configured spawn points (§3 SpawnPoint, §4.12).
package spawn

import (
	"math"
)

// MonsterQuota tracks the configured max and currently-alive count for one
// monster type at a spawn point (§3 SpawnPoint).
type MonsterQuota struct {
	MonsterType string
	MaxCount    int
	Current     int
	LiveIDs     []uint32
}

// Point is a single spawn point: a center, radius and interval, with one
// quota per monster type it can produce (§3 SpawnPoint).
type Point struct {
	ID          uint32
	CenterX     int
	CenterY     int
	Z           int
	Radius      int
	IntervalSec int
	Quotas      []MonsterQuota
	lastSpawnAt int64
}

// NewPoint constructs a spawn point.
func NewPoint(id uint32, x, y, z, radius, intervalSec int) *Point {
	return &Point{ID: id, CenterX: x, CenterY: y, Z: z, Radius: radius, IntervalSec: intervalSec}
}

// AddQuota registers a monster type this spawn point can produce.
func (p *Point) AddQuota(monsterType string, max int) {
	p.Quotas = append(p.Quotas, MonsterQuota{MonsterType: monsterType, MaxCount: max})
}

// Request is an instruction to materialize one monster (§4.12).
type Request struct {
	SpawnID     uint32
	MonsterType string
	Position    PositionHint
}

// PositionHint is the candidate (x,y,z) chosen for a spawn request, expressed
// without importing the world package to keep this scheduler reusable
// against any walkability oracle.
type PositionHint struct {
	X, Y, Z int
}

// WalkableChecker reports whether a candidate position can host a spawn.
type WalkableChecker interface {
	IsWalkable(x, y, z int) bool
}

// RandomInDisc returns a uniformly distributed function producing offsets
// within radius of the origin (Euclidean disc, §4.12).
type RandomInDisc func(radius int) (dx, dy int)

// Due reports whether p's spawn interval has elapsed as of nowSec.
func (p *Point) Due(nowSec int64) bool {
	return nowSec-p.lastSpawnAt >= int64(p.IntervalSec)
}

// Tick evaluates one spawn point at nowSec: for each monster type with a
// deficit (max-current), picks a random walkable position within the disc
// and emits a Request (§4.12). maxAttemptsPerSpawn bounds the walkability
// retry loop so a fully-blocked spawn area cannot spin forever.
func Tick(p *Point, nowSec int64, walker WalkableChecker, randomInDisc RandomInDisc, maxAttemptsPerSpawn int) []Request {
	if !p.Due(nowSec) {
		return nil
	}
	p.lastSpawnAt = nowSec

	var requests []Request
	for i := range p.Quotas {
		quota := &p.Quotas[i]
		deficit := quota.MaxCount - quota.Current
		for k := 0; k < deficit; k++ {
			pos, ok := pickPosition(p, walker, randomInDisc, maxAttemptsPerSpawn)
			if !ok {
				continue
			}
			requests = append(requests, Request{SpawnID: p.ID, MonsterType: quota.MonsterType, Position: pos})
		}
	}
	return requests
}

func pickPosition(p *Point, walker WalkableChecker, randomInDisc RandomInDisc, maxAttempts int) (PositionHint, bool) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		dx, dy := randomInDisc(p.Radius)
		x, y := p.CenterX+dx, p.CenterY+dy
		if float64(dx*dx+dy*dy) > math.Pow(float64(p.Radius), 2) {
			continue
		}
		if walker.IsWalkable(x, y, p.Z) {
			return PositionHint{X: x, Y: y, Z: p.Z}, true
		}
	}
	return PositionHint{}, false
}

// OnSpawned records that a monster was successfully created, incrementing
// the quota's current count and tracking its id (§4.12).
func (p *Point) OnSpawned(monsterType string, creatureID uint32) {
	for i := range p.Quotas {
		if p.Quotas[i].MonsterType == monsterType {
			p.Quotas[i].Current++
			p.Quotas[i].LiveIDs = append(p.Quotas[i].LiveIDs, creatureID)
			return
		}
	}
}

// OnDeath records that a spawned monster died, decrementing its quota's
// current count (§4.12).
func (p *Point) OnDeath(creatureID uint32) {
	for i := range p.Quotas {
		for j, id := range p.Quotas[i].LiveIDs {
			if id == creatureID {
				p.Quotas[i].LiveIDs = append(p.Quotas[i].LiveIDs[:j], p.Quotas[i].LiveIDs[j+1:]...)
				if p.Quotas[i].Current > 0 {
					p.Quotas[i].Current--
				}
				return
			}
		}
	}
}
