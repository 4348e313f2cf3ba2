// Package spell implements spell lookup and the instant/rune/conjure
// dispatch pipeline (§3 SpellDefinition, §4.11).
package spell

import (
	"strings"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/combat/area"
	"github.com/shadowot/realm/internal/combat/formula"
	"github.com/shadowot/realm/internal/world"
)

// Kind distinguishes how a spell is triggered (§3 SpellDefinition).
type Kind uint8

const (
	KindInstant Kind = iota
	KindRune
	KindConjure
)

// DamageKind distinguishes fixed-damage vs factor-scaled magic formulas.
type DamageKind uint8

const (
	DamageFactor DamageKind = iota
	DamageFixed
)

// Definition is a spell catalog entry (§3 SpellDefinition).
type Definition struct {
	Words         string
	Name          string
	Kind          Kind
	Group         string
	Enabled       bool
	RequiredLevel uint32
	RequiredMagic uint16
	ManaCost      int32
	SoulCost      int32
	VocationMask  uint32
	PremiumOnly   bool
	CooldownMs    int64
	GroupCooldown int64
	NeedTarget    bool

	DamageKind  DamageKind
	MinFactor   float64
	MaxFactor   float64
	FixedMin    int
	FixedMax    int
	LevelFactor float64
	MagicFactor float64

	Area      area.Shape
	Condition *ConditionSpec

	// Rune/conjure specifics.
	ConjureItemID uint16
	ConjureCount  uint8
}

// ConditionSpec describes the condition a spell applies on hit, if any.
type ConditionSpec struct {
	Kind       world.ConditionKind
	IntervalMs int64
	Rounds     int
	StartValue int
	SpeedDelta int32
}

// Catalog looks up spells by spoken words: exact match first, then prefix
// match (§4.11).
type Catalog struct {
	byWords map[string]*Definition
	ordered []*Definition
}

// NewCatalog builds an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byWords: make(map[string]*Definition)}
}

// Add registers a spell definition, indexed by its lowercased words.
func (c *Catalog) Add(def *Definition) {
	key := strings.ToLower(def.Words)
	c.byWords[key] = def
	c.ordered = append(c.ordered, def)
}

// Lookup resolves spoken words to a Definition: exact match first, then the
// first definition whose words are a prefix of the input (§4.11).
func (c *Catalog) Lookup(spoken string) (*Definition, bool) {
	key := strings.ToLower(strings.TrimSpace(spoken))
	if def, ok := c.byWords[key]; ok {
		return def, true
	}
	for _, def := range c.ordered {
		if strings.HasPrefix(key, strings.ToLower(def.Words)) {
			return def, true
		}
	}
	return nil, false
}

// DamageSource identifies where damage came from, for metrics/event tagging.
const DamageSource = "spell"

// Cast runs the full instant-spell dispatch sequence (§4.11 steps 1-6)
// against caster, an optional target, and the caster's facing direction for
// area resolution. nowMs is the current engine tick time.
//
// Cast returns one formula.Range per affected tile rather than a sampled
// damage value: the caller draws the uniform [Min,Max] sample (and applies
// it under the tick loop's exclusive world-mutation ownership, §4.13), so
// Cast itself stays pure and side-effect-free aside from the resource/
// cooldown commit below.
//
// Cast performs all checks before mutating any state: if any check fails, no
// resource is deducted and no cooldown is marked (§8 invariant).
func Cast(def *Definition, caster *world.Creature, target *world.Creature, targetPos world.Position, nowMs int64) ([]area.AffectedTile, []formula.Range, error) {
	if !def.Enabled {
		return nil, nil, apperr.SpellDisabled()
	}
	if caster.Level < def.RequiredLevel {
		return nil, nil, apperr.LevelTooLow()
	}
	if caster.MagicLevel < def.RequiredMagic {
		return nil, nil, apperr.MagicLevelTooLow()
	}
	if def.VocationMask != 0 && caster.Vocation < 32 && def.VocationMask&(1<<caster.Vocation) == 0 {
		return nil, nil, apperr.WrongVocation()
	}
	if def.PremiumOnly && !caster.Premium {
		return nil, nil, apperr.PremiumRequired()
	}
	if caster.Mana < def.ManaCost {
		return nil, nil, apperr.NotEnoughMana()
	}
	if caster.SoulPoints < def.SoulCost {
		return nil, nil, apperr.NotEnoughSoul()
	}
	if caster.IsOnCooldown(def.Words, nowMs, false) {
		return nil, nil, apperr.OnCooldown()
	}
	if def.Group != "" && caster.IsOnCooldown(def.Group, nowMs, true) {
		return nil, nil, apperr.OnCooldown()
	}
	if def.NeedTarget && target == nil {
		return nil, nil, apperr.NeedTarget()
	}

	origin := caster.Position
	tiles := area.Enumerate(def.Area, origin, targetPos, caster.Direction)

	var ranges []formula.Range
	for range tiles {
		ranges = append(ranges, damageRange(def, caster))
	}

	// Commit: deduct resources and mark cooldowns only once every check has
	// passed (§8 invariant: apply commits all-or-nothing).
	caster.Mana -= def.ManaCost
	caster.SoulPoints -= def.SoulCost
	caster.SetCooldown(def.Words, nowMs, def.CooldownMs, false)
	if def.Group != "" {
		caster.SetCooldown(def.Group, nowMs, def.GroupCooldown, true)
	}

	return tiles, ranges, nil
}

func damageRange(def *Definition, caster *world.Creature) formula.Range {
	if def.DamageKind == DamageFixed {
		return formula.MagicDamageFixed(int(caster.Level), int(caster.MagicLevel), def.FixedMin, def.FixedMax, def.LevelFactor, def.MagicFactor)
	}
	return formula.MagicDamageFactor(int(caster.Level), int(caster.MagicLevel), def.MinFactor, def.MaxFactor)
}

// CastRune applies the same dispatch sequence but also decrements the rune
// item's charge count (§4.11).
func CastRune(def *Definition, caster *world.Creature, target *world.Creature, targetPos world.Position, nowMs int64, rune_ *world.Item) ([]area.AffectedTile, []formula.Range, error) {
	tiles, ranges, err := Cast(def, caster, target, targetPos, nowMs)
	if err != nil {
		return nil, nil, err
	}
	if rune_ != nil && rune_.Charges > 0 {
		rune_.Charges--
	}
	return tiles, ranges, nil
}

// CastConjure runs the dispatch sequence for a conjure spell and reports how
// many items of ConjureItemID should be placed into the caster's primary
// inventory container (§4.11).
func CastConjure(def *Definition, caster *world.Creature, nowMs int64) (itemID uint16, count uint8, err error) {
	_, _, err = Cast(def, caster, nil, caster.Position, nowMs)
	if err != nil {
		return 0, 0, err
	}
	return def.ConjureItemID, def.ConjureCount, nil
}
