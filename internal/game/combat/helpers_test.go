package combat

import (
	"fmt"

	"github.com/udisondev/d20combat/internal/game/dice"
	"github.com/udisondev/d20combat/internal/model"
)

// table is an in-memory CreatureLookup and WeaponLookup.
type table struct {
	creatures map[model.CreatureID]*model.Creature
	weapons   map[model.WeaponID]*model.Weapon
}

func newTable() *table {
	return &table{
		creatures: make(map[model.CreatureID]*model.Creature),
		weapons:   make(map[model.WeaponID]*model.Weapon),
	}
}

func (t *table) Creature(id model.CreatureID) (*model.Creature, error) {
	c, ok := t.creatures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", model.ErrCreatureNotFound, id)
	}
	return c, nil
}

func (t *table) Weapon(id model.WeaponID) (*model.Weapon, error) {
	w, ok := t.weapons[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrWeaponNotFound, id)
	}
	return w, nil
}

func (t *table) add(c *model.Creature) *model.Creature {
	t.creatures[c.ID] = c
	return c
}

func (t *table) arm(c *model.Creature, w *model.Weapon) {
	t.weapons[w.ID] = w
	if c.Weapons == nil {
		c.Weapons = make(map[model.Slot]model.WeaponID)
	}
	c.Weapons[model.SlotMainHand] = w.ID
}

func longsword() *model.Weapon {
	return &model.Weapon{
		ID:          "longsword",
		Name:        "Longsword",
		Damage:      dice.D(1, 8),
		ThreatRange: 2,
		Multiplier:  2,
		Types:       model.NewDamageTypeSet(model.DamageSlashing),
	}
}

func average() model.Attributes {
	return model.Attributes{Str: 10, Dex: 10, Con: 10, Int: 10, Wis: 10, Cha: 10}
}

func fighter(id model.CreatureID) *model.Creature {
	attrs := average()
	attrs.Str = 14
	return &model.Creature{
		ID:         id,
		Name:       "fighter",
		Team:       "red",
		Attributes: attrs,
		BaseAttack: 3,
		HitPoints:  30,
		Feats:      model.NewFeatSet(model.FeatWeaponFocus),
		Levels:     map[model.Class]int{model.ClassFighter: 3},
	}
}

func target(id model.CreatureID) *model.Creature {
	return &model.Creature{
		ID:         id,
		Name:       "target",
		Team:       "blue",
		Attributes: average(),
		HitPoints:  30,
	}
}

// recorder captures every published summary.
type recorder struct {
	NopListener
	events []string
}

func (r *recorder) AttackRollTotal(ctx AttackContext, total int) {
	r.events = append(r.events, fmt.Sprintf("attack %s %d", ctx, total))
}

func (r *recorder) ArmorClassTotal(ctx AttackContext, total int) {
	r.events = append(r.events, fmt.Sprintf("ac %s %d", ctx, total))
}

func (r *recorder) CriticalThreatRange(ctx AttackContext, tr ThreatRange) {
	r.events = append(r.events, fmt.Sprintf("threat %s %s", ctx, tr))
}

func (r *recorder) CriticalMultiplier(ctx AttackContext, m CriticalMultiplier) {
	r.events = append(r.events, fmt.Sprintf("multiplier %s %s", ctx, m))
}

func (r *recorder) DamageTotals(ctx AttackContext, t DamageTotals) {
	r.events = append(r.events, fmt.Sprintf("damage %s %+v", ctx, t))
}

func (r *recorder) DamageReductionTotals(ctx AttackContext, t DamageReductionTotals) {
	r.events = append(r.events, fmt.Sprintf("dr %s %+v", ctx, t))
}

type gate map[model.CreatureID]bool

func (g gate) HasPriority(id model.CreatureID) bool { return g[id] }
