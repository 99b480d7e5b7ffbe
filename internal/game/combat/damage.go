package combat

import (
	"fmt"

	"github.com/udisondev/d20combat/internal/game/dice"
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// OnCritPolicy decides how a damage contribution behaves on a critical hit.
type OnCritPolicy uint8

const (
	CanMultiplyOnCrit    OnCritPolicy = iota // multiplied by the critical multiplier
	CannotMultiplyOnCrit                     // added once, crit or not
	OnlyOnCrit                               // added once, only on a critical hit
)

func (p OnCritPolicy) String() string {
	switch p {
	case CanMultiplyOnCrit:
		return "multiply"
	case CannotMultiplyOnCrit:
		return "no_multiply"
	case OnlyOnCrit:
		return "only_on_crit"
	}
	return "unknown"
}

// DamageModifier is a damage contribution. Dice are rolled when the batch is
// reduced, not when the contribution is produced.
type DamageModifier struct {
	Dice    dice.Expr
	Source  modifier.Source
	Type    modifier.BonusType
	Policy  OnCritPolicy
	Weapon  bool // weapon base damage rather than bonus damage
	Context AttackContext
}

// DamageProducer emits at most one damage contribution.
type DamageProducer func(s *Scope) (DamageModifier, bool)

// DamageTotals is the structured damage sum of one attack, before the
// critical multiplier and damage reduction are applied.
type DamageTotals struct {
	Weapon           int
	MultiplyOnCrit   int
	NoMultiplyOnCrit int
	OnlyOnCrit       int
}

// Apply combines the totals for a hit. A hit always deals at least 1.
func (t DamageTotals) Apply(critical bool, m CriticalMultiplier) int {
	factor := 1
	if critical {
		factor = m.Int()
	}
	total := (t.Weapon+t.MultiplyOnCrit)*factor + t.NoMultiplyOnCrit
	if critical {
		total += t.OnlyOnCrit
	}
	return max(total, 1)
}

var damageDomain = modifier.NewDomain("damage",
	modifier.BonusUntyped,
	modifier.BonusAttribute,
	modifier.BonusEnhancement,
	modifier.BonusMorale,
)

// DamageProducers returns the default damage rules in evaluation order.
func DamageProducers() []DamageProducer {
	return []DamageProducer{
		weaponDice,
		strengthDamage,
		weaponEnhancementDamage,
		weaponSpecialization,
		rageDamage,
		inspiredDamage,
		sneakAttack,
		flaming,
		flamingBurst,
	}
}

// ResolveDamage rolls every contribution and reduces the four partitions
// (weapon base, multiply, no-multiply, only-on-crit) independently.
func ResolveDamage(mods []DamageModifier, r dice.Roller) (DamageTotals, error) {
	if _, err := Correlate(mods, func(m DamageModifier) AttackContext { return m.Context }); err != nil {
		return DamageTotals{}, fmt.Errorf("damage: %w", err)
	}

	var weapon, multiply, noMultiply, onlyCrit []IntModifier
	for _, m := range mods {
		rolled := IntModifier{
			Value:   m.Dice.Roll(r),
			Source:  m.Source,
			Type:    m.Type,
			Context: m.Context,
		}
		switch {
		case m.Policy == OnlyOnCrit:
			onlyCrit = append(onlyCrit, rolled)
		case m.Weapon:
			weapon = append(weapon, rolled)
		case m.Policy == CannotMultiplyOnCrit:
			noMultiply = append(noMultiply, rolled)
		default:
			multiply = append(multiply, rolled)
		}
	}

	var (
		t   DamageTotals
		err error
	)
	if t.Weapon, err = modifier.Reduce(damageDomain, weapon); err != nil {
		return DamageTotals{}, err
	}
	if t.MultiplyOnCrit, err = modifier.Reduce(damageDomain, multiply); err != nil {
		return DamageTotals{}, err
	}
	if t.NoMultiplyOnCrit, err = modifier.Reduce(damageDomain, noMultiply); err != nil {
		return DamageTotals{}, err
	}
	if t.OnlyOnCrit, err = modifier.Reduce(damageDomain, onlyCrit); err != nil {
		return DamageTotals{}, err
	}
	return t, nil
}

func damage(s *Scope, e dice.Expr, src modifier.Source, typ modifier.BonusType, p OnCritPolicy) (DamageModifier, bool) {
	return DamageModifier{Dice: e, Source: src, Type: typ, Policy: p, Context: s.Context}, true
}

func weaponDice(s *Scope) (DamageModifier, bool) {
	return DamageModifier{
		Dice:    s.Weapon.Damage,
		Source:  modifier.SourceWeapon,
		Type:    modifier.BonusUntyped,
		Policy:  CanMultiplyOnCrit,
		Weapon:  true,
		Context: s.Context,
	}, true
}

// strengthDamage adds 1½× Strength for two-handed weapons and ½× in the off
// hand. Penalties always apply in full.
func strengthDamage(s *Scope) (DamageModifier, bool) {
	str := s.Attacker.Modifier(model.Strength)
	if str == 0 {
		return DamageModifier{}, false
	}
	if str > 0 {
		switch {
		case s.Context.Slot == model.SlotOffHand:
			str /= 2
		case s.Weapon.Grip == model.GripTwoHanded:
			str = str * 3 / 2
		}
	}
	return damage(s, dice.Flat(str), modifier.SourceStrength, modifier.BonusAttribute, CanMultiplyOnCrit)
}

func weaponEnhancementDamage(s *Scope) (DamageModifier, bool) {
	if s.Weapon.Enhancement <= 0 {
		return DamageModifier{}, false
	}
	return damage(s, dice.Flat(s.Weapon.Enhancement), modifier.SourceWeapon, modifier.BonusEnhancement, CanMultiplyOnCrit)
}

func weaponSpecialization(s *Scope) (DamageModifier, bool) {
	if !s.Attacker.HasFeat(model.FeatWeaponSpecialization) {
		return DamageModifier{}, false
	}
	return damage(s, dice.Flat(2), modifier.SourceFeat, modifier.BonusUntyped, CanMultiplyOnCrit)
}

func rageDamage(s *Scope) (DamageModifier, bool) {
	if !s.Attacker.HasMarker(model.MarkerRaging) {
		return DamageModifier{}, false
	}
	return damage(s, dice.Flat(2), modifier.SourceRage, modifier.BonusMorale, CanMultiplyOnCrit)
}

func inspiredDamage(s *Scope) (DamageModifier, bool) {
	if !s.Attacker.HasMarker(model.MarkerInspired) {
		return DamageModifier{}, false
	}
	return damage(s, dice.Flat(1), modifier.SourceInspiration, modifier.BonusMorale, CanMultiplyOnCrit)
}

// sneakAttack needs a flanking attacker or a flat-footed defender.
func sneakAttack(s *Scope) (DamageModifier, bool) {
	lvl := s.Attacker.Level(model.ClassRogue)
	if lvl <= 0 {
		return DamageModifier{}, false
	}
	if !s.Attacker.HasMarker(model.MarkerFlanking) && !s.Defender.HasMarker(model.MarkerFlatFooted) {
		return DamageModifier{}, false
	}
	return damage(s, dice.D((lvl+1)/2, 6), modifier.SourceClass, modifier.BonusUntyped, CannotMultiplyOnCrit)
}

func flaming(s *Scope) (DamageModifier, bool) {
	if !s.Weapon.Properties.Has(model.PropertyFlaming) {
		return DamageModifier{}, false
	}
	return damage(s, dice.D(1, 6), modifier.SourceWeapon, modifier.BonusUntyped, CannotMultiplyOnCrit)
}

func flamingBurst(s *Scope) (DamageModifier, bool) {
	if !s.Weapon.Properties.Has(model.PropertyFlamingBurst) {
		return DamageModifier{}, false
	}
	n := max(s.Weapon.Multiplier-1, 1)
	return damage(s, dice.D(n, 10), modifier.SourceWeapon, modifier.BonusUntyped, OnlyOnCrit)
}
