package combat

import (
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

var attackRollDomain = modifier.NewDomain("attack_roll",
	modifier.BonusBase,
	modifier.BonusAttribute,
	modifier.BonusSize,
	modifier.BonusUntyped,
	modifier.BonusEnhancement,
	modifier.BonusMorale,
	modifier.BonusCircumstance,
)

// AttackRollProducers returns the default to-hit rules in evaluation order.
func AttackRollProducers() []Producer {
	return []Producer{
		baseAttackBonus,
		attackAbility,
		attackSize,
		weaponFocus,
		weaponEnhancementToHit,
		rageToHit,
		inspiredToHit,
		flankingToHit,
	}
}

// ResolveAttackRoll reduces a batch of to-hit contributions.
func ResolveAttackRoll(mods []IntModifier) (int, error) {
	return modifier.Aggregate(attackRollDomain, mods)
}

func baseAttackBonus(s *Scope) (IntModifier, bool) {
	return contribute(s, s.Attacker.BaseAttack, modifier.SourceBaseAttack, modifier.BonusBase)
}

// attackAbility uses Strength, or Dexterity for a finesse light weapon when
// it is higher.
func attackAbility(s *Scope) (IntModifier, bool) {
	str := s.Attacker.Modifier(model.Strength)
	if s.Attacker.HasFeat(model.FeatWeaponFinesse) && s.Weapon.Grip == model.GripLight {
		if dex := s.Attacker.Modifier(model.Dexterity); dex > str {
			return contribute(s, dex, modifier.SourceDexterity, modifier.BonusAttribute)
		}
	}
	if str == 0 {
		return none()
	}
	return contribute(s, str, modifier.SourceStrength, modifier.BonusAttribute)
}

func attackSize(s *Scope) (IntModifier, bool) {
	if m := s.Attacker.Size.Modifier(); m != 0 {
		return contribute(s, m, modifier.SourceSize, modifier.BonusSize)
	}
	return none()
}

func weaponFocus(s *Scope) (IntModifier, bool) {
	if !s.Attacker.HasFeat(model.FeatWeaponFocus) {
		return none()
	}
	return contribute(s, 1, modifier.SourceFeat, modifier.BonusUntyped)
}

func weaponEnhancementToHit(s *Scope) (IntModifier, bool) {
	if s.Weapon.Enhancement <= 0 {
		return none()
	}
	return contribute(s, s.Weapon.Enhancement, modifier.SourceWeapon, modifier.BonusEnhancement)
}

func rageToHit(s *Scope) (IntModifier, bool) {
	if !s.Attacker.HasMarker(model.MarkerRaging) {
		return none()
	}
	return contribute(s, 2, modifier.SourceRage, modifier.BonusMorale)
}

func inspiredToHit(s *Scope) (IntModifier, bool) {
	if !s.Attacker.HasMarker(model.MarkerInspired) {
		return none()
	}
	return contribute(s, 1, modifier.SourceInspiration, modifier.BonusMorale)
}

func flankingToHit(s *Scope) (IntModifier, bool) {
	if !s.Attacker.HasMarker(model.MarkerFlanking) {
		return none()
	}
	return contribute(s, 2, modifier.SourceFlanking, modifier.BonusCircumstance)
}
