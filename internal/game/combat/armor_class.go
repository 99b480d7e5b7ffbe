package combat

import (
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// BaseArmorClass is the armor class of an unarmored, motionless creature.
const BaseArmorClass = 10

var armorClassDomain = modifier.NewDomain("armor_class",
	modifier.BonusBase,
	modifier.BonusAttribute,
	modifier.BonusArmor,
	modifier.BonusShield,
	modifier.BonusNaturalArmor,
	modifier.BonusDeflection,
	modifier.BonusDodge,
	modifier.BonusSize,
	modifier.BonusUntyped,
)

// ArmorClassProducers returns the default defense rules in evaluation order.
// All of them read the defender.
func ArmorClassProducers() []Producer {
	return []Producer{
		baseArmorClass,
		armorDexterity,
		armorWorn,
		shieldHeld,
		naturalArmor,
		deflection,
		dodgeFeat,
		armorSize,
		ragePenaltyAC,
	}
}

// ResolveArmorClass reduces a batch of defense contributions.
func ResolveArmorClass(mods []IntModifier) (int, error) {
	return modifier.Aggregate(armorClassDomain, mods)
}

func baseArmorClass(s *Scope) (IntModifier, bool) {
	return contribute(s, BaseArmorClass, modifier.SourceBase, modifier.BonusBase)
}

// armorDexterity is lost while flat-footed, penalties included.
func armorDexterity(s *Scope) (IntModifier, bool) {
	dex := s.Defender.Modifier(model.Dexterity)
	if dex == 0 || (dex > 0 && s.Defender.HasMarker(model.MarkerFlatFooted)) {
		return none()
	}
	return contribute(s, dex, modifier.SourceDexterity, modifier.BonusAttribute)
}

func armorWorn(s *Scope) (IntModifier, bool) {
	if s.Defender.ArmorBonus <= 0 {
		return none()
	}
	return contribute(s, s.Defender.ArmorBonus, modifier.SourceArmor, modifier.BonusArmor)
}

func shieldHeld(s *Scope) (IntModifier, bool) {
	if s.Defender.ShieldBonus <= 0 {
		return none()
	}
	return contribute(s, s.Defender.ShieldBonus, modifier.SourceShield, modifier.BonusShield)
}

func naturalArmor(s *Scope) (IntModifier, bool) {
	if s.Defender.NaturalArmor <= 0 {
		return none()
	}
	return contribute(s, s.Defender.NaturalArmor, modifier.SourceNatural, modifier.BonusNaturalArmor)
}

func deflection(s *Scope) (IntModifier, bool) {
	if s.Defender.Deflection <= 0 {
		return none()
	}
	return contribute(s, s.Defender.Deflection, modifier.SourceDeflection, modifier.BonusDeflection)
}

func dodgeFeat(s *Scope) (IntModifier, bool) {
	if !s.Defender.HasFeat(model.FeatDodge) || s.Defender.HasMarker(model.MarkerFlatFooted) {
		return none()
	}
	return contribute(s, 1, modifier.SourceFeat, modifier.BonusDodge)
}

func armorSize(s *Scope) (IntModifier, bool) {
	if m := s.Defender.Size.Modifier(); m != 0 {
		return contribute(s, m, modifier.SourceSize, modifier.BonusSize)
	}
	return none()
}

func ragePenaltyAC(s *Scope) (IntModifier, bool) {
	if !s.Defender.HasMarker(model.MarkerRaging) {
		return none()
	}
	return contribute(s, -2, modifier.SourceRage, modifier.BonusUntyped)
}
