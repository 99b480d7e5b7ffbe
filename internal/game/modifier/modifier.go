// Package modifier implements the stacking-rule reducer shared by every
// combat domain: attack roll, armor class, threat range, damage, initiative
// and attacks of opportunity.
//
// A resolution fans out to independent producers, each of which may emit one
// tagged contribution. The contributions are collected into an explicit batch
// and reduced once: stackable tags sum, non-stackable tags keep only their
// best value and the per-tag maxima are summed across tags.
package modifier

// Number is the set of value types a contribution may carry.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// StackingRule defines how contributions of one bonus type combine.
type StackingRule int8

const (
	Stackable    StackingRule = iota // every instance counts
	NonStackable                     // only the best instance counts
)

func (r StackingRule) String() string {
	if r == Stackable {
		return "stackable"
	}
	return "non-stackable"
}

// BonusType is the stacking category of a contribution.
type BonusType uint8

const (
	BonusUntyped BonusType = iota
	BonusBase
	BonusAttribute
	BonusDodge
	BonusCircumstance
	BonusMorale
	BonusSize
	BonusEnhancement
	BonusLuck
	BonusInsight
	BonusCompetence
	BonusSacred
	BonusProfane
	BonusArmor
	BonusShield
	BonusNaturalArmor
	BonusDeflection
	BonusRacial
	BonusThreatRange
)

var bonusTypeNames = [...]string{
	BonusUntyped:      "untyped",
	BonusBase:         "base",
	BonusAttribute:    "attribute",
	BonusDodge:        "dodge",
	BonusCircumstance: "circumstance",
	BonusMorale:       "morale",
	BonusSize:         "size",
	BonusEnhancement:  "enhancement",
	BonusLuck:         "luck",
	BonusInsight:      "insight",
	BonusCompetence:   "competence",
	BonusSacred:       "sacred",
	BonusProfane:      "profane",
	BonusArmor:        "armor",
	BonusShield:       "shield",
	BonusNaturalArmor: "natural_armor",
	BonusDeflection:   "deflection",
	BonusRacial:       "racial",
	BonusThreatRange:  "threat_range",
}

func (t BonusType) String() string {
	if int(t) < len(bonusTypeNames) {
		return bonusTypeNames[t]
	}
	return "unknown"
}

// Rule classifies the bonus type. Adding a tag only needs a case here when
// the new tag stacks.
func (t BonusType) Rule() StackingRule {
	switch t {
	case BonusUntyped, BonusBase, BonusAttribute, BonusDodge, BonusCircumstance:
		return Stackable
	default:
		return NonStackable
	}
}

// Source identifies the rule that produced a contribution.
type Source uint8

const (
	SourceBase Source = iota
	SourceBaseAttack
	SourceStrength
	SourceDexterity
	SourceConstitution
	SourceIntelligence
	SourceWisdom
	SourceCharisma
	SourceSize
	SourceFeat
	SourceWeapon
	SourceArmor
	SourceShield
	SourceNatural
	SourceDeflection
	SourceRage
	SourceInspiration
	SourceFlanking
	SourceClass
)

var sourceNames = [...]string{
	SourceBase:         "base",
	SourceBaseAttack:   "base_attack",
	SourceStrength:     "strength",
	SourceDexterity:    "dexterity",
	SourceConstitution: "constitution",
	SourceIntelligence: "intelligence",
	SourceWisdom:       "wisdom",
	SourceCharisma:     "charisma",
	SourceSize:         "size",
	SourceFeat:         "feat",
	SourceWeapon:       "weapon",
	SourceArmor:        "armor",
	SourceShield:       "shield",
	SourceNatural:      "natural",
	SourceDeflection:   "deflection",
	SourceRage:         "rage",
	SourceInspiration:  "inspiration",
	SourceFlanking:     "flanking",
	SourceClass:        "class",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "unknown"
}

// Modifier is a single tagged contribution bound to the context that caused it.
// Producers create these; they carry no behavior.
type Modifier[V Number, C comparable] struct {
	Value   V
	Source  Source
	Type    BonusType
	Context C
}
