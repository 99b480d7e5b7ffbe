package model

import (
	"fmt"
	"strings"
)

// Feat is a closed set of combat-relevant feats.
type Feat uint8

const (
	FeatWeaponFocus Feat = iota
	FeatWeaponSpecialization
	FeatWeaponFinesse
	FeatImprovedInitiative
	FeatImprovedCritical
	FeatPowerCritical
	FeatWeaponMastery
	FeatCombatReflexes
	FeatDodge
	FeatStalwart
)

var featNames = [...]string{
	FeatWeaponFocus:          "weapon_focus",
	FeatWeaponSpecialization: "weapon_specialization",
	FeatWeaponFinesse:        "weapon_finesse",
	FeatImprovedInitiative:   "improved_initiative",
	FeatImprovedCritical:     "improved_critical",
	FeatPowerCritical:        "power_critical",
	FeatWeaponMastery:        "weapon_mastery",
	FeatCombatReflexes:       "combat_reflexes",
	FeatDodge:                "dodge",
	FeatStalwart:             "stalwart",
}

func (f Feat) String() string {
	if int(f) < len(featNames) {
		return featNames[f]
	}
	return "unknown"
}

// ParseFeat maps a feat name to its tag.
func ParseFeat(s string) (Feat, error) {
	for i, name := range featNames {
		if name == strings.ToLower(s) {
			return Feat(i), nil
		}
	}
	return 0, fmt.Errorf("unknown feat %q", s)
}

// FeatSet is a bitset of feats.
type FeatSet uint64

// NewFeatSet builds a set from feats.
func NewFeatSet(feats ...Feat) FeatSet {
	var s FeatSet
	for _, f := range feats {
		s |= 1 << f
	}
	return s
}

// Has reports whether f is in the set.
func (s FeatSet) Has(f Feat) bool { return s&(1<<f) != 0 }

// Marker is a transient state tag on a creature (stances, conditions).
type Marker uint8

const (
	MarkerRaging Marker = iota
	MarkerInspired
	MarkerFlanking
	MarkerFlatFooted
	MarkerDeathblow
)

var markerNames = [...]string{
	MarkerRaging:     "raging",
	MarkerInspired:   "inspired",
	MarkerFlanking:   "flanking",
	MarkerFlatFooted: "flat_footed",
	MarkerDeathblow:  "deathblow",
}

func (m Marker) String() string {
	if int(m) < len(markerNames) {
		return markerNames[m]
	}
	return "unknown"
}

// ParseMarker maps a marker name to its tag.
func ParseMarker(s string) (Marker, error) {
	for i, name := range markerNames {
		if name == strings.ToLower(s) {
			return Marker(i), nil
		}
	}
	return 0, fmt.Errorf("unknown marker %q", s)
}

// MarkerSet is a bitset of markers.
type MarkerSet uint32

// NewMarkerSet builds a set from markers.
func NewMarkerSet(markers ...Marker) MarkerSet {
	var s MarkerSet
	for _, m := range markers {
		s |= 1 << m
	}
	return s
}

// Has reports whether m is in the set.
func (s MarkerSet) Has(m Marker) bool { return s&(1<<m) != 0 }

// With returns a copy of the set including m.
func (s MarkerSet) With(m Marker) MarkerSet { return s | 1<<m }

// Without returns a copy of the set excluding m.
func (s MarkerSet) Without(m Marker) MarkerSet { return s &^ (1 << m) }

// Size is a creature size category.
type Size int8

const (
	SizeFine Size = iota - 4
	SizeDiminutive
	SizeTiny
	SizeSmall
	SizeMedium
	SizeLarge
	SizeHuge
	SizeGargantuan
	SizeColossal
)

var sizeNames = map[Size]string{
	SizeFine:       "fine",
	SizeDiminutive: "diminutive",
	SizeTiny:       "tiny",
	SizeSmall:      "small",
	SizeMedium:     "medium",
	SizeLarge:      "large",
	SizeHuge:       "huge",
	SizeGargantuan: "gargantuan",
	SizeColossal:   "colossal",
}

func (s Size) String() string {
	if name, ok := sizeNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSize maps a size name to its category. Empty means medium.
func ParseSize(s string) (Size, error) {
	if s == "" {
		return SizeMedium, nil
	}
	for size, name := range sizeNames {
		if name == strings.ToLower(s) {
			return size, nil
		}
	}
	return 0, fmt.Errorf("unknown size %q", s)
}

// sizeModifiers is indexed by Size+4.
var sizeModifiers = [...]int{8, 4, 2, 1, 0, -1, -2, -4, -8}

// Modifier returns the size modifier applied to attack rolls and armor class.
func (s Size) Modifier() int {
	i := int(s) + 4
	if i < 0 || i >= len(sizeModifiers) {
		return 0
	}
	return sizeModifiers[i]
}

// Class is a character class that grants combat features by level.
type Class uint8

const (
	ClassFighter Class = iota
	ClassBarbarian
	ClassRogue
)

var classNames = [...]string{"fighter", "barbarian", "rogue"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// ParseClass maps a class name to its tag.
func ParseClass(s string) (Class, error) {
	for i, name := range classNames {
		if name == strings.ToLower(s) {
			return Class(i), nil
		}
	}
	return 0, fmt.Errorf("unknown class %q", s)
}
