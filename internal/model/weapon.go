package model

import (
	"fmt"
	"strings"

	"github.com/udisondev/d20combat/internal/game/dice"
)

// DamageType is a physical damage type that damage reduction can target.
type DamageType uint8

const (
	DamageSlashing DamageType = iota
	DamagePiercing
	DamageBlunt
)

// DamageTypes lists every physical damage type in resolution order.
var DamageTypes = [...]DamageType{DamageSlashing, DamagePiercing, DamageBlunt}

var damageTypeNames = [...]string{"slashing", "piercing", "blunt"}

func (d DamageType) String() string {
	if int(d) < len(damageTypeNames) {
		return damageTypeNames[d]
	}
	return "unknown"
}

// ParseDamageType maps a damage type name to its tag.
func ParseDamageType(s string) (DamageType, error) {
	for i, name := range damageTypeNames {
		if name == strings.ToLower(s) {
			return DamageType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown damage type %q", s)
}

// DamageTypeSet is a bitset of damage types.
type DamageTypeSet uint8

// AllDamageTypes covers slashing, piercing and blunt.
const AllDamageTypes DamageTypeSet = 1<<DamageSlashing | 1<<DamagePiercing | 1<<DamageBlunt

// NewDamageTypeSet builds a set from types.
func NewDamageTypeSet(types ...DamageType) DamageTypeSet {
	var s DamageTypeSet
	for _, t := range types {
		s |= 1 << t
	}
	return s
}

// Has reports whether t is in the set.
func (s DamageTypeSet) Has(t DamageType) bool { return s&(1<<t) != 0 }

// Grip describes how a weapon is wielded.
type Grip uint8

const (
	GripOneHanded Grip = iota
	GripLight
	GripTwoHanded
)

// ParseGrip maps a grip name to its tag. Empty means one-handed.
func ParseGrip(s string) (Grip, error) {
	switch strings.ToLower(s) {
	case "", "one_handed":
		return GripOneHanded, nil
	case "light":
		return GripLight, nil
	case "two_handed":
		return GripTwoHanded, nil
	}
	return 0, fmt.Errorf("unknown grip %q", s)
}

// WeaponProperty is a special property of a weapon.
type WeaponProperty uint8

const (
	PropertyKeen WeaponProperty = iota
	PropertyFlaming
	PropertyFlamingBurst
	PropertyBrutal
)

var propertyNames = [...]string{"keen", "flaming", "flaming_burst", "brutal"}

func (p WeaponProperty) String() string {
	if int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return "unknown"
}

// ParseWeaponProperty maps a property name to its tag.
func ParseWeaponProperty(s string) (WeaponProperty, error) {
	for i, name := range propertyNames {
		if name == strings.ToLower(s) {
			return WeaponProperty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weapon property %q", s)
}

// PropertySet is a bitset of weapon properties.
type PropertySet uint16

// NewPropertySet builds a set from properties.
func NewPropertySet(props ...WeaponProperty) PropertySet {
	var s PropertySet
	for _, p := range props {
		s |= 1 << p
	}
	return s
}

// Has reports whether p is in the set.
func (s PropertySet) Has(p WeaponProperty) bool { return s&(1<<p) != 0 }

// WeaponID references a weapon template.
type WeaponID string

// Weapon holds static weapon stats.
type Weapon struct {
	ID          WeaponID
	Name        string
	Damage      dice.Expr
	ThreatRange int // faces that threaten: 1 = 20, 2 = 19-20, 3 = 18-20
	Multiplier  int // critical multiplier, 2..6
	Types       DamageTypeSet
	Enhancement int
	Grip        Grip
	Properties  PropertySet
}

// Slot is where a creature holds the weapon used for an attack.
type Slot uint8

const (
	SlotMainHand Slot = iota
	SlotOffHand
)

func (s Slot) String() string {
	if s == SlotOffHand {
		return "off_hand"
	}
	return "main_hand"
}
