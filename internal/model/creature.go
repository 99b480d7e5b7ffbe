package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCreatureNotFound is returned by lookups for an unknown id.
	ErrCreatureNotFound = errors.New("creature not found")
	// ErrWeaponNotFound is returned by lookups for an unknown weapon.
	ErrWeaponNotFound = errors.New("weapon not found")
	// ErrNoWeapon means the creature holds nothing in the requested slot.
	ErrNoWeapon = errors.New("no weapon in slot")
)

// CreatureID identifies a creature within one encounter.
type CreatureID uint32

// DRSource is the origin of a damage reduction record. It decides which
// other records it may stack with.
type DRSource uint8

const (
	DRBarbarian DRSource = iota
	DRStalwart
	DRArmor
	DRSpell
	DRInnate
)

var drSourceNames = [...]string{"barbarian", "stalwart", "armor", "spell", "innate"}

func (s DRSource) String() string {
	if int(s) < len(drSourceNames) {
		return drSourceNames[s]
	}
	return "unknown"
}

// ParseDRSource maps a source name to its tag.
func ParseDRSource(s string) (DRSource, error) {
	for i, name := range drSourceNames {
		if name == strings.ToLower(s) {
			return DRSource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown damage reduction source %q", s)
}

// DamageReduction subtracts Amount from every hit of a reduced type.
// BypassTier 0 is DR x/-; otherwise a weapon with at least that
// enhancement defeats it.
type DamageReduction struct {
	Amount     int
	Source     DRSource
	Types      DamageTypeSet
	BypassTier int
}

// Creature is the read-only view combat resolution consumes.
type Creature struct {
	ID         CreatureID
	Name       string
	Team       string
	Size       Size
	Attributes Attributes
	BaseAttack int
	HitPoints  int

	Feats   FeatSet
	Markers MarkerSet
	Levels  map[Class]int

	ArmorBonus   int
	ShieldBonus  int
	NaturalArmor int
	Deflection   int

	DamageReduction []DamageReduction
	Weapons         map[Slot]WeaponID
}

// HasFeat reports whether the creature has f.
func (c *Creature) HasFeat(f Feat) bool { return c.Feats.Has(f) }

// HasMarker reports whether the creature carries m.
func (c *Creature) HasMarker(m Marker) bool { return c.Markers.Has(m) }

// Level returns the creature's level in class, 0 if none.
func (c *Creature) Level(class Class) int {
	return c.Levels[class]
}

// Modifier returns the creature's ability modifier.
func (c *Creature) Modifier(ab Ability) int {
	return c.Attributes.Modifier(ab)
}

// WeaponIn returns the weapon id held in slot.
func (c *Creature) WeaponIn(slot Slot) (WeaponID, error) {
	id, ok := c.Weapons[slot]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %s %s", ErrNoWeapon, c.Name, slot)
	}
	return id, nil
}

// CreatureLookup reads creature data. It must not fail for a valid id.
type CreatureLookup interface {
	Creature(id CreatureID) (*Creature, error)
}

// WeaponLookup reads static weapon stats.
type WeaponLookup interface {
	Weapon(id WeaponID) (*Weapon, error)
}
