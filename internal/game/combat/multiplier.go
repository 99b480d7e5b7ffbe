package combat

import (
	"fmt"
	"slices"

	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// CriticalMultiplier is the ordinal scale ×2..×6. It never exceeds ×6:
// pushing past the top saturates instead of failing.
type CriticalMultiplier uint8

const (
	X2 CriticalMultiplier = iota + 2
	X3
	X4
	X5
	X6
)

// MultiplierOf clamps n onto the scale.
func MultiplierOf(n int) CriticalMultiplier {
	if n < int(X2) {
		return X2
	}
	if n > int(X6) {
		return X6
	}
	return CriticalMultiplier(n)
}

// Int returns the numeric factor.
func (m CriticalMultiplier) Int() int { return int(m) }

func (m CriticalMultiplier) String() string { return fmt.Sprintf("x%d", m) }

// Increase moves one step up, saturating at ×6.
func (m CriticalMultiplier) Increase() CriticalMultiplier {
	return m.IncreaseBy(1)
}

// IncreaseBy moves steps up, saturating at ×6. Non-positive steps are a no-op.
func (m CriticalMultiplier) IncreaseBy(steps int) CriticalMultiplier {
	if steps <= 0 {
		return m
	}
	return MultiplierOf(int(m) + steps)
}

// IncreaseTo moves one step up but never past limit. A limit at or below
// the current value is a no-op.
func (m CriticalMultiplier) IncreaseTo(limit CriticalMultiplier) CriticalMultiplier {
	if m >= limit {
		return m
	}
	return min(m.Increase(), limit)
}

// CritSource identifies what raises a critical multiplier.
type CritSource uint8

const (
	CritSourceWeapon CritSource = iota
	CritSourcePowerCritical
	CritSourceWeaponMastery
	CritSourceBrutal
	CritSourceDeathblow
)

var critSourceNames = [...]string{"weapon", "power_critical", "weapon_mastery", "brutal", "deathblow"}

func (s CritSource) String() string {
	if int(s) < len(critSourceNames) {
		return critSourceNames[s]
	}
	return "unknown"
}

// Limit returns the cap a limited source may push the multiplier toward.
// Unlimited sources report false.
func (s CritSource) Limit() (CriticalMultiplier, bool) {
	switch s {
	case CritSourcePowerCritical:
		return X4, true
	case CritSourceWeaponMastery:
		return X6, true
	}
	return 0, false
}

// CritModifier is one contribution to the critical multiplier: the weapon
// supplies Base, every other source asks for Steps increases.
type CritModifier struct {
	Source  CritSource
	Base    CriticalMultiplier
	Steps   int
	Context AttackContext
}

// CritProducer emits at most one multiplier contribution.
type CritProducer func(s *Scope) (CritModifier, bool)

// CriticalMultiplierProducers returns the default multiplier rules.
func CriticalMultiplierProducers() []CritProducer {
	return []CritProducer{
		weaponMultiplier,
		featStep(model.FeatPowerCritical, CritSourcePowerCritical),
		featStep(model.FeatWeaponMastery, CritSourceWeaponMastery),
		brutalStep,
		deathblowStep,
	}
}

func weaponMultiplier(s *Scope) (CritModifier, bool) {
	return CritModifier{Source: CritSourceWeapon, Base: MultiplierOf(s.Weapon.Multiplier), Context: s.Context}, true
}

func featStep(f model.Feat, src CritSource) CritProducer {
	return func(s *Scope) (CritModifier, bool) {
		if !s.Attacker.HasFeat(f) {
			return CritModifier{}, false
		}
		return CritModifier{Source: src, Steps: 1, Context: s.Context}, true
	}
}

func brutalStep(s *Scope) (CritModifier, bool) {
	if !s.Weapon.Properties.Has(model.PropertyBrutal) {
		return CritModifier{}, false
	}
	return CritModifier{Source: CritSourceBrutal, Steps: 1, Context: s.Context}, true
}

func deathblowStep(s *Scope) (CritModifier, bool) {
	if !s.Attacker.HasMarker(model.MarkerDeathblow) {
		return CritModifier{}, false
	}
	return CritModifier{Source: CritSourceDeathblow, Steps: 1, Context: s.Context}, true
}

// ResolveCriticalMultiplier folds limited and unlimited increases over the
// weapon's base and merges the two paths.
func ResolveCriticalMultiplier(mods []CritModifier) (CriticalMultiplier, error) {
	if _, err := Correlate(mods, func(m CritModifier) AttackContext { return m.Context }); err != nil {
		return 0, fmt.Errorf("critical_multiplier: %w", err)
	}

	var (
		base     CriticalMultiplier
		hasBase  bool
		limited  []CritModifier
		unlimits []CritModifier
	)
	for _, m := range mods {
		if m.Source == CritSourceWeapon {
			if !hasBase || m.Base > base {
				base = MultiplierOf(int(m.Base))
			}
			hasBase = true
			continue
		}
		if _, ok := m.Source.Limit(); ok {
			limited = append(limited, m)
		} else {
			unlimits = append(unlimits, m)
		}
	}
	if !hasBase {
		return 0, fmt.Errorf("critical_multiplier: %w: no weapon base", modifier.ErrInvariantViolation)
	}

	slices.SortStableFunc(limited, func(a, b CritModifier) int {
		la, _ := a.Source.Limit()
		lb, _ := b.Source.Limit()
		return int(la) - int(lb)
	})
	lim := base
	for _, m := range limited {
		limit, _ := m.Source.Limit()
		for range m.Steps {
			lim = lim.IncreaseTo(limit)
		}
	}

	unl := base
	for _, m := range unlimits {
		unl = unl.IncreaseBy(m.Steps)
	}

	return MergeMultiplier(base, lim, unl), nil
}

// MergeMultiplier combines the limited-path and unlimited-path results.
// When only one path moved off base, its result wins. When both moved, their
// step deltas are added and applied to base, saturating at ×6.
func MergeMultiplier(base, limited, unlimited CriticalMultiplier) CriticalMultiplier {
	switch {
	case limited >= base && unlimited <= base:
		return limited
	case unlimited >= base && limited <= base:
		return unlimited
	}
	return base.IncreaseBy(int(limited-base) + int(unlimited-base))
}
