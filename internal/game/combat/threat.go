package combat

import (
	"fmt"

	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// Bounds of a critical threat range on a d20.
const (
	MinThreatLow = 2
	MaxThreat    = 20
)

// ThreatRange is the closed interval [Low, High] of natural d20 results that
// threaten a critical hit.
type ThreatRange struct {
	Low  int
	High int
}

// ThreatRangeFromSize returns the range covering size faces from 20 down.
func ThreatRangeFromSize(size int) ThreatRange {
	low := MaxThreat + 1 - size
	if low < MinThreatLow {
		low = MinThreatLow
	}
	if low > MaxThreat {
		low = MaxThreat
	}
	return ThreatRange{Low: low, High: MaxThreat}
}

// Threatens reports whether a natural roll falls inside the range.
func (r ThreatRange) Threatens(roll int) bool {
	return roll >= r.Low && roll <= r.High
}

// Size returns the number of threatening faces.
func (r ThreatRange) Size() int {
	return r.High - r.Low + 1
}

func (r ThreatRange) String() string {
	if r.Low == r.High {
		return fmt.Sprintf("%d", r.High)
	}
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// Every range contribution shares one non-stackable tag: doubling effects
// never compound, only the widest applies.
var threatRangeDomain = modifier.NewDomain("threat_range", modifier.BonusThreatRange)

// ThreatRangeProducers returns the default threat range rules.
func ThreatRangeProducers() []Producer {
	return []Producer{
		weaponThreat,
		keenThreat,
		improvedCriticalThreat,
	}
}

// ResolveThreatRange takes the widest single contribution as the range size.
func ResolveThreatRange(mods []IntModifier) (ThreatRange, error) {
	best, err := modifier.Aggregate(threatRangeDomain, mods)
	if err != nil {
		return ThreatRange{}, err
	}
	return ThreatRangeFromSize(best), nil
}

func nativeThreat(w *model.Weapon) int {
	if w.ThreatRange < 1 {
		return 1
	}
	return w.ThreatRange
}

func weaponThreat(s *Scope) (IntModifier, bool) {
	return contribute(s, nativeThreat(s.Weapon), modifier.SourceWeapon, modifier.BonusThreatRange)
}

func keenThreat(s *Scope) (IntModifier, bool) {
	if !s.Weapon.Properties.Has(model.PropertyKeen) {
		return none()
	}
	return contribute(s, 2*nativeThreat(s.Weapon), modifier.SourceWeapon, modifier.BonusThreatRange)
}

func improvedCriticalThreat(s *Scope) (IntModifier, bool) {
	if !s.Attacker.HasFeat(model.FeatImprovedCritical) {
		return none()
	}
	return contribute(s, 2*nativeThreat(s.Weapon), modifier.SourceFeat, modifier.BonusThreatRange)
}
