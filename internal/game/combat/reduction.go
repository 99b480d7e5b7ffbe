package combat

import (
	"fmt"
	"strings"

	"github.com/udisondev/d20combat/internal/model"
)

// DRStrategy selects how compatible damage reduction records are combined.
type DRStrategy uint8

const (
	// DRGreedy grows, for every candidate record, one subset of records that
	// pairwise stack with each other, and keeps the best subset sum. Local
	// search only.
	DRGreedy DRStrategy = iota
	// DRExact finds the maximum-weight subset of pairwise compatible records.
	DRExact
)

func (s DRStrategy) String() string {
	if s == DRExact {
		return "exact"
	}
	return "greedy"
}

// ParseDRStrategy maps a strategy name. Empty means greedy.
func ParseDRStrategy(s string) (DRStrategy, error) {
	switch strings.ToLower(s) {
	case "", "greedy":
		return DRGreedy, nil
	case "exact":
		return DRExact, nil
	}
	return 0, fmt.Errorf("unknown damage reduction strategy %q", s)
}

// drPair is an unordered pair of sources, smaller first.
type drPair [2]model.DRSource

// drStacking lists the pairs of sources whose reductions add up.
// Absent pairs, including a source with itself, do not stack.
var drStacking = map[drPair]bool{
	{model.DRBarbarian, model.DRStalwart}: true,
	{model.DRBarbarian, model.DRArmor}:    true,
	{model.DRBarbarian, model.DRInnate}:   true,
	{model.DRArmor, model.DRInnate}:       true,
}

// CanStackWith reports whether reductions from a and b add up. The relation
// is symmetric but not transitive.
func CanStackWith(a, b model.DRSource) bool {
	if a > b {
		a, b = b, a
	}
	return drStacking[drPair{a, b}]
}

// DRModifier is one damage reduction record applicable to an attack.
type DRModifier struct {
	Record  model.DamageReduction
	Context AttackContext
}

// DRProducer emits the damage reduction records one rule grants for an
// attack. Unlike the numeric producers it may emit several, one per record.
type DRProducer func(s *Scope) []DRModifier

// DamageReductionTotals is the reduction applied to each damage type.
type DamageReductionTotals struct {
	Slashing int
	Piercing int
	Blunt    int
}

// For returns the reduction against one damage type.
func (t DamageReductionTotals) For(dt model.DamageType) int {
	switch dt {
	case model.DamageSlashing:
		return t.Slashing
	case model.DamagePiercing:
		return t.Piercing
	case model.DamageBlunt:
		return t.Blunt
	}
	return 0
}

func (t *DamageReductionTotals) set(dt model.DamageType, v int) {
	switch dt {
	case model.DamageSlashing:
		t.Slashing = v
	case model.DamagePiercing:
		t.Piercing = v
	case model.DamageBlunt:
		t.Blunt = v
	}
}

// Against returns the reduction a weapon dealing any of types faces: the
// attacker picks the type reduced least. No types means no reduction.
func (t DamageReductionTotals) Against(types model.DamageTypeSet) int {
	best := -1
	for _, dt := range model.DamageTypes {
		if !types.Has(dt) {
			continue
		}
		if v := t.For(dt); best < 0 || v < best {
			best = v
		}
	}
	return max(best, 0)
}

// DamageReductionProducers returns the default reduction rules.
func DamageReductionProducers() []DRProducer {
	return []DRProducer{
		listedReduction,
		barbarianReduction,
		stalwartReduction,
	}
}

// bypassed reports whether the attacking weapon defeats the record.
func bypassed(s *Scope, r model.DamageReduction) bool {
	return r.BypassTier > 0 && s.Weapon.Enhancement >= r.BypassTier
}

func reductionFor(s *Scope, r model.DamageReduction) []DRModifier {
	if r.Amount <= 0 || bypassed(s, r) {
		return nil
	}
	return []DRModifier{{Record: r, Context: s.Context}}
}

func listedReduction(s *Scope) []DRModifier {
	var out []DRModifier
	for _, r := range s.Defender.DamageReduction {
		out = append(out, reductionFor(s, r)...)
	}
	return out
}

// BarbarianReduction returns the DR x/- a barbarian has at level: 1 at 7th
// and one more every three levels after.
func BarbarianReduction(level int) int {
	if level < 7 {
		return 0
	}
	return 1 + (level-7)/3
}

func barbarianReduction(s *Scope) []DRModifier {
	amount := BarbarianReduction(s.Defender.Level(model.ClassBarbarian))
	return reductionFor(s, model.DamageReduction{Amount: amount, Source: model.DRBarbarian, Types: model.AllDamageTypes})
}

// StalwartReduction is the DR x/- granted by the Stalwart feat.
const StalwartReduction = 3

func stalwartReduction(s *Scope) []DRModifier {
	if !s.Defender.HasFeat(model.FeatStalwart) {
		return nil
	}
	return reductionFor(s, model.DamageReduction{Amount: StalwartReduction, Source: model.DRStalwart, Types: model.AllDamageTypes})
}

// ResolveDamageReduction computes the reduction per damage type. An empty
// batch is valid: the defender simply has no reduction.
func ResolveDamageReduction(mods []DRModifier, strategy DRStrategy) (DamageReductionTotals, error) {
	var totals DamageReductionTotals
	if len(mods) == 0 {
		return totals, nil
	}
	if _, err := Correlate(mods, func(m DRModifier) AttackContext { return m.Context }); err != nil {
		return totals, fmt.Errorf("damage_reduction: %w", err)
	}

	for _, dt := range model.DamageTypes {
		var records []model.DamageReduction
		for _, m := range mods {
			if m.Record.Types.Has(dt) {
				records = append(records, m.Record)
			}
		}
		if strategy == DRExact {
			totals.set(dt, exactReduction(records))
		} else {
			totals.set(dt, greedyReduction(records))
		}
	}
	return totals, nil
}

// greedyReduction starts from each candidate in turn and adds, in batch
// order, every other record that stacks with all records chosen so far.
func greedyReduction(records []model.DamageReduction) int {
	best := 0
	for i, cand := range records {
		chosen := []model.DamageReduction{cand}
		sum := cand.Amount
		for j, other := range records {
			if j == i {
				continue
			}
			if stacksWithAll(other, chosen) {
				chosen = append(chosen, other)
				sum += other.Amount
			}
		}
		best = max(best, sum)
	}
	return best
}

func stacksWithAll(r model.DamageReduction, chosen []model.DamageReduction) bool {
	for _, c := range chosen {
		if !CanStackWith(r.Source, c.Source) {
			return false
		}
	}
	return true
}

// exactReduction is a maximum-weight clique search over the compatibility
// graph of records. Record counts per creature are tiny.
func exactReduction(records []model.DamageReduction) int {
	var (
		best   int
		chosen []model.DamageReduction
		search func(i, sum int)
	)
	search = func(i, sum int) {
		if i == len(records) {
			best = max(best, sum)
			return
		}
		r := records[i]
		if stacksWithAll(r, chosen) {
			chosen = append(chosen, r)
			search(i+1, sum+r.Amount)
			chosen = chosen[:len(chosen)-1]
		}
		search(i+1, sum)
	}
	search(0, 0)
	return best
}
