package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/d20combat/internal/game/dice"
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

var testCtx = AttackContext{Attacker: 1, Defender: 2}

func crit(src CritSource, steps int) CritModifier {
	return CritModifier{Source: src, Steps: steps, Context: testCtx}
}

func critBase(m CriticalMultiplier) CritModifier {
	return CritModifier{Source: CritSourceWeapon, Base: m, Context: testCtx}
}

func TestCriticalMultiplier_Scale(t *testing.T) {
	assert.Equal(t, X2, MultiplierOf(0))
	assert.Equal(t, X6, MultiplierOf(9))
	assert.Equal(t, X6, X5.IncreaseBy(4))
	assert.Equal(t, X3, X3.IncreaseBy(-1))
	assert.Equal(t, X4, X3.IncreaseTo(X4))
	assert.Equal(t, X4, X4.IncreaseTo(X4), "no-op at the limit")
	assert.Equal(t, X5, X5.IncreaseTo(X4), "no-op above the limit")
	assert.Equal(t, "x3", X3.String())
}

func TestResolveCriticalMultiplier_Saturates(t *testing.T) {
	mods := []CritModifier{critBase(X3)}
	for range 10 {
		mods = append(mods, crit(CritSourceBrutal, 1))
	}

	m, err := ResolveCriticalMultiplier(mods)
	require.NoError(t, err)
	assert.Equal(t, X6, m)
}

func TestResolveCriticalMultiplier_Limited(t *testing.T) {
	tests := []struct {
		name string
		mods []CritModifier
		want CriticalMultiplier
	}{
		{
			name: "base only",
			mods: []CritModifier{critBase(X3)},
			want: X3,
		},
		{
			name: "power critical below its limit",
			mods: []CritModifier{critBase(X3), crit(CritSourcePowerCritical, 1)},
			want: X4,
		},
		{
			name: "power critical at its limit",
			mods: []CritModifier{critBase(X4), crit(CritSourcePowerCritical, 1)},
			want: X4,
		},
		{
			name: "lower limit folds first",
			mods: []CritModifier{critBase(X3), crit(CritSourceWeaponMastery, 1), crit(CritSourcePowerCritical, 1)},
			want: X5,
		},
		{
			name: "both paths move",
			mods: []CritModifier{critBase(X2), crit(CritSourcePowerCritical, 1), crit(CritSourceBrutal, 1), crit(CritSourceDeathblow, 1)},
			want: X5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ResolveCriticalMultiplier(tt.mods)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestResolveCriticalMultiplier_Errors(t *testing.T) {
	_, err := ResolveCriticalMultiplier(nil)
	require.ErrorIs(t, err, modifier.ErrEmptyBatch)

	_, err = ResolveCriticalMultiplier([]CritModifier{crit(CritSourceBrutal, 1)})
	require.ErrorIs(t, err, modifier.ErrInvariantViolation)

	other := crit(CritSourceBrutal, 1)
	other.Context.Slot = model.SlotOffHand
	_, err = ResolveCriticalMultiplier([]CritModifier{critBase(X2), other})
	require.ErrorIs(t, err, modifier.ErrCorrelationMismatch)
}

func TestMergeMultiplier(t *testing.T) {
	tests := []struct {
		base, limited, unlimited, want CriticalMultiplier
	}{
		{X2, X2, X2, X2},
		{X2, X3, X2, X3},
		{X2, X2, X4, X4},
		{X2, X3, X4, X5},
		{X4, X6, X6, X6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MergeMultiplier(tt.base, tt.limited, tt.unlimited),
			"merge(%s, %s, %s)", tt.base, tt.limited, tt.unlimited)
	}
}

func TestThreatRange(t *testing.T) {
	assert.Equal(t, ThreatRange{Low: 20, High: 20}, ThreatRangeFromSize(1))
	assert.Equal(t, ThreatRange{Low: 2, High: 20}, ThreatRangeFromSize(40))
	assert.Equal(t, ThreatRange{Low: 20, High: 20}, ThreatRangeFromSize(0))

	r := ThreatRangeFromSize(3)
	assert.Equal(t, "18-20", r.String())
	assert.Equal(t, 3, r.Size())
	assert.True(t, r.Threatens(18))
	assert.False(t, r.Threatens(17))
	assert.Equal(t, "20", ThreatRangeFromSize(1).String())
}

func TestResolveThreatRange_WidestWins(t *testing.T) {
	mods := []IntModifier{
		{Value: 2, Type: modifier.BonusThreatRange, Source: modifier.SourceWeapon, Context: testCtx},
		{Value: 4, Type: modifier.BonusThreatRange, Source: modifier.SourceWeapon, Context: testCtx},
		{Value: 4, Type: modifier.BonusThreatRange, Source: modifier.SourceFeat, Context: testCtx},
	}
	r, err := ResolveThreatRange(mods)
	require.NoError(t, err)
	assert.Equal(t, ThreatRange{Low: 17, High: 20}, r)
}

func TestCanStackWith(t *testing.T) {
	assert.True(t, CanStackWith(model.DRBarbarian, model.DRStalwart))
	assert.True(t, CanStackWith(model.DRStalwart, model.DRBarbarian), "symmetric")
	assert.True(t, CanStackWith(model.DRArmor, model.DRInnate))
	assert.False(t, CanStackWith(model.DRStalwart, model.DRArmor), "not transitive through barbarian")
	assert.False(t, CanStackWith(model.DRSpell, model.DRBarbarian))
	assert.False(t, CanStackWith(model.DRBarbarian, model.DRBarbarian))
}

func TestBarbarianReduction(t *testing.T) {
	for level, want := range map[int]int{1: 0, 6: 0, 7: 1, 9: 1, 10: 2, 16: 4, 19: 5} {
		assert.Equal(t, want, BarbarianReduction(level), "level %d", level)
	}
}

func dr(amount int, src model.DRSource, types model.DamageTypeSet) DRModifier {
	return DRModifier{
		Record:  model.DamageReduction{Amount: amount, Source: src, Types: types},
		Context: testCtx,
	}
}

func TestResolveDamageReduction(t *testing.T) {
	mods := []DRModifier{
		dr(5, model.DRBarbarian, model.AllDamageTypes),
		dr(3, model.DRStalwart, model.AllDamageTypes),
		dr(4, model.DRSpell, model.NewDamageTypeSet(model.DamagePiercing)),
	}
	totals, err := ResolveDamageReduction(mods, DRGreedy)
	require.NoError(t, err)
	assert.Equal(t, DamageReductionTotals{Slashing: 8, Piercing: 8, Blunt: 8}, totals)

	slashing := model.NewDamageTypeSet(model.DamageSlashing)
	assert.Equal(t, 8, totals.Against(slashing))

	// Only the piercing record, and it stacks with nothing.
	totals, err = ResolveDamageReduction(mods[2:], DRGreedy)
	require.NoError(t, err)
	assert.Zero(t, totals.Against(slashing), "unreduced type")
	assert.Equal(t, 4, totals.Against(model.NewDamageTypeSet(model.DamagePiercing)))
	assert.Zero(t, totals.Against(model.NewDamageTypeSet(model.DamagePiercing, model.DamageSlashing)),
		"attacker picks the least reduced type")
}

func TestResolveDamageReduction_EmptyAndMismatch(t *testing.T) {
	totals, err := ResolveDamageReduction(nil, DRExact)
	require.NoError(t, err)
	assert.Equal(t, DamageReductionTotals{}, totals)

	a := dr(2, model.DRArmor, model.AllDamageTypes)
	b := dr(2, model.DRInnate, model.AllDamageTypes)
	b.Context.Defender = 3
	_, err = ResolveDamageReduction([]DRModifier{a, b}, DRGreedy)
	require.ErrorIs(t, err, modifier.ErrCorrelationMismatch)
}

func TestResolveDamageReduction_GreedyVersusExact(t *testing.T) {
	all := model.AllDamageTypes
	mods := []DRModifier{
		dr(1, model.DRArmor, all),
		dr(1, model.DRInnate, all),
		dr(1, model.DRBarbarian, all),
		dr(5, model.DRArmor, all),
		dr(5, model.DRInnate, all),
	}

	greedy, err := ResolveDamageReduction(mods, DRGreedy)
	require.NoError(t, err)
	exact, err := ResolveDamageReduction(mods, DRExact)
	require.NoError(t, err)

	assert.Equal(t, 7, greedy.Slashing, "greedy locks in a weak early record")
	assert.Equal(t, 11, exact.Slashing, "barbarian 1 + armor 5 + innate 5")
	assert.GreaterOrEqual(t, exact.Blunt, greedy.Blunt)
}

func TestParseDRStrategy(t *testing.T) {
	s, err := ParseDRStrategy("")
	require.NoError(t, err)
	assert.Equal(t, DRGreedy, s)

	s, err = ParseDRStrategy("Exact")
	require.NoError(t, err)
	assert.Equal(t, DRExact, s)
	assert.Equal(t, "exact", s.String())

	_, err = ParseDRStrategy("optimal")
	assert.Error(t, err)
}

func TestResolveDamage_Errors(t *testing.T) {
	_, err := ResolveDamage(nil, dice.NewScripted())
	require.ErrorIs(t, err, modifier.ErrEmptyBatch)

	foreign := []DamageModifier{{
		Dice: dice.Flat(2), Type: modifier.BonusLuck, Context: testCtx,
	}}
	_, err = ResolveDamage(foreign, dice.NewScripted())
	require.ErrorIs(t, err, modifier.ErrInvariantViolation)
}

func TestDamageTotals_ApplyMinimum(t *testing.T) {
	tot := DamageTotals{Weapon: 1, MultiplyOnCrit: -3}
	assert.Equal(t, 1, tot.Apply(false, X2))
	assert.Equal(t, 1, tot.Apply(true, X3))
}
