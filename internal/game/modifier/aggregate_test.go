package modifier

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCtx struct {
	attacker, defender uint32
}

var testDomain = NewDomain("test",
	BonusUntyped, BonusBase, BonusAttribute, BonusDodge,
	BonusMorale, BonusSize, BonusEnhancement,
)

func mod(v int, typ BonusType, src Source) Modifier[int, testCtx] {
	return Modifier[int, testCtx]{Value: v, Type: typ, Source: src, Context: testCtx{1, 2}}
}

func TestAggregate_AttackRollTotal(t *testing.T) {
	mods := []Modifier[int, testCtx]{
		mod(3, BonusBase, SourceBaseAttack),
		mod(2, BonusAttribute, SourceStrength),
		mod(1, BonusUntyped, SourceFeat),
	}

	got, err := Aggregate(testDomain, mods)
	require.NoError(t, err)
	assert.Equal(t, 6, got)
}

func TestAggregate_StackablePermutationInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		n := r.IntN(8) + 1
		mods := make([]Modifier[int, testCtx], n)
		want := 0
		for i := range mods {
			v := r.IntN(21) - 10
			want += v
			typ := []BonusType{BonusUntyped, BonusDodge, BonusBase, BonusAttribute}[r.IntN(4)]
			mods[i] = mod(v, typ, SourceFeat)
		}

		got, err := Aggregate(testDomain, mods)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		r.Shuffle(len(mods), func(i, j int) { mods[i], mods[j] = mods[j], mods[i] })
		shuffled, err := Aggregate(testDomain, mods)
		require.NoError(t, err)
		assert.Equal(t, got, shuffled, "order must not matter")
	}
}

func TestAggregate_NonStackableTakesMaximum(t *testing.T) {
	mods := []Modifier[int, testCtx]{
		mod(1, BonusMorale, SourceInspiration),
		mod(2, BonusMorale, SourceRage),
	}
	got, err := Aggregate(testDomain, mods)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	// a weaker contribution never changes the result
	for v := -5; v < 2; v++ {
		with := append(append([]Modifier[int, testCtx]{}, mods...), mod(v, BonusMorale, SourceFeat))
		got, err := Aggregate(testDomain, with)
		require.NoError(t, err)
		assert.Equal(t, 2, got, "adding %d", v)
	}
}

func TestAggregate_NonStackableCategoriesCombine(t *testing.T) {
	mods := []Modifier[int, testCtx]{
		mod(2, BonusMorale, SourceRage),
		mod(1, BonusMorale, SourceInspiration),
		mod(-1, BonusSize, SourceSize),
		mod(3, BonusEnhancement, SourceWeapon),
		mod(1, BonusEnhancement, SourceWeapon),
		mod(4, BonusUntyped, SourceFeat),
		mod(4, BonusUntyped, SourceFeat),
	}

	got, err := Aggregate(testDomain, mods)
	require.NoError(t, err)
	// 8 stackable + morale 2 + size -1 + enhancement 3
	assert.Equal(t, 12, got)
}

func TestAggregate_NegativeNonStackable(t *testing.T) {
	mods := []Modifier[int, testCtx]{
		mod(-2, BonusSize, SourceSize),
		mod(-4, BonusSize, SourceSize),
	}
	got, err := Aggregate(testDomain, mods)
	require.NoError(t, err)
	assert.Equal(t, -2, got)
}

func TestAggregate_EmptyBatch(t *testing.T) {
	_, err := Aggregate[int, testCtx](testDomain, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
	assert.False(t, IsFatal(err))
}

func TestAggregate_CorrelationMismatch(t *testing.T) {
	other := mod(1, BonusUntyped, SourceFeat)
	other.Context = testCtx{1, 3}

	_, err := Aggregate(testDomain, []Modifier[int, testCtx]{mod(1, BonusBase, SourceBase), other})
	require.ErrorIs(t, err, ErrCorrelationMismatch)
	assert.True(t, IsFatal(err))
}

func TestAggregate_ForeignBonusType(t *testing.T) {
	_, err := Aggregate(testDomain, []Modifier[int, testCtx]{mod(1, BonusDeflection, SourceDeflection)})
	require.ErrorIs(t, err, ErrInvariantViolation)
}

func TestReduce_EmptyIsZero(t *testing.T) {
	got, err := Reduce[int, testCtx](testDomain, nil)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestVerify_ReturnsContext(t *testing.T) {
	ctx, err := Verify([]Modifier[int, testCtx]{mod(1, BonusBase, SourceBase), mod(2, BonusUntyped, SourceFeat)})
	require.NoError(t, err)
	assert.Equal(t, testCtx{1, 2}, ctx)
}

func TestCollect_SkipsAbsentContributions(t *testing.T) {
	producers := []Producer[int, int, testCtx]{
		func(s int) (Modifier[int, testCtx], bool) { return mod(s, BonusBase, SourceBase), true },
		func(int) (Modifier[int, testCtx], bool) { return Modifier[int, testCtx]{}, false },
		func(s int) (Modifier[int, testCtx], bool) { return mod(s*2, BonusUntyped, SourceFeat), true },
	}

	got := Collect(5, producers)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Value)
	assert.Equal(t, 10, got[1].Value)
}

func TestBonusType_Rule(t *testing.T) {
	tests := []struct {
		typ  BonusType
		want StackingRule
	}{
		{BonusUntyped, Stackable},
		{BonusDodge, Stackable},
		{BonusCircumstance, Stackable},
		{BonusMorale, NonStackable},
		{BonusEnhancement, NonStackable},
		{BonusThreatRange, NonStackable},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Rule())
		})
	}
}
