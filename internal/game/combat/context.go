// Package combat resolves one attack: attack roll, armor class, critical
// threat range and multiplier, damage and damage reduction.
//
// Resolution is two-phase. Phase 1 runs every producer of every domain
// against a single AttackContext and collects their contributions into a
// Batch. Phase 2 runs the domain aggregators, each of which first verifies
// that all contributions reference that same context.
package combat

import (
	"fmt"

	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// AttackContext identifies one attack resolution. Immutable once created;
// equality is the correlation check.
type AttackContext struct {
	Attacker model.CreatureID
	Defender model.CreatureID
	Slot     model.Slot
}

func (c AttackContext) String() string {
	return fmt.Sprintf("%d->%d/%s", c.Attacker, c.Defender, c.Slot)
}

// IntModifier is a numeric contribution to one attack.
type IntModifier = modifier.Modifier[int, AttackContext]

// Scope is what producers inspect: the context plus the collaborator data
// it references, looked up once per resolution.
type Scope struct {
	Context  AttackContext
	Attacker *model.Creature
	Defender *model.Creature
	Weapon   *model.Weapon
}

// Producer emits at most one numeric contribution for an attack.
type Producer = modifier.Producer[*Scope, int, AttackContext]

func contribute(s *Scope, v int, src modifier.Source, typ modifier.BonusType) (IntModifier, bool) {
	return IntModifier{Value: v, Source: src, Type: typ, Context: s.Context}, true
}

func none() (IntModifier, bool) {
	return IntModifier{}, false
}

// Correlate establishes the single verified context of a batch of
// contributions of any shape. An empty batch yields ErrEmptyBatch; differing
// contexts yield ErrCorrelationMismatch.
func Correlate[T any](items []T, contextOf func(T) AttackContext) (AttackContext, error) {
	if len(items) == 0 {
		return AttackContext{}, modifier.ErrEmptyBatch
	}
	ctx := contextOf(items[0])
	for _, it := range items[1:] {
		if other := contextOf(it); other != ctx {
			return AttackContext{}, fmt.Errorf("%w: %s vs %s", modifier.ErrCorrelationMismatch, other, ctx)
		}
	}
	return ctx, nil
}
