package combat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/d20combat/internal/game/dice"
	"github.com/udisondev/d20combat/internal/game/modifier"
	"github.com/udisondev/d20combat/internal/model"
)

// PriorityGate tells whether a creature currently holds priority, i.e. is
// the single acting creature allowed to start an attack.
type PriorityGate interface {
	HasPriority(id model.CreatureID) bool
}

// Listener receives one summary per domain per resolved attack.
type Listener interface {
	AttackRollTotal(ctx AttackContext, total int)
	ArmorClassTotal(ctx AttackContext, total int)
	CriticalThreatRange(ctx AttackContext, r ThreatRange)
	CriticalMultiplier(ctx AttackContext, m CriticalMultiplier)
	DamageTotals(ctx AttackContext, t DamageTotals)
	DamageReductionTotals(ctx AttackContext, t DamageReductionTotals)
}

// NopListener ignores every summary. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) AttackRollTotal(AttackContext, int)                         {}
func (NopListener) ArmorClassTotal(AttackContext, int)                         {}
func (NopListener) CriticalThreatRange(AttackContext, ThreatRange)             {}
func (NopListener) CriticalMultiplier(AttackContext, CriticalMultiplier)       {}
func (NopListener) DamageTotals(AttackContext, DamageTotals)                   {}
func (NopListener) DamageReductionTotals(AttackContext, DamageReductionTotals) {}

// Batch holds every contribution produced for one attack context.
type Batch struct {
	Context    AttackContext
	Weapon     *model.Weapon
	AttackRoll []IntModifier
	ArmorClass []IntModifier
	Threat     []IntModifier
	Multiplier []CritModifier
	Damage     []DamageModifier
	Reduction  []DRModifier
}

// Resolution is the outcome of one attack resolution.
type Resolution struct {
	Context     AttackContext
	Weapon      *model.Weapon
	AttackBonus int
	ArmorClass  int
	Threat      ThreatRange
	Multiplier  CriticalMultiplier
	Damage      DamageTotals
	Reduction   DamageReductionTotals
}

// DamageDealt applies the multiplier and the defender's reduction for a hit.
func (r Resolution) DamageDealt(critical bool) (dealt, reduced int) {
	raw := r.Damage.Apply(critical, r.Multiplier)
	reduced = min(r.Reduction.Against(r.Weapon.Types), raw)
	return raw - reduced, reduced
}

// Resolver owns the ordered producer lists of every attack domain and runs
// them in two phases.
type Resolver struct {
	creatures model.CreatureLookup
	weapons   model.WeaponLookup
	roller    dice.Roller
	gate      PriorityGate
	listener  Listener
	strategy  DRStrategy

	attackRoll []Producer
	armorClass []Producer
	threat     []Producer
	multiplier []CritProducer
	damage     []DamageProducer
	reduction  []DRProducer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPriorityGate requires attackers to hold priority.
func WithPriorityGate(g PriorityGate) Option {
	return func(r *Resolver) { r.gate = g }
}

// WithListener publishes summaries to l.
func WithListener(l Listener) Option {
	return func(r *Resolver) { r.listener = l }
}

// WithDRStrategy selects the damage reduction stacking search.
func WithDRStrategy(s DRStrategy) Option {
	return func(r *Resolver) { r.strategy = s }
}

// WithAttackRollProducers appends extra to-hit rules.
func WithAttackRollProducers(p ...Producer) Option {
	return func(r *Resolver) { r.attackRoll = append(r.attackRoll, p...) }
}

// WithArmorClassProducers appends extra defense rules.
func WithArmorClassProducers(p ...Producer) Option {
	return func(r *Resolver) { r.armorClass = append(r.armorClass, p...) }
}

// WithDamageProducers appends extra damage rules.
func WithDamageProducers(p ...DamageProducer) Option {
	return func(r *Resolver) { r.damage = append(r.damage, p...) }
}

// NewResolver creates a Resolver with the default rules.
func NewResolver(creatures model.CreatureLookup, weapons model.WeaponLookup, roller dice.Roller, opts ...Option) *Resolver {
	r := &Resolver{
		creatures:  creatures,
		weapons:    weapons,
		roller:     roller,
		listener:   NopListener{},
		attackRoll: AttackRollProducers(),
		armorClass: ArmorClassProducers(),
		threat:     ThreatRangeProducers(),
		multiplier: CriticalMultiplierProducers(),
		damage:     DamageProducers(),
		reduction:  DamageReductionProducers(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs both phases for ctx. Any failure aborts the whole resolution;
// summaries are published only when every domain succeeded.
func (r *Resolver) Resolve(ctx AttackContext) (Resolution, error) {
	b, err := r.Produce(ctx)
	if err != nil {
		return Resolution{}, err
	}
	res, err := r.Aggregate(b)
	if err != nil {
		return Resolution{}, err
	}
	r.publish(res)

	slog.Debug("attack resolved",
		"ctx", ctx.String(),
		"attack", res.AttackBonus,
		"ac", res.ArmorClass,
		"threat", res.Threat.String(),
		"multiplier", res.Multiplier.String(),
		"damage", res.Damage)
	return res, nil
}

// Produce is phase 1: look up the collaborators once, then run every
// producer of every domain.
func (r *Resolver) Produce(ctx AttackContext) (*Batch, error) {
	if r.gate != nil && !r.gate.HasPriority(ctx.Attacker) {
		return nil, fmt.Errorf("attack %s: %w: attacker does not hold priority", ctx, modifier.ErrInvariantViolation)
	}

	s, err := r.scope(ctx)
	if err != nil {
		return nil, fmt.Errorf("attack %s: %w", ctx, err)
	}

	b := &Batch{
		Context:    ctx,
		Weapon:     s.Weapon,
		AttackRoll: modifier.Collect(s, r.attackRoll),
		ArmorClass: modifier.Collect(s, r.armorClass),
		Threat:     modifier.Collect(s, r.threat),
	}
	for _, p := range r.multiplier {
		if m, ok := p(s); ok {
			b.Multiplier = append(b.Multiplier, m)
		}
	}
	for _, p := range r.damage {
		if m, ok := p(s); ok {
			b.Damage = append(b.Damage, m)
		}
	}
	for _, p := range r.reduction {
		b.Reduction = append(b.Reduction, p(s)...)
	}
	return b, nil
}

// Aggregate is phase 2: every domain verifies and reduces its own
// contributions. Dice are rolled here.
func (r *Resolver) Aggregate(b *Batch) (Resolution, error) {
	if err := b.verify(); err != nil {
		return Resolution{}, fmt.Errorf("attack %s: %w", b.Context, err)
	}

	res := Resolution{Context: b.Context, Weapon: b.Weapon}
	var err error

	if res.AttackBonus, err = ResolveAttackRoll(b.AttackRoll); err != nil {
		return Resolution{}, fmt.Errorf("attack %s: %w", b.Context, err)
	}
	if res.ArmorClass, err = ResolveArmorClass(b.ArmorClass); err != nil {
		return Resolution{}, fmt.Errorf("attack %s: %w", b.Context, err)
	}
	if res.Threat, err = ResolveThreatRange(b.Threat); err != nil {
		return Resolution{}, fmt.Errorf("attack %s: %w", b.Context, err)
	}
	if res.Multiplier, err = ResolveCriticalMultiplier(b.Multiplier); err != nil {
		return Resolution{}, fmt.Errorf("attack %s: %w", b.Context, err)
	}
	if res.Damage, err = ResolveDamage(b.Damage, r.roller); err != nil {
		return Resolution{}, fmt.Errorf("attack %s: %w", b.Context, err)
	}
	if res.Reduction, err = ResolveDamageReduction(b.Reduction, r.strategy); err != nil {
		return Resolution{}, fmt.Errorf("attack %s: %w", b.Context, err)
	}
	return res, nil
}

// verify checks that every domain of the batch was built for b.Context.
// Empty domains are left to their resolver.
func (b *Batch) verify() error {
	return errors.Join(
		belongsTo(b.Context, b.AttackRoll, intContext),
		belongsTo(b.Context, b.ArmorClass, intContext),
		belongsTo(b.Context, b.Threat, intContext),
		belongsTo(b.Context, b.Multiplier, func(m CritModifier) AttackContext { return m.Context }),
		belongsTo(b.Context, b.Damage, func(m DamageModifier) AttackContext { return m.Context }),
		belongsTo(b.Context, b.Reduction, func(m DRModifier) AttackContext { return m.Context }),
	)
}

func intContext(m IntModifier) AttackContext { return m.Context }

func belongsTo[T any](want AttackContext, items []T, contextOf func(T) AttackContext) error {
	got, err := Correlate(items, contextOf)
	switch {
	case errors.Is(err, modifier.ErrEmptyBatch):
		return nil
	case err != nil:
		return err
	case got != want:
		return fmt.Errorf("%w: batch built for %s holds %s", modifier.ErrCorrelationMismatch, want, got)
	}
	return nil
}

func (r *Resolver) scope(ctx AttackContext) (*Scope, error) {
	attacker, err := r.creatures.Creature(ctx.Attacker)
	if err != nil {
		return nil, fmt.Errorf("attacker: %w", err)
	}
	defender, err := r.creatures.Creature(ctx.Defender)
	if err != nil {
		return nil, fmt.Errorf("defender: %w", err)
	}
	wid, err := attacker.WeaponIn(ctx.Slot)
	if err != nil {
		return nil, err
	}
	weapon, err := r.weapons.Weapon(wid)
	if err != nil {
		return nil, fmt.Errorf("weapon %s: %w", wid, err)
	}
	return &Scope{Context: ctx, Attacker: attacker, Defender: defender, Weapon: weapon}, nil
}

func (r *Resolver) publish(res Resolution) {
	r.listener.AttackRollTotal(res.Context, res.AttackBonus)
	r.listener.ArmorClassTotal(res.Context, res.ArmorClass)
	r.listener.CriticalThreatRange(res.Context, res.Threat)
	r.listener.CriticalMultiplier(res.Context, res.Multiplier)
	r.listener.DamageTotals(res.Context, res.Damage)
	r.listener.DamageReductionTotals(res.Context, res.Reduction)
}
