package modifier

import "fmt"

// Domain is the closed set of bonus types one resolver accepts.
type Domain struct {
	Name  string
	types uint64
}

// NewDomain creates a domain accepting the given bonus types.
func NewDomain(name string, types ...BonusType) Domain {
	d := Domain{Name: name}
	for _, t := range types {
		d.types |= 1 << t
	}
	return d
}

// Allows reports whether t belongs to the domain.
func (d Domain) Allows(t BonusType) bool {
	return d.types&(1<<t) != 0
}

// Verify checks that the batch is non-empty and that every contribution
// references the same context. It returns the verified context.
func Verify[V Number, C comparable](mods []Modifier[V, C]) (C, error) {
	var zero C
	if len(mods) == 0 {
		return zero, ErrEmptyBatch
	}
	ctx := mods[0].Context
	for i := 1; i < len(mods); i++ {
		if mods[i].Context != ctx {
			return zero, fmt.Errorf("%w: %v (from %s) vs %v",
				ErrCorrelationMismatch, mods[i].Context, mods[i].Source, ctx)
		}
	}
	return ctx, nil
}

// Aggregate verifies the batch and reduces it under the domain's stacking rules.
func Aggregate[V Number, C comparable](d Domain, mods []Modifier[V, C]) (V, error) {
	if _, err := Verify(mods); err != nil {
		return 0, fmt.Errorf("%s: %w", d.Name, err)
	}
	return Reduce(d, mods)
}

// Reduce sums all stackable contributions and adds, for every non-stackable
// tag present, the maximum value of that tag. No correlation check is done;
// callers reduce partitions of a batch they already verified. An empty slice
// reduces to zero.
func Reduce[V Number, C comparable](d Domain, mods []Modifier[V, C]) (V, error) {
	var (
		stackable V
		best      [64]V
		seen      uint64
	)
	for _, m := range mods {
		if !d.Allows(m.Type) {
			return 0, fmt.Errorf("%w: %s does not accept %s bonus from %s",
				ErrInvariantViolation, d.Name, m.Type, m.Source)
		}
		if m.Type.Rule() == Stackable {
			stackable += m.Value
			continue
		}
		bit := uint64(1) << m.Type
		if seen&bit == 0 || m.Value > best[m.Type] {
			best[m.Type] = m.Value
			seen |= bit
		}
	}

	total := stackable
	for t := range best {
		if seen&(1<<t) != 0 {
			total += best[t]
		}
	}
	return total, nil
}
