package modifier

// Producer inspects a resolution scope and emits at most one contribution.
// Returning false means "no bonus"; producers never fail.
type Producer[S any, V Number, C comparable] func(scope S) (Modifier[V, C], bool)

// Collect runs every producer against scope in order and returns the
// contributions they emitted.
func Collect[S any, V Number, C comparable](scope S, producers []Producer[S, V, C]) []Modifier[V, C] {
	out := make([]Modifier[V, C], 0, len(producers))
	for _, p := range producers {
		if m, ok := p(scope); ok {
			out = append(out, m)
		}
	}
	return out
}
