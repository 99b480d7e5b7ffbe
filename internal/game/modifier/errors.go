package modifier

import "errors"

var (
	// ErrEmptyBatch is returned when a domain is asked to reduce zero
	// contributions. Every domain emits a base contribution, so callers treat
	// it as "no result for this context".
	ErrEmptyBatch = errors.New("empty modifier batch")

	// ErrCorrelationMismatch means contributions for two different contexts
	// ended up in one batch. Producer/aggregator wiring bug, fatal.
	ErrCorrelationMismatch = errors.New("modifier correlation mismatch")

	// ErrInvariantViolation marks scheduling or wiring bugs upstream, e.g. an
	// attack resolved for a creature that does not hold priority. Fatal.
	ErrInvariantViolation = errors.New("invariant violation")
)

// IsFatal reports whether err must abort the current combat cycle instead of
// being skipped as a missing result.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCorrelationMismatch) || errors.Is(err, ErrInvariantViolation)
}
