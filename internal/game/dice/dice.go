// Package dice implements die expressions and the random sources combat
// resolution rolls against.
package dice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Roller is the randomness provider for dice rolls.
type Roller interface {
	// IntN returns a random int in [0, n). n > 0.
	IntN(n int) int
}

// ErrInvalidExpr indicates a die expression could not be parsed.
var ErrInvalidExpr = errors.New("invalid dice expression")

// Expr is Count dice of Sides faces, each adding PerDie, plus Flat.
// Sides == 0 means a flat value with no dice.
type Expr struct {
	Count  int
	Sides  int
	PerDie int
	Flat   int
}

// D returns an expression of count dice with the given sides.
func D(count, sides int) Expr {
	return Expr{Count: count, Sides: sides}
}

// Flat returns a constant expression.
func Flat(n int) Expr {
	return Expr{Flat: n}
}

// IsFlat reports whether the expression rolls no dice.
func (e Expr) IsFlat() bool {
	return e.Count <= 0 || e.Sides <= 0
}

// Roll evaluates the expression against r. Rolling happens every call, so
// repeated evaluation yields independent results.
func (e Expr) Roll(r Roller) int {
	total := e.Flat
	if e.IsFlat() {
		return total
	}
	for range e.Count {
		total += r.IntN(e.Sides) + 1 + e.PerDie
	}
	return total
}

// Min returns the lowest possible result.
func (e Expr) Min() int {
	if e.IsFlat() {
		return e.Flat
	}
	return e.Count*(1+e.PerDie) + e.Flat
}

// Max returns the highest possible result.
func (e Expr) Max() int {
	if e.IsFlat() {
		return e.Flat
	}
	return e.Count*(e.Sides+e.PerDie) + e.Flat
}

func (e Expr) String() string {
	if e.IsFlat() {
		return strconv.Itoa(e.Flat)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dd%d", e.Count, e.Sides)
	if e.PerDie != 0 {
		fmt.Fprintf(&sb, "(%+d)", e.PerDie)
	}
	if e.Flat != 0 {
		fmt.Fprintf(&sb, "%+d", e.Flat)
	}
	return sb.String()
}

// Parse limits.
const (
	MaxCount = 100
	MaxSides = 1000
)

var exprRegex = regexp.MustCompile(`^(\d*)d(\d+)(?:\(([+-]\d+)\))?([+-]\d+)?$`)

// Parse reads "NdS", "NdS+F", "NdS(+P)" (per-die bonus), "NdS(+P)-F" or a
// plain integer.
func Parse(s string) (Expr, error) {
	raw := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if raw == "" {
		return Expr{}, fmt.Errorf("%w: empty", ErrInvalidExpr)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return Flat(n), nil
	}

	m := exprRegex.FindStringSubmatch(raw)
	if m == nil {
		return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpr, s)
	}

	e := Expr{Count: 1}
	fields := []struct {
		raw string
		dst *int
	}{
		{m[1], &e.Count}, {m[2], &e.Sides}, {m[3], &e.PerDie}, {m[4], &e.Flat},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		n, err := strconv.Atoi(f.raw)
		if err != nil {
			return Expr{}, fmt.Errorf("%w: %q: %w", ErrInvalidExpr, s, err)
		}
		*f.dst = n
	}
	if e.Count <= 0 || e.Sides <= 0 {
		return Expr{}, fmt.Errorf("%w: %q needs positive count and sides", ErrInvalidExpr, s)
	}
	if e.Count > MaxCount || e.Sides > MaxSides {
		return Expr{}, fmt.Errorf("%w: %q exceeds %dd%d", ErrInvalidExpr, s, MaxCount, MaxSides)
	}
	return e, nil
}

// D20 rolls a single twenty-sided die.
func D20(r Roller) int {
	return r.IntN(20) + 1
}

// SeedFor derives a ChaCha8 seed from a run key and index, so every run of a
// simulation owns a reproducible, independent stream.
func SeedFor(key string, run int) [32]byte {
	buf := make([]byte, 0, len(key)+8)
	buf = append(buf, key...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(run))
	return blake2b.Sum256(buf)
}

// NewRoller returns a deterministic roller for the given seed.
// Not safe for concurrent use.
func NewRoller(seed [32]byte) *rand.Rand {
	return rand.New(rand.NewChaCha8(seed))
}
