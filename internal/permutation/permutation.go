// Package permutation builds permutation null distributions and derives
// p-values from them.
package permutation

import (
	"fmt"
	"math"
	"math/rand"

	"microbiogeo/domain/core"
	"microbiogeo/ports"
)

// Tail selects which permuted statistics count as at least as extreme as
// the observed one.
type Tail string

const (
	Greater  Tail = "greater"
	Less     Tail = "less"
	TwoSided Tail = "two sided"
)

// ParseTail accepts "greater", "less", "two sided" (also "two-sided" and
// "two_sided").
func ParseTail(s string) (Tail, error) {
	switch s {
	case string(Greater):
		return Greater, nil
	case string(Less):
		return Less, nil
	case string(TwoSided), "two-sided", "two_sided":
		return TwoSided, nil
	}
	return "", core.NewParameterError("tail", fmt.Sprintf("unknown tail type %q", s))
}

// Valid reports whether t is one of the defined tails.
func (t Tail) Valid() bool {
	return t == Greater || t == Less || t == TwoSided
}

// AtLeastAsExtreme reports whether permuted counts against observed.
func (t Tail) AtLeastAsExtreme(permuted, observed float64) bool {
	switch t {
	case Greater:
		return permuted >= observed
	case Less:
		return permuted <= observed
	case TwoSided:
		return math.Abs(permuted) >= math.Abs(observed)
	}
	return false
}

// ValidatePermutations rejects negative permutation counts.
func ValidatePermutations(n int) error {
	if n < 0 {
		return core.NewParameterError("permutations", fmt.Sprintf("must be non-negative, got %d", n))
	}
	return nil
}

// Statistic computes a test statistic for the given ordering of the
// permuted labels. Run calls it once with the identity ordering.
type Statistic func(order []int) float64

// Config describes one permutation test.
type Config struct {
	Size         int // number of labels being permuted
	Permutations int
	Tail         Tail
	Permuter     ports.Permuter
}

// Outcome is the observed statistic and its null distribution.
type Outcome struct {
	Observed     float64     `json:"observed"`
	PValue       *float64    `json:"p_value"`
	Permutations int         `json:"permutations"`
	Tail         Tail        `json:"tail"`
	Permuted     []float64   `json:"permuted"`
	Null         NullSummary `json:"null"`
}

// Run computes the observed statistic and, for cfg.Permutations random
// orderings, the permuted statistics. The p-value is
// (extreme + 1) / (permutations + 1); with zero permutations it is nil.
func Run(cfg Config, statistic Statistic) (*Outcome, error) {
	if err := ValidatePermutations(cfg.Permutations); err != nil {
		return nil, err
	}
	if !cfg.Tail.Valid() {
		return nil, core.NewParameterError("tail", fmt.Sprintf("unknown tail type %q", cfg.Tail))
	}
	if cfg.Permutations > 0 && cfg.Permuter == nil {
		return nil, core.NewParameterError("permuter", "a permutation source is required")
	}

	identity := make([]int, cfg.Size)
	for i := range identity {
		identity[i] = i
	}

	out := &Outcome{
		Observed:     statistic(identity),
		Permutations: cfg.Permutations,
		Tail:         cfg.Tail,
		Permuted:     make([]float64, 0, cfg.Permutations),
	}
	if cfg.Permutations == 0 {
		return out, nil
	}

	extreme := 0
	for i := 0; i < cfg.Permutations; i++ {
		order := cfg.Permuter.Permutation(cfg.Size)
		if len(order) != cfg.Size {
			return nil, fmt.Errorf("permuter returned %d indices for %d labels", len(order), cfg.Size)
		}
		stat := statistic(order)
		out.Permuted = append(out.Permuted, stat)
		if cfg.Tail.AtLeastAsExtreme(stat, out.Observed) {
			extreme++
		}
	}

	p := PValue(extreme, cfg.Permutations)
	out.PValue = &p
	out.Null = Summarize(out.Permuted)
	return out, nil
}

// PValue is (extreme + 1) / (permutations + 1).
func PValue(extreme, permutations int) float64 {
	return float64(extreme+1) / float64(permutations+1)
}

// RandomPermuter draws uniformly random permutations from a math/rand source.
type RandomPermuter struct {
	rng *rand.Rand
}

// NewRandomPermuter wraps rng. A RandomPermuter is not safe for concurrent use.
func NewRandomPermuter(rng *rand.Rand) *RandomPermuter {
	return &RandomPermuter{rng: rng}
}

// NewSeededPermuter is NewRandomPermuter over a fresh source seeded with seed.
func NewSeededPermuter(seed int64) *RandomPermuter {
	return NewRandomPermuter(rand.New(rand.NewSource(seed)))
}

// Permutation returns a random ordering of 0..n-1.
func (p *RandomPermuter) Permutation(n int) []int {
	return p.rng.Perm(n)
}
