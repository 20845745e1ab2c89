package methods

import (
	"fmt"

	"microbiogeo/domain/core"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/correlation"
	"microbiogeo/internal/permutation"
)

// Mantel tests the correlation between two distance matrices.
type Mantel struct {
	permutationSettings
	dm1, dm2 *distmat.DistanceMatrix
	tail     permutation.Tail
}

// MantelResult is the outcome of a Mantel test.
type MantelResult struct {
	MethodName   string                  `json:"method_name"`
	R            float64                 `json:"r"`
	PValue       *float64                `json:"p_value"`
	Permutations int                     `json:"permutations"`
	Tail         permutation.Tail        `json:"tail"`
	Permuted     []float64               `json:"permuted"`
	Null         permutation.NullSummary `json:"null"`
}

// NewMantel creates a two-sided Mantel test between compatible matrices.
func NewMantel(dm1, dm2 *distmat.DistanceMatrix) (*Mantel, error) {
	if err := validateCorrelationInputs([]*distmat.DistanceMatrix{dm1, dm2}, 2); err != nil {
		return nil, err
	}
	return &Mantel{
		permutationSettings: defaultPermutationSettings(),
		dm1:                 dm1,
		dm2:                 dm2,
		tail:                permutation.TwoSided,
	}, nil
}

// DistanceMatrices returns the two matrices under test.
func (m *Mantel) DistanceMatrices() []*distmat.DistanceMatrix {
	return []*distmat.DistanceMatrix{m.dm1, m.dm2}
}

// Tail returns the configured alternative hypothesis.
func (m *Mantel) Tail() permutation.Tail {
	return m.tail
}

// SetTail sets the alternative hypothesis.
func (m *Mantel) SetTail(t permutation.Tail) error {
	if !t.Valid() {
		return core.NewParameterError("tail", fmt.Sprintf("unknown tail type %q", t))
	}
	m.tail = t
	return nil
}

// Run computes r over the lower triangles and its permutation p-value. Each
// permutation reorders the rows and columns of the second matrix jointly.
func (m *Mantel) Run() (*MantelResult, error) {
	x := m.dm1.Flatten(true)
	out, err := permutation.Run(permutation.Config{
		Size:         m.dm2.Size(),
		Permutations: m.permutations,
		Tail:         m.tail,
		Permuter:     m.permuter,
	}, func(order []int) float64 {
		return correlation.Pearson(x, m.dm2.PermutedLowerTriangle(order))
	})
	if err != nil {
		return nil, err
	}
	return &MantelResult{
		MethodName:   "Mantel",
		R:            out.Observed,
		PValue:       out.PValue,
		Permutations: out.Permutations,
		Tail:         out.Tail,
		Permuted:     out.Permuted,
		Null:         out.Null,
	}, nil
}

// Summary implements Result.
func (r *MantelResult) Summary() Summary {
	return Summary{
		MethodName:    r.MethodName,
		StatisticName: "r",
		Statistic:     r.R,
		PValue:        r.PValue,
		Permutations:  r.Permutations,
	}
}
