package methods

import (
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/permutation"
)

// Permanova is the permutational multivariate analysis of variance on a
// distance matrix.
type Permanova struct {
	*categoryTest
}

// PermanovaResult is the outcome of PERMANOVA.
type PermanovaResult struct {
	MethodName   string                  `json:"method_name"`
	F            float64                 `json:"f_value"`
	PValue       *float64                `json:"p_value"`
	Permutations int                     `json:"permutations"`
	Groups       int                     `json:"groups"`
	Permuted     []float64               `json:"permuted"`
	Null         permutation.NullSummary `json:"null"`
}

// NewPermanova creates a PERMANOVA test of dm grouped by category.
func NewPermanova(dm *distmat.DistanceMatrix, md *distmat.MetadataMap, category string) (*Permanova, error) {
	ct, err := newCategoryTest(dm, md, category)
	if err != nil {
		return nil, err
	}
	return &Permanova{categoryTest: ct}, nil
}

// Run computes the pseudo-F statistic
// F = (SS_A / (g-1)) / (SS_W / (n-g)).
func (p *Permanova) Run() (*PermanovaResult, error) {
	n := p.dm.Size()
	g := p.groups

	squared := make([][]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		squared[i] = make([]float64, i)
		for j := 0; j < i; j++ {
			d := p.dm.At(i, j)
			squared[i][j] = d * d
			total += d * d
		}
	}
	ssTotal := total / float64(n)

	sizes := make([]int, g)
	for _, l := range p.labels {
		sizes[l]++
	}

	out, err := p.run(func(labels []int) float64 {
		within := make([]float64, g)
		for i := 0; i < n; i++ {
			for j := 0; j < i; j++ {
				if labels[i] == labels[j] {
					within[labels[i]] += squared[i][j]
				}
			}
		}
		ssWithin := 0.0
		for l, s := range within {
			ssWithin += s / float64(sizes[l])
		}
		ssAmong := ssTotal - ssWithin
		return (ssAmong / float64(g-1)) / (ssWithin / float64(n-g))
	})
	if err != nil {
		return nil, err
	}
	return &PermanovaResult{
		MethodName:   "PERMANOVA",
		F:            out.Observed,
		PValue:       out.PValue,
		Permutations: out.Permutations,
		Groups:       g,
		Permuted:     out.Permuted,
		Null:         out.Null,
	}, nil
}

// Summary implements Result.
func (r *PermanovaResult) Summary() Summary {
	return Summary{
		MethodName:    r.MethodName,
		StatisticName: "F",
		Statistic:     r.F,
		PValue:        r.PValue,
		Permutations:  r.Permutations,
		Auxiliary:     map[string]float64{"groups": float64(r.Groups)},
	}
}
