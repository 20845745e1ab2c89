package methods

import (
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/correlation"
	"microbiogeo/internal/permutation"
)

// categoryTest holds the inputs shared by the grouping tests.
type categoryTest struct {
	permutationSettings
	dm       *distmat.DistanceMatrix
	md       *distmat.MetadataMap
	category string
	labels   []int
	groups   int
}

func newCategoryTest(dm *distmat.DistanceMatrix, md *distmat.MetadataMap, category string) (*categoryTest, error) {
	if err := validateCategoryInputs(dm, md, []string{category}); err != nil {
		return nil, err
	}
	labels, groups, err := groupLabels(dm, md, category)
	if err != nil {
		return nil, err
	}
	if err := requireGroupStructure(category, dm.Size(), groups); err != nil {
		return nil, err
	}
	return &categoryTest{
		permutationSettings: defaultPermutationSettings(),
		dm:                  dm,
		md:                  md,
		category:            category,
		labels:              labels,
		groups:              groups,
	}, nil
}

// DistanceMatrices returns the single matrix under test.
func (t *categoryTest) DistanceMatrices() []*distmat.DistanceMatrix {
	return []*distmat.DistanceMatrix{t.dm}
}

// MetadataMap returns the sample metadata.
func (t *categoryTest) MetadataMap() *distmat.MetadataMap {
	return t.md
}

// Categories returns the grouping category.
func (t *categoryTest) Categories() []string {
	return []string{t.category}
}

// run permutes the group labels among samples; tail is greater.
func (t *categoryTest) run(statistic func(labels []int) float64) (*permutation.Outcome, error) {
	return permutation.Run(permutation.Config{
		Size:         len(t.labels),
		Permutations: t.permutations,
		Tail:         permutation.Greater,
		Permuter:     t.permuter,
	}, func(order []int) float64 {
		return statistic(permute(t.labels, order))
	})
}

// Anosim tests whether distances between groups are larger than within them.
type Anosim struct {
	*categoryTest
}

// AnosimResult is the outcome of ANOSIM.
type AnosimResult struct {
	MethodName   string                  `json:"method_name"`
	R            float64                 `json:"r_value"`
	PValue       *float64                `json:"p_value"`
	Permutations int                     `json:"permutations"`
	Groups       int                     `json:"groups"`
	Permuted     []float64               `json:"permuted"`
	Null         permutation.NullSummary `json:"null"`
}

// NewAnosim creates an ANOSIM test of dm grouped by category.
func NewAnosim(dm *distmat.DistanceMatrix, md *distmat.MetadataMap, category string) (*Anosim, error) {
	ct, err := newCategoryTest(dm, md, category)
	if err != nil {
		return nil, err
	}
	return &Anosim{categoryTest: ct}, nil
}

// Run computes R over the mid-ranked lower triangle.
func (a *Anosim) Run() (*AnosimResult, error) {
	ranks, _, err := correlation.Rank(a.dm.Flatten(true))
	if err != nil {
		return nil, err
	}
	n := a.dm.Size()
	scale := float64(n*(n-1)) / 4

	out, err := a.run(func(labels []int) float64 {
		var within, between float64
		var nWithin, nBetween int
		k := 0
		for j := 0; j < n; j++ {
			for i := j + 1; i < n; i++ {
				if labels[i] == labels[j] {
					within += ranks[k]
					nWithin++
				} else {
					between += ranks[k]
					nBetween++
				}
				k++
			}
		}
		return (between/float64(nBetween) - within/float64(nWithin)) / scale
	})
	if err != nil {
		return nil, err
	}
	return &AnosimResult{
		MethodName:   "ANOSIM",
		R:            out.Observed,
		PValue:       out.PValue,
		Permutations: out.Permutations,
		Groups:       a.groups,
		Permuted:     out.Permuted,
		Null:         out.Null,
	}, nil
}

// Summary implements Result.
func (r *AnosimResult) Summary() Summary {
	return Summary{
		MethodName:    r.MethodName,
		StatisticName: "R",
		Statistic:     r.R,
		PValue:        r.PValue,
		Permutations:  r.Permutations,
		Auxiliary:     map[string]float64{"groups": float64(r.Groups)},
	}
}
