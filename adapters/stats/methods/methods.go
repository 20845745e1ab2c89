// Package methods implements the distance-matrix statistical methods:
// Mantel, partial Mantel, Mantel correlogram, ANOSIM, PERMANOVA, Moran's I
// and BioEnv. Each method validates its inputs at construction, exposes
// validated setters for its parameters, and computes on Run.
package methods

import (
	"fmt"

	"microbiogeo/domain/core"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/permutation"
	"microbiogeo/ports"
)

// DefaultPermutations is the permutation count a method starts with.
const DefaultPermutations = 999

// DefaultSeed seeds the permuter a method starts with.
const DefaultSeed int64 = 42

// Summary is the uniform record every method result reports.
type Summary struct {
	MethodName    string             `json:"method_name"`
	StatisticName string             `json:"statistic_name"`
	Statistic     float64            `json:"statistic"`
	PValue        *float64           `json:"p_value"`
	Permutations  int                `json:"permutations"`
	Auxiliary     map[string]float64 `json:"auxiliary,omitempty"`
}

// Result is implemented by every method result.
type Result interface {
	Summary() Summary
}

// MatrixHolder is implemented by methods that operate on distance matrices.
type MatrixHolder interface {
	DistanceMatrices() []*distmat.DistanceMatrix
}

// CategoryHolder is implemented by methods that compare one matrix against
// metadata categories.
type CategoryHolder interface {
	MatrixHolder
	MetadataMap() *distmat.MetadataMap
	Categories() []string
}

// validateCorrelationInputs requires want non-nil matrices that all share
// size and sample ID order.
func validateCorrelationInputs(dms []*distmat.DistanceMatrix, want int) error {
	if len(dms) != want {
		return core.NewParameterError("distance_matrices", fmt.Sprintf("expected %d matrices, got %d", want, len(dms)))
	}
	for i, dm := range dms {
		if dm == nil {
			return core.NewParameterError("distance_matrices", fmt.Sprintf("matrix %d is nil", i))
		}
	}
	for i := 1; i < len(dms); i++ {
		if !dms[0].Compatible(dms[i]) {
			return core.NewCompatibilityError("matrix %d (%d samples) does not match matrix 0 (%d samples) in size or sample order",
				i, dms[i].Size(), dms[0].Size())
		}
	}
	return nil
}

// validateCategoryInputs requires a matrix whose samples are all in the
// metadata map and categories every sample carries.
func validateCategoryInputs(dm *distmat.DistanceMatrix, md *distmat.MetadataMap, categories []string) error {
	if dm == nil {
		return core.NewParameterError("distance_matrix", "matrix is nil")
	}
	if md == nil {
		return core.NewParameterError("metadata_map", "metadata map is nil")
	}
	if len(categories) == 0 {
		return core.NewParameterError("categories", "at least one category is required")
	}
	for _, id := range dm.SampleIDs() {
		if !md.HasSample(id) {
			return core.NewCompatibilityError("sample %q of the distance matrix is not in the metadata map", id)
		}
	}
	for _, c := range categories {
		if !md.HasCategory(c) {
			return core.NewParameterError("categories", fmt.Sprintf("category %q is not present for every sample", c))
		}
	}
	return nil
}

// permutationSettings is embedded by every permutation-based method.
type permutationSettings struct {
	permutations int
	permuter     ports.Permuter
}

func defaultPermutationSettings() permutationSettings {
	return permutationSettings{
		permutations: DefaultPermutations,
		permuter:     permutation.NewSeededPermuter(DefaultSeed),
	}
}

// Permutations returns the configured permutation count.
func (s *permutationSettings) Permutations() int {
	return s.permutations
}

// SetPermutations sets the permutation count; negative counts are rejected.
func (s *permutationSettings) SetPermutations(n int) error {
	if err := permutation.ValidatePermutations(n); err != nil {
		return err
	}
	s.permutations = n
	return nil
}

// SetPermuter replaces the permutation source.
func (s *permutationSettings) SetPermuter(p ports.Permuter) error {
	if p == nil {
		return core.NewParameterError("permuter", "a permutation source is required")
	}
	s.permuter = p
	return nil
}

// groupLabels maps each sample's category value to a dense group index in
// first-seen order.
func groupLabels(dm *distmat.DistanceMatrix, md *distmat.MetadataMap, category string) ([]int, int, error) {
	values, err := md.CategoryValues(dm.SampleIDs(), category)
	if err != nil {
		return nil, 0, err
	}
	index := make(map[string]int)
	labels := make([]int, len(values))
	for i, v := range values {
		g, ok := index[v]
		if !ok {
			g = len(index)
			index[v] = g
		}
		labels[i] = g
	}
	return labels, len(index), nil
}

// requireGroupStructure rejects groupings with no within-group pairs (all
// values distinct) or no between-group pairs (all values equal).
func requireGroupStructure(category string, n, groups int) error {
	if groups == 1 {
		return core.NewParameterError("category", fmt.Sprintf("all values of %q are identical", category))
	}
	if groups == n {
		return core.NewParameterError("category", fmt.Sprintf("all values of %q are unique", category))
	}
	return nil
}

// permute returns labels reordered so position j holds labels[order[j]].
func permute(labels []int, order []int) []int {
	out := make([]int, len(labels))
	for j, o := range order {
		out[j] = labels[o]
	}
	return out
}

func float64Ptr(v float64) *float64 {
	return &v
}
