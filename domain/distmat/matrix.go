package distmat

import (
	"microbiogeo/domain/core"

	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix is a square matrix of pairwise dissimilarities keyed by
// sample ID. Row i and column i refer to the same sample.
type DistanceMatrix struct {
	sampleIDs []string
	data      *mat.Dense
}

// NewDistanceMatrix builds a distance matrix from a label list and a
// square array of values. The inputs are copied.
func NewDistanceMatrix(sampleIDs []string, data [][]float64) (*DistanceMatrix, error) {
	dm := &DistanceMatrix{}
	if err := dm.SetData(sampleIDs, data); err != nil {
		return nil, err
	}
	return dm, nil
}

// SetData replaces the whole matrix. On error the receiver is unchanged.
func (dm *DistanceMatrix) SetData(sampleIDs []string, data [][]float64) error {
	n := len(data)
	if n == 0 {
		return core.NewConstructionError("matrix must be at least 1x1")
	}
	for i, row := range data {
		if len(row) != n {
			return core.NewConstructionError("matrix must be square: row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	if len(sampleIDs) != n {
		return core.NewConstructionError("got %d sample IDs for a %dx%d matrix", len(sampleIDs), n, n)
	}
	seen := make(map[string]struct{}, n)
	for _, id := range sampleIDs {
		if _, dup := seen[id]; dup {
			return core.NewConstructionError("duplicate sample ID %q", id)
		}
		seen[id] = struct{}{}
	}

	flat := make([]float64, 0, n*n)
	for _, row := range data {
		flat = append(flat, row...)
	}

	dm.sampleIDs = append([]string(nil), sampleIDs...)
	dm.data = mat.NewDense(n, n, flat)
	return nil
}

// Size returns the number of rows (and columns).
func (dm *DistanceMatrix) Size() int {
	return len(dm.sampleIDs)
}

// SampleIDs returns a copy of the sample labels in matrix order.
func (dm *DistanceMatrix) SampleIDs() []string {
	return append([]string(nil), dm.sampleIDs...)
}

// At returns the distance between the samples at positions i and j.
func (dm *DistanceMatrix) At(i, j int) float64 {
	return dm.data.At(i, j)
}

// Data returns a deep copy of the matrix values.
func (dm *DistanceMatrix) Data() [][]float64 {
	n := dm.Size()
	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, dm.data)
	}
	return out
}

// Flatten returns the matrix values in a fixed order. With lowerOnly the
// strictly lower triangle is scanned column by column (for column j, rows
// j+1..n-1); otherwise the full matrix is returned row by row, diagonal
// included. Two matrices with the same sample order flatten into
// index-aligned vectors.
func (dm *DistanceMatrix) Flatten(lowerOnly bool) []float64 {
	n := dm.Size()
	if !lowerOnly {
		out := make([]float64, 0, n*n)
		for i := 0; i < n; i++ {
			out = append(out, dm.data.RawRowView(i)...)
		}
		return out
	}
	out := make([]float64, 0, n*(n-1)/2)
	for j := 0; j < n; j++ {
		for i := j + 1; i < n; i++ {
			out = append(out, dm.data.At(i, j))
		}
	}
	return out
}

// PermutedLowerTriangle returns the lower triangle, in Flatten(true) order,
// of the matrix whose rows and columns are both reordered by order:
// m'[i][j] = m[order[i]][order[j]].
func (dm *DistanceMatrix) PermutedLowerTriangle(order []int) []float64 {
	n := dm.Size()
	out := make([]float64, 0, n*(n-1)/2)
	for j := 0; j < n; j++ {
		for i := j + 1; i < n; i++ {
			out = append(out, dm.data.At(order[i], order[j]))
		}
	}
	return out
}

// Compatible reports whether other has the same size and sample order.
func (dm *DistanceMatrix) Compatible(other *DistanceMatrix) bool {
	if other == nil || dm.Size() != other.Size() {
		return false
	}
	for i, id := range dm.sampleIDs {
		if other.sampleIDs[i] != id {
			return false
		}
	}
	return true
}

// Fingerprint hashes the labels and values, for result provenance.
func (dm *DistanceMatrix) Fingerprint() core.Hash {
	return core.HashLabeledValues(dm.sampleIDs, dm.Flatten(false))
}

// NumPairs returns the number of unique off-diagonal pairs, n(n-1)/2.
func NumPairs(n int) int {
	return n * (n - 1) / 2
}
