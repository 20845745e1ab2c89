// Package correlation provides tie-corrected ranking and the Pearson and
// Spearman coefficients used by the distance-matrix methods.
package correlation

import (
	"fmt"
	"math"
	"sort"

	"microbiogeo/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Rank converts values to 1-based ranks. Tied values share the mean of the
// ranks they would occupy (mid-rank). The second return value counts the
// tie groups holding more than one value.
func Rank(values []float64) ([]float64, int, error) {
	n := len(values)
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, 0, fmt.Errorf("%w: element %d is NaN", core.ErrNotComparable, i)
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, n)
	ties := 0
	i := 0
	for i < n {
		j := i + 1
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		if j-i > 1 {
			ties++
		}
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[order[k]] = avgRank
		}
		i = j
	}
	return ranks, ties, nil
}

// Pearson returns the product-moment correlation of x and y. When either
// vector has no variance the result is 0. The result is clamped to [-1, 1].
func Pearson(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	if floats.Min(x) == floats.Max(x) || floats.Min(y) == floats.Max(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return clamp(r)
}

// Spearman returns the Pearson correlation of the mid-ranks of x and y.
func Spearman(x, y []float64) (float64, error) {
	if len(x) == 0 || len(y) == 0 {
		return 0, core.NewParameterError("values", "spearman requires non-empty vectors")
	}
	if len(x) != len(y) {
		return 0, core.NewParameterError("values", fmt.Sprintf("spearman requires vectors of equal length, got %d and %d", len(x), len(y)))
	}
	rx, _, err := Rank(x)
	if err != nil {
		return 0, err
	}
	ry, _, err := Rank(y)
	if err != nil {
		return 0, err
	}
	return Pearson(rx, ry), nil
}

func clamp(r float64) float64 {
	if r > 1.0 {
		return 1.0
	}
	if r < -1.0 {
		return -1.0
	}
	return r
}
