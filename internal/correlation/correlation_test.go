package correlation

import (
	"math"
	"testing"

	"microbiogeo/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected []float64
		ties     int
	}{
		{"pairs of ties", []float64{1, 1, 2, 2}, []float64{1.5, 1.5, 3.5, 3.5}, 2},
		{"already ordered", []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}, 0},
		{"reverse order", []float64{4, 3, 2, 1}, []float64{4, 3, 2, 1}, 0},
		{"triple tie", []float64{5, 2, 5, 5, 1}, []float64{4, 2, 4, 4, 1}, 1},
		{"empty", []float64{}, []float64{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranks, ties, err := Rank(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ranks)
			assert.Equal(t, tt.ties, ties)
		})
	}
}

func TestRank_NaNIsNotComparable(t *testing.T) {
	_, _, err := Rank([]float64{1, math.NaN(), 3})
	assert.ErrorIs(t, err, core.ErrNotComparable)
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, Pearson(x, x), 1e-12)
	assert.InDelta(t, -1.0, Pearson(x, []float64{10, 8, 6, 4, 2}), 1e-12)
	assert.InDelta(t, 0.0, Pearson(x, []float64{2, 1, 0, 1, 2}), 1e-12)

	r := Pearson(x, []float64{2, 4, 5, 4, 5})
	assert.InDelta(t, 0.7745966692414834, r, 1e-12)
}

func TestPearson_ZeroVarianceFallsBackToZero(t *testing.T) {
	constant := []float64{0.1, 0.1, 0.1, 0.1}
	other := []float64{1, 3, 2, 4}

	assert.Equal(t, 0.0, Pearson(constant, other))
	assert.Equal(t, 0.0, Pearson(other, constant))
	assert.Equal(t, 0.0, Pearson(nil, nil))
	assert.Equal(t, 0.0, Pearson([]float64{1, 2}, []float64{1}))
}

func TestPearson_StaysInBounds(t *testing.T) {
	x := []float64{1e-9, 2e-9, 3e-9, 4e-9}
	r := Pearson(x, x)
	assert.LessOrEqual(t, r, 1.0)
	assert.GreaterOrEqual(t, r, -1.0)
}

func TestSpearman(t *testing.T) {
	rho, err := Spearman([]float64{1, 2, 3, 4, 5}, []float64{5, 6, 7, 8, 7})
	require.NoError(t, err)
	assert.InDelta(t, 8/math.Sqrt(95), rho, 1e-12)

	// monotonic but non-linear
	rho, err = Spearman([]float64{1, 2, 3, 4}, []float64{1, 8, 27, 64})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rho, 1e-12)
}

func TestSpearman_InvalidInput(t *testing.T) {
	_, err := Spearman(nil, []float64{1})
	assert.ErrorIs(t, err, core.ErrParameter)

	_, err = Spearman([]float64{1, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, core.ErrParameter)
}
