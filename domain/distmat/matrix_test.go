package distmat

import (
	"testing"

	"microbiogeo/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeByThree(t *testing.T) *DistanceMatrix {
	t.Helper()
	dm, err := NewDistanceMatrix([]string{"s1", "s2", "s3"}, [][]float64{
		{0, 1, 2},
		{1, 0, 3},
		{2, 3, 0},
	})
	require.NoError(t, err)
	return dm
}

func TestNewDistanceMatrix_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		data [][]float64
	}{
		{"empty", nil, nil},
		{"non-square", []string{"a", "b"}, [][]float64{{0, 1, 2}, {1, 0, 3}}},
		{"ragged", []string{"a", "b"}, [][]float64{{0, 1}, {1}}},
		{"too few labels", []string{"a"}, [][]float64{{0, 1}, {1, 0}}},
		{"too many labels", []string{"a", "b", "c"}, [][]float64{{0, 1}, {1, 0}}},
		{"duplicate labels", []string{"a", "a"}, [][]float64{{0, 1}, {1, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm, err := NewDistanceMatrix(tt.ids, tt.data)
			assert.Nil(t, dm)
			assert.ErrorIs(t, err, core.ErrConstruction)
		})
	}
}

func TestNewDistanceMatrix_SingleElement(t *testing.T) {
	dm, err := NewDistanceMatrix([]string{"s1"}, [][]float64{{0}})
	require.NoError(t, err)
	assert.Equal(t, 1, dm.Size())
	assert.Empty(t, dm.Flatten(true))
	assert.Equal(t, []float64{0}, dm.Flatten(false))
}

func TestDistanceMatrix_InputsAreCopied(t *testing.T) {
	ids := []string{"s1", "s2"}
	data := [][]float64{{0, 4}, {4, 0}}
	dm, err := NewDistanceMatrix(ids, data)
	require.NoError(t, err)

	ids[0] = "changed"
	data[0][1] = 99

	assert.Equal(t, []string{"s1", "s2"}, dm.SampleIDs())
	assert.Equal(t, 4.0, dm.At(0, 1))

	out := dm.Data()
	out[1][0] = -1
	assert.Equal(t, 4.0, dm.At(1, 0))
}

func TestDistanceMatrix_Flatten(t *testing.T) {
	dm, err := NewDistanceMatrix([]string{"a", "b", "c", "d"}, [][]float64{
		{0, 1, 2, 3},
		{1, 0, 4, 5},
		{2, 4, 0, 6},
		{3, 5, 6, 0},
	})
	require.NoError(t, err)

	lower := dm.Flatten(true)
	assert.Len(t, lower, NumPairs(4))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, lower)

	full := dm.Flatten(false)
	assert.Len(t, full, 16)
	assert.Equal(t, []float64{0, 1, 2, 3}, full[:4])
	assert.Equal(t, []float64{3, 5, 6, 0}, full[12:])
}

func TestDistanceMatrix_FlattenAlignsAcrossMatrices(t *testing.T) {
	ids := []string{"a", "b", "c"}
	x, err := NewDistanceMatrix(ids, [][]float64{{0, 1, 2}, {1, 0, 3}, {2, 3, 0}})
	require.NoError(t, err)
	y, err := NewDistanceMatrix(ids, [][]float64{{0, 10, 20}, {10, 0, 30}, {20, 30, 0}})
	require.NoError(t, err)

	xs, ys := x.Flatten(true), y.Flatten(true)
	require.Len(t, ys, len(xs))
	for i := range xs {
		assert.Equal(t, xs[i]*10, ys[i], "element %d misaligned", i)
	}
}

func TestDistanceMatrix_PermutedLowerTriangle(t *testing.T) {
	dm := threeByThree(t)

	assert.Equal(t, dm.Flatten(true), dm.PermutedLowerTriangle([]int{0, 1, 2}))

	// swapping samples 0 and 2: m'[1][0]=m[1][2]=3, m'[2][0]=m[0][2]=2, m'[2][1]=m[0][1]=1
	assert.Equal(t, []float64{3, 2, 1}, dm.PermutedLowerTriangle([]int{2, 1, 0}))
}

func TestDistanceMatrix_SetData(t *testing.T) {
	dm := threeByThree(t)

	err := dm.SetData([]string{"x"}, [][]float64{{0, 1}})
	assert.ErrorIs(t, err, core.ErrConstruction)
	assert.Equal(t, 3, dm.Size(), "failed SetData must leave the matrix unchanged")

	require.NoError(t, dm.SetData([]string{"x", "y"}, [][]float64{{0, 7}, {7, 0}}))
	assert.Equal(t, []string{"x", "y"}, dm.SampleIDs())
	assert.Equal(t, []float64{7}, dm.Flatten(true))
}

func TestDistanceMatrix_Compatible(t *testing.T) {
	a := threeByThree(t)
	b := threeByThree(t)
	assert.True(t, a.Compatible(b))

	reordered, err := NewDistanceMatrix([]string{"s2", "s1", "s3"}, a.Data())
	require.NoError(t, err)
	assert.False(t, a.Compatible(reordered))

	small, err := NewDistanceMatrix([]string{"s1"}, [][]float64{{0}})
	require.NoError(t, err)
	assert.False(t, a.Compatible(small))
	assert.False(t, a.Compatible(nil))
}

func TestDistanceMatrix_Fingerprint(t *testing.T) {
	a := threeByThree(t)
	b := threeByThree(t)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	require.NoError(t, b.SetData(b.SampleIDs(), [][]float64{{0, 1, 2}, {1, 0, 4}, {2, 4, 0}}))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
