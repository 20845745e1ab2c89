package methods_test

import (
	"math"
	"testing"

	"microbiogeo/domain/distmat"
	"microbiogeo/internal/testkit"

	"github.com/stretchr/testify/require"
)

// overviewDOB is the DOB column of the overview mapping, in matrix order.
var overviewDOB = []float64{20061218, 20061218, 20061126, 20070314, 20071210, 20071112, 20080116, 20080116, 20080116}

// dobMatrix is |DOB_i - DOB_j| / 10000 over the overview samples.
func dobMatrix(t *testing.T) *distmat.DistanceMatrix {
	t.Helper()
	return pairwise(t, overviewDOB, func(a, b float64) float64 { return math.Abs(a-b) / 10000 })
}

// treatmentMatrix is 1 between Control and Fast samples, 0 otherwise.
func treatmentMatrix(t *testing.T) *distmat.DistanceMatrix {
	t.Helper()
	fast := []float64{0, 0, 0, 0, 0, 1, 1, 1, 1}
	return pairwise(t, fast, func(a, b float64) float64 {
		if a != b {
			return 1
		}
		return 0
	})
}

func pairwise(t *testing.T, values []float64, dist func(a, b float64) float64) *distmat.DistanceMatrix {
	t.Helper()
	data := make([][]float64, len(values))
	for i := range data {
		data[i] = make([]float64, len(values))
		for j := range data[i] {
			data[i][j] = dist(values[i], values[j])
		}
	}
	dm, err := distmat.NewDistanceMatrix(testkit.OverviewDistanceMatrix().SampleIDs(), data)
	require.NoError(t, err)
	return dm
}

// fourSamples is the smallest grouped fixture: groups {s1, s2} and {s3, s4}
// with within-group distances 1 and 2.
func fourSamples(t *testing.T) (*distmat.DistanceMatrix, *distmat.MetadataMap) {
	t.Helper()
	dm, err := distmat.NewDistanceMatrix([]string{"s1", "s2", "s3", "s4"}, [][]float64{
		{0, 1, 5, 4},
		{1, 0, 6, 3},
		{5, 6, 0, 2},
		{4, 3, 2, 0},
	})
	require.NoError(t, err)
	md := distmat.NewMetadataMap(map[string]map[string]string{
		"s1": {"Group": "A", "Site": "x", "Flat": "f"},
		"s2": {"Group": "A", "Site": "y", "Flat": "f"},
		"s3": {"Group": "B", "Site": "z", "Flat": "f"},
		"s4": {"Group": "B", "Site": "w", "Flat": "f"},
	}, nil)
	return dm, md
}
