package methods

import (
	"math"

	"microbiogeo/domain/distmat"
	"microbiogeo/internal/correlation"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/combin"
)

// BioEnv finds the subsets of environmental variables whose Euclidean
// distances best rank-correlate with the community distances.
type BioEnv struct {
	dm         *distmat.DistanceMatrix
	md         *distmat.MetadataMap
	categories []string
}

// BioEnvRow is the best subset of one size.
type BioEnvRow struct {
	Size      int      `json:"size"`
	Variables []string `json:"variables"`
	Rho       float64  `json:"rho"`
}

// BioEnvResult lists the best subset per size, smallest size first.
type BioEnvResult struct {
	MethodName string      `json:"method_name"`
	Rows       []BioEnvRow `json:"rows"`
}

// NewBioEnv creates a BioEnv analysis over the given numeric categories.
func NewBioEnv(dm *distmat.DistanceMatrix, md *distmat.MetadataMap, categories []string) (*BioEnv, error) {
	if err := validateCategoryInputs(dm, md, categories); err != nil {
		return nil, err
	}
	return &BioEnv{
		dm:         dm,
		md:         md,
		categories: append([]string(nil), categories...),
	}, nil
}

// DistanceMatrices returns the community matrix.
func (b *BioEnv) DistanceMatrices() []*distmat.DistanceMatrix {
	return []*distmat.DistanceMatrix{b.dm}
}

// MetadataMap returns the sample metadata.
func (b *BioEnv) MetadataMap() *distmat.MetadataMap {
	return b.md
}

// Categories returns the candidate variables.
func (b *BioEnv) Categories() []string {
	return append([]string(nil), b.categories...)
}

// Run scores every subset of every size. Ties keep the first subset in
// lexicographic order.
func (b *BioEnv) Run() (*BioEnvResult, error) {
	ids := b.dm.SampleIDs()
	vars := make([][]float64, len(b.categories))
	for v, c := range b.categories {
		values, err := b.md.NumericCategoryValues(ids, c)
		if err != nil {
			return nil, err
		}
		vars[v] = standardize(values)
	}
	community := b.dm.Flatten(true)

	result := &BioEnvResult{MethodName: "BioEnv"}
	for size := 1; size <= len(vars); size++ {
		var best BioEnvRow
		found := false
		for _, subset := range combin.Combinations(len(vars), size) {
			rho, err := correlation.Spearman(community, euclideanLower(vars, subset, len(ids)))
			if err != nil {
				return nil, err
			}
			if !found || rho > best.Rho {
				best = BioEnvRow{Size: size, Variables: b.names(subset), Rho: rho}
				found = true
			}
		}
		result.Rows = append(result.Rows, best)
	}
	return result, nil
}

func (b *BioEnv) names(subset []int) []string {
	out := make([]string, len(subset))
	for i, v := range subset {
		out[i] = b.categories[v]
	}
	return out
}

// standardize centers on the mean and scales by the sample standard
// deviation; a constant variable becomes all zeros.
func standardize(x []float64) []float64 {
	mean, sd := stat.MeanStdDev(x, nil)
	out := make([]float64, len(x))
	if sd == 0 || math.IsNaN(sd) {
		return out
	}
	for i, v := range x {
		out[i] = (v - mean) / sd
	}
	return out
}

// euclideanLower is the lower triangle, in Flatten(true) order, of the
// Euclidean distances over the selected variables.
func euclideanLower(vars [][]float64, subset []int, n int) []float64 {
	out := make([]float64, 0, distmat.NumPairs(n))
	for j := 0; j < n; j++ {
		for i := j + 1; i < n; i++ {
			sum := 0.0
			for _, v := range subset {
				d := vars[v][i] - vars[v][j]
				sum += d * d
			}
			out = append(out, math.Sqrt(sum))
		}
	}
	return out
}

// Best returns the highest-scoring row over all sizes; ties keep the
// smaller subset.
func (r *BioEnvResult) Best() BioEnvRow {
	var best BioEnvRow
	for i, row := range r.Rows {
		if i == 0 || row.Rho > best.Rho {
			best = row
		}
	}
	return best
}

// Summary implements Result. BioEnv runs no permutations, so the p-value
// is nil.
func (r *BioEnvResult) Summary() Summary {
	best := r.Best()
	return Summary{
		MethodName:    r.MethodName,
		StatisticName: "rho",
		Statistic:     best.Rho,
		Auxiliary: map[string]float64{
			"best_size": float64(best.Size),
			"sizes":     float64(len(r.Rows)),
		},
	}
}
