package methods

import (
	"math"

	"microbiogeo/domain/distmat"
	"microbiogeo/internal/correlation"
	"microbiogeo/internal/permutation"
)

// degenerateDenominator is the bound below which the partial correlation
// denominator is treated as zero.
const degenerateDenominator = 1e-12

// PartialMantel tests the correlation between a response and a predictor
// matrix while controlling for a covariate matrix.
type PartialMantel struct {
	permutationSettings
	response, predictor, covariate *distmat.DistanceMatrix
}

// PartialMantelResult is the outcome of a partial Mantel test.
type PartialMantelResult struct {
	MethodName   string                  `json:"method_name"`
	R            float64                 `json:"r"`
	PValue       *float64                `json:"p_value"`
	Permutations int                     `json:"permutations"`
	Permuted     []float64               `json:"permuted"`
	Null         permutation.NullSummary `json:"null"`
}

// NewPartialMantel creates a partial Mantel test over three compatible matrices.
func NewPartialMantel(response, predictor, covariate *distmat.DistanceMatrix) (*PartialMantel, error) {
	if err := validateCorrelationInputs([]*distmat.DistanceMatrix{response, predictor, covariate}, 3); err != nil {
		return nil, err
	}
	return &PartialMantel{
		permutationSettings: defaultPermutationSettings(),
		response:            response,
		predictor:           predictor,
		covariate:           covariate,
	}, nil
}

// DistanceMatrices returns the response, predictor and covariate matrices.
func (pm *PartialMantel) DistanceMatrices() []*distmat.DistanceMatrix {
	return []*distmat.DistanceMatrix{pm.response, pm.predictor, pm.covariate}
}

// Run permutes the response matrix; the test is always one-sided (greater).
func (pm *PartialMantel) Run() (*PartialMantelResult, error) {
	y := pm.predictor.Flatten(true)
	z := pm.covariate.Flatten(true)
	ryz := correlation.Pearson(y, z)

	out, err := permutation.Run(permutation.Config{
		Size:         pm.response.Size(),
		Permutations: pm.permutations,
		Tail:         permutation.Greater,
		Permuter:     pm.permuter,
	}, func(order []int) float64 {
		x := pm.response.PermutedLowerTriangle(order)
		return partialCorrelation(correlation.Pearson(x, y), correlation.Pearson(x, z), ryz)
	})
	if err != nil {
		return nil, err
	}
	return &PartialMantelResult{
		MethodName:   "Partial Mantel",
		R:            out.Observed,
		PValue:       out.PValue,
		Permutations: out.Permutations,
		Permuted:     out.Permuted,
		Null:         out.Null,
	}, nil
}

// partialCorrelation is r_xy controlled for z; zero when either pair is
// perfectly collinear with z.
func partialCorrelation(rxy, rxz, ryz float64) float64 {
	den := (1 - rxz*rxz) * (1 - ryz*ryz)
	if den <= degenerateDenominator {
		return 0
	}
	return (rxy - rxz*ryz) / math.Sqrt(den)
}

// Summary implements Result.
func (r *PartialMantelResult) Summary() Summary {
	return Summary{
		MethodName:    r.MethodName,
		StatisticName: "r",
		Statistic:     r.R,
		PValue:        r.PValue,
		Permutations:  r.Permutations,
	}
}
