package methods

import (
	"fmt"
	"math"

	"microbiogeo/domain/core"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/correlation"
	"microbiogeo/internal/permutation"

	"gonum.org/v1/gonum/floats"
)

// DefaultAlpha is the correlogram's default significance threshold.
const DefaultAlpha = 0.05

const machineEpsilon = 2.220446049250313e-16

// MantelCorrelogram runs one Mantel test per geographic distance class.
type MantelCorrelogram struct {
	permutationSettings
	ecological, geographic *distmat.DistanceMatrix
	alpha                  float64
}

// CorrelogramClass is the outcome for one distance class. MantelR, PValue
// and CorrectedPValue are nil when the class was skipped.
type CorrelogramClass struct {
	ClassIndex      float64  `json:"class_index"`
	NumDistances    int      `json:"num_dist"`
	MantelR         *float64 `json:"mantel_r"`
	PValue          *float64 `json:"mantel_p"`
	CorrectedPValue *float64 `json:"mantel_p_corr"`
}

// CorrelogramPoint is one renderable point of a correlogram.
type CorrelogramPoint struct {
	ClassIndex      float64  `json:"class_index"`
	Statistic       float64  `json:"statistic"`
	CorrectedPValue *float64 `json:"corrected_p_value"`
	Significant     bool     `json:"significant"`
}

// MantelCorrelogramResult is the outcome of a Mantel correlogram.
type MantelCorrelogramResult struct {
	MethodName   string             `json:"method_name"`
	Classes      []CorrelogramClass `json:"classes"`
	Permutations int                `json:"permutations"`
	Alpha        float64            `json:"alpha"`
}

// NewMantelCorrelogram creates a correlogram of the ecological matrix across
// distance classes of the geographic matrix. At least 3 samples are needed.
func NewMantelCorrelogram(ecological, geographic *distmat.DistanceMatrix) (*MantelCorrelogram, error) {
	if err := validateCorrelationInputs([]*distmat.DistanceMatrix{ecological, geographic}, 2); err != nil {
		return nil, err
	}
	if ecological.Size() < 3 {
		return nil, core.NewParameterError("distance_matrices", fmt.Sprintf("a correlogram needs at least 3 samples, got %d", ecological.Size()))
	}
	return &MantelCorrelogram{
		permutationSettings: defaultPermutationSettings(),
		ecological:          ecological,
		geographic:          geographic,
		alpha:               DefaultAlpha,
	}, nil
}

// DistanceMatrices returns the ecological and geographic matrices.
func (mc *MantelCorrelogram) DistanceMatrices() []*distmat.DistanceMatrix {
	return []*distmat.DistanceMatrix{mc.ecological, mc.geographic}
}

// Alpha returns the significance threshold.
func (mc *MantelCorrelogram) Alpha() float64 {
	return mc.alpha
}

// SetAlpha sets the significance threshold, which must lie in [0, 1].
func (mc *MantelCorrelogram) SetAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return core.NewParameterError("alpha", fmt.Sprintf("must be in [0, 1], got %v", alpha))
	}
	mc.alpha = alpha
	return nil
}

// Run tests every distance class and applies the Bonferroni correction.
func (mc *MantelCorrelogram) Run() (*MantelCorrelogramResult, error) {
	n := mc.geographic.Size()
	k := SturgesClassCount(n)

	classes, indices, err := DistanceClasses(mc.geographic, k)
	if err != nil {
		return nil, err
	}
	eco := mc.ecological.Flatten(true)

	result := &MantelCorrelogramResult{
		MethodName:   "Mantel Correlogram",
		Classes:      make([]CorrelogramClass, k),
		Permutations: mc.permutations,
		Alpha:        mc.alpha,
	}

	tested := 0
	for c := 0; c < k; c++ {
		model, pairs, emptyRow := modelMatrix(classes, c)
		class := &result.Classes[c]
		class.ClassIndex = indices[c]
		class.NumDistances = pairs

		if pairs == 0 || (c+1 > k/2 && emptyRow) {
			continue
		}

		modelDM, err := distmat.NewDistanceMatrix(mc.geographic.SampleIDs(), model)
		if err != nil {
			return nil, err
		}
		r, p, err := mc.classTest(eco, modelDM)
		if err != nil {
			return nil, fmt.Errorf("distance class %d: %w", c, err)
		}
		class.MantelR = float64Ptr(r)
		class.PValue = p
		tested++
	}

	for i := range result.Classes {
		if p := result.Classes[i].PValue; p != nil {
			result.Classes[i].CorrectedPValue = float64Ptr(math.Min(*p*float64(tested), 1))
		}
	}
	return result, nil
}

// classTest runs the Mantel test of one class model against the ecological
// lower triangle. The tail follows the sign of the raw correlation and the
// reported r is negated, so closer classes with more similar communities
// report positive values.
func (mc *MantelCorrelogram) classTest(eco []float64, model *distmat.DistanceMatrix) (float64, *float64, error) {
	raw := correlation.Pearson(eco, model.Flatten(true))
	tail := permutation.Less
	if raw > 0 {
		tail = permutation.Greater
	}
	out, err := permutation.Run(permutation.Config{
		Size:         model.Size(),
		Permutations: mc.permutations,
		Tail:         tail,
		Permuter:     mc.permuter,
	}, func(order []int) float64 {
		return correlation.Pearson(eco, model.PermutedLowerTriangle(order))
	})
	if err != nil {
		return 0, nil, err
	}
	return -out.Observed, out.PValue, nil
}

// modelMatrix marks the pairs that fall into class c. It returns the
// number of marked entries over the full matrix and whether any row has no
// marked entry.
func modelMatrix(classes [][]int, c int) ([][]float64, int, bool) {
	model := make([][]float64, len(classes))
	pairs := 0
	emptyRow := false
	for i, row := range classes {
		model[i] = make([]float64, len(row))
		for j, cls := range row {
			if cls == c {
				model[i][j] = 1
			}
		}
		rowSum := floats.Sum(model[i])
		if rowSum == 0 {
			emptyRow = true
		}
		pairs += int(rowSum)
	}
	return model, pairs, emptyRow
}

// Points returns the (class index, statistic, corrected p-value) triples
// of the tested classes for rendering. A point is significant when its
// corrected p-value is at most alpha.
func (r *MantelCorrelogramResult) Points() []CorrelogramPoint {
	var points []CorrelogramPoint
	for _, c := range r.Classes {
		if c.MantelR == nil {
			continue
		}
		pt := CorrelogramPoint{ClassIndex: c.ClassIndex, Statistic: *c.MantelR, CorrectedPValue: c.CorrectedPValue}
		if c.CorrectedPValue != nil {
			pt.Significant = *c.CorrectedPValue <= r.Alpha
		}
		points = append(points, pt)
	}
	return points
}

// Summary implements Result. The statistic and p-value are those of the
// first tested class (zero and nil when none was tested).
func (r *MantelCorrelogramResult) Summary() Summary {
	s := Summary{
		MethodName:    r.MethodName,
		StatisticName: "r",
		Permutations:  r.Permutations,
		Auxiliary: map[string]float64{
			"classes": float64(len(r.Classes)),
			"alpha":   r.Alpha,
		},
	}
	tested := 0
	for _, c := range r.Classes {
		if c.MantelR == nil {
			continue
		}
		if tested == 0 {
			s.Statistic = *c.MantelR
			s.PValue = c.CorrectedPValue
		}
		tested++
	}
	s.Auxiliary["tested_classes"] = float64(tested)
	return s
}

// SturgesClassCount is ceil(1 + log2(n(n-1)/2)).
func SturgesClassCount(n int) int {
	return int(math.Ceil(1 + math.Log2(float64(distmat.NumPairs(n)))))
}

// BreakPoints returns k+1 equally spaced points from start to end. The first
// point is moved just below start so that start falls in the first class.
func BreakPoints(start, end float64, k int) ([]float64, error) {
	if !(start < end) {
		return nil, core.NewParameterError("range", fmt.Sprintf("start %v must be less than end %v", start, end))
	}
	if k < 1 {
		return nil, core.NewParameterError("classes", fmt.Sprintf("must be at least 1, got %d", k))
	}
	step := (end - start) / float64(k)
	points := make([]float64, k+1)
	for i := 0; i < k; i++ {
		points[i] = start + float64(i)*step
	}
	points[k] = end

	nudged := start - machineEpsilon
	if nudged == start {
		nudged = math.Nextafter(start, math.Inf(-1))
	}
	points[0] = nudged
	return points, nil
}

// DistanceClasses assigns every off-diagonal entry of dm to one of k
// classes spanning its lower-triangle range; diagonal entries are -1. It
// also returns each class's midpoint.
func DistanceClasses(dm *distmat.DistanceMatrix, k int) ([][]int, []float64, error) {
	if k < 1 {
		return nil, nil, core.NewParameterError("classes", fmt.Sprintf("must be at least 1, got %d", k))
	}
	lower := dm.Flatten(true)
	if len(lower) == 0 {
		return nil, nil, core.NewParameterError("distance_matrix", "needs at least 2 samples")
	}
	points, err := BreakPoints(floats.Min(lower), floats.Max(lower), k)
	if err != nil {
		return nil, nil, err
	}

	n := dm.Size()
	classes := make([][]int, n)
	for i := range classes {
		classes[i] = make([]int, n)
		for j := range classes[i] {
			if i == j {
				classes[i][j] = -1
				continue
			}
			classes[i][j] = classOf(points, dm.At(i, j))
		}
	}

	indices := make([]float64, k)
	for c := range indices {
		indices[c] = points[c] + 0.5*(points[c+1]-points[c])
	}
	return classes, indices, nil
}

// classOf is q-1 for the smallest q with points[q] >= v.
func classOf(points []float64, v float64) int {
	for q, p := range points {
		if p >= v {
			return q - 1
		}
	}
	return len(points) - 2
}
