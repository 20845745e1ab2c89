package methods

import (
	"fmt"
	"math"

	"microbiogeo/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// MoransIResult folds an externally computed Moran's I into the uniform
// result record.
type MoransIResult struct {
	MethodName string   `json:"method_name"`
	Observed   float64  `json:"observed"`
	Expected   float64  `json:"expected"`
	StdDev     float64  `json:"sd"`
	PValue     *float64 `json:"p_value"`
}

// NewMoransIResult validates and wraps a precomputed Moran's I.
func NewMoransIResult(observed, expected, sd, pValue float64) (*MoransIResult, error) {
	if math.IsNaN(observed) || math.IsInf(observed, 0) {
		return nil, core.NewParameterError("observed", fmt.Sprintf("must be finite, got %v", observed))
	}
	if math.IsNaN(expected) || math.IsInf(expected, 0) {
		return nil, core.NewParameterError("expected", fmt.Sprintf("must be finite, got %v", expected))
	}
	if math.IsNaN(sd) || math.IsInf(sd, 0) || sd < 0 {
		return nil, core.NewParameterError("sd", fmt.Sprintf("must be finite and non-negative, got %v", sd))
	}
	if math.IsNaN(pValue) || pValue < 0 || pValue > 1 {
		return nil, core.NewParameterError("p_value", fmt.Sprintf("must be in [0, 1], got %v", pValue))
	}
	return &MoransIResult{
		MethodName: "Moran's I",
		Observed:   observed,
		Expected:   expected,
		StdDev:     sd,
		PValue:     float64Ptr(pValue),
	}, nil
}

// MoransIFromMoments derives the two-sided p-value of the normal
// approximation z = (observed - expected) / sd.
func MoransIFromMoments(observed, expected, sd float64) (*MoransIResult, error) {
	if !(sd > 0) || math.IsInf(sd, 0) {
		return nil, core.NewParameterError("sd", fmt.Sprintf("must be positive and finite, got %v", sd))
	}
	z := (observed - expected) / sd
	p := 2 * distuv.UnitNormal.Survival(math.Abs(z))
	return NewMoransIResult(observed, expected, sd, math.Min(p, 1))
}

// Z returns the standardized statistic, or 0 when sd is zero.
func (r *MoransIResult) Z() float64 {
	if r.StdDev == 0 {
		return 0
	}
	return (r.Observed - r.Expected) / r.StdDev
}

// Summary implements Result.
func (r *MoransIResult) Summary() Summary {
	return Summary{
		MethodName:    r.MethodName,
		StatisticName: "I",
		Statistic:     r.Observed,
		PValue:        r.PValue,
		Auxiliary: map[string]float64{
			"expected": r.Expected,
			"sd":       r.StdDev,
			"z":        r.Z(),
		},
	}
}
