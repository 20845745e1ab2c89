package permutation

import (
	"github.com/montanaflynn/stats"
)

// NullSummary describes a permutation null distribution.
type NullSummary struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile95 float64 `json:"percentile_95"`
	Percentile99 float64 `json:"percentile_99"`
}

// Summarize computes the summary of a null distribution. An empty
// distribution yields the zero summary.
func Summarize(null []float64) NullSummary {
	if len(null) == 0 {
		return NullSummary{}
	}
	data := stats.Float64Data(null)
	mean, _ := data.Mean()
	stdDev := 0.0
	if len(null) > 1 {
		stdDev, _ = data.StandardDeviationSample()
	}
	min, _ := data.Min()
	max, _ := data.Max()
	p95, _ := data.Percentile(95)
	p99, _ := data.Percentile(99)
	return NullSummary{
		Mean:         mean,
		StdDev:       stdDev,
		Min:          min,
		Max:          max,
		Percentile95: p95,
		Percentile99: p99,
	}
}
