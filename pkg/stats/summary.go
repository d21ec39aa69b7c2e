package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrNoValues = errors.New("no values")

// Summary is the count, mean, sample standard deviation and five-number
// summary of a numeric series.
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Std    float64 `json:"std" yaml:"std"`
	Min    float64 `json:"min" yaml:"min"`
	Q1     float64 `json:"q1" yaml:"q1"`
	Median float64 `json:"median" yaml:"median"`
	Q3     float64 `json:"q3" yaml:"q3"`
	Max    float64 `json:"max" yaml:"max"`
}

// Describe summarizes x, skipping NaN values. Std is 0 for a single value.
func Describe(x []float64) (*Summary, error) {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil, ErrNoValues
	}

	sort.Float64s(vals)

	s := &Summary{
		Count:  len(vals),
		Min:    vals[0],
		Max:    vals[len(vals)-1],
		Q1:     Quantile(vals, 0.25),
		Median: Quantile(vals, 0.5),
		Q3:     Quantile(vals, 0.75),
	}

	if len(vals) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	} else {
		s.Mean = vals[0]
	}
	return s, nil
}

// Quantile returns the p-quantile (0 <= p <= 1) of sorted by linear
// interpolation between the closest ranks, rank = p*(n-1).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Sum adds the non-NaN values of x.
func Sum(x []float64) float64 {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return floats.Sum(vals)
}
