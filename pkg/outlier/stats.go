package outlier

import (
	"errors"
	"math"

	"github.com/tim-beatham/outliermask/pkg/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Estimator selects how the standard deviation is estimated
type Estimator string

const (
	// PopulationEstimator divides by n. Deterministic for tiny columns
	PopulationEstimator Estimator = "population"
	// SampleEstimator divides by n-1
	SampleEstimator Estimator = "sample"
)

var ErrNoValues = errors.New("no values to summarise")

// Summary describes the distribution of a numeric column
type Summary struct {
	N         int
	Mean      float64
	StdDev    float64
	Min       float64
	Max       float64
	Estimator Estimator
	// Integral is true when every value is a whole number
	Integral bool
}

// Summarise computes the mean and standard deviation of values. A standard
// deviation that is undefined, a single value under the sample estimator, is
// reported as zero
func Summarise(values []float64, estimator Estimator) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrNoValues
	}

	var mean, std float64

	switch estimator {
	case SampleEstimator:
		mean, std = stat.MeanStdDev(values, nil)
	default:
		estimator = PopulationEstimator
		mean, std = stat.PopMeanStdDev(values, nil)
	}

	if math.IsNaN(std) {
		std = 0
	}

	integral := true

	for _, v := range values {
		if v != math.Trunc(v) {
			integral = false
			break
		}
	}

	return Summary{
		N:         len(values),
		Mean:      mean,
		StdDev:    std,
		Min:       floats.Min(values),
		Max:       floats.Max(values),
		Estimator: estimator,
		Integral:  integral,
	}, nil
}

func (s Summary) finite() bool {
	for _, v := range []float64{s.Mean, s.StdDev} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}

	return true
}

// Thresholds returns the bounds mean -/+ multiplier*spread. Every injected
// value lies on or beyond one of them
func Thresholds(mean, spread, multiplier float64) (low, high float64) {
	return mean - multiplier*spread, mean + multiplier*spread
}

// ColumnValues extracts the numbers of a column, skipping missing cells
func ColumnValues(ds *dataset.Dataset, column string) ([]float64, error) {
	cells, ok := ds.Column(column)

	if !ok {
		return nil, &ColumnNotFoundError{Column: column}
	}

	values := make([]float64, 0, len(cells))

	for i, cell := range cells {
		value, missing, err := dataset.ParseNumber(cell)

		if err != nil {
			return nil, &NonNumericColumnError{Column: column, Row: i, Value: cell}
		}

		if missing {
			continue
		}

		values = append(values, value)
	}

	if len(values) == 0 {
		return nil, &NonNumericColumnError{Column: column, Row: -1}
	}

	return values, nil
}

// CountBeyond counts the values lying on or outside [low, high]
func CountBeyond(values []float64, low, high float64) int {
	count := 0

	for _, v := range values {
		if v <= low || v >= high {
			count++
		}
	}

	return count
}
