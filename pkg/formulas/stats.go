package formulas

import "gonum.org/v1/gonum/stat"

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (divisor N, not
// N-1) of a slice of float64 values.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}
