// Package mathutil provides common mathematical utility functions.
package mathutil

import "math"

// IsClose reports whether two values agree within absolute tolerance tol.
func IsClose(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// AllLTE reports whether every element of x is less than or equal to the
// matching element of y, allowing tol of slack per element.
func AllLTE(x, y []float64, tol float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] > y[i] && !IsClose(x[i], y[i], tol) {
			return false
		}
	}
	return true
}

// MaxOf returns the largest element of values, or 0 for an empty slice.
func MaxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// MeanOf returns the arithmetic mean of values, or 0 for an empty slice.
func MeanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
