package format

import (
	"fmt"
	"math"
)

// SecondsValue returns a plain seconds figure for budget values (e.g., "342.0").
func SecondsValue(seconds float64) string {
	return fmt.Sprintf("%.1f", seconds)
}

// Voxel returns a voxel size in cm (e.g., "0.30 cm").
func Voxel(size float64) string {
	return fmt.Sprintf("%.2f cm", size)
}

// Objective returns an objective function value in scientific notation.
// The cold-start sentinel renders as "inf".
func Objective(value float64) string {
	if math.IsInf(value, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.6e", value)
}
