// Package validation provides optimization setting validation utilities.
package validation

import (
	"fmt"

	"github.com/clinrad/planopt/pkg/constants"
)

// ValidateGridSizes checks that a variable-grid schedule has exactly four
// positive voxel sizes.
func ValidateGridSizes(sizes []float64) error {
	if len(sizes) != 4 {
		return fmt.Errorf("variable grid requires 4 sizes, got %d", len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return fmt.Errorf("grid size %d must be positive, got %v", i+1, s)
		}
	}
	return nil
}

// CheckGridOrder warns when a variable-grid schedule does not step from
// coarse to fine. The scheduler honors whatever order it is given.
func CheckGridOrder(sizes []float64) string {
	for i := 1; i < len(sizes); i++ {
		if sizes[i] > sizes[i-1] {
			return fmt.Sprintf("Grid size %d (%v cm) is coarser than its predecessor (%v cm) - dose resolution will degrade mid-run",
				i+1, sizes[i], sizes[i-1])
		}
	}
	return ""
}

// ValidateIterationCount checks the main loop bound.
func ValidateIterationCount(n int) error {
	if n < 1 {
		return fmt.Errorf("iteration count must be at least 1, got %d", n)
	}
	return nil
}

// ValidateBudget checks one oracle iteration budget.
func ValidateBudget(name string, value int) error {
	if value < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", name, value)
	}
	return nil
}

// ConfigValidator performs warning-level review of an optimization setup.
type ConfigValidator struct {
	FluenceOnly      bool
	VaryGrid         bool
	GridSizes        []float64
	SegmentWeight    bool
	ReduceTime       bool
	ReduceOAR        bool
	ReduceModulation bool
	ModulationTarget float64
	GantrySpacing    float64
}

// ValidateAll reviews the combined settings and returns warnings. None of
// these stop a session; they flag settings that will be ignored or that are
// likely operator mistakes.
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	if cv.VaryGrid {
		if warning := CheckGridOrder(cv.GridSizes); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	if cv.FluenceOnly {
		if cv.SegmentWeight {
			warnings = append(warnings, "Segment weight optimization is skipped in a fluence-only session")
		}
		if cv.ReduceTime {
			warnings = append(warnings, "Delivery time reduction is skipped in a fluence-only session")
		}
		if cv.ReduceOAR {
			warnings = append(warnings, "Reduce OAR dose is skipped in a fluence-only session")
		}
		if cv.VaryGrid {
			warnings = append(warnings, "Variable dose grid is skipped in a fluence-only session")
		}
	}

	if cv.ReduceModulation && cv.ModulationTarget <= 0 {
		warnings = append(warnings, fmt.Sprintf("Reduce modulation requested with target %v - modulation will never be reduced", cv.ModulationTarget))
	}

	if cv.GantrySpacing > constants.DefaultGantrySpacing {
		warnings = append(warnings, fmt.Sprintf("Gantry spacing cap %v deg exceeds the conventional %v deg limit", cv.GantrySpacing, constants.DefaultGantrySpacing))
	}

	return warnings
}
