// Package dosegrid provides dose-grid voxel sizing calculations.
package dosegrid

import (
	"strings"

	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/mathutil"
)

// InitialSize returns the starting voxel size in cm for a beamset label.
// Variable-grid sessions start at the first scheduled size; otherwise the
// label's field-size class decides.
func InitialSize(beamsetLabel string, varyGrid bool, firstGridSize float64) float64 {
	if varyGrid {
		return firstGridSize
	}
	if IsLargeField(beamsetLabel) {
		return constants.LargeFieldInitialGrid
	}
	if IsSmallField(beamsetLabel) {
		return constants.SmallFieldInitialGrid
	}
	return constants.DefaultInitialGrid
}

// IsSmallField reports whether the beamset label marks a stereotactic plan.
func IsSmallField(beamsetLabel string) bool {
	return matchesAny(beamsetLabel, constants.SmallFieldMarkers)
}

// IsLargeField reports whether the beamset label marks a total-body plan.
func IsLargeField(beamsetLabel string) bool {
	return matchesAny(beamsetLabel, constants.LargeFieldMarkers)
}

// NeedsResize reports whether the current grid must be replaced to reach the
// target size. A grid already at least as fine as the target in every
// dimension, or approximately equal to it, is left alone.
func NeedsResize(current [3]float64, target float64) bool {
	want := []float64{target, target, target}
	return !mathutil.AllLTE(current[:], want, constants.VoxelSizeTolerance)
}

func matchesAny(label string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(label, m) {
			return true
		}
	}
	return false
}
