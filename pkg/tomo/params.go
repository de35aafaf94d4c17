// Package tomo provides helical delivery parameter calculations.
package tomo

import (
	"math"

	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/mathutil"
)

// Params describes the delivery characteristics of one helical beam.
type Params struct {
	// Time is the total delivery time in seconds (projection time x segments).
	Time float64
	// GantryPeriod is the rotation period in seconds.
	GantryPeriod float64
	// TotalTravel is the couch travel in cm.
	TotalTravel float64
	// CouchSpeed is the couch speed in cm/s.
	CouchSpeed float64
	// ModulationFactor is max leaf-open time over mean non-zero leaf-open time.
	ModulationFactor float64
}

// DeliveryTime returns the total delivery time for a beam whose BeamMU is the
// projection time.
func DeliveryTime(beamMU float64, segments int) float64 {
	return beamMU * float64(segments)
}

// GantryPeriod returns the rotation period for a helical beam.
func GantryPeriod(beamMU float64) float64 {
	return beamMU * constants.ProjectionsPerRotation
}

// CouchTravel returns the absolute couch travel between the first and last
// segment offsets. Returns 0 when fewer than two offsets exist.
func CouchTravel(couchOffsets []float64) float64 {
	if len(couchOffsets) < 2 {
		return 0
	}
	return math.Abs(couchOffsets[len(couchOffsets)-1] - couchOffsets[0])
}

// ModulationFactor returns the ratio of the maximum leaf-open fraction to the
// mean of the non-zero leaf-open fractions across the whole sinogram.
// A sinogram with no open leaves has no modulation and returns 0.
func ModulationFactor(sinogram [][]float64) float64 {
	var nonZero []float64
	for _, projection := range sinogram {
		for _, open := range projection {
			if open != 0 {
				nonZero = append(nonZero, open)
			}
		}
	}
	if len(nonZero) == 0 {
		return 0
	}
	return mathutil.MaxOf(nonZero) / mathutil.MeanOf(nonZero)
}

// Compute derives the full parameter set for one helical beam.
func Compute(beamMU float64, couchOffsets []float64, sinogram [][]float64) Params {
	segments := len(sinogram)
	time := DeliveryTime(beamMU, segments)
	travel := CouchTravel(couchOffsets)
	var speed float64
	if time > 0 {
		speed = travel / time
	}
	return Params{
		Time:             time,
		GantryPeriod:     GantryPeriod(beamMU),
		TotalTravel:      travel,
		CouchSpeed:       speed,
		ModulationFactor: ModulationFactor(sinogram),
	}
}
