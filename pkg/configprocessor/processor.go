// Package configprocessor provides shared configuration review utilities.
package configprocessor

import (
	"github.com/clinrad/planopt/pkg/validation"
)

// OptimizationInfo carries the optimization settings under review.
type OptimizationInfo struct {
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

// Processor handles configuration review and validation.
type Processor struct{}

// NewProcessor creates a new configuration processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration reviews the optimization settings and returns
// warnings for combinations that will be ignored at runtime.
func (p *Processor) ValidateConfiguration(info OptimizationInfo) []string {
	cv := &validation.ConfigValidator{
		FluenceOnly:      info.FluenceOnly,
		VaryGrid:         info.VaryGrid,
		GridSizes:        info.GridSizes,
		SegmentWeight:    info.SegmentWeight,
		ReduceTime:       info.ReduceTime,
		ReduceOAR:        info.ReduceOAR,
		ReduceModulation: info.ReduceModulation,
		ModulationTarget: info.ModulationTarget,
		GantrySpacing:    info.GantrySpacing,
	}

	warnings := cv.ValidateAll()
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}
