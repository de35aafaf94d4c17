package config

import (
	"fmt"

	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/validation"
)

// OptimizationConfig defines one optimization session. Zero values resolve to
// the documented defaults through Normalize; the three pointer fields default
// to enabled when omitted.
type OptimizationConfig struct {
	InitialMaxIterations          int           `yaml:"initialMaxIterations,omitempty" mapstructure:"initialMaxIterations"`
	InitialIntermediateIterations int           `yaml:"initialIntermediateIterations,omitempty" mapstructure:"initialIntermediateIterations"`
	SecondMaxIterations           int           `yaml:"secondMaxIterations,omitempty" mapstructure:"secondMaxIterations"`
	SecondIntermediateIterations  int           `yaml:"secondIntermediateIterations,omitempty" mapstructure:"secondIntermediateIterations"`
	IterationCount                int           `yaml:"iterations,omitempty" mapstructure:"iterations"`
	VaryGrid                      bool          `yaml:"varyGrid,omitempty" mapstructure:"varyGrid"`
	GridSizes                     []float64     `yaml:"gridSizes,omitempty" mapstructure:"gridSizes"`
	FluenceOnly                   bool          `yaml:"fluenceOnly,omitempty" mapstructure:"fluenceOnly"`
	ResetBeams                    *bool         `yaml:"resetBeams,omitempty" mapstructure:"resetBeams"`
	ReduceOAR                     *bool         `yaml:"reduceOar,omitempty" mapstructure:"reduceOar"`
	ReduceModulation              bool          `yaml:"reduceModulation,omitempty" mapstructure:"reduceModulation"`
	ModulationTarget              float64       `yaml:"modulationTarget,omitempty" mapstructure:"modulationTarget"`
	ReduceTime                    bool          `yaml:"reduceTime,omitempty" mapstructure:"reduceTime"`
	SegmentWeight                 bool          `yaml:"segmentWeight,omitempty" mapstructure:"segmentWeight"`
	UseTreatSettings              *bool         `yaml:"useTreatSettings,omitempty" mapstructure:"useTreatSettings"`
	TreatMargin                   float64       `yaml:"treatMargin,omitempty" mapstructure:"treatMargin"`
	RescaleAfterWarmstart         bool          `yaml:"rescaleAfterWarmstart,omitempty" mapstructure:"rescaleAfterWarmstart"`
	Robust                        *RobustConfig `yaml:"robust,omitempty" mapstructure:"robust"`
	GantrySpacing                 float64       `yaml:"gantrySpacing,omitempty" mapstructure:"gantrySpacing"`
	SaveAtComplete                bool          `yaml:"saveAtComplete,omitempty" mapstructure:"saveAtComplete"`
	CloseStatus                   bool          `yaml:"closeStatus,omitempty" mapstructure:"closeStatus"`
	ProgressDir                   string        `yaml:"progressDir,omitempty" mapstructure:"progressDir"`
}

// RobustConfig describes robust optimization scenario shifts in cm.
type RobustConfig struct {
	PositionUncertainty string   `yaml:"positionUncertainty,omitempty" mapstructure:"positionUncertainty"`
	Superior            float64  `yaml:"superior,omitempty" mapstructure:"superior"`
	Inferior            float64  `yaml:"inferior,omitempty" mapstructure:"inferior"`
	Anterior            float64  `yaml:"anterior,omitempty" mapstructure:"anterior"`
	Posterior           float64  `yaml:"posterior,omitempty" mapstructure:"posterior"`
	Left                float64  `yaml:"left,omitempty" mapstructure:"left"`
	Right               float64  `yaml:"right,omitempty" mapstructure:"right"`
	Examinations        []string `yaml:"examinations,omitempty" mapstructure:"examinations"`
}

// ToSpec converts the robustness configuration to its plan system form.
func (r *RobustConfig) ToSpec() *plansys.RobustnessSpec {
	if r == nil {
		return nil
	}
	return &plansys.RobustnessSpec{
		PositionUncertainty:       r.PositionUncertainty,
		Superior:                  r.Superior,
		Inferior:                  r.Inferior,
		Anterior:                  r.Anterior,
		Posterior:                 r.Posterior,
		Left:                      r.Left,
		Right:                     r.Right,
		DensityUncertainty:        0,
		IndependentShifts:         true,
		ComputeExactScenarioDoses: false,
		NonPlanningExaminations:   r.Examinations,
	}
}

// ResetBeamsEnabled reports whether prior optimization results are discarded
// at session start. Enabled unless explicitly disabled.
func (o *OptimizationConfig) ResetBeamsEnabled() bool {
	return o.ResetBeams == nil || *o.ResetBeams
}

// ReduceOAREnabled reports whether the reduce OAR dose phase runs. Enabled
// unless explicitly disabled.
func (o *OptimizationConfig) ReduceOAREnabled() bool {
	return o.ReduceOAR == nil || *o.ReduceOAR
}

// TreatSettingsEnabled reports whether treat/protect margins are applied.
// Enabled unless explicitly disabled.
func (o *OptimizationConfig) TreatSettingsEnabled() bool {
	return o.UseTreatSettings == nil || *o.UseTreatSettings
}

// Normalize ensures defaults are applied before validation.
func (o *OptimizationConfig) Normalize() {
	if o == nil {
		return
	}
	if o.InitialMaxIterations <= 0 {
		o.InitialMaxIterations = constants.DefaultInitialMaxIterations
	}
	if o.InitialIntermediateIterations <= 0 {
		o.InitialIntermediateIterations = constants.DefaultInitialIntermediateIterations
	}
	if o.SecondMaxIterations <= 0 {
		o.SecondMaxIterations = constants.DefaultSecondMaxIterations
	}
	if o.SecondIntermediateIterations <= 0 {
		o.SecondIntermediateIterations = constants.DefaultSecondIntermediateIterations
	}
	if o.IterationCount <= 0 {
		o.IterationCount = constants.DefaultIterationCount
	}
	if o.VaryGrid && len(o.GridSizes) == 0 {
		o.GridSizes = []float64{
			constants.DefaultGridSize1,
			constants.DefaultGridSize2,
			constants.DefaultGridSize3,
			constants.DefaultGridSize4,
		}
	}
	if o.GantrySpacing <= 0 {
		o.GantrySpacing = constants.DefaultGantrySpacing
	}
	if o.Robust != nil && o.Robust.PositionUncertainty == "" {
		o.Robust.PositionUncertainty = plansys.PositionUncertaintyUniversal
	}
}

// Validate returns an error when the optimization configuration is
// unsupported.
func (o *OptimizationConfig) Validate() error {
	if o == nil {
		return fmt.Errorf("optimization configuration cannot be nil")
	}

	o.Normalize()

	if err := validation.ValidateIterationCount(o.IterationCount); err != nil {
		return err
	}
	budgets := []struct {
		name  string
		value int
	}{
		{"initialMaxIterations", o.InitialMaxIterations},
		{"initialIntermediateIterations", o.InitialIntermediateIterations},
		{"secondMaxIterations", o.SecondMaxIterations},
		{"secondIntermediateIterations", o.SecondIntermediateIterations},
	}
	for _, budget := range budgets {
		if err := validation.ValidateBudget(budget.name, budget.value); err != nil {
			return err
		}
	}
	if o.VaryGrid {
		if err := validation.ValidateGridSizes(o.GridSizes); err != nil {
			return err
		}
	}
	if o.TreatMargin < 0 {
		return fmt.Errorf("treat margin %v must not be negative", o.TreatMargin)
	}
	if o.Robust != nil {
		switch o.Robust.PositionUncertainty {
		case plansys.PositionUncertaintyUniversal,
			plansys.PositionUncertaintyIndependentBeams,
			plansys.PositionUncertaintyIndependentIsocenter:
			// supported settings
		default:
			return fmt.Errorf("position uncertainty %q is not supported", o.Robust.PositionUncertainty)
		}
	}

	return nil
}
