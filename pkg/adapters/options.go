// Package adapters provides adapter implementations between different package
// interfaces.
package adapters

import (
	"github.com/clinrad/planopt/internal/config"
)

// Option map keys accepted by ResolveOptions. Callers embedding the control
// loop pass settings as a loose map; every key has a default and unknown keys
// are ignored.
const (
	OptionInitialMaxIterations = "initial_max_it"
	OptionInitialIntermediate  = "initial_int_it"
	OptionSecondMaxIterations  = "second_max_it"
	OptionSecondIntermediate   = "second_int_it"
	OptionIterations           = "n_iterations"
	OptionVaryGrid             = "vary_grid"
	OptionGridSize1            = "dose_dim1"
	OptionGridSize2            = "dose_dim2"
	OptionGridSize3            = "dose_dim3"
	OptionGridSize4            = "dose_dim4"
	OptionFluenceOnly          = "fluence_only"
	OptionResetBeams           = "reset_beams"
	OptionReduceOAR            = "reduce_oar"
	OptionReduceModulation     = "reduce_mod"
	OptionModulationTarget     = "mod_target"
	OptionReduceTime           = "reduce_time"
	OptionSegmentWeight        = "segment_weight"
	OptionUseTreatSettings     = "use_treat_settings"
	OptionTreatMargins         = "treat_margins"
	OptionRescale              = "rescale_after_warmstart"
	OptionGantrySpacing        = "gantry_spacing"
	OptionCloseStatus          = "close_status"
	OptionSaveAtComplete       = "save"
	OptionRobust               = "robust"
	OptionPositionUncertainty  = "position_uncertainty"
	OptionRobustSuperior       = "robust_sup"
	OptionRobustInferior       = "robust_inf"
	OptionRobustAnterior       = "robust_ant"
	OptionRobustPosterior      = "robust_post"
	OptionRobustRight          = "robust_right"
	OptionRobustLeft           = "robust_left"
	OptionProgressDir          = "output_data_dir"
)

// ResolveOptions normalizes a loosely-typed options map into a fully
// defaulted OptimizationConfig. Missing keys resolve to their defaults and
// values of an unexpected type are treated as missing; the transform is pure
// and never fails. A boolean under the treat margins key toggles treat
// settings instead of overriding the margin.
func ResolveOptions(opts map[string]interface{}) config.OptimizationConfig {
	resolved := config.OptimizationConfig{
		InitialMaxIterations:          intOption(opts, OptionInitialMaxIterations, 0),
		InitialIntermediateIterations: intOption(opts, OptionInitialIntermediate, 0),
		SecondMaxIterations:           intOption(opts, OptionSecondMaxIterations, 0),
		SecondIntermediateIterations:  intOption(opts, OptionSecondIntermediate, 0),
		IterationCount:                intOption(opts, OptionIterations, 0),
		VaryGrid:                      boolOption(opts, OptionVaryGrid, false),
		FluenceOnly:                   boolOption(opts, OptionFluenceOnly, false),
		ReduceModulation:              boolOption(opts, OptionReduceModulation, false),
		ModulationTarget:              floatOption(opts, OptionModulationTarget, 0),
		ReduceTime:                    boolOption(opts, OptionReduceTime, false),
		SegmentWeight:                 boolOption(opts, OptionSegmentWeight, false),
		RescaleAfterWarmstart:         boolOption(opts, OptionRescale, false),
		GantrySpacing:                 floatOption(opts, OptionGantrySpacing, 0),
		SaveAtComplete:                boolOption(opts, OptionSaveAtComplete, false),
		CloseStatus:                   boolOption(opts, OptionCloseStatus, false),
		ProgressDir:                   stringOption(opts, OptionProgressDir, ""),
	}

	if value, ok := boolValue(opts[OptionResetBeams]); ok {
		resolved.ResetBeams = &value
	}
	if value, ok := boolValue(opts[OptionReduceOAR]); ok {
		resolved.ReduceOAR = &value
	}
	if value, ok := boolValue(opts[OptionUseTreatSettings]); ok {
		resolved.UseTreatSettings = &value
	}
	if value, ok := boolValue(opts[OptionTreatMargins]); ok {
		use := value
		resolved.UseTreatSettings = &use
	} else {
		resolved.TreatMargin = floatOption(opts, OptionTreatMargins, 0)
	}

	if resolved.VaryGrid {
		resolved.GridSizes = []float64{
			floatOption(opts, OptionGridSize1, 0.5),
			floatOption(opts, OptionGridSize2, 0.4),
			floatOption(opts, OptionGridSize3, 0.3),
			floatOption(opts, OptionGridSize4, 0.2),
		}
	}

	if boolOption(opts, OptionRobust, false) {
		resolved.Robust = &config.RobustConfig{
			PositionUncertainty: stringOption(opts, OptionPositionUncertainty, ""),
			Superior:            floatOption(opts, OptionRobustSuperior, 0),
			Inferior:            floatOption(opts, OptionRobustInferior, 0),
			Anterior:            floatOption(opts, OptionRobustAnterior, 0),
			Posterior:           floatOption(opts, OptionRobustPosterior, 0),
			Right:               floatOption(opts, OptionRobustRight, 0),
			Left:                floatOption(opts, OptionRobustLeft, 0),
		}
	}

	resolved.Normalize()
	return resolved
}

func boolValue(value interface{}) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}

func boolOption(opts map[string]interface{}, key string, fallback bool) bool {
	if value, ok := boolValue(opts[key]); ok {
		return value
	}
	return fallback
}

func intOption(opts map[string]interface{}, key string, fallback int) int {
	switch value := opts[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}

func floatOption(opts map[string]interface{}, key string, fallback float64) float64 {
	switch value := opts[key].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return fallback
	}
}

func stringOption(opts map[string]interface{}, key string, fallback string) string {
	if value, ok := opts[key].(string); ok {
		return value
	}
	return fallback
}
