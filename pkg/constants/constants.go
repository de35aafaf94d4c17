// Package constants provides shared constants for the planopt application.
package constants

// Iteration budget defaults
const (
	// DefaultInitialMaxIterations is the oracle iteration budget for the first warmstart
	DefaultInitialMaxIterations = 60

	// DefaultInitialIntermediateIterations is the preparation-phase budget for the first warmstart
	DefaultInitialIntermediateIterations = 10

	// DefaultSecondMaxIterations is the oracle iteration budget after the first warmstart
	DefaultSecondMaxIterations = 30

	// DefaultSecondIntermediateIterations is the preparation-phase budget after the first warmstart
	DefaultSecondIntermediateIterations = 15

	// DefaultIterationCount is the number of warmstart passes in the main loop
	DefaultIterationCount = 12

	// FluenceMaxIterations is the iteration budget for a fluence-only run
	FluenceMaxIterations = 500

	// FluenceIntermediateIterations is the preparation-phase budget for a fluence-only run
	FluenceIntermediateIterations = 500

	// TimeReductionMaxIterations is the oracle iteration budget during time reduction
	TimeReductionMaxIterations = 30

	// TimeReductionIntermediateIterations is the preparation-phase budget during time reduction
	TimeReductionIntermediateIterations = 5

	// MaxTimeReductionPasses caps the delivery-time reduction loop (inclusive bound)
	MaxTimeReductionPasses = 6
)

// Optimization algorithm settings
const (
	// OptimalityTolerance is the convergence tolerance forced onto every session
	OptimalityTolerance = 1e-14
)

// Dose grid defaults in cm
const (
	// DefaultGridSize1 through DefaultGridSize4 form the variable-grid sequence
	DefaultGridSize1 = 0.5
	DefaultGridSize2 = 0.4
	DefaultGridSize3 = 0.3
	DefaultGridSize4 = 0.2

	// DefaultInitialGrid is the starting voxel size for ordinary field sizes
	DefaultInitialGrid = 0.2

	// SmallFieldInitialGrid is the starting voxel size for stereotactic field sizes
	SmallFieldInitialGrid = 0.15

	// LargeFieldInitialGrid is the starting voxel size for total-body field sizes
	LargeFieldInitialGrid = 0.4
)

// Treat/protect margins in cm
const (
	// DefaultTreatMargin applies to ordinary field sizes
	DefaultTreatMargin = 0.8

	// SmallFieldTreatMargin applies to stereotactic field sizes
	SmallFieldTreatMargin = 0.15
)

// Helical delivery constants
const (
	// MinDeliveryTimeSeconds is the floor below which the time budget is never reduced
	MinDeliveryTimeSeconds = 60.0

	// TimeReductionFactor scales the delivery-time budget on each committed reduction
	TimeReductionFactor = 0.9

	// ModulationDamping scales the modulation-driven time cut; without it the
	// modulation factor oscillates around the target instead of converging
	ModulationDamping = 0.9

	// ProjectionsPerRotation is the fixed projection count of one gantry rotation
	ProjectionsPerRotation = 51
)

// Segment conversion defaults
const (
	// MaxSegmentsPerBeam scales the per-setup segment cap by beam count
	MaxSegmentsPerBeam = 10

	// DefaultMinSegmentArea is the minimum aperture area in cm^2
	DefaultMinSegmentArea = 2.0

	// DefaultMinSegmentMU is the minimum MU per fraction per segment
	DefaultMinSegmentMU = 2.0

	// ProlongedDeliveryMinSegmentArea overrides the area minimum for prolonged-delivery plans
	ProlongedDeliveryMinSegmentArea = 4.0

	// ProlongedDeliveryMinSegmentMU overrides the MU minimum for prolonged-delivery plans
	ProlongedDeliveryMinSegmentMU = 6.0

	// DefaultMinLeafPairs is the minimum count of open leaf pairs per segment
	DefaultMinLeafPairs = 2

	// DefaultMinLeafEndSeparation is the minimum leaf end separation in cm
	DefaultMinLeafEndSeparation = 0.5
)

// Arc settings
const (
	// DefaultGantrySpacing is the final arc gantry spacing cap in degrees
	DefaultGantrySpacing = 2.0
)

// Machine models
const (
	// MachineTrueBeamSTx carries hard jaw limits that must be set before optimization
	MachineTrueBeamSTx = "TrueBeamSTx"
)

// TrueBeamSTx jaw limits in cm: X1, X2, Y1, Y2
const (
	TrueBeamSTxJawX1 = -20.0
	TrueBeamSTxJawX2 = 20.0
	TrueBeamSTxJawY1 = -10.8
	TrueBeamSTxJawY2 = 10.8
)

// Report format constants
const (
	// ReportFormatPretty is the human-readable report format
	ReportFormatPretty = "pretty"

	// ReportFormatYAML is the YAML report format
	ReportFormatYAML = "yaml"

	// ReportFormatJSON is the JSON report format
	ReportFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "planopt.yaml"

	// DefaultStateDir is the default patient snapshot directory
	DefaultStateDir = "state"
)

// Comparison tolerances
const (
	// VoxelSizeTolerance is the tolerance for voxel size comparisons in cm
	VoxelSizeTolerance = 1e-3

	// ObjectiveTolerance is the tolerance for objective value comparisons
	ObjectiveTolerance = 1e-9
)

// SmallFieldMarkers are beamset label fragments indicating stereotactic plans.
var SmallFieldMarkers = []string{"_SRS_", "_SBR_", "_FSR_", "_LLL_", "_LUL_", "_RLL_", "_RML_", "_RUL_"}

// LargeFieldMarkers are beamset label fragments indicating total-body plans.
var LargeFieldMarkers = []string{
	"TBI__FFS", "TBI__HFS", "HFS__TBI", "FFS__TBI",
	"TBI_FFS", "TBI_HFS", "HFS_TBI", "FFS_TBI",
	"TBI__VMA",
}

// ProlongedDeliveryMarker flags plans delivered at a prolonged dose rate.
const ProlongedDeliveryMarker = "_PRD_"
