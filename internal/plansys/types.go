// Package plansys defines the treatment planning system model shared by the
// optimization driver, the persistence layer, and the deterministic stand-in
// used for testing. Types mirror the planning system's object graph closely
// enough that operations read the same way against either backend.
package plansys

import "time"

// Technique identifies a beamset delivery technique.
type Technique string

const (
	TechniqueTomoHelical Technique = "TomoHelical"
	TechniqueSMLC        Technique = "SMLC"
	TechniqueDynamicArc  Technique = "DynamicArc"
)

// Organ types as reported by ROI organ data.
const (
	OrganTypeTarget = "Target"
)

// Objective function types eligible for treat/protect ROI selection.
const (
	FunctionMinDose     = "MinDose"
	FunctionUniformDose = "UniformDose"
	FunctionTargetEud   = "TargetEud"
)

// Optimization types carried on beam settings.
const (
	OptimizationTypeSegmentOpt = "SegmentOpt"
	OptimizationTypeSegmentMU  = "SegmentMU"
)

// JawLimits holds collimator jaw positions in cm. X1 and Y1 are the negative
// side, X2 and Y2 the positive side.
type JawLimits struct {
	X1 float64
	X2 float64
	Y1 float64
	Y2 float64
}

// Contains reports whether l already satisfies want, meaning every jaw sits at
// or inside the wanted limit.
func (l JawLimits) Contains(want JawLimits) bool {
	return l.X1 <= want.X1 && l.X2 >= want.X2 && l.Y1 <= want.Y1 && l.Y2 >= want.Y2
}

// Intersect returns the tightest limits satisfying both l and want.
func (l JawLimits) Intersect(want JawLimits) JawLimits {
	return JawLimits{
		X1: maxFloat(want.X1, l.X1),
		X2: minFloat(want.X2, l.X2),
		Y1: maxFloat(want.Y1, l.Y1),
		Y2: minFloat(want.Y2, l.Y2),
	}
}

// Beam carries the per-beam settings the optimization loop reads and writes.
// MaxDeliveryTime is in seconds and applies to helical deliveries only.
// TreatROIs lists the target regions selected for treat/protect margins.
type Beam struct {
	Name              string
	BeamMU            float64
	MaxDeliveryTime   float64
	OptimizationTypes []string
	AllowBeamSplit    bool
	TreatMargin       float64
	TreatROIs         []string
	JawLimits         *JawLimits
	CouchOffsets      []float64
	Sinogram          [][]float64
}

// HasOptimizationType reports whether the beam's settings include the named
// optimization type.
func (b *Beam) HasOptimizationType(name string) bool {
	for _, t := range b.OptimizationTypes {
		if t == name {
			return true
		}
	}
	return false
}

// SegmentConversion holds segment shape constraints for static-field
// conversion.
type SegmentConversion struct {
	MaxSegments          int
	MinLeafPairs         int
	MinLeafEndSeparation float64
	MinSegmentArea       float64
	MinSegmentMU         float64
}

// SetupSettings groups the beam settings for one treated beamset within a
// plan optimization. Beams alias the beamset's beams so writes through either
// path land on the same object.
type SetupSettings struct {
	BeamsetLabel      string
	Technique         Technique
	Machine           string
	Beams             []*Beam
	SegmentConversion SegmentConversion
	GantrySpacing     float64
}

// ObjectiveTerm is one constituent function of the plan objective. A non-empty
// ForBeamsetLabel marks the term as beamset-specific, which happens under
// co-optimization.
type ObjectiveTerm struct {
	RoiName         string
	OrganType       string
	FunctionType    string
	ForBeamsetLabel string
}

// Objective aggregates the plan objective. FunctionValue is nil until the
// first dose computation produces one.
type Objective struct {
	Terms         []ObjectiveTerm
	FunctionValue *float64
}

// Position uncertainty settings for robust optimization.
const (
	PositionUncertaintyUniversal            = "Universal"
	PositionUncertaintyIndependentBeams     = "IndependentBeams"
	PositionUncertaintyIndependentIsocenter = "IndependentIsocenters"
)

// RobustnessSpec mirrors the robustness parameters saved onto an
// optimization. Shift distances are in cm.
type RobustnessSpec struct {
	PositionUncertainty       string
	Superior                  float64
	Inferior                  float64
	Anterior                  float64
	Posterior                 float64
	Left                      float64
	Right                     float64
	DensityUncertainty        float64
	IndependentShifts         bool
	ComputeExactScenarioDoses bool
	NonPlanningExaminations   []string
}

// PlanOptimization is the mutable optimization state for one or more
// beamsets. Progress holds the objective series of the most recent run.
type PlanOptimization struct {
	OptimizedBeamsets      []string
	TreatmentSetupSettings []*SetupSettings
	Objective              *Objective
	Progress               []float64
	MaxIterations          int
	IntermediateIterations int
	OptimalityTolerance    float64
	ComputeFinalDose       bool
	AutoScale              bool
	BackgroundDose         bool
	Robustness             *RobustnessSpec
}

// Optimizes reports whether this optimization covers the named beamset.
func (po *PlanOptimization) Optimizes(beamsetLabel string) bool {
	for _, label := range po.OptimizedBeamsets {
		if label == beamsetLabel {
			return true
		}
	}
	return false
}

// Cooptimized reports whether more than one beamset shares this optimization.
func (po *PlanOptimization) Cooptimized() bool {
	return len(po.TreatmentSetupSettings) > 1
}

// DoseGrid is a computation grid with voxel size in cm per dimension.
type DoseGrid struct {
	VoxelSize [3]float64
}

// Beamset is one deliverable beam collection within a plan.
type Beamset struct {
	DicomPlanLabel    string
	DeliveryTechnique Technique
	Beams             []*Beam
	DoseGrid          *DoseGrid
}

// Plan owns beamsets and their optimizations.
type Plan struct {
	Name          string
	Beamsets      []*Beamset
	Optimizations []*PlanOptimization
}

// FindOptimization returns the plan optimization covering the named beamset,
// or nil when none does.
func (p *Plan) FindOptimization(beamsetLabel string) *PlanOptimization {
	for _, po := range p.Optimizations {
		if po.Optimizes(beamsetLabel) {
			return po
		}
	}
	return nil
}

// FindBeamset returns the named beamset, or nil when absent.
func (p *Plan) FindBeamset(label string) *Beamset {
	for _, bs := range p.Beamsets {
		if bs.DicomPlanLabel == label {
			return bs
		}
	}
	return nil
}

// Case groups plans for one treatment course.
type Case struct {
	Name  string
	Plans []*Plan
}

// FindPlan returns the named plan, or nil when absent.
func (c *Case) FindPlan(name string) *Plan {
	for _, p := range c.Plans {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Patient is the persistence root.
type Patient struct {
	ID       string
	LastName string
	Cases    []*Case
}

// FindCase returns the named case, or nil when absent.
func (p *Patient) FindCase(name string) *Case {
	for _, c := range p.Cases {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PatientRef identifies a patient in the persistence layer.
type PatientRef struct {
	ID       string
	LastName string
}

// SessionRef pins the full selection chain needed to reload a session.
type SessionRef struct {
	PatientID    string
	LastName     string
	CaseName     string
	PlanName     string
	BeamsetLabel string
}

// SessionHandle is the live selection a session operates on. A reload swaps
// the handle wholesale rather than patching individual fields.
type SessionHandle struct {
	Patient      *Patient
	Case         *Case
	Plan         *Plan
	Beamset      *Beamset
	Optimization *PlanOptimization
}

// Ref returns the reference that reproduces this handle's selection.
func (h *SessionHandle) Ref() SessionRef {
	return SessionRef{
		PatientID:    h.Patient.ID,
		LastName:     h.Patient.LastName,
		CaseName:     h.Case.Name,
		PlanName:     h.Plan.Name,
		BeamsetLabel: h.Beamset.DicomPlanLabel,
	}
}

// Timing records the wall-clock span of one operation.
type Timing struct {
	Start time.Time
	End   time.Time
}

// Elapsed returns the span's duration.
func (t Timing) Elapsed() time.Duration {
	return t.End.Sub(t.Start)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
