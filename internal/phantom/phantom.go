// Package phantom provides a deterministic planning-host stand-in, a phantom
// in the QA sense: a known object the control loop is exercised against. The
// host implements the optimization oracle and the plan model over the
// in-memory plan graph with reproducible numerics, so sessions run end to end
// without a planning system attached.
package phantom

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/format"
)

const (
	// minFeasibleDeliveryTime is the shortest helical delivery budget any
	// gantry period can satisfy, in seconds.
	minFeasibleDeliveryTime = 20.0

	// maxLeafSpan is the widest jaw X span the leaf carriages cover without a
	// carriage move, in cm. Frozen segments cannot move carriages, so wider
	// spans fail segment-MU-only runs.
	maxLeafSpan = 15.0

	// qualityPressure scales the objective floor imposed by helical delivery
	// budgets below the reference time.
	qualityPressure = 400.0

	// baselinePerTerm seeds the objective value before the first run.
	baselinePerTerm = 100.0

	// convergenceScale controls how far one run moves the objective per
	// budgeted iteration.
	convergenceScale = 250.0

	// oarGainPerOrgan is the fractional objective improvement per organ at
	// risk in a reduce-OAR pass, floored at oarGainFloor.
	oarGainPerOrgan = 0.02
	oarGainFloor    = 0.90

	// progressPoints is the length of the objective series one run reports.
	progressPoints = 5
)

// Host evaluates optimization runs and plan operations deterministically.
type Host struct {
	logger *zap.Logger
	now    func() time.Time
}

var (
	_ plansys.Oracle    = (*Host)(nil)
	_ plansys.PlanModel = (*Host)(nil)
)

// NewHost returns a host with the standard phantom numerics.
func NewHost(logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{logger: logger, now: time.Now}
}

// RunOptimization advances the objective by one run under the optimization's
// iteration budget. The reported duration is synthetic, one second per
// budgeted iteration.
func (h *Host) RunOptimization(po *plansys.PlanOptimization) (plansys.Timing, error) {
	start := h.now()
	if po == nil {
		return plansys.Timing{Start: start, End: start}, fmt.Errorf("optimization cannot be nil")
	}
	if err := checkDeliverable(po); err != nil {
		return plansys.Timing{Start: start, End: start}, err
	}

	current := currentObjective(po)
	next := objectiveAfterRun(po, current)
	po.Progress = progressSeries(current, next)
	recordObjective(po, next)
	synthesizeDelivery(po)

	h.logger.Debug(fmt.Sprintf("optimization run converged from %s to %s",
		format.Objective(current), format.Objective(next)),
		zap.String("op", "phantom.RunOptimization"),
		zap.Int("maxIterations", po.MaxIterations),
	)
	return plansys.Timing{Start: start, End: start.Add(time.Duration(po.MaxIterations) * time.Second)}, nil
}

// ReduceOARDose trades a fixed fractional improvement per organ at risk while
// the named targets are maintained.
func (h *Host) ReduceOARDose(po *plansys.PlanOptimization, targets, oars []string) (plansys.Timing, error) {
	start := h.now()
	if po == nil {
		return plansys.Timing{Start: start, End: start}, fmt.Errorf("optimization cannot be nil")
	}
	if len(targets) == 0 {
		return plansys.Timing{Start: start, End: start}, fmt.Errorf("reduce OAR dose requires at least one maintained target")
	}

	gain := 1 - oarGainPerOrgan*float64(len(oars))
	if gain < oarGainFloor {
		gain = oarGainFloor
	}
	current := currentObjective(po)
	next := current * gain
	po.Progress = progressSeries(current, next)
	recordObjective(po, next)

	h.logger.Debug(fmt.Sprintf("reduce OAR dose converged from %s to %s",
		format.Objective(current), format.Objective(next)),
		zap.String("op", "phantom.ReduceOARDose"),
		zap.Int("organs", len(oars)),
	)
	return plansys.Timing{Start: start, End: start.Add(time.Duration(10*(len(oars)+1)) * time.Second)}, nil
}

// ApplyDoseGrid sets a uniform grid of the given voxel size on every beamset
// in the plan.
func (h *Host) ApplyDoseGrid(handle *plansys.SessionHandle, size float64) error {
	if handle == nil || handle.Plan == nil {
		return fmt.Errorf("no plan loaded")
	}
	if size <= 0 {
		return fmt.Errorf("dose grid size must be positive, got %s", format.Voxel(size))
	}
	for _, bs := range handle.Plan.Beamsets {
		bs.DoseGrid = &plansys.DoseGrid{VoxelSize: [3]float64{size, size, size}}
	}
	h.logger.Debug(fmt.Sprintf("dose grid set to %s", format.Voxel(size)),
		zap.String("op", "phantom.ApplyDoseGrid"),
	)
	return nil
}

// ResetOptimization discards prior results: the objective series, the
// function value, and the delivered MU of every setup beam.
func (h *Host) ResetOptimization(po *plansys.PlanOptimization) error {
	if po == nil {
		return fmt.Errorf("optimization cannot be nil")
	}
	po.Progress = nil
	if po.Objective != nil {
		po.Objective.FunctionValue = nil
	}
	for _, ts := range po.TreatmentSetupSettings {
		for _, b := range ts.Beams {
			b.BeamMU = 0
		}
	}
	h.logger.Debug("optimization reset",
		zap.String("op", "phantom.ResetOptimization"),
	)
	return nil
}

// UpdateBackgroundDose refreshes background dose. The phantom's objective
// model has no background contribution, so only the handle is validated.
func (h *Host) UpdateBackgroundDose(handle *plansys.SessionHandle) error {
	if handle == nil || handle.Plan == nil {
		return fmt.Errorf("no plan loaded")
	}
	po := handle.Optimization
	if po == nil || !po.BackgroundDose {
		return nil
	}
	h.logger.Debug("background dose recomputed",
		zap.String("op", "phantom.UpdateBackgroundDose"),
	)
	return nil
}

// Rescale scales the beamset to its primary prescription. Scaling is
// objective-neutral in the phantom's model.
func (h *Host) Rescale(handle *plansys.SessionHandle) error {
	if handle == nil || handle.Beamset == nil {
		return fmt.Errorf("no beamset loaded")
	}
	h.logger.Debug(fmt.Sprintf("beamset %s rescaled to prescription", handle.Beamset.DicomPlanLabel),
		zap.String("op", "phantom.Rescale"),
	)
	return nil
}

// checkDeliverable rejects runs whose beam settings the machine cannot
// deliver.
func checkDeliverable(po *plansys.PlanOptimization) error {
	for _, ts := range po.TreatmentSetupSettings {
		for _, b := range ts.Beams {
			if ts.Technique == plansys.TechniqueTomoHelical &&
				b.MaxDeliveryTime > 0 && b.MaxDeliveryTime < minFeasibleDeliveryTime {
				return &plansys.OracleError{
					Kind: plansys.OracleInfeasibleGantry,
					Err: fmt.Errorf("no gantry period satisfies a %s s delivery budget on beam %s",
						format.SecondsValue(b.MaxDeliveryTime), b.Name),
				}
			}
			if segmentMUOnly(b) && b.JawLimits != nil && b.JawLimits.X2-b.JawLimits.X1 > maxLeafSpan {
				return &plansys.OracleError{
					Kind: plansys.OracleLeafCarriage,
					Err: fmt.Errorf("beam %s jaw span %.1f cm exceeds leaf carriage travel",
						b.Name, b.JawLimits.X2-b.JawLimits.X1),
				}
			}
		}
	}
	return nil
}

func segmentMUOnly(b *plansys.Beam) bool {
	return b.HasOptimizationType(plansys.OptimizationTypeSegmentMU) &&
		!b.HasOptimizationType(plansys.OptimizationTypeSegmentOpt)
}

// objectiveAfterRun applies the run's geometric decay and the delivery
// floor. Budgets at or above the reference delivery time impose no floor;
// tighter budgets raise it, so squeezing delivery time eventually costs
// objective value.
func objectiveAfterRun(po *plansys.PlanOptimization, current float64) float64 {
	next := current * math.Exp(-float64(po.MaxIterations)/convergenceScale)
	if floor := deliveryFloor(po); next < floor {
		next = floor
	}
	return next
}

func deliveryFloor(po *plansys.PlanOptimization) float64 {
	var floor float64
	for _, ts := range po.TreatmentSetupSettings {
		if ts.Technique != plansys.TechniqueTomoHelical {
			continue
		}
		for _, b := range ts.Beams {
			if b.MaxDeliveryTime <= 0 || b.MaxDeliveryTime >= constants.MinDeliveryTimeSeconds {
				continue
			}
			floor += qualityPressure * (constants.MinDeliveryTimeSeconds/b.MaxDeliveryTime - 1)
		}
	}
	return floor
}

func currentObjective(po *plansys.PlanOptimization) float64 {
	if po.Objective != nil && po.Objective.FunctionValue != nil {
		return *po.Objective.FunctionValue
	}
	terms := 1
	if po.Objective != nil && len(po.Objective.Terms) > terms {
		terms = len(po.Objective.Terms)
	}
	return baselinePerTerm * float64(terms)
}

func recordObjective(po *plansys.PlanOptimization, value float64) {
	if po.Objective == nil {
		po.Objective = &plansys.Objective{}
	}
	v := value
	po.Objective.FunctionValue = &v
}

// progressSeries interpolates geometrically from the pre-run value to the
// post-run value, ending exactly on the post-run value.
func progressSeries(from, to float64) []float64 {
	series := make([]float64, progressPoints)
	ratio := math.Pow(to/from, 1.0/progressPoints)
	v := from
	for i := range series {
		v *= ratio
		series[i] = v
	}
	series[progressPoints-1] = to
	return series
}

// synthesizeDelivery stamps delivery results onto beams a run has just
// optimized for the first time. Delivered MU is what blocks constraint
// retrofits on later sessions that skip the beam reset.
func synthesizeDelivery(po *plansys.PlanOptimization) {
	for _, ts := range po.TreatmentSetupSettings {
		for _, b := range ts.Beams {
			if b.BeamMU != 0 {
				continue
			}
			if ts.Technique == plansys.TechniqueTomoHelical {
				b.BeamMU = helicalProjectionTime
			} else {
				b.BeamMU = staticBeamMU
			}
		}
	}
}
