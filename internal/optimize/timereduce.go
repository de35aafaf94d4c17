package optimize

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/format"
)

// reduceTimePhase lowers the helical delivery time budget in passes. Each
// pass that keeps the objective improving is committed with a save; the first
// pass that regresses the objective reloads the last saved state and ends the
// phase. The patient is saved up front so the first pass has a rollback
// point.
func (r *run) reduceTimePhase() error {
	s := r.s
	if err := s.store.Save(r.handle.Patient); err != nil {
		return fmt.Errorf("patient save before time reduction: %w", err)
	}
	s.logger.Debug(fmt.Sprintf("reduce time for beamset %s", r.label),
		zap.String("op", "optimize.reduceTimePhase"),
	)
	s.status.Advance("Running reduce time")

	r.po.MaxIterations = constants.TimeReductionMaxIterations
	r.po.IntermediateIterations = constants.TimeReductionIntermediateIterations

	beams := r.handle.Beamset.Beams
	if len(beams) == 0 {
		return fmt.Errorf("beamset %s has no beams for time reduction", r.label)
	}

	previous := currentObjective(r.po)
	initialTime := beams[0].MaxDeliveryTime
	_, msg, _ := r.updateDeliveryTime(previous, initialTime, true, false)
	s.logger.Info(msg, zap.String("op", "optimize.reduceTimePhase"))

	var oldTime float64
	for pass := 0; pass <= constants.MaxTimeReductionPasses; {
		if _, err := s.oracle.RunOptimization(r.po); err != nil {
			if plansys.IsInfeasibleGantry(err) {
				return fmt.Errorf("no feasible gantry period found: %w", err)
			}
			return fmt.Errorf("optimization run failed: %w", err)
		}
		oldTime = r.handle.Beamset.Beams[0].MaxDeliveryTime

		var cont bool
		_, msg, cont = r.updateDeliveryTime(previous, oldTime, false, false)
		s.logger.Info(msg, zap.String("op", "optimize.reduceTimePhase"))

		if cont {
			if err := s.store.Save(r.handle.Patient); err != nil {
				return fmt.Errorf("patient save after time reduction: %w", err)
			}
			previous = currentObjective(r.po)
			pass++
			s.status.Update(fmt.Sprintf("Iteration %d: Time reduced from %s to %s s",
				pass, format.SecondsValue(initialTime), format.SecondsValue(oldTime)))
		} else {
			reloaded, err := s.store.Reload(r.handle.Ref())
			if err != nil {
				return fmt.Errorf("reload after objective regression: %w", err)
			}
			r.handle = reloaded
			r.po = reloaded.Optimization
			if r.po == nil {
				r.po = reloaded.Plan.FindOptimization(r.label)
				reloaded.Optimization = r.po
			}
			if r.po == nil {
				return fmt.Errorf("no optimization found for beamset %s after reload", r.label)
			}
			previous = currentObjective(r.po)
			_, msg, _ = r.updateDeliveryTime(previous, oldTime, false, true)
			s.logger.Info(msg, zap.String("op", "optimize.reduceTimePhase"))
			pass = constants.MaxTimeReductionPasses + 1
		}
	}

	s.status.Update(fmt.Sprintf("Time reduced from %s to %s s",
		format.SecondsValue(initialTime), format.SecondsValue(oldTime)))
	return nil
}

// updateDeliveryTime applies the next delivery time budget to the first beam
// and reports whether the phase should continue. The bypass form forces the
// initial cut before any objective comparison exists; the reset form reapplies
// the budget read before a rollback reload.
func (r *run) updateDeliveryTime(previous, oldTime float64, bypass, reset bool) (float64, string, bool) {
	beam := r.handle.Beamset.Beams[0]
	current := currentObjective(r.po)
	next := computeDeliveryTime(beam, previous, current, bypass)
	switch {
	case bypass:
		beam.MaxDeliveryTime = next
		return next, fmt.Sprintf("reduced time from %s to %s",
			format.SecondsValue(oldTime), format.SecondsValue(next)), true
	case next < oldTime:
		beam.MaxDeliveryTime = next
		return next, fmt.Sprintf("function value improved (previous %s > current %s), reduced time from %s to %s",
			format.Objective(previous), format.Objective(current),
			format.SecondsValue(oldTime), format.SecondsValue(next)), true
	case reset:
		beam.MaxDeliveryTime = oldTime
		return oldTime, fmt.Sprintf("restored time to %s", format.SecondsValue(oldTime)), true
	default:
		return oldTime, fmt.Sprintf("function value regressed (previous %s <= current %s), delivery time unchanged at %s",
			format.Objective(previous), format.Objective(current),
			format.SecondsValue(oldTime)), false
	}
}

// computeDeliveryTime returns the next delivery time budget for the beam. The
// budget only drops while the objective improves and the current budget sits
// above the floor; bypass forces the cut regardless.
func computeDeliveryTime(beam *plansys.Beam, previous, current float64, bypass bool) float64 {
	old := beam.MaxDeliveryTime
	if previous > current && old > constants.MinDeliveryTimeSeconds {
		return constants.TimeReductionFactor * old
	}
	if bypass {
		return constants.TimeReductionFactor * old
	}
	return old
}

// currentObjective returns the optimization's objective function value, or
// the cold-start sentinel when none has been computed.
func currentObjective(po *plansys.PlanOptimization) float64 {
	if po == nil || po.Objective == nil || po.Objective.FunctionValue == nil {
		return math.Inf(1)
	}
	return *po.Objective.FunctionValue
}
