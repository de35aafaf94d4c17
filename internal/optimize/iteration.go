package optimize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/format"
	"github.com/clinrad/planopt/pkg/tomo"
)

// mainLoop runs the warmstart iterations. The loop bound is read each pass
// because modulation reduction may extend the session by one iteration.
func (r *run) mainLoop() error {
	s := r.s
	o := r.opt
	for i := 0; i < r.maximum; i++ {
		previous := r.tracker.Current()

		if i < len(r.schedule) && r.schedule[i] != 0 {
			size := r.schedule[i]
			s.status.Advance("Variable dose grid used.  Dose grid now " + format.Voxel(size))
			s.logger.Info(fmt.Sprintf("changing dose grid to %s before iteration %d", format.Voxel(size), i+1),
				zap.String("op", "optimize.mainLoop"),
			)
			start := s.now()
			if err := s.model.ApplyDoseGrid(r.handle, size); err != nil {
				return fmt.Errorf("dose grid change: %w", err)
			}
			r.timings.gridChanges = append(r.timings.gridChanges, plansys.Timing{Start: start, End: s.now()})
		}

		if o.ReduceModulation {
			r.adjustModulation(i)
		}

		iterStart := s.now()
		s.status.Advance(fmt.Sprintf("Running current iteration = %d of %d", i+1, r.maximum))
		s.logger.Info(fmt.Sprintf("iteration %d of %d", i+1, r.maximum),
			zap.String("op", "optimize.mainLoop"),
			zap.String("beamset", r.label),
		)
		if err := s.model.UpdateBackgroundDose(r.handle); err != nil {
			return fmt.Errorf("background dose update: %w", err)
		}
		timing, err := s.oracle.RunOptimization(r.po)
		if err != nil {
			if plansys.IsInfeasibleGantry(err) {
				return fmt.Errorf("no feasible gantry period found: %w", err)
			}
			return fmt.Errorf("optimization run failed: %w", err)
		}
		if o.RescaleAfterWarmstart {
			if err := s.model.Rescale(r.handle); err != nil {
				return fmt.Errorf("prescription rescale: %w", err)
			}
		}
		if o.ProgressDir != "" {
			if err := r.writeProgress(i, timing); err != nil {
				return fmt.Errorf("progress output: %w", err)
			}
		}
		r.timings.iterations = append(r.timings.iterations, plansys.Timing{Start: iterStart, End: s.now()})

		r.po.MaxIterations = o.SecondMaxIterations
		r.po.IntermediateIterations = o.SecondIntermediateIterations

		current := r.tracker.Record(r.po)
		s.logger.Info(fmt.Sprintf("objective after iteration %d is %s, previous %s",
			i+1, format.Objective(current), format.Objective(previous)),
			zap.String("op", "optimize.mainLoop"),
		)
	}
	return nil
}

// adjustModulation lowers the delivery time budget when the measured
// modulation factor overshoots the target. Skipped on the first iteration
// because no sinogram exists yet. Qualifying on the final iteration extends
// the session by one so a run happens under the lowered budget.
func (r *run) adjustModulation(i int) {
	s := r.s
	o := r.opt
	beams := r.handle.Beamset.Beams
	if len(beams) == 0 {
		return
	}
	if i == 0 {
		return
	}
	oldTime := beams[0].MaxDeliveryTime
	ts := r.setupFor(r.label)
	if ts == nil || ts.Technique != plansys.TechniqueTomoHelical {
		s.logger.Error("reduce modulation not available on non-helical plans",
			zap.String("op", "optimize.adjustModulation"),
			zap.String("beamset", r.label),
		)
		return
	}
	params := tomo.Compute(beams[0].BeamMU, beams[0].CouchOffsets, beams[0].Sinogram)
	for _, b := range ts.Beams {
		ratio := o.ModulationTarget / params.ModulationFactor
		s.logger.Debug(fmt.Sprintf("modulation factor is %.3f against target %.3f",
			params.ModulationFactor, o.ModulationTarget),
			zap.String("op", "optimize.adjustModulation"),
			zap.String("beam", b.Name),
		)
		if !(ratio < 1) {
			continue
		}
		next := oldTime * ratio * constants.ModulationDamping
		b.MaxDeliveryTime = next
		s.logger.Info(fmt.Sprintf("target modulation factor exceeded (%.3f > %.3f), max delivery time updated from %s to %s",
			params.ModulationFactor, o.ModulationTarget,
			format.SecondsValue(oldTime), format.SecondsValue(next)),
			zap.String("op", "optimize.adjustModulation"),
			zap.String("beam", b.Name),
		)
		if i == r.maximum-1 {
			r.maximum++
			s.logger.Info("modulation still above target on the final iteration, extending by one",
				zap.String("op", "optimize.adjustModulation"),
			)
			s.status.Advance("Reducing Mod")
		}
	}
}
