package optimize

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/pkg/format"
)

// segmentWeightPhase reruns optimization with segment shapes frozen so only
// the segment weights move. The freeze lasts for the run; beams leave the
// phase with their previous optimization types. Helical deliveries have no
// segments to weight and skip the phase; co-optimized plans skip it because
// the planning system does not support it there.
func (r *run) segmentWeightPhase() error {
	s := r.s
	if r.handle.Beamset.DeliveryTechnique == plansys.TechniqueTomoHelical {
		s.status.Advance("TomoHelical Plan skipping Segment weight only optimization")
		s.logger.Warn("segment weight based optimization is not supported for TomoHelical",
			zap.String("op", "optimize.segmentWeightPhase"),
			zap.String("beamset", r.label),
		)
		now := s.now()
		r.timings.segmentWeight = plansys.Timing{Start: now, End: now}
		return nil
	}

	s.status.Advance("Running Segment weight only optimization")
	start := s.now()
	if r.po.Cooptimized() {
		s.logger.Warn("co-optimized segment weight-based optimization is not supported by RaySearch as of RS 11",
			zap.String("op", "optimize.segmentWeightPhase"),
		)
		s.status.Prompt("Segment-weight optimization with composite optimization is not supported by RaySearch at this time")
	} else {
		var frozen []*plansys.Beam
		var kept [][]string
		for _, ts := range r.po.TreatmentSetupSettings {
			for _, b := range ts.Beams {
				if b.HasOptimizationType(plansys.OptimizationTypeSegmentOpt) {
					frozen = append(frozen, b)
					kept = append(kept, b.OptimizationTypes)
					b.OptimizationTypes = []string{plansys.OptimizationTypeSegmentMU}
				}
			}
		}
		_, err := s.oracle.RunOptimization(r.po)
		for i, b := range frozen {
			b.OptimizationTypes = kept[i]
		}
		if err != nil {
			if plansys.IsLeafCarriage(err) {
				s.status.Prompt("An issue with MLC optimization has occurred. " +
					"Reduce the jaw limits in beam optimization settings. Error: " + err.Error())
			} else {
				return fmt.Errorf("segment weight optimization: %w", err)
			}
		} else {
			current := r.tracker.Record(r.po)
			s.logger.Info(fmt.Sprintf("objective after segment weight optimization is %s", format.Objective(current)),
				zap.String("op", "optimize.segmentWeightPhase"),
			)
		}
	}
	r.timings.segmentWeight = plansys.Timing{Start: start, End: s.now()}
	return nil
}

// reduceOARPhase runs the organ-at-risk dose reduction pass and reports
// whether it completed. Failure is not a session error; the plan simply keeps
// the pre-phase result.
func (r *run) reduceOARPhase() bool {
	s := r.s
	if r.handle.Beamset.DeliveryTechnique == plansys.TechniqueTomoHelical {
		s.status.Advance("TomoHelical Plan skipping reduce oar dose optimization")
		s.logger.Warn("reduce OAR dose optimization is not supported for TomoHelical",
			zap.String("op", "optimize.reduceOARPhase"),
			zap.String("beamset", r.label),
		)
		now := s.now()
		r.timings.reduceOAR = plansys.Timing{Start: now, End: now}
		return false
	}

	s.status.Advance("Running ReduceOar Dose")
	start := s.now()
	ok := r.reduceOARDose()
	r.timings.reduceOAR = plansys.Timing{Start: start, End: s.now()}
	if !ok {
		s.logger.Warn("ReduceOAR failed",
			zap.String("op", "optimize.reduceOARPhase"),
		)
		return false
	}
	s.logger.Info("ReduceOAR successfully completed",
		zap.String("op", "optimize.reduceOARPhase"),
	)
	current := r.tracker.Record(r.po)
	s.logger.Info(fmt.Sprintf("objective after reduce OAR dose is %s", format.Objective(current)),
		zap.String("op", "optimize.reduceOARPhase"),
	)
	return true
}

// reduceOARDose partitions the objective ROIs into targets and organs at risk
// and hands them to the oracle's reduction pass.
func (r *run) reduceOARDose() bool {
	s := r.s
	if r.po.Objective == nil {
		return false
	}
	composite := false
	for _, term := range r.po.Objective.Terms {
		if term.ForBeamsetLabel != "" {
			composite = true
			break
		}
	}
	if composite {
		s.status.Prompt("ReduceOAR with composite optimization is not supported by RaySearch as of RS 11")
		s.logger.Warn("reduce OAR dose is not supported with composite optimization",
			zap.String("op", "optimize.reduceOARDose"),
		)
		return false
	}

	var targets, oars []string
	for _, term := range r.po.Objective.Terms {
		if term.OrganType == plansys.OrganTypeTarget {
			if !containsString(targets, term.RoiName) {
				targets = append(targets, term.RoiName)
			}
		} else if !containsString(oars, term.RoiName) {
			oars = append(oars, term.RoiName)
		}
	}
	s.logger.Info(fmt.Sprintf("reduce OAR dose executing with targets %s and oars %s",
		strings.Join(targets, ", "), strings.Join(oars, ", ")),
		zap.String("op", "optimize.reduceOARDose"),
	)

	if _, err := s.oracle.ReduceOARDose(r.po, targets, oars); err != nil {
		s.logger.Warn(fmt.Sprintf("reduce OAR dose failed, %s", err),
			zap.String("op", "optimize.reduceOARDose"),
		)
		return false
	}
	return true
}
