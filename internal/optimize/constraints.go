package optimize

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clinrad/planopt/internal/config"
	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/dosegrid"
)

// restartReason is the shared explanation for constraints that cannot be
// retrofitted onto a beam that has already delivered MU.
const restartReason = "select reset beams on next run of script"

// setupPolicy carries the label-derived values shared by every treatment
// setup in a session.
type setupPolicy struct {
	margin         float64
	minSegmentArea float64
	minSegmentMU   float64
}

// policyFor derives the setup policy from the selected beamset label and the
// configured overrides. Stereotactic labels shrink the treat margin unless an
// explicit margin is configured; prolonged-delivery labels raise the segment
// minimums.
func policyFor(label string, conf *config.OptimizationConfig) setupPolicy {
	pol := setupPolicy{
		margin:         constants.DefaultTreatMargin,
		minSegmentArea: constants.DefaultMinSegmentArea,
		minSegmentMU:   constants.DefaultMinSegmentMU,
	}
	if conf.TreatMargin > 0 {
		pol.margin = conf.TreatMargin
	} else if dosegrid.IsSmallField(label) {
		pol.margin = constants.SmallFieldTreatMargin
	}
	if strings.Contains(label, constants.ProlongedDeliveryMarker) {
		pol.minSegmentArea = constants.ProlongedDeliveryMinSegmentArea
		pol.minSegmentMU = constants.ProlongedDeliveryMinSegmentMU
	}
	return pol
}

// prepareConstraints applies per-technique beam constraints ahead of the
// main loop. A constraint that cannot be retrofitted onto an already
// optimized beam returns a RestartRequiredError and the session must be
// rerun with beam reset enabled.
func (r *run) prepareConstraints() error {
	pol := policyFor(r.label, r.opt)
	for _, ts := range r.po.TreatmentSetupSettings {
		switch ts.Technique {
		case plansys.TechniqueTomoHelical:
			r.s.logger.Debug("tomo plan, control point spacing not set",
				zap.String("op", "optimize.prepareConstraints"),
				zap.String("beamset", ts.BeamsetLabel),
			)
		case plansys.TechniqueSMLC:
			if err := r.prepareSMLC(ts, pol); err != nil {
				return err
			}
		case plansys.TechniqueDynamicArc:
			if err := r.prepareDynamicArc(ts, pol); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepareSMLC constrains a static-field setup: treat margins on unoptimized
// beams, beam splitting off, segment shape minimums, and the TrueBeamSTx jaw
// envelope.
func (r *run) prepareSMLC(ts *plansys.SetupSettings, pol setupPolicy) error {
	s := r.s
	if r.opt.TreatSettingsEnabled() {
		for _, b := range ts.Beams {
			if b.BeamMU > 0 {
				s.logger.Debug("beam already optimized, not applying treat settings",
					zap.String("op", "optimize.prepareSMLC"),
					zap.String("beam", b.Name),
				)
				continue
			}
			applyTreatMargins(b, selectTreatROIs(r.po, ts.BeamsetLabel), pol.margin)
		}
	}

	for _, b := range ts.Beams {
		if b.BeamMU > 0 {
			s.logger.Debug("beam already optimized, beam splitting preference not applied",
				zap.String("op", "optimize.prepareSMLC"),
				zap.String("beam", b.Name),
			)
			continue
		}
		b.AllowBeamSplit = false
	}

	var mu float64
	for _, b := range ts.Beams {
		mu += b.BeamMU
	}
	if mu > 0 {
		s.logger.Warn("this plan may not have typical SMLC optimization params enforced",
			zap.String("op", "optimize.prepareSMLC"),
			zap.String("beamset", ts.BeamsetLabel),
		)
	} else {
		ts.SegmentConversion = plansys.SegmentConversion{
			MaxSegments:          len(ts.Beams) * constants.MaxSegmentsPerBeam,
			MinLeafPairs:         constants.DefaultMinLeafPairs,
			MinLeafEndSeparation: constants.DefaultMinLeafEndSeparation,
			MinSegmentArea:       pol.minSegmentArea,
			MinSegmentMU:         pol.minSegmentMU,
		}
	}

	if r.opt.TreatSettingsEnabled() && ts.Machine == constants.MachineTrueBeamSTx {
		return r.limitJaws(ts)
	}
	return nil
}

// prepareDynamicArc constrains an arc setup: treat margins, the final gantry
// spacing cap, and the TrueBeamSTx jaw envelope.
func (r *run) prepareDynamicArc(ts *plansys.SetupSettings, pol setupPolicy) error {
	s := r.s
	if r.opt.TreatSettingsEnabled() {
		for _, b := range ts.Beams {
			if b.BeamMU > 0 {
				s.logger.Debug(fmt.Sprintf("beam %s already optimized, not applying treat settings", b.Name),
					zap.String("op", "optimize.prepareDynamicArc"),
				)
				continue
			}
			applyTreatMargins(b, selectTreatROIs(r.po, ts.BeamsetLabel), pol.margin)
		}
	}

	spacingCap := r.opt.GantrySpacing
	if spacingCap <= 0 {
		spacingCap = constants.DefaultGantrySpacing
	}
	if ts.GantrySpacing > spacingCap {
		for _, b := range ts.Beams {
			if b.BeamMU > 0 {
				s.logger.Info("beamset already optimized with gantry spacing above the cap, reset needed",
					zap.String("op", "optimize.prepareDynamicArc"),
					zap.String("beam", b.Name),
					zap.Float64("gantrySpacing", ts.GantrySpacing),
				)
				return &plansys.RestartRequiredError{Reason: restartReason}
			}
		}
		ts.GantrySpacing = spacingCap
	}

	if r.opt.TreatSettingsEnabled() && ts.Machine == constants.MachineTrueBeamSTx {
		return r.limitJaws(ts)
	}
	return nil
}

// limitJaws constrains every beam of the setup to the TrueBeamSTx aperture
// envelope.
func (r *run) limitJaws(ts *plansys.SetupSettings) error {
	s := r.s
	s.logger.Info(fmt.Sprintf("machine is %s, setting max jaw limits", ts.Machine),
		zap.String("op", "optimize.limitJaws"),
		zap.String("beamset", ts.BeamsetLabel),
	)
	envelope := plansys.JawLimits{
		X1: constants.TrueBeamSTxJawX1,
		X2: constants.TrueBeamSTxJawX2,
		Y1: constants.TrueBeamSTxJawY1,
		Y2: constants.TrueBeamSTxJawY2,
	}
	for _, b := range ts.Beams {
		if err := applyJawLimit(b, envelope); err != nil {
			s.logger.Debug(fmt.Sprintf("beam %s already optimized with unconstrained jaws, reset needed", b.Name),
				zap.String("op", "optimize.limitJaws"),
			)
			return err
		}
	}
	return nil
}

// applyJawLimit clamps the beam's jaw limits to the envelope. Limits already
// inside the envelope are left alone. Changing limits forces segment shape
// re-optimization, which is only safe before the beam has delivered MU.
func applyJawLimit(b *plansys.Beam, envelope plansys.JawLimits) error {
	if b.JawLimits != nil && envelope.Contains(*b.JawLimits) {
		return nil
	}
	modified := envelope
	if b.JawLimits != nil {
		modified = b.JawLimits.Intersect(envelope)
	}
	if b.BeamMU > 0 {
		return &plansys.RestartRequiredError{Reason: restartReason}
	}
	b.JawLimits = &modified
	b.AllowBeamSplit = false
	b.OptimizationTypes = []string{plansys.OptimizationTypeSegmentOpt, plansys.OptimizationTypeSegmentMU}
	return nil
}

// selectTreatROIs returns the target ROI names eligible for treat margins on
// the named beamset. Only minimum dose, uniform dose, and target EUD terms
// qualify; under co-optimization the term must additionally be bound to that
// beamset.
func selectTreatROIs(po *plansys.PlanOptimization, beamsetLabel string) []string {
	if po.Objective == nil {
		return nil
	}
	coopt := po.Cooptimized()
	var rois []string
	for _, term := range po.Objective.Terms {
		switch term.FunctionType {
		case plansys.FunctionMinDose, plansys.FunctionUniformDose, plansys.FunctionTargetEud:
		default:
			continue
		}
		if coopt && term.ForBeamsetLabel != beamsetLabel {
			continue
		}
		if !containsString(rois, term.RoiName) {
			rois = append(rois, term.RoiName)
		}
	}
	return rois
}

// applyTreatMargins records the treat/protect selection on the beam.
func applyTreatMargins(b *plansys.Beam, rois []string, margin float64) {
	b.TreatROIs = append([]string(nil), rois...)
	b.TreatMargin = margin
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
