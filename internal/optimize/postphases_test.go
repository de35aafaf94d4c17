package optimize

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clinrad/planopt/internal/config"
	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/internal/status"
)

func phaseRun(oracle plansys.Oracle, sink plansys.StatusSink, handle *plansys.SessionHandle) *run {
	return &run{
		s: &Session{
			logger: zap.NewNop(),
			oracle: oracle,
			status: sink,
			now:    time.Now,
		},
		handle:  handle,
		po:      handle.Optimization,
		opt:     &config.OptimizationConfig{},
		label:   handle.Beamset.DicomPlanLabel,
		tracker: &ObjectiveTracker{},
	}
}

func TestSegmentWeightSkipsHelical(t *testing.T) {
	oracle := &fakeOracle{}
	sink := &status.RecordingSink{}
	r := phaseRun(oracle, sink, helicalHandle("Pelv_THI_R0A0"))

	if err := r.segmentWeightPhase(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oracle.runs != 0 {
		t.Errorf("expected no runs for a helical plan, got %d", oracle.runs)
	}
	if len(sink.Advances) != 1 || !strings.Contains(sink.Advances[0], "skipping Segment weight") {
		t.Errorf("expected the skip step, got %v", sink.Advances)
	}
}

func TestSegmentWeightFreezesShapesForTheRun(t *testing.T) {
	handle := smlcHandle("Brea_SML_R0A0", "", 85, nil)
	beam := handle.Optimization.TreatmentSetupSettings[0].Beams[0]
	beam.OptimizationTypes = []string{plansys.OptimizationTypeSegmentOpt}

	var duringRun []string
	oracle := &fakeOracle{onRun: func(po *plansys.PlanOptimization) {
		duringRun = append([]string(nil), beam.OptimizationTypes...)
	}}
	sink := &status.RecordingSink{}
	r := phaseRun(oracle, sink, handle)

	if err := r.segmentWeightPhase(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oracle.runs != 1 {
		t.Fatalf("expected one segment weight run, got %d", oracle.runs)
	}
	if len(duringRun) != 1 || duringRun[0] != plansys.OptimizationTypeSegmentMU {
		t.Errorf("expected segment shapes frozen to weight-only during the run, got %v", duringRun)
	}
	if len(beam.OptimizationTypes) != 1 || beam.OptimizationTypes[0] != plansys.OptimizationTypeSegmentOpt {
		t.Errorf("expected optimization types restored after the run, got %v", beam.OptimizationTypes)
	}
	if len(r.tracker.History()) == 0 {
		t.Error("expected the run's objective recorded")
	}
}

func TestSegmentWeightCooptimizedPrompts(t *testing.T) {
	oracle := &fakeOracle{}
	sink := &status.RecordingSink{}
	handle := smlcHandle("Tota_TBI_FFS", "", 0, nil)
	handle.Optimization.TreatmentSetupSettings = append(handle.Optimization.TreatmentSetupSettings,
		&plansys.SetupSettings{BeamsetLabel: "Tota_TBI_HFS", Technique: plansys.TechniqueSMLC})
	r := phaseRun(oracle, sink, handle)

	if err := r.segmentWeightPhase(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oracle.runs != 0 {
		t.Errorf("expected no runs under co-optimization, got %d", oracle.runs)
	}
	if len(sink.Prompts) != 1 || !strings.Contains(sink.Prompts[0], "composite optimization is not supported") {
		t.Errorf("expected the unsupported prompt, got %v", sink.Prompts)
	}
}

func TestSegmentWeightLeafCarriageContinues(t *testing.T) {
	oracle := &fakeOracle{
		failAt:  1,
		failErr: &plansys.OracleError{Kind: plansys.OracleLeafCarriage, Err: fmt.Errorf("leaf outside carriage on segment 4")},
	}
	sink := &status.RecordingSink{}
	handle := smlcHandle("Brea_SML_R0A0", "", 85, nil)
	r := phaseRun(oracle, sink, handle)

	if err := r.segmentWeightPhase(); err != nil {
		t.Fatalf("expected the session to continue past a leaf carriage failure, got %v", err)
	}
	if len(sink.Prompts) != 1 || !strings.HasPrefix(sink.Prompts[0], "An issue with MLC optimization has occurred.") {
		t.Errorf("expected the MLC recovery prompt, got %v", sink.Prompts)
	}
}

func TestSegmentWeightUnknownFailureAborts(t *testing.T) {
	oracle := &fakeOracle{
		failAt:  1,
		failErr: &plansys.OracleError{Kind: plansys.OracleUnknown, Err: fmt.Errorf("license expired")},
	}
	sink := &status.RecordingSink{}
	handle := smlcHandle("Brea_SML_R0A0", "", 85, nil)
	r := phaseRun(oracle, sink, handle)

	err := r.segmentWeightPhase()
	if err == nil || !strings.Contains(err.Error(), "segment weight optimization") {
		t.Fatalf("expected the failure wrapped, got %v", err)
	}
}

func TestReduceOARSkipsHelical(t *testing.T) {
	oracle := &fakeOracle{}
	sink := &status.RecordingSink{}
	r := phaseRun(oracle, sink, helicalHandle("Pelv_THI_R0A0"))

	if ok := r.reduceOARPhase(); ok {
		t.Error("expected the phase reported as skipped for a helical plan")
	}
	if oracle.oarCalls != 0 {
		t.Errorf("expected no reduction passes for a helical plan, got %d", oracle.oarCalls)
	}
	if len(sink.Advances) != 1 || !strings.Contains(sink.Advances[0], "skipping reduce oar dose") {
		t.Errorf("expected the skip step, got %v", sink.Advances)
	}
}

func TestReduceOARPartitionsROIs(t *testing.T) {
	oracle := &fakeOracle{}
	sink := &status.RecordingSink{}
	handle := smlcHandle("Brea_SML_R0A0", "", 85, nil)
	r := phaseRun(oracle, sink, handle)

	if ok := r.reduceOARPhase(); !ok {
		t.Fatal("expected the phase to succeed")
	}
	if oracle.oarCalls != 1 {
		t.Fatalf("expected one reduction pass, got %d", oracle.oarCalls)
	}
	if len(oracle.oarTargets) != 1 || oracle.oarTargets[0] != "PTV_6000" {
		t.Errorf("expected the target rois maintained, got %v", oracle.oarTargets)
	}
	if len(oracle.oarOARs) != 1 || oracle.oarOARs[0] != "Heart" {
		t.Errorf("expected the organ at risk rois reduced, got %v", oracle.oarOARs)
	}
}

func TestReduceOARCompositeDeclines(t *testing.T) {
	oracle := &fakeOracle{}
	sink := &status.RecordingSink{}
	handle := smlcHandle("Tota_TBI_FFS", "", 0, nil)
	terms := handle.Optimization.Objective.Terms
	for i := range terms {
		terms[i].ForBeamsetLabel = "Tota_TBI_FFS"
	}
	r := phaseRun(oracle, sink, handle)

	if ok := r.reduceOARPhase(); ok {
		t.Error("expected the phase declined under composite optimization")
	}
	if oracle.oarCalls != 0 {
		t.Errorf("expected no reduction passes under composite optimization, got %d", oracle.oarCalls)
	}
	if len(sink.Prompts) != 1 || !strings.Contains(sink.Prompts[0], "composite optimization") {
		t.Errorf("expected the unsupported prompt, got %v", sink.Prompts)
	}
}

func TestReduceOARFailureReportsFalse(t *testing.T) {
	oracle := &fakeOracle{oarErr: fmt.Errorf("reduction solver failed")}
	sink := &status.RecordingSink{}
	handle := smlcHandle("Brea_SML_R0A0", "", 85, nil)
	r := phaseRun(oracle, sink, handle)

	if ok := r.reduceOARPhase(); ok {
		t.Error("expected a failed reduction reported as unsuccessful")
	}
	if oracle.oarCalls != 1 {
		t.Errorf("expected the reduction attempted once, got %d", oracle.oarCalls)
	}
}

func TestReduceOARWithoutObjective(t *testing.T) {
	oracle := &fakeOracle{}
	sink := &status.RecordingSink{}
	handle := smlcHandle("Brea_SML_R0A0", "", 85, nil)
	handle.Optimization.Objective = nil
	r := phaseRun(oracle, sink, handle)

	if ok := r.reduceOARPhase(); ok {
		t.Error("expected the phase declined without an objective")
	}
	if oracle.oarCalls != 0 {
		t.Errorf("expected no reduction passes without an objective, got %d", oracle.oarCalls)
	}
}
