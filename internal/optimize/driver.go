// Package optimize drives iterative warmstart optimization sessions against
// a treatment planning system. A session resets prior results, runs the
// configured number of aperture-based warmstarts with optional dose grid
// refinement and modulation control, then applies the selected finishing
// phases and reports timing and objective history.
package optimize

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/clinrad/planopt/internal/config"
	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/internal/status"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/dosegrid"
	"github.com/clinrad/planopt/pkg/format"
	"github.com/clinrad/planopt/pkg/report"
)

// Deps bundles the backends a session drives. Status and Now are optional;
// the rest are required.
type Deps struct {
	Oracle plansys.Oracle
	Model  plansys.PlanModel
	Store  plansys.Persistence
	Status plansys.StatusSink
	Now    func() time.Time
}

// Session executes optimization runs for one configuration.
type Session struct {
	logger *zap.Logger
	conf   *config.Configuration
	oracle plansys.Oracle
	model  plansys.PlanModel
	store  plansys.Persistence
	status plansys.StatusSink
	now    func() time.Time
}

// NewSession validates the configuration and dependencies and returns a
// session ready to run. Time reduction requires a unique patient record up
// front because a failed reduction pass rolls back through a reload.
func NewSession(logger *zap.Logger, conf *config.Configuration, deps Deps) (*Session, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Oracle == nil {
		return nil, fmt.Errorf("optimization oracle cannot be nil")
	}
	if deps.Model == nil {
		return nil, fmt.Errorf("plan model cannot be nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("persistence store cannot be nil")
	}
	if deps.Status == nil {
		deps.Status = status.NopSink{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed, %w", err)
	}

	if conf.Optimization.ReduceTime {
		refs, err := deps.Store.FindPatients(conf.Patient.ID, conf.Patient.LastName)
		if err != nil {
			return nil, fmt.Errorf("patient lookup for time reduction rollback, %w", err)
		}
		if len(refs) != 1 {
			return nil, &plansys.ConfigurationError{
				Field:  "optimization.reduceTime",
				Reason: fmt.Sprintf("patient %s is non-unique, %d records match", conf.Patient.ID, len(refs)),
			}
		}
	}

	return &Session{
		logger: logger,
		conf:   conf,
		oracle: deps.Oracle,
		model:  deps.Model,
		store:  deps.Store,
		status: deps.Status,
		now:    deps.Now,
	}, nil
}

// run carries the mutable state of one session execution. The handle and
// optimization pointers are replaced wholesale when a rollback reloads saved
// state, so phases always read them through the run.
type run struct {
	s                *Session
	handle           *plansys.SessionHandle
	po               *plansys.PlanOptimization
	opt              *config.OptimizationConfig
	label            string
	schedule         []float64
	maximum          int
	tracker          *ObjectiveTracker
	timings          sessionTimings
	steps            []string
	reduceOARSuccess bool
}

type sessionTimings struct {
	total         plansys.Timing
	iterations    []plansys.Timing
	gridChanges   []plansys.Timing
	segmentWeight plansys.Timing
	reduceOAR     plansys.Timing
}

// Run executes the configured session against the loaded handle and returns
// the session report. The patient is saved before any mutation so a time
// reduction rollback has a state to return to.
func (s *Session) Run(handle *plansys.SessionHandle) (*report.Report, error) {
	if handle == nil || handle.Patient == nil {
		return nil, &plansys.ConfigurationError{Field: "patient", Reason: "no patient loaded, load patient, case, and plan"}
	}
	if handle.Case == nil {
		return nil, &plansys.ConfigurationError{Field: "case", Reason: "no case loaded, load patient, case, and plan"}
	}
	if handle.Plan == nil {
		return nil, &plansys.ConfigurationError{Field: "plan", Reason: "no plan loaded, load patient and plan"}
	}
	if handle.Beamset == nil {
		return nil, &plansys.ConfigurationError{Field: "beamset", Reason: "no beamset loaded"}
	}
	if err := s.store.Save(handle.Patient); err != nil {
		return nil, fmt.Errorf("initial patient save: %w", err)
	}

	label := handle.Beamset.DicomPlanLabel
	po := handle.Optimization
	if po == nil {
		po = handle.Plan.FindOptimization(label)
		handle.Optimization = po
	}
	if po == nil {
		return nil, fmt.Errorf("no optimization found for beamset %s", label)
	}

	o := &s.conf.Optimization
	r := &run{
		s:       s,
		handle:  handle,
		po:      po,
		opt:     o,
		label:   label,
		maximum: o.IterationCount,
		tracker: &ObjectiveTracker{},
	}
	if o.VaryGrid && !o.FluenceOnly {
		r.schedule = BuildSchedule(o.IterationCount, o.GridSizes)
	}

	r.timings.total.Start = s.now()
	r.steps = buildStatusSteps(o, r.schedule, r.maximum)
	s.status.Plan(r.steps)
	s.logger.Info(fmt.Sprintf("%s automated optimization started with reset beams %t, %d warmstarts",
		label, o.ResetBeamsEnabled(), o.IterationCount),
		zap.String("op", "optimize.Run"),
	)

	if err := r.setup(); err != nil {
		return nil, err
	}

	if o.FluenceOnly {
		if err := r.fluencePhase(); err != nil {
			return nil, err
		}
	} else {
		if err := r.prepareConstraints(); err != nil {
			if plansys.IsRestartRequired(err) {
				s.status.Finish("Restart required")
			}
			return nil, err
		}
		if err := r.mainLoop(); err != nil {
			return nil, err
		}
		if o.ReduceTime {
			if err := r.reduceTimePhase(); err != nil {
				return nil, err
			}
		}
		if o.SegmentWeight {
			if err := r.segmentWeightPhase(); err != nil {
				return nil, err
			}
		}
		if o.ReduceOAREnabled() {
			r.reduceOARSuccess = r.reduceOARPhase()
		}
	}

	r.timings.total.End = s.now()

	if o.SaveAtComplete {
		if err := s.store.Save(r.handle.Patient); err != nil {
			return nil, fmt.Errorf("final patient save: %w", err)
		}
		s.status.Advance("Save Complete")
	}

	rep := r.buildReport()
	s.logger.Info(fmt.Sprintf("%s automated optimization finished", label),
		zap.String("op", "optimize.Run"),
		zap.Float64("totalSeconds", rep.TotalSeconds),
	)
	s.status.Advance("Optimization summary")
	if o.CloseStatus {
		s.status.Close()
	} else {
		s.status.Finish(rep.ScreenMessage())
	}
	return rep, nil
}

// setup initializes the optimization parameters, the dose grid, and the beam
// reset before the first run.
func (r *run) setup() error {
	s := r.s
	o := r.opt
	s.status.Advance("Setting initialization variables")
	s.logger.Debug("setting initialization variables",
		zap.String("op", "optimize.setup"),
		zap.String("beamset", r.label),
	)

	if err := s.model.UpdateBackgroundDose(r.handle); err != nil {
		return fmt.Errorf("background dose update: %w", err)
	}

	if o.Robust != nil {
		r.po.Robustness = o.Robust.ToSpec()
	}

	r.po.ComputeFinalDose = true
	r.po.AutoScale = false
	r.po.OptimalityTolerance = constants.OptimalityTolerance
	r.po.MaxIterations = o.InitialMaxIterations
	r.po.IntermediateIterations = o.InitialIntermediateIterations

	var first float64
	if o.VaryGrid && len(o.GridSizes) > 0 {
		first = o.GridSizes[0]
	}
	size := dosegrid.InitialSize(r.label, o.VaryGrid, first)
	grid := r.handle.Beamset.DoseGrid
	switch {
	case grid == nil:
		if err := s.model.ApplyDoseGrid(r.handle, size); err != nil {
			return fmt.Errorf("initial dose grid: %w", err)
		}
		if err := s.store.Save(r.handle.Patient); err != nil {
			return fmt.Errorf("patient save after dose grid init: %w", err)
		}
		s.logger.Debug(fmt.Sprintf("no dose grid found, initialized to %s", format.Voxel(size)),
			zap.String("op", "optimize.setup"),
		)
	case dosegrid.NeedsResize(grid.VoxelSize, size):
		if err := s.model.ApplyDoseGrid(r.handle, size); err != nil {
			return fmt.Errorf("initial dose grid: %w", err)
		}
		s.logger.Debug(fmt.Sprintf("dose grid changed to %s", format.Voxel(size)),
			zap.String("op", "optimize.setup"),
		)
	default:
		s.logger.Debug(fmt.Sprintf("dose grid already at or below %s, no grid changes", format.Voxel(size)),
			zap.String("op", "optimize.setup"),
		)
	}

	if o.ResetBeamsEnabled() {
		if err := s.model.ResetOptimization(r.po); err != nil {
			return fmt.Errorf("reset optimization: %w", err)
		}
		s.status.Advance("Resetting Optimization")
	}

	if current := r.tracker.Record(r.po); !math.IsInf(current, 1) {
		s.logger.Info(fmt.Sprintf("current objective function value is %s", format.Objective(current)),
			zap.String("op", "optimize.setup"),
		)
	}
	return nil
}

// fluencePhase runs a single fluence-based optimization in place of the
// warmstart loop.
func (r *run) fluencePhase() error {
	s := r.s
	s.logger.Info("user selected fluence optimization only",
		zap.String("op", "optimize.fluencePhase"),
		zap.String("beamset", r.label),
	)
	s.status.Advance("Running fluence-based optimization")

	r.po.ComputeFinalDose = false
	r.po.MaxIterations = constants.FluenceMaxIterations
	r.po.IntermediateIterations = constants.FluenceIntermediateIterations

	start := s.now()
	if _, err := s.oracle.RunOptimization(r.po); err != nil {
		return fmt.Errorf("fluence optimization: %w", err)
	}
	r.timings.iterations = append(r.timings.iterations, plansys.Timing{Start: start, End: s.now()})

	current := r.tracker.Record(r.po)
	s.logger.Info(fmt.Sprintf("objective after fluence optimization is %s", format.Objective(current)),
		zap.String("op", "optimize.fluencePhase"),
	)
	return nil
}

// buildStatusSteps plans the operator-facing step list for the configured
// session shape.
func buildStatusSteps(o *config.OptimizationConfig, schedule []float64, maximum int) []string {
	steps := []string{"Initialize optimization"}
	if o.ResetBeamsEnabled() {
		steps = append(steps, "Reset Beams")
	}
	if o.FluenceOnly {
		steps = append(steps, "Optimize Fluence Only")
	} else {
		for i := 0; i < maximum; i++ {
			if o.VaryGrid && i < len(schedule) && schedule[i] != 0 {
				steps = append(steps, "Change dose grid to: "+format.Voxel(schedule[i]))
			}
			if o.ReduceModulation && i == maximum-1 {
				steps = append(steps, "Reduce Modulation on Iteration: "+strconv.Itoa(i+1))
			} else {
				steps = append(steps, "Complete Iteration:"+strconv.Itoa(i+1))
			}
		}
		if o.ReduceTime {
			steps = append(steps, "Reducing Time for TomoTherapy.")
		}
		if o.SegmentWeight {
			steps = append(steps, "Complete Segment weight optimization")
		}
		if o.ReduceOAREnabled() {
			steps = append(steps, "Reduce OAR Dose")
		}
	}
	if o.SaveAtComplete {
		steps = append(steps, "Save Patient")
	}
	steps = append(steps, "Provide Optimization Report")
	return steps
}

// setupFor returns the treatment setup settings for the named beamset, or nil
// when the optimization has none.
func (r *run) setupFor(label string) *plansys.SetupSettings {
	for _, ts := range r.po.TreatmentSetupSettings {
		if ts.BeamsetLabel == label {
			return ts
		}
	}
	return nil
}

func (r *run) buildReport() *report.Report {
	o := r.opt
	rep := &report.Report{
		PatientID:        r.handle.Patient.ID,
		CaseName:         r.handle.Case.Name,
		PlanName:         r.handle.Plan.Name,
		BeamsetLabel:     r.label,
		FluenceOnly:      o.FluenceOnly,
		VaryGrid:         o.VaryGrid,
		SegmentWeight:    o.SegmentWeight,
		ReduceOAR:        o.ReduceOAREnabled(),
		IterationCount:   o.IterationCount,
		ReduceOARSuccess: r.reduceOARSuccess,
		TotalSeconds:     r.timings.total.Elapsed().Seconds(),
		ObjectiveHistory: r.tracker.History(),
		StatusSteps:      append([]string(nil), r.steps...),
	}
	for _, t := range r.timings.iterations {
		rep.IterationSeconds = append(rep.IterationSeconds, t.Elapsed().Seconds())
	}
	for _, t := range r.timings.gridChanges {
		rep.GridChangeSeconds = append(rep.GridChangeSeconds, t.Elapsed().Seconds())
	}
	rep.SegmentWeightSeconds = r.timings.segmentWeight.Elapsed().Seconds()
	rep.ReduceOARSeconds = r.timings.reduceOAR.Elapsed().Seconds()
	return rep
}
