package plansys

// Oracle runs dose optimizations against the planning system. Implementations
// mutate the passed optimization in place: a successful run rewrites Progress
// with the run's objective series and updates the objective function value.
type Oracle interface {
	// RunOptimization executes one optimization run under the current
	// iteration budgets. Failures carry an OracleError kind.
	RunOptimization(po *PlanOptimization) (Timing, error)

	// ReduceOARDose runs the organ-at-risk dose reduction pass, maintaining
	// the named targets while improving the named organs at risk.
	ReduceOARDose(po *PlanOptimization, targets, oars []string) (Timing, error)
}

// PlanModel performs plan-level operations outside the optimizer proper.
type PlanModel interface {
	// ApplyDoseGrid sets a uniform default dose grid of the given voxel size
	// in cm and updates the grid's structure set.
	ApplyDoseGrid(handle *SessionHandle, size float64) error

	// ResetOptimization discards prior optimization results, including the
	// progress history.
	ResetOptimization(po *PlanOptimization) error

	// UpdateBackgroundDose recomputes dose for background beamsets whose
	// segments are valid. A no-op when the optimization has no background.
	UpdateBackgroundDose(handle *SessionHandle) error

	// Rescale scales the beamset to its primary prescription and reevaluates
	// the optimization functions.
	Rescale(handle *SessionHandle) error
}

// Persistence saves and restores patient state.
type Persistence interface {
	// Save writes the patient's current state.
	Save(patient *Patient) error

	// Reload discards in-memory state and rebuilds a session handle from the
	// last saved state.
	Reload(ref SessionRef) (*SessionHandle, error)

	// FindPatients returns the patients matching both the ID and last name.
	FindPatients(id, lastName string) ([]PatientRef, error)
}

// StatusSink receives operator-facing progress for a session. Implementations
// must tolerate any call order; the driver plans the step list up front and
// advances through it.
type StatusSink interface {
	// Plan announces the ordered step list before work begins.
	Plan(steps []string)

	// Advance moves to the next planned step.
	Advance(text string)

	// Update replaces the text of the current step.
	Update(text string)

	// Prompt blocks on operator acknowledgment before continuing.
	Prompt(text string)

	// Finish marks the session complete with a closing message.
	Finish(text string)

	// Close tears the sink down without a closing message.
	Close()
}
