package phantom

import (
	"fmt"

	"github.com/clinrad/planopt/internal/config"
	"github.com/clinrad/planopt/internal/plansys"
)

// Phantom geometry. Every helical beam gets the same couch travel and
// sinogram, so delivery parameters derived from them are reproducible.
const (
	defaultDeliveryTime   = 300.0
	helicalProjectionTime = 0.3
	staticBeamMU          = 100.0
)

var (
	helicalCouchOffsets = []float64{0, 2.5, 5, 7.5, 10}
	helicalSinogram     = [][]float64{
		{0.2, 0.8, 0.4},
		{0.5, 0.6, 0.3},
		{0.4, 0.4, 0.2},
	}
)

// BuildHandle constructs the in-memory patient graph described by the
// configuration's patient and case sections and returns a handle selecting
// the configured beamset. Setup beams alias the beamset beams, matching the
// planning system's object identity. Beamsets beyond the first co-optimize
// under a single plan optimization.
func BuildHandle(conf *config.Configuration) (*plansys.SessionHandle, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	conf.Normalize()
	cs := &conf.Case

	beamsets := make([]*plansys.Beamset, 0, len(cs.Beamsets))
	setups := make([]*plansys.SetupSettings, 0, len(cs.Beamsets))
	labels := make([]string, 0, len(cs.Beamsets))
	for i := range cs.Beamsets {
		spec := &cs.Beamsets[i]
		technique := plansys.Technique(spec.Technique)

		beams := make([]*plansys.Beam, 0, len(spec.Beams))
		for _, bspec := range spec.Beams {
			beams = append(beams, buildBeam(technique, spec, bspec))
		}
		beamsets = append(beamsets, &plansys.Beamset{
			DicomPlanLabel:    spec.Label,
			DeliveryTechnique: technique,
			Beams:             beams,
		})

		setup := &plansys.SetupSettings{
			BeamsetLabel: spec.Label,
			Technique:    technique,
			Machine:      spec.Machine,
			Beams:        beams,
		}
		if technique == plansys.TechniqueDynamicArc {
			setup.GantrySpacing = conf.Optimization.GantrySpacing
		}
		setups = append(setups, setup)
		labels = append(labels, spec.Label)
	}

	po := &plansys.PlanOptimization{
		OptimizedBeamsets:      labels,
		TreatmentSetupSettings: setups,
		Objective:              buildObjective(cs.Objectives),
	}
	plan := &plansys.Plan{
		Name:          cs.Plan,
		Beamsets:      beamsets,
		Optimizations: []*plansys.PlanOptimization{po},
	}
	c := &plansys.Case{Name: cs.Name, Plans: []*plansys.Plan{plan}}
	patient := &plansys.Patient{
		ID:       conf.Patient.ID,
		LastName: conf.Patient.LastName,
		Cases:    []*plansys.Case{c},
	}

	beamset := plan.FindBeamset(cs.Beamset)
	if beamset == nil {
		return nil, fmt.Errorf("selected beamset %q is not defined in the case", cs.Beamset)
	}
	return &plansys.SessionHandle{
		Patient:      patient,
		Case:         c,
		Plan:         plan,
		Beamset:      beamset,
		Optimization: po,
	}, nil
}

func buildBeam(technique plansys.Technique, spec *config.BeamsetSpec, bspec config.BeamSpec) *plansys.Beam {
	b := &plansys.Beam{
		Name:           bspec.Name,
		BeamMU:         bspec.MU,
		AllowBeamSplit: true,
	}
	if technique == plansys.TechniqueTomoHelical {
		b.MaxDeliveryTime = spec.DeliveryTime
		if b.MaxDeliveryTime <= 0 {
			b.MaxDeliveryTime = defaultDeliveryTime
		}
		b.CouchOffsets, b.Sinogram = helicalGeometry()
	}
	return b
}

// helicalGeometry returns fresh copies so beams never share backing arrays.
func helicalGeometry() ([]float64, [][]float64) {
	offsets := append([]float64(nil), helicalCouchOffsets...)
	sino := make([][]float64, len(helicalSinogram))
	for i, row := range helicalSinogram {
		sino[i] = append([]float64(nil), row...)
	}
	return offsets, sino
}

func buildObjective(specs []config.ObjectiveSpec) *plansys.Objective {
	if len(specs) == 0 {
		return nil
	}
	terms := make([]plansys.ObjectiveTerm, 0, len(specs))
	for _, o := range specs {
		terms = append(terms, plansys.ObjectiveTerm{
			RoiName:         o.Roi,
			OrganType:       o.OrganType,
			FunctionType:    o.FunctionType,
			ForBeamsetLabel: o.ForBeamset,
		})
	}
	return &plansys.Objective{Terms: terms}
}
