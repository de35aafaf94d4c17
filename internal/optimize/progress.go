package optimize

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/pkg/tomo"
)

// progressRecord is the per-iteration snapshot written to the progress
// directory.
type progressRecord struct {
	Iteration    int                `yaml:"iteration"`
	PatientID    string             `yaml:"patientId"`
	BeamsetLabel string             `yaml:"beamsetLabel"`
	Seconds      float64            `yaml:"seconds"`
	Objectives   []float64          `yaml:"objectives,omitempty"`
	TomoBeams    []tomoBeamProgress `yaml:"tomoBeams,omitempty"`
}

type tomoBeamProgress struct {
	Name             string  `yaml:"name"`
	DeliveryTime     float64 `yaml:"deliveryTime"`
	GantryPeriod     float64 `yaml:"gantryPeriod"`
	CouchSpeed       float64 `yaml:"couchSpeed"`
	TotalTravel      float64 `yaml:"totalTravel"`
	ModulationFactor float64 `yaml:"modulationFactor"`
}

// writeProgress snapshots the run's objective series and, for helical plans,
// the delivery parameters of every beam.
func (r *run) writeProgress(iteration int, timing plansys.Timing) error {
	if err := os.MkdirAll(r.opt.ProgressDir, 0o755); err != nil {
		return err
	}

	rec := progressRecord{
		Iteration:    iteration + 1,
		PatientID:    r.handle.Patient.ID,
		BeamsetLabel: r.label,
		Seconds:      timing.Elapsed().Seconds(),
		Objectives:   append([]float64(nil), r.po.Progress...),
	}
	if r.handle.Beamset.DeliveryTechnique == plansys.TechniqueTomoHelical {
		for _, b := range r.handle.Beamset.Beams {
			p := tomo.Compute(b.BeamMU, b.CouchOffsets, b.Sinogram)
			rec.TomoBeams = append(rec.TomoBeams, tomoBeamProgress{
				Name:             b.Name,
				DeliveryTime:     p.Time,
				GantryPeriod:     p.GantryPeriod,
				CouchSpeed:       p.CouchSpeed,
				TotalTravel:      p.TotalTravel,
				ModulationFactor: p.ModulationFactor,
			})
		}
	}

	out, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	stamp := r.s.now().Format("01022006_150405")
	name := fmt.Sprintf("%s_%s_%s.yaml", r.handle.Patient.ID, r.label, stamp)
	return os.WriteFile(filepath.Join(r.opt.ProgressDir, name), out, 0o644)
}
