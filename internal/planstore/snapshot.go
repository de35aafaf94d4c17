package planstore

import (
	"fmt"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/clinrad/planopt/internal/plansys"
)

const (
	snapshotSchemaVersion = 1
	snapshotFileType      = "patient_snapshot"
)

// snapshot is the on-disk envelope around a patient. The version and type
// fields guard against loading a file this store did not write.
type snapshot struct {
	SchemaVersion int              `yaml:"schemaVersion"`
	FileType      string           `yaml:"fileType"`
	Patient       *plansys.Patient `yaml:"patient"`
}

// atomicWrite marshals v to YAML and renames it into place so readers never
// observe a partial file.
func atomicWrite(path string, v interface{}) error {
	data, err := yamlv3.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// relinkSetupBeams restores beam pointer identity after unmarshalling. The
// YAML encoder writes the beams referenced by treatment setup settings as
// copies of the beamset's beams, so after a load the setup settings would
// otherwise point at distinct objects. Every setup beam is re-pointed at the
// beamset beam with the same name.
func relinkSetupBeams(patient *plansys.Patient) {
	for _, c := range patient.Cases {
		for _, plan := range c.Plans {
			byBeamset := make(map[string]map[string]*plansys.Beam, len(plan.Beamsets))
			for _, bs := range plan.Beamsets {
				byName := make(map[string]*plansys.Beam, len(bs.Beams))
				for _, b := range bs.Beams {
					byName[b.Name] = b
				}
				byBeamset[bs.DicomPlanLabel] = byName
			}
			for _, po := range plan.Optimizations {
				for _, ts := range po.TreatmentSetupSettings {
					byName := byBeamset[ts.BeamsetLabel]
					if byName == nil {
						continue
					}
					for i, b := range ts.Beams {
						if b == nil {
							continue
						}
						if canonical, ok := byName[b.Name]; ok {
							ts.Beams[i] = canonical
						}
					}
				}
			}
		}
	}
}
