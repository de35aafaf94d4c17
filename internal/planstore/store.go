// Package planstore persists patient state as YAML snapshots on disk. A
// snapshot is written atomically on every save, and a reload rebuilds a full
// session handle from the last written snapshot, which is what the delivery
// time reduction rollback depends on.
package planstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/clinrad/planopt/internal/plansys"
)

// Store is a file-per-patient snapshot store rooted at a state directory.
type Store struct {
	logger *zap.Logger
	dir    string
}

var _ plansys.Persistence = (*Store)(nil)

// NewStore returns a store rooted at dir. The directory is created lazily on
// the first save.
func NewStore(logger *zap.Logger, dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger, dir: dir}, nil
}

// SnapshotPath returns the snapshot file for a patient ID.
func (s *Store) SnapshotPath(patientID string) string {
	return filepath.Join(s.dir, "patients", patientID+".yaml")
}

// Exists reports whether a snapshot has been written for the patient.
func (s *Store) Exists(patientID string) bool {
	_, err := os.Stat(s.SnapshotPath(patientID))
	return err == nil
}

// Save writes the patient's current state. The write is atomic so a crash
// mid-save leaves the previous snapshot intact.
func (s *Store) Save(patient *plansys.Patient) error {
	if patient == nil {
		return fmt.Errorf("patient cannot be nil")
	}
	if strings.TrimSpace(patient.ID) == "" {
		return fmt.Errorf("patient id cannot be empty")
	}

	path := s.SnapshotPath(patient.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	snap := snapshot{
		SchemaVersion: snapshotSchemaVersion,
		FileType:      snapshotFileType,
		Patient:       patient,
	}
	if err := atomicWrite(path, snap); err != nil {
		return fmt.Errorf("write snapshot %s: %w", patient.ID, err)
	}
	s.logger.Debug(fmt.Sprintf("saved snapshot for patient %s", patient.ID),
		zap.String("op", "planstore.Save"),
		zap.String("path", path),
	)
	return nil
}

// Reload rebuilds a session handle from the patient's last saved snapshot.
// The returned handle shares nothing with any live handle; callers swap it in
// wholesale.
func (s *Store) Reload(ref plansys.SessionRef) (*plansys.SessionHandle, error) {
	patient, err := s.load(ref.PatientID)
	if err != nil {
		return nil, err
	}
	if patient.LastName != ref.LastName {
		return nil, fmt.Errorf("snapshot for patient %s holds last name %q, want %q",
			ref.PatientID, patient.LastName, ref.LastName)
	}

	c := patient.FindCase(ref.CaseName)
	if c == nil {
		return nil, fmt.Errorf("case %s not found in snapshot for patient %s", ref.CaseName, ref.PatientID)
	}
	plan := c.FindPlan(ref.PlanName)
	if plan == nil {
		return nil, fmt.Errorf("plan %s not found in snapshot for patient %s", ref.PlanName, ref.PatientID)
	}
	beamset := plan.FindBeamset(ref.BeamsetLabel)
	if beamset == nil {
		return nil, fmt.Errorf("beamset %s not found in snapshot for patient %s", ref.BeamsetLabel, ref.PatientID)
	}

	s.logger.Debug(fmt.Sprintf("reloaded snapshot for patient %s", ref.PatientID),
		zap.String("op", "planstore.Reload"),
		zap.String("beamset", ref.BeamsetLabel),
	)
	return &plansys.SessionHandle{
		Patient:      patient,
		Case:         c,
		Plan:         plan,
		Beamset:      beamset,
		Optimization: plan.FindOptimization(ref.BeamsetLabel),
	}, nil
}

// FindPatients returns the saved patients matching both the ID and last name.
func (s *Store) FindPatients(id, lastName string) ([]plansys.PatientRef, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "patients"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var refs []plansys.PatientRef
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		patient, err := s.load(strings.TrimSuffix(entry.Name(), ".yaml"))
		if err != nil {
			return nil, err
		}
		if patient.ID == id && patient.LastName == lastName {
			refs = append(refs, plansys.PatientRef{ID: patient.ID, LastName: patient.LastName})
		}
	}
	return refs, nil
}

func (s *Store) load(patientID string) (*plansys.Patient, error) {
	path := s.SnapshotPath(patientID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot not found for patient %s", patientID)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", patientID, err)
	}

	var snap snapshot
	if err := yamlv3.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", patientID, err)
	}
	if snap.SchemaVersion != snapshotSchemaVersion {
		return nil, fmt.Errorf("unsupported schemaVersion %d for snapshot %s (expected %d)",
			snap.SchemaVersion, patientID, snapshotSchemaVersion)
	}
	if snap.FileType != snapshotFileType {
		return nil, fmt.Errorf("unexpected fileType %q for snapshot %s (expected %s)",
			snap.FileType, patientID, snapshotFileType)
	}
	if snap.Patient == nil {
		return nil, fmt.Errorf("snapshot %s holds no patient", patientID)
	}

	relinkSetupBeams(snap.Patient)
	return snap.Patient, nil
}
