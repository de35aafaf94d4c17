package phantom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinrad/planopt/internal/config"
	"github.com/clinrad/planopt/internal/plansys"
)

func buildConfig() *config.Configuration {
	return &config.Configuration{
		Patient: config.PatientSpec{ID: "ZZUWQA001", LastName: "Practice"},
		Case: config.CaseSpec{
			Name:    "Case1",
			Plan:    "Plan1",
			Beamset: "Pelv_THI_R0A0",
			Beamsets: []config.BeamsetSpec{{
				Label:     "Pelv_THI_R0A0",
				Technique: "TomoHelical",
				Beams:     []config.BeamSpec{{Name: "B1"}},
			}},
			Objectives: []config.ObjectiveSpec{
				{Roi: "PTV_5000", OrganType: "Target", FunctionType: "MinDose"},
				{Roi: "SpinalCord", FunctionType: "MaxDose"},
			},
		},
	}
}

func TestBuildHandleAliasesSetupBeams(t *testing.T) {
	handle, err := BuildHandle(buildConfig())
	require.NoError(t, err)

	require.NotNil(t, handle.Optimization)
	require.Len(t, handle.Optimization.TreatmentSetupSettings, 1)
	require.Same(t, handle.Beamset.Beams[0], handle.Optimization.TreatmentSetupSettings[0].Beams[0])
}

func TestBuildHandleHelicalGeometry(t *testing.T) {
	handle, err := BuildHandle(buildConfig())
	require.NoError(t, err)

	beam := handle.Beamset.Beams[0]
	assert.Equal(t, defaultDeliveryTime, beam.MaxDeliveryTime)
	assert.NotEmpty(t, beam.CouchOffsets)
	assert.NotEmpty(t, beam.Sinogram)

	conf := buildConfig()
	conf.Case.Beamsets[0].DeliveryTime = 250
	handle, err = BuildHandle(conf)
	require.NoError(t, err)
	assert.Equal(t, 250.0, handle.Beamset.Beams[0].MaxDeliveryTime)
}

func TestBuildHandleBeamsShareNoGeometry(t *testing.T) {
	conf := buildConfig()
	conf.Case.Beamsets[0].Beams = []config.BeamSpec{{Name: "B1"}, {Name: "B2"}}

	handle, err := BuildHandle(conf)
	require.NoError(t, err)
	require.Len(t, handle.Beamset.Beams, 2)

	first, second := handle.Beamset.Beams[0], handle.Beamset.Beams[1]
	first.Sinogram[0][0] = 99
	assert.NotEqual(t, 99.0, second.Sinogram[0][0])
	first.CouchOffsets[0] = 99
	assert.NotEqual(t, 99.0, second.CouchOffsets[0])
}

func TestBuildHandleCooptimization(t *testing.T) {
	conf := buildConfig()
	conf.Case.Beamsets = append(conf.Case.Beamsets, config.BeamsetSpec{
		Label:     "Pelv_SMLC_R1A0",
		Technique: "SMLC",
		Machine:   "TrueBeamSTx",
		Beams:     []config.BeamSpec{{Name: "A1"}, {Name: "A2"}},
	})

	handle, err := BuildHandle(conf)
	require.NoError(t, err)

	po := handle.Optimization
	require.Len(t, po.TreatmentSetupSettings, 2)
	assert.True(t, po.Cooptimized())
	assert.Equal(t, []string{"Pelv_THI_R0A0", "Pelv_SMLC_R1A0"}, po.OptimizedBeamsets)
	assert.Equal(t, "TrueBeamSTx", po.TreatmentSetupSettings[1].Machine)
	require.Len(t, handle.Plan.Beamsets, 2)
	assert.Equal(t, "Pelv_THI_R0A0", handle.Beamset.DicomPlanLabel)
}

func TestBuildHandleObjectiveTerms(t *testing.T) {
	handle, err := BuildHandle(buildConfig())
	require.NoError(t, err)

	require.NotNil(t, handle.Optimization.Objective)
	terms := handle.Optimization.Objective.Terms
	require.Len(t, terms, 2)
	assert.Equal(t, plansys.ObjectiveTerm{
		RoiName:      "PTV_5000",
		OrganType:    plansys.OrganTypeTarget,
		FunctionType: plansys.FunctionMinDose,
	}, terms[0])

	conf := buildConfig()
	conf.Case.Objectives = nil
	handle, err = BuildHandle(conf)
	require.NoError(t, err)
	assert.Nil(t, handle.Optimization.Objective)
}

func TestBuildHandleArcGantrySpacing(t *testing.T) {
	conf := buildConfig()
	conf.Case.Beamset = "Pros_VMAT_R0A0"
	conf.Case.Beamsets = []config.BeamsetSpec{{
		Label:     "Pros_VMAT_R0A0",
		Technique: "DynamicArc",
		Beams:     []config.BeamSpec{{Name: "A1"}},
	}}
	conf.Optimization.GantrySpacing = 4

	handle, err := BuildHandle(conf)
	require.NoError(t, err)
	assert.Equal(t, 4.0, handle.Optimization.TreatmentSetupSettings[0].GantrySpacing)

	conf.Optimization.GantrySpacing = 0
	handle, err = BuildHandle(conf)
	require.NoError(t, err)
	assert.Equal(t, 2.0, handle.Optimization.TreatmentSetupSettings[0].GantrySpacing)
}

func TestBuildHandleSelectionErrors(t *testing.T) {
	_, err := BuildHandle(nil)
	require.Error(t, err)

	conf := buildConfig()
	conf.Case.Beamset = "Missing"
	_, err = BuildHandle(conf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `selected beamset "Missing"`)
}
