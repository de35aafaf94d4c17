package output

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/clinrad/planopt/pkg/report"
)

func sampleReport() *report.Report {
	return &report.Report{
		PatientID:            "ZZUWQA001",
		CaseName:             "Case1",
		PlanName:             "Plan1",
		BeamsetLabel:         "Pelv_THI_R0A0",
		VaryGrid:             true,
		SegmentWeight:        true,
		ReduceOAR:            true,
		IterationCount:       3,
		ReduceOARSuccess:     true,
		TotalSeconds:         512.25,
		IterationSeconds:     []float64{45.2, 38.1, 36.4},
		GridChangeSeconds:    []float64{12.5, 8.25},
		SegmentWeightSeconds: 22.0,
		ReduceOARSeconds:     31.5,
		ObjectiveHistory:     []float64{123.456789, 98.7654321},
		StatusSteps:          []string{"Initialize optimization"},
	}
}

func TestPrettyString(t *testing.T) {
	output := PrettyString(sampleReport())

	expected := []string{
		"--- Optimization report for patient ZZUWQA001, beamset Pelv_THI_R0A0 ---",
		"Case Case1, plan Plan1",
		"Total time: 512.2 s",
		"Iteration | Time",
		"        1 | 45.2 s",
		"        3 | 36.4 s",
		"Dose grid changes: 2 taking 20.8 s",
		"Segment weight only time: 22.0 s",
		"Reduce OAR dose succeeded taking 31.5 s",
		"Objective moved from 1.234568e+02 to 9.876543e+01 over 2 recorded values",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyString missing %q in output:\n%s", want, output)
		}
	}
}

func TestPrettyStringFailedReduceOAR(t *testing.T) {
	rep := sampleReport()
	rep.ReduceOARSuccess = false

	output := PrettyString(rep)
	if !strings.Contains(output, "Reduce OAR dose failed taking 31.5 s") {
		t.Errorf("PrettyString should report the failed reduce OAR pass, got:\n%s", output)
	}
}

func TestPrettyStringMinimalReport(t *testing.T) {
	rep := &report.Report{
		PatientID:    "ZZUWQA002",
		BeamsetLabel: "Lung_SMLC_R0A0",
		TotalSeconds: 10,
	}

	output := PrettyString(rep)
	if !strings.Contains(output, "Total time: 10.0 s") {
		t.Errorf("PrettyString missing total time, got:\n%s", output)
	}
	if strings.Contains(output, "Iteration |") {
		t.Errorf("PrettyString should omit the iteration table without iteration data")
	}
	if strings.Contains(output, "Reduce OAR") {
		t.Errorf("PrettyString should omit reduce OAR when the phase was not configured")
	}
}

func TestRenderFormats(t *testing.T) {
	rep := sampleReport()

	tests := []struct {
		name     string
		format   string
		contains []string
	}{
		{
			name:     "pretty",
			format:   "pretty",
			contains: []string{"--- Optimization report for patient ZZUWQA001"},
		},
		{
			name:     "default is pretty",
			format:   "",
			contains: []string{"--- Optimization report for patient ZZUWQA001"},
		},
		{
			name:     "yaml",
			format:   "yaml",
			contains: []string{"patientId: ZZUWQA001", "beamsetLabel: Pelv_THI_R0A0", "totalSeconds: 512.25"},
		},
		{
			name:     "json",
			format:   "json",
			contains: []string{`"patientId": "ZZUWQA001"`, `"iterationSeconds"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := Render(rep, tt.format)
			if err != nil {
				t.Fatalf("Render(%q) returned error: %v", tt.format, err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("Render(%q) missing %q in output:\n%s", tt.format, want, output)
				}
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := Render(nil, "pretty"); err == nil {
		t.Errorf("Render should reject a nil report")
	}
	if _, err := Render(sampleReport(), "csv"); err == nil {
		t.Errorf("Render should reject an unsupported format")
	}
}

func TestPrettyFormat(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	PrettyFormat(sampleReport())

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	output := buf.String()

	if !strings.Contains(output, "--- Optimization report for patient ZZUWQA001") {
		t.Errorf("PrettyFormat missing report header")
	}
	if output != PrettyString(sampleReport()) {
		t.Errorf("PrettyFormat and PrettyString output mismatch")
	}
}
