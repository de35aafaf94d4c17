package validation

import (
	"strings"
	"testing"
)

func TestValidateGridSizes(t *testing.T) {
	tests := []struct {
		name        string
		sizes       []float64
		expectError bool
	}{
		{name: "four positive sizes", sizes: []float64{0.5, 0.4, 0.3, 0.2}, expectError: false},
		{name: "too few sizes", sizes: []float64{0.5, 0.4}, expectError: true},
		{name: "too many sizes", sizes: []float64{0.5, 0.4, 0.3, 0.2, 0.1}, expectError: true},
		{name: "zero size", sizes: []float64{0.5, 0.0, 0.3, 0.2}, expectError: true},
		{name: "negative size", sizes: []float64{0.5, 0.4, -0.3, 0.2}, expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGridSizes(tt.sizes)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateGridSizes(%v) error = %v, expectError %t", tt.sizes, err, tt.expectError)
			}
		})
	}
}

func TestCheckGridOrder(t *testing.T) {
	if warning := CheckGridOrder([]float64{0.5, 0.4, 0.3, 0.2}); warning != "" {
		t.Errorf("CheckGridOrder(descending) = %q, want empty", warning)
	}
	if warning := CheckGridOrder([]float64{0.5, 0.5, 0.3, 0.2}); warning != "" {
		t.Errorf("CheckGridOrder(plateau) = %q, want empty", warning)
	}
	warning := CheckGridOrder([]float64{0.2, 0.3, 0.4, 0.5})
	if warning == "" {
		t.Error("CheckGridOrder(ascending) returned no warning")
	}
}

func TestConfigValidatorFluenceOnly(t *testing.T) {
	cv := &ConfigValidator{
		FluenceOnly:   true,
		SegmentWeight: true,
		ReduceTime:    true,
		ReduceOAR:     true,
	}
	warnings := cv.ValidateAll()
	if len(warnings) != 3 {
		t.Fatalf("ValidateAll() produced %d warnings, want 3: %v", len(warnings), warnings)
	}
	for _, warning := range warnings {
		if !strings.Contains(warning, "fluence-only") {
			t.Errorf("warning %q does not mention fluence-only", warning)
		}
	}
}

func TestConfigValidatorModulationTarget(t *testing.T) {
	cv := &ConfigValidator{ReduceModulation: true, ModulationTarget: 0}
	warnings := cv.ValidateAll()
	if len(warnings) != 1 {
		t.Fatalf("ValidateAll() produced %d warnings, want 1: %v", len(warnings), warnings)
	}

	cv.ModulationTarget = 2.4
	if warnings := cv.ValidateAll(); len(warnings) != 0 {
		t.Errorf("ValidateAll() with valid target produced warnings: %v", warnings)
	}
}

func TestConfigValidatorCleanConfig(t *testing.T) {
	cv := &ConfigValidator{
		VaryGrid:         true,
		GridSizes:        []float64{0.5, 0.4, 0.3, 0.2},
		SegmentWeight:    true,
		ReduceOAR:        true,
		ReduceModulation: true,
		ModulationTarget: 2.4,
		GantrySpacing:    2,
	}
	if warnings := cv.ValidateAll(); len(warnings) != 0 {
		t.Errorf("ValidateAll() on clean config produced warnings: %v", warnings)
	}
}
