package testutil

import "testing"

func TestFindStep(t *testing.T) {
	steps := []string{
		"Initialize optimization",
		"Reset Beams",
		"Complete Iteration:1",
		"Complete Iteration:2",
		"Provide Optimization Report",
	}

	tests := []struct {
		name       string
		searchText string
		expected   int
	}{
		{
			name:       "Find first step",
			searchText: "Initialize optimization",
			expected:   0,
		},
		{
			name:       "Find middle step",
			searchText: "Complete Iteration:1",
			expected:   2,
		},
		{
			name:       "Find last step",
			searchText: "Provide Optimization Report",
			expected:   4,
		},
		{
			name:       "Search for non-existent step",
			searchText: "Save Patient",
			expected:   -1,
		},
		{
			name:       "Empty search text",
			searchText: "",
			expected:   -1,
		},
		{
			name:       "Case sensitive search",
			searchText: "reset beams",
			expected:   -1,
		},
		{
			name:       "Partial text does not match",
			searchText: "Complete Iteration",
			expected:   -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindStep(steps, tt.searchText); got != tt.expected {
				t.Errorf("FindStep() = %d, expected %d for %q", got, tt.expected, tt.searchText)
			}
		})
	}
}

func TestFindStepEmptySteps(t *testing.T) {
	if got := FindStep([]string{}, "Initialize optimization"); got != -1 {
		t.Errorf("FindStep() with empty steps should return -1, got %d", got)
	}
}

func TestFindStepNilSteps(t *testing.T) {
	if got := FindStep(nil, "Initialize optimization"); got != -1 {
		t.Errorf("FindStep() with nil steps should return -1, got %d", got)
	}
}

func TestFindStepDuplicates(t *testing.T) {
	steps := []string{"Save Patient", "Complete Iteration:1", "Save Patient"}

	if got := FindStep(steps, "Save Patient"); got != 0 {
		t.Errorf("FindStep() should return the first match, got index %d", got)
	}
}

func TestFloatPtr(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"Zero", 0},
		{"Positive", 123.456},
		{"Negative", -98.76},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FloatPtr(tt.value)
			if p == nil {
				t.Fatalf("FloatPtr() returned nil")
			}
			if *p != tt.value {
				t.Errorf("FloatPtr() = %v, expected %v", *p, tt.value)
			}
		})
	}
}

func TestFloatPtrDistinctPointers(t *testing.T) {
	a := FloatPtr(1.5)
	b := FloatPtr(1.5)

	if a == b {
		t.Errorf("FloatPtr() should return a fresh pointer per call")
	}

	*a = 2.5
	if *b != 1.5 {
		t.Errorf("Modifying one pointer should not affect another, got %v", *b)
	}
}
