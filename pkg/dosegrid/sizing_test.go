package dosegrid

import "testing"

func TestInitialSize(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		varyGrid bool
		first    float64
		want     float64
	}{
		{name: "variable grid uses first scheduled size", label: "Pros_SBR_R0A0", varyGrid: true, first: 0.5, want: 0.5},
		{name: "large field label", label: "TBI__HFS", varyGrid: false, want: 0.4},
		{name: "small field label", label: "Brai_SRS_R1A0", varyGrid: false, want: 0.15},
		{name: "small field lung lobe label", label: "Lung_RUL_R0A0", varyGrid: false, want: 0.15},
		{name: "default label", label: "Pelv_VMA_R0A0", varyGrid: false, want: 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialSize(tt.label, tt.varyGrid, tt.first)
			if got != tt.want {
				t.Errorf("InitialSize(%q, %v, %v) = %v, want %v", tt.label, tt.varyGrid, tt.first, got, tt.want)
			}
		})
	}
}

func TestNeedsResize(t *testing.T) {
	tests := []struct {
		name    string
		current [3]float64
		target  float64
		want    bool
	}{
		{name: "already finer", current: [3]float64{0.1, 0.1, 0.1}, target: 0.2, want: false},
		{name: "exactly at target", current: [3]float64{0.2, 0.2, 0.2}, target: 0.2, want: false},
		{name: "within tolerance", current: [3]float64{0.2004, 0.2, 0.2}, target: 0.2, want: false},
		{name: "coarser in one dimension", current: [3]float64{0.2, 0.2, 0.3}, target: 0.2, want: true},
		{name: "coarser everywhere", current: [3]float64{0.5, 0.5, 0.5}, target: 0.2, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NeedsResize(tt.current, tt.target)
			if got != tt.want {
				t.Errorf("NeedsResize(%v, %v) = %v, want %v", tt.current, tt.target, got, tt.want)
			}
		})
	}
}
