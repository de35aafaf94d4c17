// Package report provides shared data structures for optimization session
// results.
package report

import (
	"strconv"
	"strings"

	"github.com/clinrad/planopt/pkg/format"
)

// Report captures the outcome of one optimization session.
type Report struct {
	PatientID    string `json:"patientId" yaml:"patientId"`
	CaseName     string `json:"caseName" yaml:"caseName"`
	PlanName     string `json:"planName" yaml:"planName"`
	BeamsetLabel string `json:"beamsetLabel" yaml:"beamsetLabel"`

	FluenceOnly   bool `json:"fluenceOnly" yaml:"fluenceOnly"`
	VaryGrid      bool `json:"varyGrid" yaml:"varyGrid"`
	SegmentWeight bool `json:"segmentWeight" yaml:"segmentWeight"`
	ReduceOAR     bool `json:"reduceOar" yaml:"reduceOar"`

	IterationCount   int  `json:"iterationCount" yaml:"iterationCount"`
	ReduceOARSuccess bool `json:"reduceOarSuccess" yaml:"reduceOarSuccess"`

	TotalSeconds         float64   `json:"totalSeconds" yaml:"totalSeconds"`
	IterationSeconds     []float64 `json:"iterationSeconds,omitempty" yaml:"iterationSeconds,omitempty"`
	GridChangeSeconds    []float64 `json:"gridChangeSeconds,omitempty" yaml:"gridChangeSeconds,omitempty"`
	SegmentWeightSeconds float64   `json:"segmentWeightSeconds,omitempty" yaml:"segmentWeightSeconds,omitempty"`
	ReduceOARSeconds     float64   `json:"reduceOarSeconds,omitempty" yaml:"reduceOarSeconds,omitempty"`

	ObjectiveHistory []float64 `json:"objectiveHistory,omitempty" yaml:"objectiveHistory,omitempty"`
	StatusSteps      []string  `json:"statusSteps,omitempty" yaml:"statusSteps,omitempty"`
}

// ScreenMessage renders the operator-facing timing summary shown when the
// session completes.
func (r *Report) ScreenMessage() string {
	var b strings.Builder
	b.WriteString("Optimization Time information \n")
	b.WriteString("Total time of the optimization was: " + format.SecondsValue(r.TotalSeconds) + " s\n")
	if r.FluenceOnly {
		r.writeIterationLines(&b)
	} else {
		if r.IterationCount != 0 {
			total := r.writeIterationLines(&b)
			b.WriteString("Total time spent in aperture-based optimization was: " +
				format.SecondsValue(total) + " s\n")
		}
		if r.VaryGrid {
			var total float64
			for _, s := range r.GridChangeSeconds {
				total += s
			}
			b.WriteString("Total time of the dose grid changes was: " +
				format.SecondsValue(total) + " s\n")
		}
		if r.SegmentWeight {
			b.WriteString("Total time of segment weight only was: " +
				format.SecondsValue(r.SegmentWeightSeconds) + " s\n")
		}
		if r.ReduceOAR && r.ReduceOARSuccess {
			b.WriteString("Total Time of Reduce OAR dose operation was: " +
				format.SecondsValue(r.ReduceOARSeconds) + " s\n")
		}
	}
	b.WriteString("Close this screen when complete")
	return b.String()
}

func (r *Report) writeIterationLines(b *strings.Builder) float64 {
	var total float64
	for i, s := range r.IterationSeconds {
		total += s
		b.WriteString("Iteration " + strconv.Itoa(i+1) + ": Time Required " +
			format.SecondsValue(s) + " s\n")
	}
	return total
}
