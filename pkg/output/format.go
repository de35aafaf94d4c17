// Package output provides utilities for formatting and displaying
// optimization session reports.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/format"
	"github.com/clinrad/planopt/pkg/report"
)

// Render returns the report in the named format. An empty name renders the
// pretty format.
func Render(rep *report.Report, formatName string) (string, error) {
	if rep == nil {
		return "", fmt.Errorf("report cannot be nil")
	}
	switch formatName {
	case constants.ReportFormatPretty, "":
		return PrettyString(rep), nil
	case constants.ReportFormatYAML:
		return YamlString(rep)
	case constants.ReportFormatJSON:
		return JsonString(rep)
	default:
		return "", fmt.Errorf("unsupported report format: %s", formatName)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(rep *report.Report) {
	fmt.Print(PrettyString(rep))
}

// PrettyString renders the human-readable report.
func PrettyString(rep *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Optimization report for patient %s, beamset %s ---\n", rep.PatientID, rep.BeamsetLabel)
	fmt.Fprintf(&b, "Case %s, plan %s\n", rep.CaseName, rep.PlanName)
	fmt.Fprintf(&b, "Total time: %s s\n", format.SecondsValue(rep.TotalSeconds))

	if len(rep.IterationSeconds) > 0 {
		b.WriteString("Iteration | Time\n")
		b.WriteString("_________ | ____\n")
		for i, s := range rep.IterationSeconds {
			fmt.Fprintf(&b, "%9d | %s s\n", i+1, format.SecondsValue(s))
		}
	}

	if rep.VaryGrid && len(rep.GridChangeSeconds) > 0 {
		var total float64
		for _, s := range rep.GridChangeSeconds {
			total += s
		}
		fmt.Fprintf(&b, "Dose grid changes: %d taking %s s\n",
			len(rep.GridChangeSeconds), format.SecondsValue(total))
	}
	if rep.SegmentWeight {
		fmt.Fprintf(&b, "Segment weight only time: %s s\n",
			format.SecondsValue(rep.SegmentWeightSeconds))
	}
	if rep.ReduceOAR {
		state := "failed"
		if rep.ReduceOARSuccess {
			state = "succeeded"
		}
		fmt.Fprintf(&b, "Reduce OAR dose %s taking %s s\n",
			state, format.SecondsValue(rep.ReduceOARSeconds))
	}

	if len(rep.ObjectiveHistory) > 0 {
		first := rep.ObjectiveHistory[0]
		last := rep.ObjectiveHistory[len(rep.ObjectiveHistory)-1]
		fmt.Fprintf(&b, "Objective moved from %s to %s over %d recorded values\n",
			format.Objective(first), format.Objective(last), len(rep.ObjectiveHistory))
	}
	return b.String()
}

// YamlString renders the report as YAML.
func YamlString(rep *report.Report) (string, error) {
	data, err := yamlv3.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

// JsonString renders the report as indented JSON.
func JsonString(rep *report.Report) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data) + "\n", nil
}
