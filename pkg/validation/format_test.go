package validation

import (
	"strings"
	"testing"

	"github.com/clinrad/planopt/pkg/constants"
)

func TestValidateReportFormat(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		expectError bool
	}{
		{name: "pretty", format: constants.ReportFormatPretty, expectError: false},
		{name: "yaml", format: constants.ReportFormatYAML, expectError: false},
		{name: "json", format: constants.ReportFormatJSON, expectError: false},
		{name: "csv is not a report format", format: "csv", expectError: true},
		{name: "empty string", format: "", expectError: true},
		{name: "uppercase rejected", format: "JSON", expectError: true},
		{name: "mixed case rejected", format: "Pretty", expectError: true},
		{name: "whitespace not trimmed", format: " yaml ", expectError: true},
		{name: "prefix of a valid format", format: "pret", expectError: true},
		{name: "valid format with suffix", format: "jsonl", expectError: true},
		{name: "hyphenated variant", format: "pretty-print", expectError: true},
		{name: "xml", format: "xml", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReportFormat(tt.format)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateReportFormat(%q) error = %v, expectError %t", tt.format, err, tt.expectError)
			}
		})
	}
}

func TestValidateReportFormatErrorNamesFormat(t *testing.T) {
	for _, format := range []string{"csv", "xml", "text"} {
		err := ValidateReportFormat(format)
		if err == nil {
			t.Fatalf("ValidateReportFormat(%q) = nil, want error", format)
		}
		if !strings.Contains(err.Error(), format) {
			t.Errorf("error %q does not name the rejected format %q", err, format)
		}
	}
}
