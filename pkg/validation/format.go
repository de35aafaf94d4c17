package validation

import (
	"fmt"

	"github.com/clinrad/planopt/pkg/constants"
)

// ValidateReportFormat checks if the report format is one of the supported formats.
func ValidateReportFormat(format string) error {
	switch format {
	case constants.ReportFormatPretty, constants.ReportFormatYAML, constants.ReportFormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
