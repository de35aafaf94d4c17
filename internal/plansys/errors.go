package plansys

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a session input that cannot be used as given.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Reason)
}

// RestartRequiredError stops a session that cannot proceed until the operator
// reruns it with beam reset enabled.
type RestartRequiredError struct {
	Reason string
}

func (e *RestartRequiredError) Error() string {
	return "restart required: " + e.Reason
}

// OracleErrorKind classifies optimization run failures by their scripted
// recovery.
type OracleErrorKind int

const (
	// OracleUnknown covers failures with no scripted recovery; the session
	// aborts.
	OracleUnknown OracleErrorKind = iota

	// OracleInfeasibleGantry means the delivery time budget is below what the
	// machine can deliver at any gantry period.
	OracleInfeasibleGantry

	// OracleLeafCarriage means a segment places a leaf outside its carriage;
	// the operator can recover by tightening jaw limits.
	OracleLeafCarriage
)

func (k OracleErrorKind) String() string {
	switch k {
	case OracleInfeasibleGantry:
		return "infeasible gantry period"
	case OracleLeafCarriage:
		return "leaf out of carriage"
	default:
		return "unknown"
	}
}

// OracleError wraps an optimization run failure with its classified kind.
type OracleError struct {
	Kind OracleErrorKind
	Err  error
}

func (e *OracleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("optimization failed (%s)", e.Kind)
	}
	return fmt.Sprintf("optimization failed (%s): %v", e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// IsInfeasibleGantry reports whether err is an oracle failure caused by an
// infeasible gantry period.
func IsInfeasibleGantry(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe) && oe.Kind == OracleInfeasibleGantry
}

// IsLeafCarriage reports whether err is an oracle failure caused by a leaf
// leaving its carriage.
func IsLeafCarriage(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe) && oe.Kind == OracleLeafCarriage
}

// IsRestartRequired reports whether err requires a rerun with beam reset.
func IsRestartRequired(err error) bool {
	var re *RestartRequiredError
	return errors.As(err, &re)
}
