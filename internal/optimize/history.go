package optimize

import (
	"math"

	"github.com/clinrad/planopt/internal/plansys"
)

// ObjectiveTracker accumulates the cumulative objective series reported by
// successive optimization runs. The last recorded value is the authoritative
// current objective; before any run has produced progress the tracker reports
// a +Inf sentinel, so the first real value always counts as improvement.
type ObjectiveTracker struct {
	history []float64
}

// Record appends the latest run's objective series and returns the new
// current value. A run that reported no progress leaves the history untouched
// and returns the cold-start sentinel; no data is never mistaken for
// convergence.
func (t *ObjectiveTracker) Record(po *plansys.PlanOptimization) float64 {
	if po == nil || len(po.Progress) == 0 {
		return math.Inf(1)
	}
	t.history = append(t.history, po.Progress...)
	return t.history[len(t.history)-1]
}

// Current returns the most recent objective value, or the cold-start
// sentinel when nothing has been recorded.
func (t *ObjectiveTracker) Current() float64 {
	if len(t.history) == 0 {
		return math.Inf(1)
	}
	return t.history[len(t.history)-1]
}

// History returns a copy of every recorded value in order.
func (t *ObjectiveTracker) History() []float64 {
	out := make([]float64, len(t.history))
	copy(out, t.history)
	return out
}
